package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	"github.com/smallbiznis/waterworks/internal/clock"
	"github.com/smallbiznis/waterworks/internal/config"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoiceService struct {
	batches atomic.Int64
}

func (s *stubInvoiceService) GenerateFromBills(ctx context.Context, tenantID, actorID snowflake.ID, bills []billdomain.Bill) (*invoicedomain.GenerateResult, error) {
	return &invoicedomain.GenerateResult{}, nil
}

func (s *stubInvoiceService) GenerateBatch(ctx context.Context, tenantID, actorID snowflake.ID) (*invoicedomain.GenerateResult, error) {
	s.batches.Add(1)
	return &invoicedomain.GenerateResult{InvoicesCreated: 1, BillsInvoiced: 2}, nil
}

func (s *stubInvoiceService) ApplyOverpayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, overpayment decimal.Decimal) (*invoicedomain.OverpaymentResult, error) {
	return &invoicedomain.OverpaymentResult{}, nil
}

func (s *stubInvoiceService) FindOpenByCustomer(ctx context.Context, tenantID, customerID snowflake.ID) ([]invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *stubInvoiceService) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, cfg config.Config, svc invoicedomain.Service) *Scheduler {
	t.Helper()
	return New(Params{
		Cfg:        cfg,
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)),
		InvoiceSvc: svc,
	})
}

func TestEnabled(t *testing.T) {
	svc := &stubInvoiceService{}

	disabled := newTestScheduler(t, config.Config{}, svc)
	assert.False(t, disabled.Enabled())

	noTenant := newTestScheduler(t, config.Config{BatchInterval: 6}, svc)
	assert.False(t, noTenant.Enabled())

	enabled := newTestScheduler(t, config.Config{BatchInterval: 6, DefaultTenantID: 77}, svc)
	assert.True(t, enabled.Enabled())
}

func TestSweep_RunsBatchWithoutLock(t *testing.T) {
	svc := &stubInvoiceService{}
	s := newTestScheduler(t, config.Config{BatchInterval: 6, DefaultTenantID: 77}, svc)

	s.sweep()
	s.sweep()

	assert.Equal(t, int64(2), svc.batches.Load())
}

func TestStartStop_DisabledClosesImmediately(t *testing.T) {
	svc := &stubInvoiceService{}
	s := newTestScheduler(t, config.Config{}, svc)

	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Zero(t, svc.batches.Load())
}
