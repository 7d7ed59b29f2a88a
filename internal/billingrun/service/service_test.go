package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	accountrepo "github.com/smallbiznis/waterworks/internal/account/repository"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	billservice "github.com/smallbiznis/waterworks/internal/bill/service"
	rundomain "github.com/smallbiznis/waterworks/internal/billingrun/domain"
	"github.com/smallbiznis/waterworks/internal/clock"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	customerrepo "github.com/smallbiznis/waterworks/internal/customer/repository"
	financeservice "github.com/smallbiznis/waterworks/internal/finance/service"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/waterworks/internal/invoice/service"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/waterworks/internal/ledger/service"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	meterrepo "github.com/smallbiznis/waterworks/internal/meter/repository"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/waterworks/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type runHarness struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      rundomain.Service
	tenantID snowflake.ID
}

func setupRunTest(t *testing.T) *runHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&ledgerdomain.Journal{},
		&customerdomain.Customer{},
		&meterdomain.Meter{},
		&meterdomain.MeterAssignment{},
		&billdomain.Bill{},
		&billdomain.ReferenceSequence{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceBill{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fixed := clock.NewFakeClock(time.Date(2026, time.July, 5, 6, 0, 0, 0, time.UTC))

	billSvc := billservice.NewService(billservice.Params{
		DB: db, Log: log, GenID: node, Clock: fixed, Repo: billrepo.Provide(),
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, AccountRepo: accountrepo.Provide(),
	})
	financeSvc := financeservice.NewService(financeservice.Params{
		DB: db, Log: log,
		MeterRepo:    meterrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		InvoiceRepo:  invoicerepo.Provide(),
		PaymentRepo:  paymentrepo.Provide(),
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB: db, Log: log, GenID: node, Clock: fixed,
		Repo:      invoicerepo.Provide(),
		BillRepo:  billrepo.Provide(),
		MeterRepo: meterrepo.Provide(),
		Ledger:    ledgerSvc,
		Finance:   financeSvc,
	})
	svc := NewService(Params{
		DB: db, Log: log,
		BillSvc:      billSvc,
		InvoiceSvc:   invoiceSvc,
		CustomerRepo: customerrepo.Provide(),
		MeterRepo:    meterrepo.Provide(),
	})

	h := &runHarness{db: db, node: node, svc: svc, tenantID: node.Generate()}
	h.seedChart(t)
	return h
}

func (h *runHarness) seedChart(t *testing.T) {
	t.Helper()
	chart := map[accountdomain.Code]accountdomain.AccountType{
		accountdomain.CodeBank:               accountdomain.TypeAsset,
		accountdomain.CodeARControl:          accountdomain.TypeAsset,
		accountdomain.CodeCustomerPrepayment: accountdomain.TypeLiability,
		accountdomain.CodeRevenueConsumption: accountdomain.TypeRevenue,
		accountdomain.CodeRevenueServiceFee:  accountdomain.TypeRevenue,
		accountdomain.CodeRevenueAdjustments: accountdomain.TypeRevenue,
	}
	for code, typ := range chart {
		require.NoError(t, h.db.Create(&accountdomain.Account{
			ID:       h.node.Generate(),
			TenantID: h.tenantID,
			Code:     code,
			Name:     string(code),
			Type:     typ,
		}).Error)
	}
}

// seedCustomer creates a customer with the given number of active
// metered connections.
func (h *runHarness) seedCustomer(t *testing.T, name string, meters int) snowflake.ID {
	t.Helper()
	customer := customerdomain.Customer{ID: h.node.Generate(), TenantID: h.tenantID, Name: name}
	require.NoError(t, h.db.Create(&customer).Error)
	for i := 0; i < meters; i++ {
		id := h.node.Generate()
		meter := meterdomain.Meter{
			ID:          id,
			TenantID:    h.tenantID,
			MeterNumber: fmt.Sprintf("MTR-%06d", id%1000000),
			Active:      true,
		}
		require.NoError(t, h.db.Create(&meter).Error)
		require.NoError(t, h.db.Create(&meterdomain.MeterAssignment{
			ID: h.node.Generate(), TenantID: h.tenantID,
			CustomerID: customer.ID, MeterID: meter.ID,
			Active: true, AssignedAt: time.Now(),
		}).Error)
	}
	return customer.ID
}

func consumptionTemplate(amount int64) rundomain.BillTemplate {
	return rundomain.BillTemplate{
		BillType:    billdomain.BillTypeConsumption,
		Amount:      decimal.NewFromInt(amount),
		RateUsed:    decimal.NewFromInt(1),
		TotalAmount: decimal.NewFromInt(amount),
		Description: "Monthly water consumption",
	}
}

func TestProcessBatch_CreatesBillsAcrossCustomers(t *testing.T) {
	h := setupRunTest(t)
	ctx := context.Background()
	first := h.seedCustomer(t, "Achieng Odhiambo", 1)
	second := h.seedCustomer(t, "Baraka Mwangi", 2)

	result, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, h.node.Generate(),
		[]snowflake.ID{first, second}, consumptionTemplate(600), "", false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created, "one bill per active assignment")
	assert.Equal(t, "2026-JUL-001", result.Reference, "minted when none supplied")
	assert.Empty(t, result.Errors)
	assert.Zero(t, result.Skipped)

	var count int64
	require.NoError(t, h.db.Model(&billdomain.Bill{}).
		Where("tenant_id = ? AND bill_ref = ?", h.tenantID, result.Reference).
		Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestProcessBatch_RerunSkipsBilledCustomers(t *testing.T) {
	h := setupRunTest(t)
	ctx := context.Background()
	actorID := h.node.Generate()
	billed := h.seedCustomer(t, "Chep Koech", 1)
	fresh := h.seedCustomer(t, "Dalia Hassan", 1)

	first, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, actorID,
		[]snowflake.ID{billed}, consumptionTemplate(400), "2026-JUL-002", false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, actorID,
		[]snowflake.ID{billed, fresh}, consumptionTemplate(400), "2026-JUL-002", false)
	require.NoError(t, err)

	assert.Equal(t, 1, second.Created, "only the fresh customer billed")
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, []snowflake.ID{billed}, second.SkippedCustomers)

	var count int64
	require.NoError(t, h.db.Model(&billdomain.Bill{}).
		Where("tenant_id = ? AND customer_id = ?", h.tenantID, billed).
		Count(&count).Error)
	assert.EqualValues(t, 1, count, "no duplicate for the skipped customer")
}

func TestProcessBatch_ErrorIsolation(t *testing.T) {
	h := setupRunTest(t)
	ctx := context.Background()
	unmetered := h.seedCustomer(t, "Esther Njoki", 0)
	metered := h.seedCustomer(t, "Farah Abdi", 1)
	missing := h.node.Generate()

	result, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, h.node.Generate(),
		[]snowflake.ID{missing, unmetered, metered}, consumptionTemplate(250), "2026-JUL-003", false)
	require.NoError(t, err, "per-customer failures never abort the run")

	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "not found")
	assert.Contains(t, result.Errors[1], "No active meter assignments found")
}

func TestProcessBatch_ForeignTenantCustomerNotFound(t *testing.T) {
	h := setupRunTest(t)
	ctx := context.Background()

	foreign := customerdomain.Customer{ID: h.node.Generate(), TenantID: h.node.Generate(), Name: "Other Utility"}
	require.NoError(t, h.db.Create(&foreign).Error)

	result, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, 0,
		[]snowflake.ID{foreign.ID}, consumptionTemplate(100), "2026-JUL-004", false)
	require.NoError(t, err)

	assert.Zero(t, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")

	var count int64
	require.NoError(t, h.db.Model(&billdomain.Bill{}).Count(&count).Error)
	assert.Zero(t, count, "nothing written for the foreign tenant")
}

func TestProcessBatch_RejectsMalformedReference(t *testing.T) {
	h := setupRunTest(t)
	_, err := h.svc.ProcessBatchForCustomers(context.Background(), h.tenantID, 0,
		nil, consumptionTemplate(100), "JULY-2026-01", false)
	require.ErrorIs(t, err, billdomain.ErrInvalidReference)
}

func TestProcessBatch_WithInvoiceGeneration(t *testing.T) {
	h := setupRunTest(t)
	ctx := context.Background()
	first := h.seedCustomer(t, "Grace Atieno", 1)
	second := h.seedCustomer(t, "Hamisi Juma", 1)

	result, err := h.svc.ProcessBatchForCustomers(ctx, h.tenantID, h.node.Generate(),
		[]snowflake.ID{first, second}, consumptionTemplate(750), "", true)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.InvoicesCreated, "one invoice per meter")
	assert.Empty(t, result.InvoiceErrors)

	var invoices []invoicedomain.Invoice
	require.NoError(t, h.db.Where("tenant_id = ?", h.tenantID).Find(&invoices).Error)
	require.Len(t, invoices, 2)
	for _, invoice := range invoices {
		assert.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(750)))
		assert.Equal(t, invoicedomain.InvoiceStateOpen, invoice.State)
	}
}

func TestGenerateBatchSummary(t *testing.T) {
	h := setupRunTest(t)

	summary := h.svc.GenerateBatchSummary(&rundomain.BatchResult{
		Reference: "2026-JUL-005",
		Created:   3,
		Skipped:   1,
		Errors:    []string{"Customer 42 not found"},
	})
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 75.0, summary.SuccessRate, 0.001)

	empty := h.svc.GenerateBatchSummary(&rundomain.BatchResult{Reference: "2026-JUL-006", Skipped: 2})
	assert.InDelta(t, 100.0, empty.SuccessRate, 0.001, "no attempts means no failures")
}
