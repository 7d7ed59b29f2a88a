package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	"github.com/smallbiznis/waterworks/internal/clock"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dueInDays is the grace period between invoice and due date.
const dueInDays = 14

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      invoicerepo.Repository
	BillRepo  billrepo.Repository
	MeterRepo meterdomain.Repository
	Ledger    ledgerdomain.Service
	Finance   financedomain.Service

	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      invoicerepo.Repository
	billRepo  billrepo.Repository
	meterRepo meterdomain.Repository
	ledger    ledgerdomain.Service
	finance   financedomain.Service
	metrics   *telemetry.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		billRepo:  p.BillRepo,
		meterRepo: p.MeterRepo,
		ledger:    p.Ledger,
		finance:   p.Finance,
		metrics:   p.Metrics,
	}
}

type meterGroup struct {
	meterID    snowflake.ID
	customerID snowflake.ID
	bills      []billdomain.Bill
}

// GenerateFromBills groups the given pending bills by their assignment's
// meter and creates exactly one invoice per meter. Each meter is processed
// in its own transaction; a failing meter is recorded in the result and
// does not unwind its siblings.
func (s *Service) GenerateFromBills(ctx context.Context, tenantID, actorID snowflake.ID, bills []billdomain.Bill) (*invoicedomain.GenerateResult, error) {
	if tenantID == 0 {
		return nil, invoicedomain.ErrCrossTenant
	}

	result := &invoicedomain.GenerateResult{}
	groups := make(map[snowflake.ID]*meterGroup)
	var order []snowflake.ID

	for _, b := range bills {
		if b.Status != billdomain.BillStatusPending {
			continue
		}
		if b.TenantID != tenantID {
			result.Errors = append(result.Errors, fmt.Sprintf("bill %s: %v", b.BillRef, invoicedomain.ErrCrossTenant))
			continue
		}
		assignment, err := s.meterRepo.FindAssignmentByID(ctx, s.db, tenantID, b.MeterAssignmentID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("bill %s: %v", b.BillRef, err))
			continue
		}
		if assignment == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("bill %s: %v", b.BillRef, invoicedomain.ErrMissingMeter))
			continue
		}

		group, ok := groups[assignment.MeterID]
		if !ok {
			group = &meterGroup{meterID: assignment.MeterID, customerID: b.CustomerID}
			groups[assignment.MeterID] = group
			order = append(order, assignment.MeterID)
		}
		group.bills = append(group.bills, b)
	}

	for _, meterID := range order {
		group := groups[meterID]
		invoiceID, err := s.generateForMeter(ctx, tenantID, group)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("meter %s: %v", meterID, err))
			continue
		}
		result.InvoicesCreated++
		result.InvoiceIDs = append(result.InvoiceIDs, invoiceID)
		result.BillsInvoiced += len(group.bills)

		if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, group.customerID); err != nil {
			s.log.Warn("post-invoice recalculation failed",
				zap.String("customer_id", group.customerID.String()),
				zap.Error(err),
			)
		}
	}

	s.log.Info("invoice generation finished",
		zap.String("actor_id", actorID.String()),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("bills_invoiced", result.BillsInvoiced),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// GenerateBatch consolidates every pending bill in the tenant. Bills for
// the same meter always merge into a single invoice regardless of which
// call created them.
func (s *Service) GenerateBatch(ctx context.Context, tenantID, actorID snowflake.ID) (*invoicedomain.GenerateResult, error) {
	pending, err := s.billRepo.FindPending(ctx, s.db, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load pending bills: %w", err)
	}
	if len(pending) == 0 {
		return &invoicedomain.GenerateResult{}, nil
	}
	return s.GenerateFromBills(ctx, tenantID, actorID, pending)
}

// generateForMeter runs the consolidation for one meter atomically:
// close the prior open invoice, create the successor with the carried
// balance, link and flip the bills, post the ledger group and apply any
// available meter credit.
func (s *Service) generateForMeter(ctx context.Context, tenantID snowflake.ID, group *meterGroup) (snowflake.ID, error) {
	var (
		invoiceID    snowflake.ID
		invoiceTotal decimal.Decimal
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meter, err := s.meterRepo.FindByID(ctx, tx, tenantID, group.meterID)
		if err != nil {
			return err
		}
		if meter == nil {
			return meterdomain.ErrNotFound
		}

		balanceBroughtForward := decimal.Zero
		prior, err := s.repo.FindOpenByMeter(ctx, tx, tenantID, group.customerID, group.meterID)
		if err != nil {
			return err
		}
		if prior != nil {
			balanceBroughtForward = prior.Balance
			prior.Balance = decimal.Zero
			prior.Status = invoicedomain.InvoiceStatusCleared
			prior.State = invoicedomain.InvoiceStateClosed
			if err := s.repo.Update(ctx, tx, prior); err != nil {
				return fmt.Errorf("close prior invoice: %w", err)
			}
		}

		amount := decimal.Zero
		for _, b := range group.bills {
			amount = amount.Add(b.TotalAmount)
		}

		now := s.clock.Now()
		id := s.genID.Generate()
		invoice := &invoicedomain.Invoice{
			ID:                    id,
			TenantID:              tenantID,
			CustomerID:            group.customerID,
			MeterID:               group.meterID,
			InvoiceNumber:         fmt.Sprintf("INV-%s", id),
			InvoiceDate:           now,
			DueDate:               now.AddDate(0, 0, dueInDays),
			BalanceBroughtForward: balanceBroughtForward,
			Amount:                amount,
			TotalAmount:           balanceBroughtForward.Add(amount),
			PaidAmount:            decimal.Zero,
			OverpaymentApplied:    decimal.Zero,
			Status:                invoicedomain.InvoiceStatusNotPaid,
			State:                 invoicedomain.InvoiceStateOpen,
		}
		invoice.Balance = invoice.TotalAmount

		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		billIDs := make([]snowflake.ID, 0, len(group.bills))
		for _, b := range group.bills {
			billIDs = append(billIDs, b.ID)
			link := &invoicedomain.InvoiceBill{
				ID:        s.genID.Generate(),
				TenantID:  tenantID,
				InvoiceID: invoice.ID,
				BillID:    b.ID,
				Amount:    b.TotalAmount,
			}
			if err := s.repo.InsertInvoiceBill(ctx, tx, link); err != nil {
				return fmt.Errorf("link bill %s: %w", b.BillRef, err)
			}
		}
		if err := s.billRepo.MarkInvoiced(ctx, tx, tenantID, billIDs); err != nil {
			return fmt.Errorf("mark bills invoiced: %w", err)
		}

		if err := s.postInvoiceToLedger(ctx, tx, invoice, group.bills); err != nil {
			return err
		}

		if meter.Overpayment.IsPositive() {
			if _, err := s.applyOverpaymentTx(ctx, tx, invoice, meter.Overpayment); err != nil {
				return err
			}
		}

		invoiceID = invoice.ID
		invoiceTotal = invoice.TotalAmount
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveInvoice(tenantID.String(), string(invoicedomain.InvoiceStateOpen), invoiceTotal.InexactFloat64())
	return invoiceID, nil
}

func (s *Service) FindOpenByCustomer(ctx context.Context, tenantID, customerID snowflake.ID) ([]invoicedomain.Invoice, error) {
	return s.repo.FindOpenByCustomer(ctx, s.db, tenantID, customerID)
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}
