package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	paymentrepo "github.com/smallbiznis/waterworks/internal/payment/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	MeterRepo    meterdomain.Repository
	CustomerRepo customerdomain.Repository
	InvoiceRepo  invoicerepo.Repository
	PaymentRepo  paymentrepo.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	meterRepo    meterdomain.Repository
	customerRepo customerdomain.Repository
	invoiceRepo  invoicerepo.Repository
	paymentRepo  paymentrepo.Repository
}

func NewService(p Params) financedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("finance.service"),
		meterRepo:    p.MeterRepo,
		customerRepo: p.CustomerRepo,
		invoiceRepo:  p.InvoiceRepo,
		paymentRepo:  p.PaymentRepo,
	}
}

// RecalculateMeterBalance rebuilds the meter's denormalized totals from
// the full invoice and payment history. Reversed invoices (and their
// REV- counterparts) drop out entirely; cleared invoices still count
// their cycle charges; their unpaid remainder lives on in a successor's
// balance brought forward, so only cycle amounts are summed to avoid
// double counting the carried debt.
func (s *Service) RecalculateMeterBalance(ctx context.Context, tenantID, meterID snowflake.ID) (*financedomain.MeterTotals, error) {
	var totals *financedomain.MeterTotals
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		computed, err := s.recalculateMeterTx(ctx, tx, tenantID, meterID)
		if err != nil {
			return err
		}
		totals = computed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Service) recalculateMeterTx(ctx context.Context, tx *gorm.DB, tenantID, meterID snowflake.ID) (*financedomain.MeterTotals, error) {
	meter, err := s.meterRepo.FindByID(ctx, tx, tenantID, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, meterdomain.ErrNotFound
	}

	invoices, err := s.invoiceRepo.FindByMeter(ctx, tx, tenantID, meterID)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	payments, err := s.paymentRepo.FindCompletedByMeter(ctx, tx, tenantID, meterID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	totalBilled := decimal.Zero
	var lastInvoiceDate *time.Time
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status != invoicedomain.InvoiceStatusReversed {
			totalBilled = totalBilled.Add(inv.Amount)
		}
		if lastInvoiceDate == nil || inv.InvoiceDate.After(*lastInvoiceDate) {
			d := inv.InvoiceDate
			lastInvoiceDate = &d
		}
	}

	totalPaid := decimal.Zero
	for i := range payments {
		totalPaid = totalPaid.Add(payments[i].Amount)
	}

	balance := totalBilled.Sub(totalPaid)
	overpayment := totalPaid.Sub(totalBilled)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	if overpayment.IsNegative() {
		overpayment = decimal.Zero
	}

	meter.TotalBilled = totalBilled
	meter.TotalPaid = totalPaid
	meter.Balance = balance
	meter.Overpayment = overpayment
	meter.LastInvoiceDate = lastInvoiceDate
	if err := s.meterRepo.Update(ctx, tx, meter); err != nil {
		return nil, fmt.Errorf("update meter totals: %w", err)
	}

	return &financedomain.MeterTotals{
		TotalBilled:     totalBilled,
		TotalPaid:       totalPaid,
		Balance:         balance,
		Overpayment:     overpayment,
		LastInvoiceDate: lastInvoiceDate,
	}, nil
}

// RecalculateCustomerMeters recalculates every meter on the customer's
// active assignments, then rewrites the customer totals as the sum of
// those meters. Inactive assignments contribute nothing.
func (s *Service) RecalculateCustomerMeters(ctx context.Context, tenantID, customerID snowflake.ID) (*financedomain.CustomerTotals, error) {
	var totals *financedomain.CustomerTotals
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, tenantID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		assignments, err := s.meterRepo.ActiveAssignmentsByCustomer(ctx, tx, tenantID, customerID)
		if err != nil {
			return fmt.Errorf("load assignments: %w", err)
		}

		balance := decimal.Zero
		overpayment := decimal.Zero
		seen := make(map[snowflake.ID]bool, len(assignments))
		for _, assignment := range assignments {
			if seen[assignment.MeterID] {
				continue
			}
			seen[assignment.MeterID] = true

			meterTotals, err := s.recalculateMeterTx(ctx, tx, tenantID, assignment.MeterID)
			if err != nil {
				return err
			}
			balance = balance.Add(meterTotals.Balance)
			overpayment = overpayment.Add(meterTotals.Overpayment)
		}

		customer.Balance = balance
		customer.Overpayment = overpayment
		if err := s.customerRepo.Update(ctx, tx, customer); err != nil {
			return fmt.Errorf("update customer totals: %w", err)
		}

		totals = &financedomain.CustomerTotals{
			Balance:     balance,
			Overpayment: overpayment,
			MeterCount:  len(seen),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("customer balances recalculated",
		zap.String("customer_id", customerID.String()),
		zap.String("balance", totals.Balance.String()),
		zap.String("overpayment", totals.Overpayment.String()),
	)
	return totals, nil
}
