package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApplyOverpayment allocates available customer credit against the
// invoice balance. All-or-nothing: a posting failure (for example a
// missing chart-of-accounts entry) rolls back the invoice mutation too.
func (s *Service) ApplyOverpayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, overpayment decimal.Decimal) (*invoicedomain.OverpaymentResult, error) {
	if !overpayment.IsPositive() {
		return &invoicedomain.OverpaymentResult{
			AppliedAmount:        decimal.Zero,
			RemainingOverpayment: overpayment,
			Message:              "No overpayment to apply",
		}, nil
	}

	var applied decimal.Decimal
	var cleared bool
	var alreadyPaid bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Balance.IsZero() || invoice.Status == invoicedomain.InvoiceStatusFullyPaid {
			alreadyPaid = true
			return nil
		}

		applied, err = s.applyOverpaymentTx(ctx, tx, invoice, overpayment)
		if err != nil {
			return err
		}
		cleared = invoice.Balance.IsZero()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyPaid {
		return &invoicedomain.OverpaymentResult{
			AppliedAmount:        decimal.Zero,
			RemainingOverpayment: overpayment,
			Message:              "Invoice already paid",
		}, nil
	}

	invoice, err := s.repo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err == nil && invoice != nil {
		if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, invoice.CustomerID); err != nil {
			s.log.Warn("post-overpayment recalculation failed", zap.Error(err))
		}
	}

	s.log.Info("overpayment applied",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("applied", applied.String()),
	)
	return &invoicedomain.OverpaymentResult{
		AppliedAmount:        applied,
		RemainingOverpayment: overpayment.Sub(applied),
		InvoiceCleared:       cleared,
		Message:              fmt.Sprintf("Applied %s to invoice %s", applied, invoiceID),
	}, nil
}

// applyOverpaymentTx performs the allocation inside the caller's
// transaction and posts the prepayment-to-receivable journal pair.
// The invoice is mutated in place.
func (s *Service) applyOverpaymentTx(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, available decimal.Decimal) (decimal.Decimal, error) {
	if !available.IsPositive() || !invoice.Balance.IsPositive() {
		return decimal.Zero, nil
	}

	applied := decimal.Min(available, invoice.Balance)
	invoice.PaidAmount = invoice.PaidAmount.Add(applied)
	invoice.OverpaymentApplied = invoice.OverpaymentApplied.Add(applied)
	invoice.RecomputeBalance()
	if err := s.repo.Update(ctx, tx, invoice); err != nil {
		return decimal.Zero, fmt.Errorf("update invoice: %w", err)
	}

	reference := fmt.Sprintf("OVP-%s", invoice.InvoiceNumber)
	err := s.ledger.Post(ctx, tx, ledgerdomain.Entry{
		TenantID:        invoice.TenantID,
		TransactionID:   invoice.ID,
		TransactionType: ledgerdomain.TransactionTypeOverpaymentApplication,
		Reference:       reference,
		Description:     fmt.Sprintf("Overpayment applied to invoice %s", invoice.InvoiceNumber),
		Lines: []ledgerdomain.Line{
			{
				AccountCode: accountdomain.CodeCustomerPrepayment,
				Type:        ledgerdomain.EntryTypeDebit,
				Amount:      applied,
			},
			{
				AccountCode: accountdomain.CodeARControl,
				Type:        ledgerdomain.EntryTypeCredit,
				Amount:      applied,
			},
		},
	})
	if err != nil {
		return decimal.Zero, err
	}
	return applied, nil
}
