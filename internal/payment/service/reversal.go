package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReversePayment undoes a payment in place: status flips to reversed,
// offsetting journal rows are appended, and the invoice (when present)
// gets the applied portion back on its balance. Nothing is deleted.
func (s *Service) ReversePayment(ctx context.Context, tenantID, actorID, paymentID snowflake.ID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return paymentdomain.ErrReasonRequired
	}

	var (
		customerID snowflake.ID
		method     paymentdomain.Method
		amount     decimal.Decimal
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}
		if payment.Status == paymentdomain.StatusReversed {
			return paymentdomain.ErrAlreadyReversed
		}
		customerID = payment.CustomerID
		method = payment.Method
		amount = payment.Amount

		applied := payment.Amount
		var invoice *invoicedomain.Invoice
		if payment.InvoiceID != nil {
			invoice, err = s.invoiceRepo.FindByIDForUpdate(ctx, tx, tenantID, *payment.InvoiceID)
			if err != nil {
				return err
			}
		}
		if invoice != nil {
			// The portion originally applied to the invoice is what comes
			// back onto its balance; any overpaid remainder was held as
			// customer credit instead.
			if applied.GreaterThan(invoice.PaidAmount) {
				applied = invoice.PaidAmount
			}
			invoice.PaidAmount = invoice.PaidAmount.Sub(applied)
			invoice.RecomputeBalance()
			if invoice.Status == invoicedomain.InvoiceStatusFullyPaid && invoice.Balance.IsPositive() {
				invoice.Status = invoicedomain.InvoiceStatusPartialPayment
			}
			if err := s.invoiceRepo.Update(ctx, tx, invoice); err != nil {
				return fmt.Errorf("update invoice: %w", err)
			}
		}
		overpaid := payment.Amount.Sub(applied)

		now := s.clock.Now()
		payment.Status = paymentdomain.StatusReversed
		payment.ReversalReason = reason
		payment.ReversedAt = &now
		payment.ReversedBy = &actorID
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		lines := []ledgerdomain.Line{
			{
				AccountCode: accountdomain.CodeBank,
				Type:        ledgerdomain.EntryTypeCredit,
				Amount:      payment.Amount,
			},
		}
		if applied.IsPositive() {
			lines = append(lines, ledgerdomain.Line{
				AccountCode: accountdomain.CodeARControl,
				Type:        ledgerdomain.EntryTypeDebit,
				Amount:      applied,
			})
		}
		if overpaid.IsPositive() {
			lines = append(lines, ledgerdomain.Line{
				AccountCode: accountdomain.CodeCustomerPrepayment,
				Type:        ledgerdomain.EntryTypeDebit,
				Amount:      overpaid,
			})
		}
		return s.ledger.Post(ctx, tx, ledgerdomain.Entry{
			TenantID:        tenantID,
			TransactionID:   payment.ID,
			TransactionType: ledgerdomain.TransactionTypePaymentReversal,
			Reference:       fmt.Sprintf("REV-%s", payment.Reference),
			Description:     fmt.Sprintf("Reversal of payment %s: %s", payment.Reference, reason),
			Lines:           lines,
		})
	})
	if err != nil {
		return err
	}

	if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, customerID); err != nil {
		s.log.Warn("post-reversal recalculation failed", zap.Error(err))
	}

	s.metrics.ObservePayment(tenantID.String(), string(method), "reversed", amount.InexactFloat64())
	s.log.Info("payment reversed",
		zap.String("payment_id", paymentID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) FindByCustomer(ctx context.Context, tenantID, customerID snowflake.ID) ([]paymentdomain.Payment, error) {
	return s.repo.FindByCustomer(ctx, s.db, tenantID, customerID)
}
