package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	"github.com/smallbiznis/waterworks/internal/clock"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	actiondomain "github.com/smallbiznis/waterworks/internal/invoiceaction/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	"github.com/smallbiznis/waterworks/internal/providers/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	InvoiceRepo invoicerepo.Repository
	BillRepo    billrepo.Repository
	InvoiceSvc  invoicedomain.Service
	PaymentSvc  paymentdomain.Service
	Ledger      ledgerdomain.Service
	Finance     financedomain.Service
	Notifier    sms.Notifier        `optional:"true"`
	Audit       auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	invoiceRepo invoicerepo.Repository
	billRepo    billrepo.Repository
	invoiceSvc  invoicedomain.Service
	paymentSvc  paymentdomain.Service
	ledger      ledgerdomain.Service
	finance     financedomain.Service
	notifier    sms.Notifier
	audit       auditdomain.Service
}

func NewService(p Params) actiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoiceaction.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		invoiceRepo: p.InvoiceRepo,
		billRepo:    p.BillRepo,
		invoiceSvc:  p.InvoiceSvc,
		paymentSvc:  p.PaymentSvc,
		ledger:      p.Ledger,
		finance:     p.Finance,
		notifier:    p.Notifier,
		audit:       p.Audit,
	}
}

// recordAudit appends an audit entry, tolerating an unconfigured or
// failing trail.
func (s *Service) recordAudit(ctx context.Context, tenantID, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, tenantID, actorID, action, "invoice", targetID, metadata)
}

// ReverseInvoice flips an unpaid invoice to reversed, creates the paired
// REV- document and posts offsetting journal rows. Original notes are
// preserved; the reversal reason is appended.
func (s *Service) ReverseInvoice(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, reason, notes string, sendSMS bool) (*actiondomain.ActionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, actiondomain.ErrReasonRequired
	}

	var customerID snowflake.ID
	var blocked *actiondomain.ActionResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if !invoice.CanBeReversed() {
			blocked = &actiondomain.ActionResult{
				Success: false,
				Message: fmt.Sprintf("Invoice %s cannot be reversed in status %s", invoice.InvoiceNumber, invoice.Status),
			}
			return nil
		}
		customerID = invoice.CustomerID

		annotation := fmt.Sprintf("Reversed: %s", reason)
		if strings.TrimSpace(notes) != "" {
			annotation = fmt.Sprintf("%s - %s", annotation, notes)
		}
		invoice.Notes = appendNote(invoice.Notes, annotation)
		invoice.Status = invoicedomain.InvoiceStatusReversed
		invoice.State = invoicedomain.InvoiceStateClosed
		if err := s.invoiceRepo.Update(ctx, tx, invoice); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		reversal := &invoicedomain.Invoice{
			ID:                    s.genID.Generate(),
			TenantID:              tenantID,
			CustomerID:            invoice.CustomerID,
			MeterID:               invoice.MeterID,
			InvoiceNumber:         fmt.Sprintf("REV-%s", invoice.InvoiceNumber),
			InvoiceDate:           s.clock.Now(),
			DueDate:               s.clock.Now(),
			BalanceBroughtForward: invoice.BalanceBroughtForward,
			Amount:                invoice.Amount,
			TotalAmount:           invoice.TotalAmount,
			PaidAmount:            decimal.Zero,
			OverpaymentApplied:    decimal.Zero,
			Balance:               decimal.Zero,
			Status:                invoicedomain.InvoiceStatusReversed,
			State:                 invoicedomain.InvoiceStateClosed,
			Notes:                 fmt.Sprintf("Reversal of %s: %s", invoice.InvoiceNumber, reason),
		}
		if err := s.invoiceRepo.Insert(ctx, tx, reversal); err != nil {
			return fmt.Errorf("insert reversal invoice: %w", err)
		}

		return s.postReversalToLedger(ctx, tx, invoice, reversal)
	})
	if err != nil {
		return nil, err
	}
	if blocked != nil {
		return blocked, nil
	}

	if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, customerID); err != nil {
		s.log.Warn("post-reversal recalculation failed", zap.Error(err))
	}
	if sendSMS && s.notifier != nil {
		_ = s.notifier.Send(ctx, sms.Message{
			TenantID:   tenantID,
			CustomerID: customerID,
			Kind:       sms.KindInvoiceReversed,
			Params:     map[string]string{"reason": reason},
		})
	}

	s.recordAudit(ctx, tenantID, actorID, auditdomain.ActionInvoiceReversed, invoiceID, map[string]any{"reason": reason})

	s.log.Info("invoice reversed",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("reason", reason),
	)
	return &actiondomain.ActionResult{Success: true, Message: "Invoice reversed"}, nil
}

// postReversalToLedger mirrors the original invoice posting with sides
// swapped so the pair nets to zero:
//
//	Credit: AR-CONTROL for the invoice total
//	Debit:  revenue account per bill type for that type's share
//	Debit:  AR-CONTROL for the balance brought forward
func (s *Service) postReversalToLedger(ctx context.Context, tx *gorm.DB, invoice, reversal *invoicedomain.Invoice) error {
	links, err := s.invoiceRepo.FindInvoiceBills(ctx, tx, invoice.TenantID, invoice.ID)
	if err != nil {
		return fmt.Errorf("load invoice bills: %w", err)
	}
	billIDs := make([]snowflake.ID, 0, len(links))
	for _, link := range links {
		billIDs = append(billIDs, link.BillID)
	}
	bills, err := s.billRepo.FindByIDs(ctx, tx, invoice.TenantID, billIDs)
	if err != nil {
		return fmt.Errorf("load bills: %w", err)
	}

	lines := []ledgerdomain.Line{
		{
			AccountCode: accountdomain.CodeARControl,
			Type:        ledgerdomain.EntryTypeCredit,
			Amount:      invoice.TotalAmount,
			Description: fmt.Sprintf("Reversal of invoice %s", invoice.InvoiceNumber),
		},
	}

	revenueByCode := make(map[accountdomain.Code]decimal.Decimal)
	var codeOrder []accountdomain.Code
	for _, b := range bills {
		code := b.BillType.RevenueAccountCode()
		if _, ok := revenueByCode[code]; !ok {
			codeOrder = append(codeOrder, code)
		}
		revenueByCode[code] = revenueByCode[code].Add(b.TotalAmount)
	}
	for _, code := range codeOrder {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: code,
			Type:        ledgerdomain.EntryTypeDebit,
			Amount:      revenueByCode[code],
		})
	}
	if invoice.BalanceBroughtForward.IsPositive() {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: accountdomain.CodeARControl,
			Type:        ledgerdomain.EntryTypeDebit,
			Amount:      invoice.BalanceBroughtForward,
		})
	}

	// Bills may have been trimmed since invoicing; fall back to the
	// adjustments account so the group still balances against AR.
	creditTotal := invoice.TotalAmount
	debitTotal := invoice.BalanceBroughtForward
	for _, code := range codeOrder {
		debitTotal = debitTotal.Add(revenueByCode[code])
	}
	if gap := creditTotal.Sub(debitTotal); gap.IsPositive() {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: accountdomain.CodeRevenueAdjustments,
			Type:        ledgerdomain.EntryTypeDebit,
			Amount:      gap,
		})
	}

	return s.ledger.Post(ctx, tx, ledgerdomain.Entry{
		TenantID:        invoice.TenantID,
		TransactionID:   reversal.ID,
		TransactionType: ledgerdomain.TransactionTypeInvoiceReversal,
		Reference:       reversal.InvoiceNumber,
		Description:     fmt.Sprintf("Reversal of invoice %s", invoice.InvoiceNumber),
		Lines:           lines,
	})
}

// AdjustAmount corrects the invoice total to newAmount. The ledger
// records the correction as a reversal of the old receivable plus a
// posting of the new one, both against the adjustments account.
func (s *Service) AdjustAmount(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, newAmount decimal.Decimal, reason string) (*actiondomain.ActionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, actiondomain.ErrReasonRequired
	}
	if !newAmount.IsPositive() {
		return nil, actiondomain.ErrInvalidAmount
	}

	var customerID snowflake.ID
	var blocked *actiondomain.ActionResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if !invoice.CanBeCorrected() {
			blocked = &actiondomain.ActionResult{
				Success: false,
				Message: fmt.Sprintf("Invoice %s cannot be corrected in status %s", invoice.InvoiceNumber, invoice.Status),
			}
			return nil
		}
		customerID = invoice.CustomerID

		oldAmount := invoice.TotalAmount
		if oldAmount.Equal(newAmount) {
			blocked = &actiondomain.ActionResult{Success: true, Message: "Amount unchanged"}
			return nil
		}

		invoice.TotalAmount = newAmount
		invoice.Amount = newAmount.Sub(invoice.BalanceBroughtForward)
		if invoice.Amount.IsNegative() {
			invoice.Amount = decimal.Zero
		}
		// Correcting below what was already collected settles the
		// invoice; the excess surfaces as meter credit on the
		// recalculation that follows, since recalculation sums the
		// payment rows themselves.
		if invoice.PaidAmount.GreaterThan(newAmount) {
			invoice.PaidAmount = newAmount
		}
		invoice.RecomputeBalance()
		invoice.Notes = appendNote(invoice.Notes,
			fmt.Sprintf("Amount corrected from %s to %s: %s", oldAmount.StringFixed(2), newAmount.StringFixed(2), reason))
		if err := s.invoiceRepo.Update(ctx, tx, invoice); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		return s.ledger.Post(ctx, tx, ledgerdomain.Entry{
			TenantID:        tenantID,
			TransactionID:   invoice.ID,
			TransactionType: ledgerdomain.TransactionTypeInvoiceCorrection,
			Reference:       fmt.Sprintf("COR-%s", invoice.InvoiceNumber),
			Description:     fmt.Sprintf("Correction of invoice %s: %s", invoice.InvoiceNumber, reason),
			Lines: []ledgerdomain.Line{
				{
					AccountCode: accountdomain.CodeARControl,
					Type:        ledgerdomain.EntryTypeCredit,
					Amount:      oldAmount,
					Description: "Reverse original receivable",
				},
				{
					AccountCode: accountdomain.CodeRevenueAdjustments,
					Type:        ledgerdomain.EntryTypeDebit,
					Amount:      oldAmount,
				},
				{
					AccountCode: accountdomain.CodeARControl,
					Type:        ledgerdomain.EntryTypeDebit,
					Amount:      newAmount,
					Description: "Post corrected receivable",
				},
				{
					AccountCode: accountdomain.CodeRevenueAdjustments,
					Type:        ledgerdomain.EntryTypeCredit,
					Amount:      newAmount,
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if blocked != nil {
		return blocked, nil
	}

	if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, customerID); err != nil {
		s.log.Warn("post-correction recalculation failed", zap.Error(err))
	}

	s.recordAudit(ctx, tenantID, actorID, auditdomain.ActionInvoiceCorrected, invoiceID, map[string]any{
		"new_amount": newAmount.StringFixed(2),
		"reason":     reason,
	})

	s.log.Info("invoice amount corrected",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return &actiondomain.ActionResult{Success: true, Message: "Invoice amount corrected"}, nil
}

func (s *Service) ApplyPayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, input paymentdomain.HandlePaymentInput) (*paymentdomain.PaymentResult, error) {
	result, err := s.paymentSvc.HandlePayment(ctx, tenantID, actorID, invoiceID, input)
	if err == nil {
		s.recordAudit(ctx, tenantID, actorID, auditdomain.ActionPaymentRecorded, invoiceID, map[string]any{
			"amount": input.Amount.StringFixed(2),
			"method": string(input.Method),
		})
	}
	return result, err
}

func (s *Service) ApplyOverpaymentToInvoice(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, overpayment decimal.Decimal) (*invoicedomain.OverpaymentResult, error) {
	result, err := s.invoiceSvc.ApplyOverpayment(ctx, tenantID, actorID, invoiceID, overpayment)
	if err == nil && result.AppliedAmount.IsPositive() {
		s.recordAudit(ctx, tenantID, actorID, auditdomain.ActionOverpaymentApplied, invoiceID, map[string]any{
			"applied": result.AppliedAmount.StringFixed(2),
		})
	}
	return result, err
}

func appendNote(existing, note string) string {
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n" + note
}
