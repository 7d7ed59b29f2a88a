package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	"github.com/smallbiznis/waterworks/internal/clock"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/waterworks/internal/payment/repository"
	"github.com/smallbiznis/waterworks/internal/providers/sms"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentrepo.Repository
	InvoiceRepo invoicerepo.Repository
	Ledger      ledgerdomain.Service
	Finance     financedomain.Service
	Notifier    sms.Notifier       `optional:"true"`
	Metrics     *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentrepo.Repository
	invoiceRepo invoicerepo.Repository
	ledger      ledgerdomain.Service
	finance     financedomain.Service
	notifier    sms.Notifier
	metrics     *telemetry.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		ledger:      p.Ledger,
		finance:     p.Finance,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
	}
}

// HandlePayment applies money to an invoice. The invoice row is locked
// for the duration of the transaction so concurrent payments always see
// the latest committed balance. Retrying with the same (invoice,
// reference) pair is an idempotent no-op.
func (s *Service) HandlePayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, input paymentdomain.HandlePaymentInput) (*paymentdomain.PaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if invoiceID == 0 {
		return nil, paymentdomain.ErrInvoiceRequired
	}

	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = fmt.Sprintf("PAY-%s", uuid.NewString())
	}

	var result *paymentdomain.PaymentResult
	var customerID snowflake.ID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByInvoiceReference(ctx, tx, tenantID, invoiceID, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			invoice, err := s.invoiceRepo.FindByID(ctx, tx, tenantID, invoiceID)
			if err != nil {
				return err
			}
			result = &paymentdomain.PaymentResult{
				PaymentID:      existing.ID,
				AppliedAmount:  decimal.Zero,
				InvoiceBalance: invoice.Balance,
				InvoiceStatus:  invoice.Status,
				Duplicate:      true,
				Message:        fmt.Sprintf("Payment %s already recorded", reference),
			}
			return nil
		}

		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == invoicedomain.InvoiceStatusReversed {
			return invoicedomain.ErrCannotReceive
		}
		customerID = invoice.CustomerID

		applied := decimal.Min(input.Amount, invoice.Balance)
		overpayment := input.Amount.Sub(applied)

		paymentDate := input.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = s.clock.Now()
		}
		payment := &paymentdomain.Payment{
			ID:          s.genID.Generate(),
			TenantID:    tenantID,
			CustomerID:  invoice.CustomerID,
			InvoiceID:   &invoice.ID,
			MeterID:     invoice.MeterID,
			Amount:      input.Amount,
			Method:      input.Method,
			Reference:   reference,
			Status:      paymentdomain.StatusCompleted,
			PaymentDate: paymentDate,
			Notes:       input.Notes,
			Metadata: datatypes.JSONMap{
				"applied": applied.StringFixed(2),
				"credit":  overpayment.StringFixed(2),
			},
		}
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if err := s.postPaymentToLedger(ctx, tx, payment, applied, overpayment); err != nil {
			return err
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(applied)
		invoice.RecomputeBalance()
		if err := s.invoiceRepo.Update(ctx, tx, invoice); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		result = &paymentdomain.PaymentResult{
			PaymentID:         payment.ID,
			AppliedAmount:     applied,
			OverpaymentAmount: overpayment,
			InvoiceBalance:    invoice.Balance,
			InvoiceStatus:     invoice.Status,
			Message:           fmt.Sprintf("Payment of %s received against invoice %s", input.Amount, invoice.InvoiceNumber),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.metrics.ObservePayment(tenantID.String(), string(input.Method), "completed", input.Amount.InexactFloat64())
		if _, err := s.finance.RecalculateCustomerMeters(ctx, tenantID, customerID); err != nil {
			s.log.Warn("post-payment recalculation failed", zap.Error(err))
		}
		if input.SendSMS && s.notifier != nil {
			_ = s.notifier.Send(ctx, sms.Message{
				TenantID:   tenantID,
				CustomerID: customerID,
				Kind:       sms.KindPaymentReceived,
				Params: map[string]string{
					"amount":    input.Amount.String(),
					"balance":   result.InvoiceBalance.String(),
					"reference": reference,
				},
			})
		}
	}

	s.log.Info("payment handled",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("applied", result.AppliedAmount.String()),
		zap.String("overpayment", result.OverpaymentAmount.String()),
		zap.Bool("duplicate", result.Duplicate),
	)
	return result, nil
}

// postPaymentToLedger writes the payment journal group:
//
//	Debit:  Bank for the full amount received
//	Credit: AR-CONTROL for the portion applied to the invoice
//	Credit: Customer-Prepayment for the overpaid portion
func (s *Service) postPaymentToLedger(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment, applied, overpayment decimal.Decimal) error {
	lines := []ledgerdomain.Line{
		{
			AccountCode: accountdomain.CodeBank,
			Type:        ledgerdomain.EntryTypeDebit,
			Amount:      payment.Amount,
		},
	}
	if applied.IsPositive() {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: accountdomain.CodeARControl,
			Type:        ledgerdomain.EntryTypeCredit,
			Amount:      applied,
		})
	}
	if overpayment.IsPositive() {
		lines = append(lines, ledgerdomain.Line{
			AccountCode:     accountdomain.CodeCustomerPrepayment,
			Type:            ledgerdomain.EntryTypeCredit,
			Amount:          overpayment,
			Description:     "Overpayment held as customer credit",
			TransactionType: ledgerdomain.TransactionTypeOverpayment,
		})
	}

	return s.ledger.Post(ctx, tx, ledgerdomain.Entry{
		TenantID:        payment.TenantID,
		TransactionID:   payment.ID,
		TransactionType: ledgerdomain.TransactionTypePayment,
		Reference:       payment.Reference,
		Description:     fmt.Sprintf("Payment %s", payment.Reference),
		Lines:           lines,
	})
}
