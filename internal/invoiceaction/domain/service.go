// Package domain defines admin actions on existing invoices: reversal,
// amount correction, payment capture and overpayment application.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
)

// ActionResult is the structured outcome of a user-facing action.
// Business-rule violations report Success=false with a reason instead
// of surfacing as errors.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Service interface {
	// ReverseInvoice undoes an unpaid invoice: status flip, paired REV-
	// document and offsetting journal rows, audit trail preserved.
	ReverseInvoice(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, reason, notes string, sendSMS bool) (*ActionResult, error)

	// AdjustAmount corrects the invoice total, implemented as a reversal
	// of the old amount plus a posting of the new one.
	AdjustAmount(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, newAmount decimal.Decimal, reason string) (*ActionResult, error)

	// ApplyPayment is the admin "process payment" entry point; it
	// delegates to the payment service.
	ApplyPayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, input paymentdomain.HandlePaymentInput) (*paymentdomain.PaymentResult, error)

	// ApplyOverpaymentToInvoice allocates available customer credit
	// against the invoice; it delegates to the invoice service.
	ApplyOverpaymentToInvoice(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, overpayment decimal.Decimal) (*invoicedomain.OverpaymentResult, error)
}

var (
	ErrReasonRequired = errors.New("reason is required")
	ErrInvalidAmount  = errors.New("corrected amount must be greater than zero")
)
