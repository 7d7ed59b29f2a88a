package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
)

// HandlePaymentInput carries the caller-supplied payment fields.
type HandlePaymentInput struct {
	Amount      decimal.Decimal
	Method      Method
	Reference   string
	PaymentDate time.Time
	Notes       string
	SendSMS     bool
}

// PaymentResult reports how the money was allocated.
type PaymentResult struct {
	PaymentID         snowflake.ID                `json:"payment_id"`
	AppliedAmount     decimal.Decimal             `json:"applied_amount"`
	OverpaymentAmount decimal.Decimal             `json:"overpayment_amount"`
	InvoiceBalance    decimal.Decimal             `json:"invoice_balance"`
	InvoiceStatus     invoicedomain.InvoiceStatus `json:"invoice_status"`
	Duplicate         bool                        `json:"duplicate"`
	Message           string                      `json:"message"`
}

type Service interface {
	// HandlePayment records money against an invoice and allocates it:
	// up to the invoice balance is applied, the excess becomes customer
	// credit. One atomic unit: on any failure no payment, journal or
	// invoice mutation survives.
	HandlePayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, input HandlePaymentInput) (*PaymentResult, error)

	// ReversePayment flips a payment to reversed and posts offsetting
	// journal rows. The payment row itself is never deleted.
	ReversePayment(ctx context.Context, tenantID, actorID, paymentID snowflake.ID, reason string) error

	// FindByCustomer lists a customer's payments, newest first.
	FindByCustomer(ctx context.Context, tenantID, customerID snowflake.ID) ([]Payment, error)
}
