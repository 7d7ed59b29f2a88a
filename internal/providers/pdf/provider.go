// Package pdf renders printable invoice and receipt documents. Callers
// flatten domain records into the document structs; rendering stays
// ignorant of the database.
package pdf

import (
	"context"
	"io"
)

// InvoiceDocument is a fully formatted invoice ready for layout. All
// monetary values arrive as display strings.
type InvoiceDocument struct {
	UtilityName    string
	UtilityAddress string
	UtilityPhone   string

	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	MeterNumber   string

	CustomerName    string
	CustomerAddress string
	CustomerPhone   string

	Lines []InvoiceLine

	BalanceBroughtForward string
	CurrentCharges        string
	CreditApplied         string
	AmountPaid            string
	BalanceDue            string
}

// InvoiceLine is one charge row on the invoice.
type InvoiceLine struct {
	Description string
	Reference   string
	Amount      string
}

// ReceiptDocument is a payment confirmation.
type ReceiptDocument struct {
	UtilityName    string
	UtilityAddress string

	ReceiptNumber string
	PaymentDate   string
	Method        string

	CustomerName  string
	InvoiceNumber string
	MeterNumber   string

	AmountPaid       string
	AppliedToInvoice string
	CreditRetained   string
	BalanceAfter     string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error)
	GenerateReceipt(ctx context.Context, doc ReceiptDocument) (io.Reader, error)
}
