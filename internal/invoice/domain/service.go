package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
)

// GenerateResult reports a consolidation run. Each meter's invoice is
// created in its own transaction; one meter's failure never unwinds a
// sibling's committed invoice.
type GenerateResult struct {
	InvoicesCreated int
	InvoiceIDs      []snowflake.ID
	BillsInvoiced   int
	Errors          []string
}

// OverpaymentResult reports an overpayment allocation.
type OverpaymentResult struct {
	AppliedAmount        decimal.Decimal `json:"applied_amount"`
	RemainingOverpayment decimal.Decimal `json:"remaining_overpayment"`
	InvoiceCleared       bool            `json:"invoice_cleared"`
	Message              string          `json:"message"`
}

type Service interface {
	// GenerateFromBills consolidates the given pending bills into one
	// invoice per meter, closing any prior open invoice for the same
	// (customer, meter) and carrying its unpaid balance forward.
	GenerateFromBills(ctx context.Context, tenantID, actorID snowflake.ID, bills []billdomain.Bill) (*GenerateResult, error)

	// GenerateBatch consolidates every pending bill in the tenant.
	GenerateBatch(ctx context.Context, tenantID, actorID snowflake.ID) (*GenerateResult, error)

	// ApplyOverpayment allocates available credit against the invoice's
	// balance. Safe to invoke repeatedly: once the invoice is paid it is
	// a reporting no-op.
	ApplyOverpayment(ctx context.Context, tenantID, actorID, invoiceID snowflake.ID, overpayment decimal.Decimal) (*OverpaymentResult, error)

	// FindOpenByCustomer lists the customer's open invoices across all
	// of their meters.
	FindOpenByCustomer(ctx context.Context, tenantID, customerID snowflake.ID) ([]Invoice, error)

	// GetByID loads one invoice.
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (*Invoice, error)
}
