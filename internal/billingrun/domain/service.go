// Package domain defines batch bill creation across many customers
// and the reporting shapes a run produces.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
)

// BillTemplate carries the per-bill fields shared by every bill a
// batch run creates. The customer and meter assignment come from the
// run itself.
type BillTemplate struct {
	BillType    billdomain.BillType
	Amount      decimal.Decimal
	RateUsed    decimal.Decimal
	TotalAmount decimal.Decimal
	Description string
}

// BatchResult aggregates one run. A single customer's failure lands in
// Errors and never aborts the rest of the batch.
type BatchResult struct {
	Created          int               `json:"created"`
	Skipped          int               `json:"skipped"`
	SkippedCustomers []snowflake.ID    `json:"skipped_customers"`
	Errors           []string          `json:"errors"`
	CreatedBills     []billdomain.Bill `json:"created_bills"`
	InvoicesCreated  int               `json:"invoices_created"`
	InvoiceErrors    []string          `json:"invoice_errors"`
	Reference        string            `json:"reference"`
}

// Summary is the flat reporting shape derived from a BatchResult.
type Summary struct {
	Reference       string   `json:"reference"`
	Created         int      `json:"created"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	InvoicesCreated int      `json:"invoices_created"`
	InvoiceErrors   []string `json:"invoice_errors"`
	SuccessRate     float64  `json:"success_rate"`
}

type Service interface {
	// ProcessBatchForCustomers creates one bill per active meter
	// assignment of each customer, optionally consolidating the created
	// bills into invoices. Reference is minted when empty.
	ProcessBatchForCustomers(ctx context.Context, tenantID, actorID snowflake.ID, customerIDs []snowflake.ID, template BillTemplate, reference string, createInvoice bool) (*BatchResult, error)

	// GenerateBatchSummary flattens a run result for reporting.
	GenerateBatchSummary(result *BatchResult) Summary
}
