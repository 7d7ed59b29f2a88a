// Package domain defines the running-balance recomputation contract.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MeterTotals is the result of a full recomputation for one meter.
type MeterTotals struct {
	TotalBilled     decimal.Decimal
	TotalPaid       decimal.Decimal
	Balance         decimal.Decimal
	Overpayment     decimal.Decimal
	LastInvoiceDate *time.Time
}

// CustomerTotals aggregates balances across a customer's active
// meter assignments.
type CustomerTotals struct {
	Balance     decimal.Decimal
	Overpayment decimal.Decimal
	MeterCount  int
}

// Service derives meter and customer running balances from the full
// invoice and payment history. Recomputation is total, not incremental,
// so repeated runs without intervening writes converge on the same
// numbers even after manual edits or reversals.
type Service interface {
	RecalculateMeterBalance(ctx context.Context, tenantID, meterID snowflake.ID) (*MeterTotals, error)
	RecalculateCustomerMeters(ctx context.Context, tenantID, customerID snowflake.ID) (*CustomerTotals, error)
}
