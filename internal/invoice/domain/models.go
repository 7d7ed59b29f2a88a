// Package domain contains invoice persistence models and lifecycle rules.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the payment-facing lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusNotPaid        InvoiceStatus = "not_paid"
	InvoiceStatusPartialPayment InvoiceStatus = "partial_payment"
	InvoiceStatusFullyPaid      InvoiceStatus = "fully_paid"
	InvoiceStatusReversed       InvoiceStatus = "reversed"
	// InvoiceStatusCleared marks an invoice superseded by a newer cycle:
	// its unpaid balance was zeroed here and carried into the successor's
	// balance brought forward.
	InvoiceStatusCleared InvoiceStatus = "cleared"
)

// InvoiceState tracks whether the document still accepts mutation.
type InvoiceState string

const (
	InvoiceStateOpen   InvoiceState = "open"
	InvoiceStateClosed InvoiceState = "closed"
)

// Invoice consolidates one meter's pending bills for one cycle. At most
// one open invoice exists per (customer, meter); generating a successor
// closes it and carries its unpaid balance forward.
type Invoice struct {
	ID                    snowflake.ID    `gorm:"primaryKey"`
	TenantID              snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_tenant_number,priority:1"`
	CustomerID            snowflake.ID    `gorm:"not null;index"`
	MeterID               snowflake.ID    `gorm:"not null;index"`
	InvoiceNumber         string          `gorm:"type:text;not null;uniqueIndex:ux_invoices_tenant_number,priority:2"`
	InvoiceDate           time.Time       `gorm:"not null"`
	DueDate               time.Time       `gorm:"not null"`
	BalanceBroughtForward decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Amount                decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	PaidAmount            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	OverpaymentApplied    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Balance               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Status                InvoiceStatus   `gorm:"type:text;not null;default:'not_paid'"`
	State                 InvoiceState    `gorm:"type:text;not null;default:'open'"`
	Notes                 string          `gorm:"type:text"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceBill links one bill into one invoice. Amount is the bill's
// contribution to the invoice's current-cycle charges.
type InvoiceBill struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	TenantID  snowflake.ID    `gorm:"not null;index"`
	InvoiceID snowflake.ID    `gorm:"not null;index"`
	BillID    snowflake.ID    `gorm:"not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceBill) TableName() string { return "invoice_bills" }

// CanBeReversed reports whether a reversal is still legal: the invoice
// has not been paid off and has not already been reversed.
func (i *Invoice) CanBeReversed() bool {
	return i.Status != InvoiceStatusFullyPaid && i.Status != InvoiceStatusReversed
}

// CanBeCorrected follows the same rule as reversal.
func (i *Invoice) CanBeCorrected() bool {
	return i.CanBeReversed()
}

// CanReceivePayment reports whether money can still be applied here.
func (i *Invoice) CanReceivePayment() bool {
	return i.Balance.IsPositive() && i.Status != InvoiceStatusReversed
}

// RecomputeBalance derives Balance from TotalAmount and PaidAmount,
// clamped at zero, and updates Status and State accordingly.
func (i *Invoice) RecomputeBalance() {
	balance := i.TotalAmount.Sub(i.PaidAmount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	i.Balance = balance

	switch {
	case i.Balance.IsZero():
		i.Status = InvoiceStatusFullyPaid
		i.State = InvoiceStateClosed
	case i.PaidAmount.IsPositive():
		i.Status = InvoiceStatusPartialPayment
		i.State = InvoiceStateOpen
	default:
		i.Status = InvoiceStatusNotPaid
		i.State = InvoiceStateOpen
	}
}

var (
	ErrNotFound           = errors.New("invoice_not_found")
	ErrNoPendingBills     = errors.New("no pending bills to invoice")
	ErrAlreadyPaid        = errors.New("invoice already paid")
	ErrReversed           = errors.New("invoice is reversed")
	ErrMissingMeter       = errors.New("bill has no meter assignment")
	ErrCrossTenant        = errors.New("bill belongs to another tenant")
	ErrCannotReceive      = errors.New("invoice cannot receive payment")
	ErrOverpaymentApplied = errors.New("overpayment application failed")
)
