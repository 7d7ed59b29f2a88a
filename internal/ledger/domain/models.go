// Package domain contains the append-only double-entry journal model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
)

// EntryType represents the debit or credit side of a journal row.
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// TransactionType classifies the financial event a journal group belongs to.
type TransactionType string

const (
	TransactionTypeInvoice                TransactionType = "invoice"
	TransactionTypePayment                TransactionType = "payment"
	TransactionTypeOverpayment            TransactionType = "overpayment"
	TransactionTypeInvoiceReversal        TransactionType = "invoice_reversal"
	TransactionTypeInvoiceCorrection      TransactionType = "invoice_correction"
	TransactionTypePaymentReversal        TransactionType = "payment_reversal"
	TransactionTypeOverpaymentApplication TransactionType = "overpayment_application"
)

// Journal is one immutable ledger row. Reversals append offsetting rows,
// existing rows are never mutated.
type Journal struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	TenantID        snowflake.ID    `gorm:"not null;index"`
	AccountID       snowflake.ID    `gorm:"not null;index"`
	TransactionID   snowflake.ID    `gorm:"not null;index"`
	TransactionType TransactionType `gorm:"type:text;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Type            EntryType       `gorm:"type:text;not null"`
	Reference       string          `gorm:"type:text;not null"`
	Description     string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Journal) TableName() string { return "journals" }

// Line is one side of a posting, addressed by account code. The posting
// service resolves codes to tenant account rows.
type Line struct {
	AccountCode accountdomain.Code
	Type        EntryType
	Amount      decimal.Decimal
	Description string
	// TransactionType overrides the group's type for this row. The
	// overpaid slice of a payment is tagged "overpayment" while the
	// rest of the group stays "payment".
	TransactionType TransactionType
}

// Entry is a balanced group of lines for one financial event.
type Entry struct {
	TenantID        snowflake.ID
	TransactionID   snowflake.ID
	TransactionType TransactionType
	Reference       string
	Description     string
	Lines           []Line
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidTransaction = errors.New("invalid_transaction")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrInvalidEntryLines  = errors.New("entry requires at least one debit and one credit line")
	ErrInvalidLineAmount  = errors.New("invalid_line_amount")
	ErrInvalidLineType    = errors.New("invalid_line_type")
	ErrUnbalancedEntry    = errors.New("entry debits and credits do not balance")
	ErrAccountNotFound    = errors.New("ledger account not found")
)

// ValidateBalanced checks the double-entry invariant: the sum of debit
// amounts equals the sum of credit amounts and both sides are present.
func ValidateBalanced(lines []Line) error {
	debits := decimal.Zero
	credits := decimal.Zero
	haveDebit := false
	haveCredit := false

	for _, line := range lines {
		switch line.Type {
		case EntryTypeDebit:
			debits = debits.Add(line.Amount)
			haveDebit = true
		case EntryTypeCredit:
			credits = credits.Add(line.Amount)
			haveCredit = true
		default:
			return ErrInvalidLineType
		}
	}

	if !haveDebit || !haveCredit {
		return ErrInvalidEntryLines
	}
	if !debits.Equal(credits) {
		return ErrUnbalancedEntry
	}
	return nil
}
