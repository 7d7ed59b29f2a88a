// Package domain contains the bill (charge line) persistence model and
// the batch reference format.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
)

// BillStatus is the bill lifecycle. A bill flips to invoiced only once it
// is linked to an invoice through an invoice_bills row.
type BillStatus string

const (
	BillStatusPending  BillStatus = "pending"
	BillStatusInvoiced BillStatus = "invoiced"
)

// BillType is a closed set of charge categories, each mapped to a revenue
// account code so a typo cannot surface late at posting time.
type BillType string

const (
	BillTypeConsumption  BillType = "consumption"
	BillTypeServiceFee   BillType = "service_fee"
	BillTypePenalty      BillType = "penalty"
	BillTypeReconnection BillType = "reconnection_fee"
)

// RevenueAccountCode maps the bill type to the revenue account credited
// when the bill is invoiced.
func (t BillType) RevenueAccountCode() accountdomain.Code {
	switch t {
	case BillTypeConsumption:
		return accountdomain.CodeRevenueConsumption
	case BillTypeServiceFee:
		return accountdomain.CodeRevenueServiceFee
	case BillTypePenalty:
		return accountdomain.CodeRevenuePenalty
	case BillTypeReconnection:
		return accountdomain.CodeRevenueReconnection
	default:
		return ""
	}
}

func (t BillType) Valid() bool {
	return t.RevenueAccountCode() != ""
}

// Bill is one charge line before consolidation into an invoice.
type Bill struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	TenantID          snowflake.ID    `gorm:"not null;index"`
	CustomerID        snowflake.ID    `gorm:"not null;index"`
	MeterAssignmentID snowflake.ID    `gorm:"not null;index"`
	BillType          BillType        `gorm:"type:text;not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RateUsed          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Status            BillStatus      `gorm:"type:text;not null;default:'pending'"`
	BillRef           string          `gorm:"type:text;not null;index"`
	Description       string          `gorm:"type:text"`
	GenerationDate    time.Time       `gorm:"not null"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// ReferenceSequence serializes bill reference numbering per tenant and
// period. The row is incremented under the generation transaction so
// concurrent batch submissions cannot mint duplicate sequences.
type ReferenceSequence struct {
	TenantID snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Period   string       `gorm:"primaryKey;type:text"`
	LastSeq  int          `gorm:"not null"`
}

// TableName sets the database table name.
func (ReferenceSequence) TableName() string { return "reference_sequences" }

// referencePattern is 4-digit year, uppercase month abbreviation, 3-digit
// zero-padded sequence, e.g. 2026-AUG-001.
var referencePattern = regexp.MustCompile(`^(\d{4})-([A-Z]{3})-(\d{3})$`)

// ValidateReferenceFormat reports whether ref matches YYYY-MON-###.
func ValidateReferenceFormat(ref string) bool {
	return referencePattern.MatchString(ref)
}

// ParseReferenceSeq extracts the numeric sequence from a well-formed
// reference. Malformed references are treated as absent.
func ParseReferenceSeq(ref, period string) (int, bool) {
	match := referencePattern.FindStringSubmatch(ref)
	if match == nil {
		return 0, false
	}
	if match[1]+"-"+match[2] != period {
		return 0, false
	}
	seq := 0
	if _, err := fmt.Sscanf(match[3], "%d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}

// ReferencePeriod renders the YYYY-MON prefix for t.
func ReferencePeriod(t time.Time) string {
	months := [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
	return fmt.Sprintf("%04d-%s", t.Year(), months[t.Month()-1])
}

// CreateBillInput carries the caller-supplied bill fields.
type CreateBillInput struct {
	CustomerID        snowflake.ID
	MeterAssignmentID snowflake.ID
	BillType          BillType
	Amount            decimal.Decimal
	RateUsed          decimal.Decimal
	TotalAmount       decimal.Decimal
	Reference         string
	Description       string
}

// ValidationError names the offending field so callers can surface a
// field-specific message before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	ErrInvalidReference = errors.New("reference does not match YYYY-MON-### format")
	ErrNotFound         = errors.New("bill_not_found")
)
