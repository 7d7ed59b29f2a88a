// Package domain contains the payment persistence model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Method is how the money arrived.
type Method string

const (
	MethodCash         Method = "cash"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
)

// Status is the payment lifecycle. Payments are never deleted, only
// reversed in place.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusReversed  Status = "reversed"
)

// Payment records money received. Reference uniqueness is scoped to the
// customer inside the tenant; the same external reference may appear
// legitimately for different customers.
type Payment struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	TenantID       snowflake.ID      `gorm:"not null;index"`
	CustomerID     snowflake.ID      `gorm:"not null;index"`
	InvoiceID      *snowflake.ID     `gorm:"index"`
	MeterID        snowflake.ID      `gorm:"not null;index"`
	Amount         decimal.Decimal   `gorm:"type:decimal(20,4);not null"`
	Method         Method            `gorm:"type:text;not null"`
	Reference      string            `gorm:"type:text;not null"`
	Status         Status            `gorm:"type:text;not null;default:'completed'"`
	PaymentDate    time.Time         `gorm:"not null"`
	Notes          string            `gorm:"type:text"`
	ReversalReason string            `gorm:"type:text"`
	ReversedAt     *time.Time        `gorm:""`
	ReversedBy     *snowflake.ID     `gorm:""`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var (
	ErrInvalidAmount   = errors.New("payment amount must be greater than zero")
	ErrNotFound        = errors.New("payment_not_found")
	ErrAlreadyReversed = errors.New("payment already reversed")
	ErrInvoiceRequired = errors.New("invoice is required")
	ErrReasonRequired  = errors.New("reversal reason is required")
)
