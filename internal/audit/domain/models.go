// Package domain defines the append-only trail of admin actions:
// who reversed, corrected or paid what, and when.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Entry struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   snowflake.ID      `gorm:"not null;index"`
	ActorID    snowflake.ID      `gorm:"not null"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   snowflake.ID      `gorm:"not null;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "audit_entries" }

const (
	ActionInvoiceReversed    = "invoice.reversed"
	ActionInvoiceCorrected   = "invoice.corrected"
	ActionPaymentRecorded    = "payment.recorded"
	ActionPaymentReversed    = "payment.reversed"
	ActionOverpaymentApplied = "overpayment.applied"
	ActionBatchRun           = "billing.batch_run"
)

type ListFilter struct {
	TenantID   snowflake.ID
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Entry, error)
}

type Service interface {
	// Record appends one entry. Failures are reported but must never
	// unwind the action they describe.
	Record(ctx context.Context, tenantID, actorID snowflake.ID, action, targetType string, targetID snowflake.ID, metadata map[string]any) error

	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

var ErrInvalidAction = errors.New("audit action is required")
