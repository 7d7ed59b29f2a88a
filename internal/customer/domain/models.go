// Package domain contains the customer persistence model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Customer is a billable account holder. Balance and Overpayment are
// denormalized sums across the customer's active meter assignments,
// rewritten by full recomputation.
type Customer struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	TenantID    snowflake.ID      `gorm:"not null;index"`
	Name        string            `gorm:"type:text;not null"`
	Phone       string            `gorm:"type:text"`
	Email       string            `gorm:"type:text"`
	Balance     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	Overpayment decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

var ErrNotFound = errors.New("customer_not_found")
