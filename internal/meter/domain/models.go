// Package domain contains meter and meter-assignment persistence models.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Meter is a physical water meter. Balance, Overpayment, TotalBilled and
// TotalPaid are denormalized aggregates rewritten by full recomputation,
// never patched incrementally.
type Meter struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	TenantID        snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_meters_tenant_number,priority:1"`
	MeterNumber     string          `gorm:"type:text;not null;uniqueIndex:ux_meters_tenant_number,priority:2"`
	Location        string          `gorm:"type:text"`
	Active          bool            `gorm:"not null"`
	Balance         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Overpayment     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalBilled     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalPaid       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	LastInvoiceDate *time.Time      `gorm:""`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }

// MeterAssignment links a customer to a meter. Billing is always scoped to
// an assignment, never directly to a customer.
type MeterAssignment struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TenantID   snowflake.ID `gorm:"not null;index"`
	CustomerID snowflake.ID `gorm:"not null;index"`
	MeterID    snowflake.ID `gorm:"not null;index"`
	Active     bool         `gorm:"not null"`
	AssignedAt time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MeterAssignment) TableName() string { return "meter_assignments" }

var (
	ErrNotFound           = errors.New("meter_not_found")
	ErrAssignmentNotFound = errors.New("meter_assignment_not_found")
)
