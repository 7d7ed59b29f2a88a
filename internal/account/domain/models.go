// Package domain contains the chart-of-accounts persistence model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeRevenue   AccountType = "revenue"
	TypeEquity    AccountType = "equity"
	TypeExpense   AccountType = "expense"
)

// Code identifies an account within a tenant's chart of accounts.
type Code string

const (
	CodeBank               Code = "BANK-001"
	CodeARControl          Code = "AR-CONTROL"
	CodeCustomerPrepayment Code = "CUSTOMER-PREPAYMENT"

	CodeRevenueConsumption  Code = "REV-CONSUMPTION"
	CodeRevenueServiceFee   Code = "REV-SERVICE-FEE"
	CodeRevenuePenalty      Code = "REV-PENALTY"
	CodeRevenueReconnection Code = "REV-RECONNECTION"
	CodeRevenueAdjustments  Code = "REV-ADJUSTMENTS"
)

// Account is a chart-of-accounts entry. Balance is a cached aggregate
// maintained by ledger postings.
type Account struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	TenantID  snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_accounts_tenant_code,priority:1"`
	Code      Code            `gorm:"type:text;not null;uniqueIndex:ux_accounts_tenant_code,priority:2"`
	Name      string          `gorm:"type:text;not null"`
	Type      AccountType     `gorm:"type:text;not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// DebitIncreases reports whether a debit grows this account's balance.
func (t AccountType) DebitIncreases() bool {
	return t == TypeAsset || t == TypeExpense
}

var (
	ErrNotFound    = errors.New("account_not_found")
	ErrInvalidCode = errors.New("invalid_account_code")
)
