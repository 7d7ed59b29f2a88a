// Package seed bootstraps the chart of accounts a tenant needs before
// any ledger posting can succeed.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	"gorm.io/gorm"
)

type chartEntry struct {
	Code accountdomain.Code
	Type accountdomain.AccountType
	Name string
}

var defaultChart = []chartEntry{
	{accountdomain.CodeBank, accountdomain.TypeAsset, "Bank / Cash"},
	{accountdomain.CodeARControl, accountdomain.TypeAsset, "Accounts Receivable Control"},
	{accountdomain.CodeCustomerPrepayment, accountdomain.TypeLiability, "Customer Prepayments"},

	{accountdomain.CodeRevenueConsumption, accountdomain.TypeRevenue, "Water Consumption Revenue"},
	{accountdomain.CodeRevenueServiceFee, accountdomain.TypeRevenue, "Service Fee Revenue"},
	{accountdomain.CodeRevenuePenalty, accountdomain.TypeRevenue, "Penalty Revenue"},
	{accountdomain.CodeRevenueReconnection, accountdomain.TypeRevenue, "Reconnection Fee Revenue"},
	{accountdomain.CodeRevenueAdjustments, accountdomain.TypeRevenue, "Billing Adjustments"},
}

// EnsureTenantAccounts creates any missing default accounts for the
// tenant. Existing accounts keep their cached balances.
func EnsureTenantAccounts(db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range defaultChart {
			var existing accountdomain.Account
			err := tx.WithContext(ctx).
				Where("tenant_id = ? AND code = ?", tenantID, entry.Code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			account := accountdomain.Account{
				ID:       node.Generate(),
				TenantID: tenantID,
				Code:     entry.Code,
				Name:     entry.Name,
				Type:     entry.Type,
			}
			if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
