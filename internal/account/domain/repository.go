package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByCode(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, code Code) (*Account, error)
	FindByCodes(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, codes []Code) (map[Code]*Account, error)
	AdjustBalance(ctx context.Context, db *gorm.DB, accountID snowflake.ID, delta decimal.Decimal) error
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Account, error)
}
