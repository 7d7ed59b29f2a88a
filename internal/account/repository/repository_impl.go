package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/waterworks/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, code domain.Code) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindByCodes(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, codes []domain.Code) (map[domain.Code]*domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND code IN ?", tenantID, codes).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	out := make(map[domain.Code]*domain.Account, len(accounts))
	for i := range accounts {
		out[accounts[i].Code] = &accounts[i]
	}
	return out, nil
}

func (r *repo) AdjustBalance(ctx context.Context, db *gorm.DB, accountID snowflake.ID, delta decimal.Decimal) error {
	var account domain.Account
	if err := db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", accountID).
		Update("balance", account.Balance.Add(delta)).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Account, error) {
	var accounts []domain.Account
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code").
		Find(&accounts).Error
	return accounts, err
}
