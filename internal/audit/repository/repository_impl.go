package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/waterworks/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Entry, error) {
	stmt := db.WithContext(ctx).Model(&domain.Entry{}).
		Where("tenant_id = ?", filter.TenantID)

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if filter.TargetID != 0 {
		stmt = stmt.Where("target_id = ?", filter.TargetID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []domain.Entry
	err := stmt.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
