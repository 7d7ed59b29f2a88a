package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/payment/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Payment, error)
	FindByInvoiceReference(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID, reference string) (*domain.Payment, error)
	FindByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Payment, error)
	FindCompletedByMeter(ctx context.Context, db *gorm.DB, tenantID, meterID snowflake.ID) ([]domain.Payment, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByInvoiceReference(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID, reference string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND reference = ? AND status = ?",
			tenantID, invoiceID, reference, domain.StatusCompleted).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindCompletedByMeter(ctx context.Context, db *gorm.DB, tenantID, meterID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND meter_id = ? AND status = ?", tenantID, meterID, domain.StatusCompleted).
		Find(&payments).Error
	return payments, err
}

func (r *repo) FindByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("payment_date DESC").
		Find(&payments).Error
	return payments, err
}
