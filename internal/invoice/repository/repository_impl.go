package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error)
	FindOpenByMeter(ctx context.Context, db *gorm.DB, tenantID, customerID, meterID snowflake.ID) (*domain.Invoice, error)
	FindOpenByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Invoice, error)
	FindByMeter(ctx context.Context, db *gorm.DB, tenantID, meterID snowflake.ID) ([]domain.Invoice, error)
	InsertInvoiceBill(ctx context.Context, db *gorm.DB, link *domain.InvoiceBill) error
	FindInvoiceBills(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID) ([]domain.InvoiceBill, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Save(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, tenantID, id)
}

// FindByIDForUpdate locks the invoice row for the remainder of the
// surrounding transaction so concurrent payment application cannot read
// a stale balance.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db.Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindOpenByMeter(ctx context.Context, db *gorm.DB, tenantID, customerID, meterID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND meter_id = ? AND state = ?",
			tenantID, customerID, meterID, domain.InvoiceStateOpen).
		Order("invoice_date DESC").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindOpenByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND state = ?", tenantID, customerID, domain.InvoiceStateOpen).
		Order("invoice_date").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) FindByMeter(ctx context.Context, db *gorm.DB, tenantID, meterID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND meter_id = ?", tenantID, meterID).
		Order("invoice_date").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) InsertInvoiceBill(ctx context.Context, db *gorm.DB, link *domain.InvoiceBill) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) FindInvoiceBills(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID) ([]domain.InvoiceBill, error) {
	var links []domain.InvoiceBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Find(&links).Error
	return links, err
}
