package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/bill/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error
	MarkInvoiced(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID) error
	ExistsByCustomerReference(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, reference string) (bool, error)
	FindPending(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Bill, error)
	FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]domain.Bill, error)
	ReferencesForPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodPrefix string) ([]string, error)
	NextSequence(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, seed int) (int, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, billIDs []snowflake.ID) error {
	if len(billIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("tenant_id = ? AND id IN ?", tenantID, billIDs).
		Update("status", domain.BillStatusInvoiced).Error
}

func (r *repo) ExistsByCustomerReference(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, reference string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("tenant_id = ? AND customer_id = ? AND bill_ref = ?", tenantID, customerID, reference).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) FindPending(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, domain.BillStatusPending).
		Order("generation_date").
		Find(&bills).Error
	return bills, err
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]domain.Bill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var bills []domain.Bill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&bills).Error
	return bills, err
}

func (r *repo) ReferencesForPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodPrefix string) ([]string, error) {
	var refs []string
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("tenant_id = ? AND bill_ref LIKE ?", tenantID, periodPrefix+"%").
		Distinct().
		Pluck("bill_ref", &refs).Error
	return refs, err
}

// NextSequence increments the per-tenant-month counter row and returns the
// new value. The UPDATE takes a row lock for the remainder of the
// surrounding transaction, serializing concurrent generators. When the
// counter row does not exist yet it is seeded from the highest valid
// reference already on file.
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, period string, seed int) (int, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE reference_sequences SET last_seq = last_seq + 1 WHERE tenant_id = ? AND period = ?`,
		tenantID, period,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		row := domain.ReferenceSequence{TenantID: tenantID, Period: period, LastSeq: seed + 1}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return 0, err
		}
		return row.LastSeq, nil
	}

	var seq int
	err := db.WithContext(ctx).
		Model(&domain.ReferenceSequence{}).
		Where("tenant_id = ? AND period = ?", tenantID, period).
		Pluck("last_seq", &seq).Error
	return seq, err
}
