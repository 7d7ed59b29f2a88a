package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/meter/domain"
	"gorm.io/gorm"
)

const meterNumberPrefix = "MTR-"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, meter *domain.Meter) error {
	return db.WithContext(ctx).Create(meter).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Meter, error) {
	var meter domain.Meter
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&meter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meter, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, meter *domain.Meter) error {
	return db.WithContext(ctx).Save(meter).Error
}

// NextMeterNumber scans the tenant's existing meter numbers and returns the
// next MTR-###### value. Malformed numbers are ignored. The unique index on
// (tenant_id, meter_number) turns a concurrent duplicate into an insert
// failure instead of a silent collision.
func (r *repo) NextMeterNumber(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (string, error) {
	var numbers []string
	err := db.WithContext(ctx).
		Model(&domain.Meter{}).
		Where("tenant_id = ?", tenantID).
		Pluck("meter_number", &numbers).Error
	if err != nil {
		return "", err
	}

	max := 0
	for _, number := range numbers {
		suffix, ok := strings.CutPrefix(number, meterNumberPrefix)
		if !ok || len(suffix) != 6 {
			continue
		}
		seq, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}

	return fmt.Sprintf("%s%06d", meterNumberPrefix, max+1), nil
}

func (r *repo) InsertAssignment(ctx context.Context, db *gorm.DB, assignment *domain.MeterAssignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) FindAssignmentByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.MeterAssignment, error) {
	var assignment domain.MeterAssignment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repo) ActiveAssignmentsByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]domain.MeterAssignment, error) {
	var assignments []domain.MeterAssignment
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND active = ?", tenantID, customerID, true).
		Order("assigned_at").
		Find(&assignments).Error
	return assignments, err
}
