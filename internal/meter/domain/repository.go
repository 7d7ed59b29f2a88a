package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, meter *Meter) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Meter, error)
	Update(ctx context.Context, db *gorm.DB, meter *Meter) error
	NextMeterNumber(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (string, error)

	InsertAssignment(ctx context.Context, db *gorm.DB, assignment *MeterAssignment) error
	FindAssignmentByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*MeterAssignment, error)
	ActiveAssignmentsByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]MeterAssignment, error)
}
