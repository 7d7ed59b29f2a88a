package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service posts balanced journal groups. Post must be called inside the
// caller's transaction so ledger rows never outlive a failed sibling write.
type Service interface {
	Post(ctx context.Context, tx *gorm.DB, entry Entry) error
	FindByTransaction(ctx context.Context, tenantID, transactionID snowflake.ID) ([]Journal, error)
}
