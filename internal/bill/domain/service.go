package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GenerateReference mints the next YYYY-MON-### reference for the
	// tenant's current period.
	GenerateReference(ctx context.Context, tenantID snowflake.ID) (string, error)

	// CreateSingleBill validates and persists one pending bill.
	CreateSingleBill(ctx context.Context, tenantID, actorID snowflake.ID, input CreateBillInput) (*Bill, error)

	// CheckForDuplicate reports whether a bill already exists for the
	// (customer, reference) pair inside the tenant.
	CheckForDuplicate(ctx context.Context, tenantID, customerID snowflake.ID, reference string) (bool, error)

	// FindPending returns all pending bills for the tenant.
	FindPending(ctx context.Context, tenantID snowflake.ID) ([]Bill, error)
}
