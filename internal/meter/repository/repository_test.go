package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/waterworks/internal/meter/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Meter{}, &domain.MeterAssignment{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func TestInsert_InactiveStateRoundTrips(t *testing.T) {
	db, node := setupRepoTest(t)
	ctx := context.Background()
	r := Provide()
	tenantID := node.Generate()

	meter := domain.Meter{ID: node.Generate(), TenantID: tenantID, MeterNumber: "MTR-000001", Active: false}
	require.NoError(t, r.Insert(ctx, db, &meter))

	loaded, err := r.FindByID(ctx, db, tenantID, meter.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Active, "decommissioned meter stays decommissioned")
}

func TestActiveAssignmentsByCustomer_SkipsEndedAssignments(t *testing.T) {
	db, node := setupRepoTest(t)
	ctx := context.Background()
	r := Provide()
	tenantID := node.Generate()
	customerID := node.Generate()

	active := domain.MeterAssignment{
		ID: node.Generate(), TenantID: tenantID,
		CustomerID: customerID, MeterID: node.Generate(),
		Active: true, AssignedAt: time.Now(),
	}
	ended := domain.MeterAssignment{
		ID: node.Generate(), TenantID: tenantID,
		CustomerID: customerID, MeterID: node.Generate(),
		Active: false, AssignedAt: time.Now(),
	}
	require.NoError(t, r.InsertAssignment(ctx, db, &active))
	require.NoError(t, r.InsertAssignment(ctx, db, &ended))

	stored, err := r.FindAssignmentByID(ctx, db, tenantID, ended.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Active, "ended assignment stays ended")

	assignments, err := r.ActiveAssignmentsByCustomer(ctx, db, tenantID, customerID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, active.ID, assignments[0].ID)
}

func TestNextMeterNumber_IgnoresMalformed(t *testing.T) {
	db, node := setupRepoTest(t)
	ctx := context.Background()
	r := Provide()
	tenantID := node.Generate()

	for _, number := range []string{"MTR-000007", "MTR-12", "legacy-3"} {
		require.NoError(t, db.Create(&domain.Meter{
			ID: node.Generate(), TenantID: tenantID, MeterNumber: number, Active: true,
		}).Error)
	}

	next, err := r.NextMeterNumber(ctx, db, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "MTR-000008", next)
}
