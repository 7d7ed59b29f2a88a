package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	"github.com/smallbiznis/waterworks/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupBillTest(t *testing.T) (*gorm.DB, *snowflake.Node, billdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&billdomain.Bill{},
		&billdomain.ReferenceSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)),
		Repo:  billrepo.Provide(),
	})
	return db, node, svc
}

func TestGenerateReference_StartsAtOne(t *testing.T) {
	_, node, svc := setupBillTest(t)

	ref, err := svc.GenerateReference(context.Background(), node.Generate())
	require.NoError(t, err)
	assert.Equal(t, "2026-MAR-001", ref)
}

func TestGenerateReference_Sequential(t *testing.T) {
	_, node, svc := setupBillTest(t)
	ctx := context.Background()
	tenantID := node.Generate()

	for i := 1; i <= 3; i++ {
		ref, err := svc.GenerateReference(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("2026-MAR-%03d", i), ref)
	}
}

func TestGenerateReference_SeedsFromExistingBills(t *testing.T) {
	db, node, svc := setupBillTest(t)
	ctx := context.Background()
	tenantID := node.Generate()

	// Bills imported before the sequence table existed, including one
	// malformed reference that must be ignored.
	for _, ref := range []string{"2026-MAR-004", "2026-MAR-007", "garbage-ref"} {
		require.NoError(t, db.Create(&billdomain.Bill{
			ID:             node.Generate(),
			TenantID:       tenantID,
			CustomerID:     node.Generate(),
			BillType:       billdomain.BillTypeConsumption,
			Amount:         decimal.NewFromInt(1),
			TotalAmount:    decimal.NewFromInt(1),
			Status:         billdomain.BillStatusPending,
			BillRef:        ref,
			GenerationDate: time.Now(),
		}).Error)
	}

	ref, err := svc.GenerateReference(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "2026-MAR-008", ref)
}

func TestGenerateReference_TenantScoped(t *testing.T) {
	_, node, svc := setupBillTest(t)
	ctx := context.Background()
	tenantA := node.Generate()
	tenantB := node.Generate()

	refA, err := svc.GenerateReference(ctx, tenantA)
	require.NoError(t, err)
	refA2, err := svc.GenerateReference(ctx, tenantA)
	require.NoError(t, err)
	refB, err := svc.GenerateReference(ctx, tenantB)
	require.NoError(t, err)

	assert.Equal(t, "2026-MAR-001", refA)
	assert.Equal(t, "2026-MAR-002", refA2)
	assert.Equal(t, "2026-MAR-001", refB, "tenant B starts its own sequence")
}

func TestCreateSingleBill_Defaults(t *testing.T) {
	_, node, svc := setupBillTest(t)
	tenantID := node.Generate()

	bill, err := svc.CreateSingleBill(context.Background(), tenantID, node.Generate(), billdomain.CreateBillInput{
		CustomerID:        node.Generate(),
		MeterAssignmentID: node.Generate(),
		BillType:          billdomain.BillTypeConsumption,
		Amount:            decimal.NewFromInt(12),
		RateUsed:          decimal.NewFromInt(50),
		TotalAmount:       decimal.NewFromInt(600),
	})
	require.NoError(t, err)

	assert.Equal(t, billdomain.BillStatusPending, bill.Status)
	assert.Equal(t, "2026-MAR-001", bill.BillRef, "reference minted when absent")
	assert.False(t, bill.GenerationDate.IsZero())
	assert.Equal(t, tenantID, bill.TenantID)
}

func TestCreateSingleBill_ValidationErrors(t *testing.T) {
	_, node, svc := setupBillTest(t)
	ctx := context.Background()
	tenantID := node.Generate()
	customerID := node.Generate()

	valid := billdomain.CreateBillInput{
		CustomerID:  customerID,
		BillType:    billdomain.BillTypeConsumption,
		Amount:      decimal.NewFromInt(10),
		RateUsed:    decimal.NewFromInt(5),
		TotalAmount: decimal.NewFromInt(50),
	}

	cases := []struct {
		name   string
		mutate func(*billdomain.CreateBillInput)
		field  string
	}{
		{"missing customer", func(in *billdomain.CreateBillInput) { in.CustomerID = 0 }, "customer_id"},
		{"unknown bill type", func(in *billdomain.CreateBillInput) { in.BillType = "electricity" }, "bill_type"},
		{"zero amount", func(in *billdomain.CreateBillInput) { in.Amount = decimal.Zero }, "amount"},
		{"negative rate", func(in *billdomain.CreateBillInput) { in.RateUsed = decimal.NewFromInt(-1) }, "rate_used"},
		{"zero total", func(in *billdomain.CreateBillInput) { in.TotalAmount = decimal.Zero }, "total_amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := svc.CreateSingleBill(ctx, tenantID, 0, input)
			var vErr *billdomain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestCreateSingleBill_RejectsMalformedReference(t *testing.T) {
	_, node, svc := setupBillTest(t)

	_, err := svc.CreateSingleBill(context.Background(), node.Generate(), 0, billdomain.CreateBillInput{
		CustomerID:  node.Generate(),
		BillType:    billdomain.BillTypePenalty,
		Amount:      decimal.NewFromInt(1),
		RateUsed:    decimal.NewFromInt(1),
		TotalAmount: decimal.NewFromInt(1),
		Reference:   "2026-March-1",
	})
	require.ErrorIs(t, err, billdomain.ErrInvalidReference)
}

func TestCheckForDuplicate(t *testing.T) {
	_, node, svc := setupBillTest(t)
	ctx := context.Background()
	tenantID := node.Generate()
	customerID := node.Generate()

	_, err := svc.CreateSingleBill(ctx, tenantID, 0, billdomain.CreateBillInput{
		CustomerID:  customerID,
		BillType:    billdomain.BillTypeServiceFee,
		Amount:      decimal.NewFromInt(1),
		RateUsed:    decimal.NewFromInt(100),
		TotalAmount: decimal.NewFromInt(100),
		Reference:   "2026-MAR-001",
	})
	require.NoError(t, err)

	exists, err := svc.CheckForDuplicate(ctx, tenantID, customerID, "2026-MAR-001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.CheckForDuplicate(ctx, tenantID, customerID, "2026-MAR-002")
	require.NoError(t, err)
	assert.False(t, exists)

	// Same reference, different customer: not a duplicate.
	exists, err = svc.CheckForDuplicate(ctx, tenantID, node.Generate(), "2026-MAR-001")
	require.NoError(t, err)
	assert.False(t, exists)

	// Same reference and customer, another tenant: not a duplicate.
	exists, err = svc.CheckForDuplicate(ctx, node.Generate(), customerID, "2026-MAR-001")
	require.NoError(t, err)
	assert.False(t, exists)
}
