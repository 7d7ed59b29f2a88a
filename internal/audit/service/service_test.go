package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	auditrepo "github.com/smallbiznis/waterworks/internal/audit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type auditHarness struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      auditdomain.Service
	tenantID snowflake.ID
}

func setupAuditTest(t *testing.T) *auditHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})

	return &auditHarness{
		db:       db,
		node:     node,
		svc:      svc,
		tenantID: node.Generate(),
	}
}

func TestRecord_PersistsEntry(t *testing.T) {
	h := setupAuditTest(t)
	ctx := context.Background()

	actorID := h.node.Generate()
	targetID := h.node.Generate()

	err := h.svc.Record(ctx, h.tenantID, actorID, auditdomain.ActionInvoiceReversed,
		"invoice", targetID, map[string]any{"reason": "duplicate billing"})
	require.NoError(t, err)

	entries, err := h.svc.List(ctx, auditdomain.ListFilter{TenantID: h.tenantID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, auditdomain.ActionInvoiceReversed, entry.Action)
	assert.Equal(t, "invoice", entry.TargetType)
	assert.Equal(t, targetID, entry.TargetID)
	assert.Equal(t, actorID, entry.ActorID)
	assert.Equal(t, "duplicate billing", entry.Metadata["reason"])
}

func TestRecord_RejectsBlankAction(t *testing.T) {
	h := setupAuditTest(t)

	err := h.svc.Record(context.Background(), h.tenantID, 0, "   ", "invoice", h.node.Generate(), nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestList_FiltersByActionAndTarget(t *testing.T) {
	h := setupAuditTest(t)
	ctx := context.Background()

	invoiceID := h.node.Generate()
	paymentID := h.node.Generate()

	require.NoError(t, h.svc.Record(ctx, h.tenantID, 0, auditdomain.ActionInvoiceReversed, "invoice", invoiceID, nil))
	require.NoError(t, h.svc.Record(ctx, h.tenantID, 0, auditdomain.ActionInvoiceCorrected, "invoice", invoiceID, nil))
	require.NoError(t, h.svc.Record(ctx, h.tenantID, 0, auditdomain.ActionPaymentRecorded, "payment", paymentID, nil))

	byAction, err := h.svc.List(ctx, auditdomain.ListFilter{
		TenantID: h.tenantID,
		Action:   auditdomain.ActionInvoiceCorrected,
	})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, invoiceID, byAction[0].TargetID)

	byTarget, err := h.svc.List(ctx, auditdomain.ListFilter{
		TenantID:   h.tenantID,
		TargetType: "payment",
		TargetID:   paymentID,
	})
	require.NoError(t, err)
	require.Len(t, byTarget, 1)
	assert.Equal(t, auditdomain.ActionPaymentRecorded, byTarget[0].Action)
}

func TestList_ScopedToTenant(t *testing.T) {
	h := setupAuditTest(t)
	ctx := context.Background()

	otherTenant := h.node.Generate()
	require.NoError(t, h.svc.Record(ctx, h.tenantID, 0, auditdomain.ActionBatchRun, "batch", 0, nil))
	require.NoError(t, h.svc.Record(ctx, otherTenant, 0, auditdomain.ActionBatchRun, "batch", 0, nil))

	entries, err := h.svc.List(ctx, auditdomain.ListFilter{TenantID: h.tenantID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, h.tenantID, entries[0].TenantID)
}
