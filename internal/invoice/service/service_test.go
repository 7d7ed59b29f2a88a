package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	accountrepo "github.com/smallbiznis/waterworks/internal/account/repository"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	"github.com/smallbiznis/waterworks/internal/clock"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	customerrepo "github.com/smallbiznis/waterworks/internal/customer/repository"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	financeservice "github.com/smallbiznis/waterworks/internal/finance/service"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/waterworks/internal/ledger/service"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	meterrepo "github.com/smallbiznis/waterworks/internal/meter/repository"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/waterworks/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type invoiceHarness struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      invoicedomain.Service
	ledger   ledgerdomain.Service
	finance  financedomain.Service
	tenantID snowflake.ID
}

func setupInvoiceTest(t *testing.T) *invoiceHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&ledgerdomain.Journal{},
		&customerdomain.Customer{},
		&meterdomain.Meter{},
		&meterdomain.MeterAssignment{},
		&billdomain.Bill{},
		&billdomain.ReferenceSequence{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceBill{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		AccountRepo: accountrepo.Provide(),
	})
	financeSvc := financeservice.NewService(financeservice.Params{
		DB:           db,
		Log:          log,
		MeterRepo:    meterrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		InvoiceRepo:  invoicerepo.Provide(),
		PaymentRepo:  paymentrepo.Provide(),
	})
	svc := NewService(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)),
		Repo:      invoicerepo.Provide(),
		BillRepo:  billrepo.Provide(),
		MeterRepo: meterrepo.Provide(),
		Ledger:    ledgerSvc,
		Finance:   financeSvc,
	})

	h := &invoiceHarness{
		db:       db,
		node:     node,
		svc:      svc,
		ledger:   ledgerSvc,
		finance:  financeSvc,
		tenantID: node.Generate(),
	}
	h.seedChart(t, h.tenantID)
	return h
}

func (h *invoiceHarness) seedChart(t *testing.T, tenantID snowflake.ID) {
	t.Helper()
	chart := []struct {
		code accountdomain.Code
		typ  accountdomain.AccountType
	}{
		{accountdomain.CodeBank, accountdomain.TypeAsset},
		{accountdomain.CodeARControl, accountdomain.TypeAsset},
		{accountdomain.CodeCustomerPrepayment, accountdomain.TypeLiability},
		{accountdomain.CodeRevenueConsumption, accountdomain.TypeRevenue},
		{accountdomain.CodeRevenueServiceFee, accountdomain.TypeRevenue},
		{accountdomain.CodeRevenuePenalty, accountdomain.TypeRevenue},
		{accountdomain.CodeRevenueReconnection, accountdomain.TypeRevenue},
		{accountdomain.CodeRevenueAdjustments, accountdomain.TypeRevenue},
	}
	for _, a := range chart {
		require.NoError(t, h.db.Create(&accountdomain.Account{
			ID:       h.node.Generate(),
			TenantID: tenantID,
			Code:     a.code,
			Name:     string(a.code),
			Type:     a.typ,
		}).Error)
	}
}

func (h *invoiceHarness) seedCustomerMeter(t *testing.T) (customerID, meterID, assignmentID snowflake.ID) {
	t.Helper()
	customer := customerdomain.Customer{ID: h.node.Generate(), TenantID: h.tenantID, Name: "Jane Mwangi"}
	require.NoError(t, h.db.Create(&customer).Error)
	meter := meterdomain.Meter{ID: h.node.Generate(), TenantID: h.tenantID, MeterNumber: "MTR-000001", Active: true}
	require.NoError(t, h.db.Create(&meter).Error)
	assignment := meterdomain.MeterAssignment{
		ID: h.node.Generate(), TenantID: h.tenantID,
		CustomerID: customer.ID, MeterID: meter.ID,
		Active: true, AssignedAt: time.Now(),
	}
	require.NoError(t, h.db.Create(&assignment).Error)
	return customer.ID, meter.ID, assignment.ID
}

func (h *invoiceHarness) seedBill(t *testing.T, customerID, assignmentID snowflake.ID, billType billdomain.BillType, total int64, ref string) billdomain.Bill {
	t.Helper()
	bill := billdomain.Bill{
		ID:                h.node.Generate(),
		TenantID:          h.tenantID,
		CustomerID:        customerID,
		MeterAssignmentID: assignmentID,
		BillType:          billType,
		Amount:            decimal.NewFromInt(total),
		RateUsed:          decimal.NewFromInt(1),
		TotalAmount:       decimal.NewFromInt(total),
		Status:            billdomain.BillStatusPending,
		BillRef:           ref,
		GenerationDate:    time.Now(),
	}
	require.NoError(t, h.db.Create(&bill).Error)
	return bill
}

func TestGenerateFromBills_ConsolidatesPerMeter(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, meterID, assignmentID := h.seedCustomerMeter(t)

	bills := []billdomain.Bill{
		h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 600, "2026-APR-001"),
		h.seedBill(t, customerID, assignmentID, billdomain.BillTypeServiceFee, 150, "2026-APR-001"),
		h.seedBill(t, customerID, assignmentID, billdomain.BillTypePenalty, 50, "2026-APR-001"),
	}

	result, err := h.svc.GenerateFromBills(ctx, h.tenantID, h.node.Generate(), bills)
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvoicesCreated, "bills for one meter merge into one invoice")
	assert.Equal(t, 3, result.BillsInvoiced)
	assert.Empty(t, result.Errors)

	var invoice invoicedomain.Invoice
	require.NoError(t, h.db.First(&invoice, "id = ?", result.InvoiceIDs[0]).Error)
	assert.True(t, invoice.Amount.Equal(decimal.NewFromInt(800)))
	assert.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(800)))
	assert.True(t, invoice.BalanceBroughtForward.IsZero())
	assert.Equal(t, invoicedomain.InvoiceStatusNotPaid, invoice.Status)
	assert.Equal(t, invoicedomain.InvoiceStateOpen, invoice.State)
	assert.Contains(t, invoice.InvoiceNumber, "INV-")

	var links []invoicedomain.InvoiceBill
	require.NoError(t, h.db.Find(&links, "invoice_id = ?", invoice.ID).Error)
	require.Len(t, links, 3)
	linkSum := decimal.Zero
	for _, l := range links {
		linkSum = linkSum.Add(l.Amount)
	}
	assert.True(t, linkSum.Equal(invoice.Amount), "join rows sum to the cycle amount")

	var remaining int64
	h.db.Model(&billdomain.Bill{}).
		Where("tenant_id = ? AND status = ?", h.tenantID, billdomain.BillStatusPending).
		Count(&remaining)
	assert.Zero(t, remaining, "all bills flipped to invoiced")

	// Ledger: debit AR 800, credit the three revenue accounts.
	rows, err := h.ledger.FindByTransaction(ctx, h.tenantID, invoice.ID)
	require.NoError(t, err)
	debits, credits := decimal.Zero, decimal.Zero
	for _, row := range rows {
		if row.Type == ledgerdomain.EntryTypeDebit {
			debits = debits.Add(row.Amount)
		} else {
			credits = credits.Add(row.Amount)
		}
	}
	assert.True(t, debits.Equal(credits), "journal group balances")
	assert.True(t, debits.Equal(decimal.NewFromInt(800)))

	// Recalculation ran: meter carries the invoice total.
	var meter meterdomain.Meter
	require.NoError(t, h.db.First(&meter, "id = ?", meterID).Error)
	assert.True(t, meter.Balance.Equal(decimal.NewFromInt(800)))
	assert.True(t, meter.TotalBilled.Equal(decimal.NewFromInt(800)))
}

func TestGenerateFromBills_BalanceBroughtForward(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, _, assignmentID := h.seedCustomerMeter(t)
	actorID := h.node.Generate()

	first := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 500, "2026-MAR-001")
	result, err := h.svc.GenerateFromBills(ctx, h.tenantID, actorID, []billdomain.Bill{first})
	require.NoError(t, err)
	firstID := result.InvoiceIDs[0]

	second := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 300, "2026-APR-001")
	result, err = h.svc.GenerateFromBills(ctx, h.tenantID, actorID, []billdomain.Bill{second})
	require.NoError(t, err)
	require.Equal(t, 1, result.InvoicesCreated)

	var prior invoicedomain.Invoice
	require.NoError(t, h.db.First(&prior, "id = ?", firstID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusCleared, prior.Status)
	assert.Equal(t, invoicedomain.InvoiceStateClosed, prior.State)
	assert.True(t, prior.Balance.IsZero(), "superseded invoice zeroed")

	var current invoicedomain.Invoice
	require.NoError(t, h.db.First(&current, "id = ?", result.InvoiceIDs[0]).Error)
	assert.True(t, current.BalanceBroughtForward.Equal(decimal.NewFromInt(500)))
	assert.True(t, current.Amount.Equal(decimal.NewFromInt(300)))
	assert.True(t, current.TotalAmount.Equal(decimal.NewFromInt(800)))
	assert.True(t, current.Balance.Equal(decimal.NewFromInt(800)))

	// Only one open invoice per (customer, meter) at any time.
	var open int64
	h.db.Model(&invoicedomain.Invoice{}).
		Where("tenant_id = ? AND customer_id = ? AND state = ?", h.tenantID, customerID, invoicedomain.InvoiceStateOpen).
		Count(&open)
	assert.EqualValues(t, 1, open)
}

func TestGenerateFromBills_OtherMetersUntouched(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, _, assignmentID := h.seedCustomerMeter(t)
	actorID := h.node.Generate()

	// Second meter for the same customer.
	meterB := meterdomain.Meter{ID: h.node.Generate(), TenantID: h.tenantID, MeterNumber: "MTR-000002", Active: true}
	require.NoError(t, h.db.Create(&meterB).Error)
	assignmentB := meterdomain.MeterAssignment{
		ID: h.node.Generate(), TenantID: h.tenantID,
		CustomerID: customerID, MeterID: meterB.ID,
		Active: true, AssignedAt: time.Now(),
	}
	require.NoError(t, h.db.Create(&assignmentB).Error)

	billA := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 400, "2026-MAR-001")
	billB := h.seedBill(t, customerID, assignmentB.ID, billdomain.BillTypeConsumption, 900, "2026-MAR-001")
	result, err := h.svc.GenerateFromBills(ctx, h.tenantID, actorID, []billdomain.Bill{billA, billB})
	require.NoError(t, err)
	require.Equal(t, 2, result.InvoicesCreated, "one invoice per meter")

	// Rebill only meter A; meter B's invoice must stay open and intact.
	billA2 := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 100, "2026-APR-001")
	_, err = h.svc.GenerateFromBills(ctx, h.tenantID, actorID, []billdomain.Bill{billA2})
	require.NoError(t, err)

	var invoiceB invoicedomain.Invoice
	require.NoError(t, h.db.
		Where("tenant_id = ? AND meter_id = ?", h.tenantID, meterB.ID).
		First(&invoiceB).Error)
	assert.Equal(t, invoicedomain.InvoiceStateOpen, invoiceB.State)
	assert.True(t, invoiceB.Balance.Equal(decimal.NewFromInt(900)))

	// Customer balance sums both meters: (400 carried + 100) + 900.
	var customer customerdomain.Customer
	require.NoError(t, h.db.First(&customer, "id = ?", customerID).Error)
	assert.True(t, customer.Balance.Equal(decimal.NewFromInt(1400)))
}

func TestGenerateFromBills_SkipsForeignAndOrphanedBills(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, _, assignmentID := h.seedCustomerMeter(t)

	good := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 100, "2026-APR-001")
	foreign := good
	foreign.ID = h.node.Generate()
	foreign.TenantID = h.node.Generate()
	orphan := h.seedBill(t, customerID, h.node.Generate(), billdomain.BillTypeConsumption, 100, "2026-APR-002")

	result, err := h.svc.GenerateFromBills(ctx, h.tenantID, h.node.Generate(), []billdomain.Bill{good, foreign, orphan})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvoicesCreated)
	assert.Len(t, result.Errors, 2, "foreign-tenant and orphaned bills reported, not fatal")
}

func TestGenerateBatch_MergesPendingBillsAcrossCalls(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, _, assignmentID := h.seedCustomerMeter(t)

	h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 250, "2026-APR-001")
	h.seedBill(t, customerID, assignmentID, billdomain.BillTypeReconnection, 1000, "2026-APR-002")

	result, err := h.svc.GenerateBatch(ctx, h.tenantID, h.node.Generate())
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvoicesCreated)
	assert.Equal(t, 2, result.BillsInvoiced)

	// Nothing left pending: a rerun is a no-op.
	result, err = h.svc.GenerateBatch(ctx, h.tenantID, h.node.Generate())
	require.NoError(t, err)
	assert.Zero(t, result.InvoicesCreated)
}

func TestGenerateForMeter_AutoAppliesMeterCredit(t *testing.T) {
	h := setupInvoiceTest(t)
	ctx := context.Background()
	customerID, meterID, assignmentID := h.seedCustomerMeter(t)

	// Meter holds prior credit from an overpaid cycle.
	require.NoError(t, h.db.Model(&meterdomain.Meter{}).
		Where("id = ?", meterID).
		Update("overpayment", decimal.NewFromInt(200)).Error)
	// A completed advance payment backs the credit so recomputation
	// converges to the same figure.
	require.NoError(t, h.db.Create(&paymentdomain.Payment{
		ID:          h.node.Generate(),
		TenantID:    h.tenantID,
		CustomerID:  customerID,
		MeterID:     meterID,
		Amount:      decimal.NewFromInt(200),
		Method:      paymentdomain.MethodCash,
		Reference:   "PAY-ADV-1",
		Status:      paymentdomain.StatusCompleted,
		PaymentDate: time.Now(),
	}).Error)

	bill := h.seedBill(t, customerID, assignmentID, billdomain.BillTypeConsumption, 500, "2026-APR-001")
	result, err := h.svc.GenerateFromBills(ctx, h.tenantID, h.node.Generate(), []billdomain.Bill{bill})
	require.NoError(t, err)

	var invoice invoicedomain.Invoice
	require.NoError(t, h.db.First(&invoice, "id = ?", result.InvoiceIDs[0]).Error)
	assert.True(t, invoice.OverpaymentApplied.Equal(decimal.NewFromInt(200)), "credit applied during creation")
	assert.True(t, invoice.Balance.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, invoicedomain.InvoiceStatusPartialPayment, invoice.Status)

	var meter meterdomain.Meter
	require.NoError(t, h.db.First(&meter, "id = ?", meterID).Error)
	assert.True(t, meter.Overpayment.IsZero(), "credit consumed")
	assert.True(t, meter.Balance.Equal(decimal.NewFromInt(300)))
}
