package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoice_ProducesPDF(t *testing.T) {
	p := New()

	doc := InvoiceDocument{
		UtilityName:    "Springfield Water Board",
		UtilityAddress: "12 Reservoir Road",
		UtilityPhone:   "+1 555 0100",

		InvoiceNumber: "INV-1234567890",
		InvoiceDate:   "01 Jul 2026",
		DueDate:       "15 Jul 2026",
		MeterNumber:   "MTR-000042",

		CustomerName:    "Ada Brooks",
		CustomerAddress: "7 Elm Street",

		Lines: []InvoiceLine{
			{Description: "Water consumption", Reference: "2026-JUL-001", Amount: "850.00"},
			{Description: "Service fee", Reference: "2026-JUL-002", Amount: "150.00"},
		},

		BalanceBroughtForward: "200.00",
		CurrentCharges:        "1000.00",
		AmountPaid:            "0.00",
		BalanceDue:            "1200.00",
	}

	reader, err := p.GenerateInvoice(context.Background(), doc)
	require.NoError(t, err)

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestGenerateReceipt_ProducesPDF(t *testing.T) {
	p := New()

	doc := ReceiptDocument{
		UtilityName:    "Springfield Water Board",
		UtilityAddress: "12 Reservoir Road",

		ReceiptNumber: "PAY-2026-0007",
		PaymentDate:   "20 Jul 2026",
		Method:        "cash",

		CustomerName:  "Ada Brooks",
		InvoiceNumber: "INV-1234567890",
		MeterNumber:   "MTR-000042",

		AmountPaid:       "1500.00",
		AppliedToInvoice: "1200.00",
		CreditRetained:   "300.00",
		BalanceAfter:     "0.00",
	}

	reader, err := p.GenerateReceipt(context.Background(), doc)
	require.NoError(t, err)

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, "%PDF", string(raw[:4]))
}
