package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/waterworks/internal/account/domain"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/waterworks/internal/ledger/domain"
	"gorm.io/gorm"
)

// postInvoiceToLedger writes the balanced journal group for a freshly
// created invoice. Must run inside the invoice creation transaction.
//
// Double-entry logic:
//
//	Debit:  AR-CONTROL for the invoice total (receivable raised)
//	Credit: revenue account per bill type for that type's share
//	Credit: AR-CONTROL for the balance brought forward; the superseded
//	        invoice's receivable was zeroed, so only current-cycle
//	        charges grow AR on net.
func (s *Service) postInvoiceToLedger(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, bills []billdomain.Bill) error {
	revenueByCode := make(map[accountdomain.Code]decimal.Decimal)
	var codeOrder []accountdomain.Code
	for _, b := range bills {
		code := b.BillType.RevenueAccountCode()
		if code == "" {
			return fmt.Errorf("bill %s: %w", b.BillRef, accountdomain.ErrInvalidCode)
		}
		if _, ok := revenueByCode[code]; !ok {
			codeOrder = append(codeOrder, code)
		}
		revenueByCode[code] = revenueByCode[code].Add(b.TotalAmount)
	}

	lines := []ledgerdomain.Line{
		{
			AccountCode: accountdomain.CodeARControl,
			Type:        ledgerdomain.EntryTypeDebit,
			Amount:      invoice.TotalAmount,
			Description: fmt.Sprintf("Invoice %s raised", invoice.InvoiceNumber),
		},
	}
	for _, code := range codeOrder {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: code,
			Type:        ledgerdomain.EntryTypeCredit,
			Amount:      revenueByCode[code],
		})
	}
	if invoice.BalanceBroughtForward.IsPositive() {
		lines = append(lines, ledgerdomain.Line{
			AccountCode: accountdomain.CodeARControl,
			Type:        ledgerdomain.EntryTypeCredit,
			Amount:      invoice.BalanceBroughtForward,
			Description: fmt.Sprintf("Balance brought forward into %s", invoice.InvoiceNumber),
		})
	}

	return s.ledger.Post(ctx, tx, ledgerdomain.Entry{
		TenantID:        invoice.TenantID,
		TransactionID:   invoice.ID,
		TransactionType: ledgerdomain.TransactionTypeInvoice,
		Reference:       invoice.InvoiceNumber,
		Description:     fmt.Sprintf("Invoice %s", invoice.InvoiceNumber),
		Lines:           lines,
	})
}
