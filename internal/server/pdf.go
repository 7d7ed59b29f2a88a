package server

import (
	"io"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/waterworks/internal/providers/pdf"
	"go.uber.org/zap"
)

const pdfDateLayout = "02 Jan 2006"

// InvoicePDF renders a printable invoice. Line items come from the
// bills consolidated into the invoice.
func (s *Server) InvoicePDF(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if s.pdf == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	ctx := c.Request.Context()

	invoice, err := s.invoiceSvc.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, invoice.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	meter, err := s.meterRepo.FindByID(ctx, s.db, tenantID, invoice.MeterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc := pdf.InvoiceDocument{
		UtilityName:    s.cfg.UtilityName,
		UtilityAddress: s.cfg.UtilityAddress,
		UtilityPhone:   s.cfg.UtilityPhone,

		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate.Format(pdfDateLayout),
		DueDate:       invoice.DueDate.Format(pdfDateLayout),

		BalanceBroughtForward: invoice.BalanceBroughtForward.StringFixed(2),
		CurrentCharges:        invoice.Amount.StringFixed(2),
		CreditApplied:         invoice.OverpaymentApplied.StringFixed(2),
		AmountPaid:            invoice.PaidAmount.StringFixed(2),
		BalanceDue:            invoice.Balance.StringFixed(2),
	}
	if customer != nil {
		doc.CustomerName = customer.Name
		doc.CustomerPhone = customer.Phone
		if addr, ok := customer.Metadata["address"].(string); ok {
			doc.CustomerAddress = addr
		}
	}
	if meter != nil {
		doc.MeterNumber = meter.MeterNumber
		if doc.CustomerAddress == "" {
			doc.CustomerAddress = meter.Location
		}
	}

	links, err := s.invoiceRepo.FindInvoiceBills(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	billIDs := make([]snowflake.ID, 0, len(links))
	amounts := make(map[snowflake.ID]decimal.Decimal, len(links))
	for _, link := range links {
		billIDs = append(billIDs, link.BillID)
		amounts[link.BillID] = link.Amount
	}
	bills, err := s.billRepo.FindByIDs(ctx, s.db, tenantID, billIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	for _, bill := range bills {
		desc := bill.Description
		if desc == "" {
			desc = string(bill.BillType)
		}
		doc.Lines = append(doc.Lines, pdf.InvoiceLine{
			Description: desc,
			Reference:   bill.BillRef,
			Amount:      amounts[bill.ID].StringFixed(2),
		})
	}

	reader, err := s.pdf.GenerateInvoice(ctx, doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.streamPDF(c, "invoice-"+invoice.InvoiceNumber+".pdf", reader)
}

// PaymentReceiptPDF renders a payment confirmation.
func (s *Server) PaymentReceiptPDF(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if s.pdf == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	ctx := c.Request.Context()

	payment, err := s.paymentRepo.FindByID(ctx, s.db, tenantID, paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	doc := pdf.ReceiptDocument{
		UtilityName:    s.cfg.UtilityName,
		UtilityAddress: s.cfg.UtilityAddress,

		ReceiptNumber: payment.Reference,
		PaymentDate:   payment.PaymentDate.Format(pdfDateLayout),
		Method:        string(payment.Method),
		AmountPaid:    payment.Amount.StringFixed(2),
	}

	doc.AppliedToInvoice = metadataAmount(payment.Metadata, "applied", payment.Amount)
	doc.CreditRetained = metadataAmount(payment.Metadata, "credit", decimal.Zero)

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, payment.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if customer != nil {
		doc.CustomerName = customer.Name
	}
	meter, err := s.meterRepo.FindByID(ctx, s.db, tenantID, payment.MeterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if meter != nil {
		doc.MeterNumber = meter.MeterNumber
		doc.BalanceAfter = meter.Balance.StringFixed(2)
	}
	if payment.InvoiceID != nil {
		invoice, err := s.invoiceSvc.GetByID(ctx, tenantID, *payment.InvoiceID)
		if err == nil && invoice != nil {
			doc.InvoiceNumber = invoice.InvoiceNumber
			doc.BalanceAfter = invoice.Balance.StringFixed(2)
		}
	}

	reader, err := s.pdf.GenerateReceipt(ctx, doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.streamPDF(c, "receipt-"+payment.Reference+".pdf", reader)
}

func (s *Server) streamPDF(c *gin.Context, filename string, r io.Reader) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		s.log.Warn("stream pdf", zap.String("filename", filename), zap.Error(err))
	}
}

func metadataAmount(meta map[string]any, key string, fallback decimal.Decimal) string {
	if raw, ok := meta[key].(string); ok {
		if v, err := decimal.NewFromString(raw); err == nil {
			return v.StringFixed(2)
		}
	}
	return fallback.StringFixed(2)
}
