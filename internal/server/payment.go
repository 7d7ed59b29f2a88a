package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
)

type processPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	PaymentDate *time.Time      `json:"payment_date"`
	Notes       string          `json:"notes"`
	SendSMS     bool            `json:"send_sms"`
}

func (s *Server) ProcessPayment(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input := paymentdomain.HandlePaymentInput{
		Amount:    req.Amount,
		Method:    paymentdomain.Method(strings.TrimSpace(req.Method)),
		Reference: strings.TrimSpace(req.Reference),
		Notes:     strings.TrimSpace(req.Notes),
		SendSMS:   req.SendSMS,
	}
	if req.PaymentDate != nil {
		input.PaymentDate = *req.PaymentDate
	}

	result, err := s.actionSvc.ApplyPayment(c.Request.Context(), tenantID, actorID, invoiceID, input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

type reversePaymentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) ReversePayment(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req reversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if err := s.paymentSvc.ReversePayment(c.Request.Context(), tenantID, actorID, paymentID, reason); err != nil {
		AbortWithError(c, err)
		return
	}
	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), tenantID, actorID, auditdomain.ActionPaymentReversed,
			"payment", paymentID, map[string]any{"reason": reason})
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reversed": true}})
}

type applyOverpaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) ApplyOverpayment(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req applyOverpaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.actionSvc.ApplyOverpaymentToInvoice(c.Request.Context(), tenantID, actorID, invoiceID, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
