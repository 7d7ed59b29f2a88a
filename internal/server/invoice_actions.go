package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type reverseInvoiceRequest struct {
	Reason  string `json:"reason"`
	Notes   string `json:"notes"`
	SendSMS bool   `json:"send_sms"`
}

func (s *Server) ReverseInvoice(c *gin.Context) {
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

	var req reverseInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.actionSvc.ReverseInvoice(c.Request.Context(), tenantID, actorID, invoiceID,
		strings.TrimSpace(req.Reason), strings.TrimSpace(req.Notes), req.SendSMS)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"data": result})
}

type adjustAmountRequest struct {
	NewAmount decimal.Decimal `json:"new_amount"`
	Reason    string          `json:"reason"`
}

func (s *Server) AdjustInvoiceAmount(c *gin.Context) {
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

	var req adjustAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.actionSvc.AdjustAmount(c.Request.Context(), tenantID, actorID, invoiceID,
		req.NewAmount, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"data": result})
}
