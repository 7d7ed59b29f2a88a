package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	rundomain "github.com/smallbiznis/waterworks/internal/billingrun/domain"
)

type createBillRequest struct {
	CustomerID        snowflake.ID    `json:"customer_id"`
	MeterAssignmentID snowflake.ID    `json:"meter_assignment_id"`
	BillType          string          `json:"bill_type"`
	Amount            decimal.Decimal `json:"amount"`
	RateUsed          decimal.Decimal `json:"rate_used"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Reference         string          `json:"reference"`
	Description       string          `json:"description"`
}

func (s *Server) CreateBill(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bill, err := s.billSvc.CreateSingleBill(c.Request.Context(), tenantID, actorID, billdomain.CreateBillInput{
		CustomerID:        req.CustomerID,
		MeterAssignmentID: req.MeterAssignmentID,
		BillType:          billdomain.BillType(strings.TrimSpace(req.BillType)),
		Amount:            req.Amount,
		RateUsed:          req.RateUsed,
		TotalAmount:       req.TotalAmount,
		Reference:         strings.TrimSpace(req.Reference),
		Description:       strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

type batchRunRequest struct {
	CustomerIDs   []snowflake.ID  `json:"customer_ids"`
	BillType      string          `json:"bill_type"`
	Amount        decimal.Decimal `json:"amount"`
	RateUsed      decimal.Decimal `json:"rate_used"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference"`
	CreateInvoice bool            `json:"create_invoice"`
}

func (s *Server) RunBatch(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req batchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.CustomerIDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.runSvc.ProcessBatchForCustomers(
		c.Request.Context(),
		tenantID, actorID,
		req.CustomerIDs,
		rundomain.BillTemplate{
			BillType:    billdomain.BillType(strings.TrimSpace(req.BillType)),
			Amount:      req.Amount,
			RateUsed:    req.RateUsed,
			TotalAmount: req.TotalAmount,
			Description: strings.TrimSpace(req.Description),
		},
		strings.TrimSpace(req.Reference),
		req.CreateInvoice,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), tenantID, actorID, auditdomain.ActionBatchRun,
			"batch", 0, map[string]any{
				"reference": result.Reference,
				"created":   result.Created,
				"skipped":   result.Skipped,
				"errors":    len(result.Errors),
			})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    result,
		"summary": s.runSvc.GenerateBatchSummary(result),
	})
}
