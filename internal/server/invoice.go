package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GenerateInvoices(c *gin.Context) {
	tenantID, actorID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.invoiceSvc.GenerateBatch(c.Request.Context(), tenantID, actorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetInvoice(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) ListOpenInvoices(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoices, err := s.invoiceSvc.FindOpenByCustomer(c.Request.Context(), tenantID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

// CustomerStatement reports a customer's current standing: balances,
// open invoices and payment history in one read.
func (s *Server) CustomerStatement(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	ctx := c.Request.Context()

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if customer == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	invoices, err := s.invoiceSvc.FindOpenByCustomer(ctx, tenantID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payments, err := s.paymentSvc.FindByCustomer(ctx, tenantID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"customer":      customer,
		"open_invoices": invoices,
		"payments":      payments,
	}})
}

func (s *Server) RecalculateCustomer(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	totals, err := s.financeSvc.RecalculateCustomerMeters(c.Request.Context(), tenantID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": totals})
}
