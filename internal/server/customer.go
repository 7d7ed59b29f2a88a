package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	"gorm.io/gorm"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer := &customerdomain.Customer{
		ID:       s.genID.Generate(),
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if err := s.customerRepo.Insert(c.Request.Context(), s.db, customer); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

type assignMeterRequest struct {
	Location string `json:"location"`
}

// AssignMeter provisions a new meter and links it to the customer. The
// meter number is minted inside the transaction so concurrent requests
// never collide.
func (s *Server) AssignMeter(c *gin.Context) {
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

	var req assignMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	var assignment *meterdomain.MeterAssignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.meterRepo.NextMeterNumber(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		meter := &meterdomain.Meter{
			ID:          s.genID.Generate(),
			TenantID:    tenantID,
			MeterNumber: number,
			Location:    strings.TrimSpace(req.Location),
			Active:      true,
		}
		if err := s.meterRepo.Insert(ctx, tx, meter); err != nil {
			return err
		}
		assignment = &meterdomain.MeterAssignment{
			ID:         s.genID.Generate(),
			TenantID:   tenantID,
			CustomerID: customerID,
			MeterID:    meter.ID,
			Active:     true,
			AssignedAt: time.Now().UTC(),
		}
		return s.meterRepo.InsertAssignment(ctx, tx, assignment)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignment})
}
