package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
)

// ListAuditEntries returns the tenant's audit trail, newest first.
func (s *Server) ListAuditEntries(c *gin.Context) {
	tenantID, _, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	filter := auditdomain.ListFilter{
		TenantID:   tenantID,
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
	}
	if raw := c.Query("target_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			AbortWithError(c, invalidRequestError())
			return
		}
		filter.TargetID = snowflake.ID(v)
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			AbortWithError(c, invalidRequestError())
			return
		}
		filter.Limit = v
	}

	entries, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
