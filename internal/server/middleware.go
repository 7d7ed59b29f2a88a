package server

import (
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterworks/pkg/tenantctx"
)

// TenancyMiddleware resolves the acting tenant and user from request
// headers. Every write below this point is tenant-scoped; requests
// without a tenant are rejected before reaching a handler.
func TenancyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := parseSnowflakeHeader(c, "X-Tenant-ID")
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		actorID, _ := parseSnowflakeHeader(c, "X-Actor-ID")

		ctx := tenantctx.WithTenant(c.Request.Context(), tenantID, actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseSnowflakeHeader(c *gin.Context, header string) (snowflake.ID, bool) {
	raw := c.GetHeader(header)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return snowflake.ID(v), true
}

// tenantFromRequest returns the tenant and actor the middleware
// resolved for this request.
func tenantFromRequest(c *gin.Context) (tenantID, actorID snowflake.ID, ok bool) {
	ctx := c.Request.Context()
	tenantID, ok = tenantctx.TenantID(ctx)
	if !ok {
		return 0, 0, false
	}
	actorID, _ = tenantctx.ActorID(ctx)
	return tenantID, actorID, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return snowflake.ID(v), true
}
