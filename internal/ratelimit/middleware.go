package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
)

const (
	defaultWriteRate  = 10.0
	defaultWriteBurst = 30
)

// Middleware throttles mutating requests per tenant. Reads pass
// through; with no limiter configured everything passes through.
func Middleware(bucket *TokenBucket, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bucket == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		tenant := c.GetHeader("X-Tenant-ID")
		if tenant == "" {
			// Tenancy middleware rejects these later; nothing to meter.
			c.Next()
			return
		}

		result, err := bucket.Allow(c.Request.Context(), "ratelimit:api:"+tenant, defaultWriteRate, defaultWriteBurst)
		if err != nil {
			// Limiter outage must not take the API down with it.
			c.Next()
			return
		}
		if !result.Allowed {
			metrics.ObserveRateLimitDenied(tenant, c.FullPath())
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "Too many requests, slow down",
				},
			})
			return
		}

		c.Next()
	}
}
