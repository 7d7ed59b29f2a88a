package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(bucket *TokenBucket) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(bucket, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddleware_PassThroughWithoutLimiter(t *testing.T) {
	r := newLimitedRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/ping", nil)
	req.Header.Set("X-Tenant-ID", "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_ReadsNeverThrottled(t *testing.T) {
	// A bucket backed by no client errors on use; GETs must not touch it.
	r := newLimitedRouter(&TokenBucket{})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Tenant-ID", "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_LimiterOutageFailsOpen(t *testing.T) {
	r := newLimitedRouter(&TokenBucket{})

	req := httptest.NewRequest(http.MethodPost, "/ping", nil)
	req.Header.Set("X-Tenant-ID", "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
