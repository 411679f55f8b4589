package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	newRouter := func(cfg RateLimitConfig) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), RateLimit(cfg))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}
	get := func(router *gin.Engine, tenant string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if tenant != "" {
			req.Header.Set(TenantHeaderKey, tenant)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		router := newRouter(RateLimitConfig{Requests: 2, Window: time.Minute})

		assert.Equal(t, http.StatusOK, get(router, "").Code)
		w := get(router, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		w = get(router, "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("tenants have separate budgets", func(t *testing.T) {
		router := newRouter(RateLimitConfig{Requests: 1, Window: time.Minute})
		tenantA := "550e8400-e29b-41d4-a716-446655440000"
		tenantB := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

		assert.Equal(t, http.StatusOK, get(router, tenantA).Code)
		assert.Equal(t, http.StatusTooManyRequests, get(router, tenantA).Code)
		assert.Equal(t, http.StatusOK, get(router, tenantB).Code)
	})

	t.Run("custom key function", func(t *testing.T) {
		router := newRouter(RateLimitConfig{
			Requests: 1,
			Window:   time.Minute,
			KeyFunc:  func(*gin.Context) string { return "global" },
		})

		assert.Equal(t, http.StatusOK, get(router, "a").Code)
		assert.Equal(t, http.StatusTooManyRequests, get(router, "b").Code)
	})
}

func TestTenantIPKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", tenantIPKey(c))

	c.Request.Header.Set(TenantHeaderKey, "t1")
	assert.Equal(t, "t1:192.168.1.9", tenantIPKey(c))
}
