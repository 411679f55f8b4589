package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/infrastructure/logger"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTenantRouter(cfg TenantMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(Tenant(cfg))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id":  GetTenantID(c).String(),
			"ctx_tenant": logger.TenantID(c.Request.Context()),
		})
	}
	router.GET("/api/v1/test", handler)
	router.GET("/health", handler)
	router.GET("/health/live", handler)
	return router
}

func TestTenant(t *testing.T) {
	tenantID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	t.Run("extracts tenant header", func(t *testing.T) {
		router := setupTenantRouter(DefaultTenantConfig())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tenantID.String(), body["tenant_id"])
		assert.Equal(t, tenantID.String(), body["ctx_tenant"])
	})

	t.Run("trims whitespace", func(t *testing.T) {
		router := setupTenantRouter(DefaultTenantConfig())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
		req.Header.Set(TenantHeaderKey, "  "+tenantID.String()+" ")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		router := setupTenantRouter(DefaultTenantConfig())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeTenantRequired, resp.Error.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		router := setupTenantRouter(DefaultTenantConfig())

		for _, v := range []string{"tenant-1", uuid.Nil.String()} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
			req.Header.Set(TenantHeaderKey, v)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, v)
			assert.Contains(t, w.Body.String(), dto.ErrCodeTenantInvalid, v)
		}
	})

	t.Run("skip paths need no tenant", func(t *testing.T) {
		router := setupTenantRouter(DefaultTenantConfig())

		for _, path := range []string{"/health", "/health/live"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})

	t.Run("optional tenant", func(t *testing.T) {
		router := setupTenantRouter(TenantMiddlewareConfig{Required: false})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), uuid.Nil.String())
	})
}

func TestGetTenantID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, GetTenantID(c))

	c.Set(TenantIDKey, "not-a-uuid-value")
	assert.Equal(t, uuid.Nil, GetTenantID(c))

	id := uuid.New()
	c.Set(TenantIDKey, id)
	assert.Equal(t, id, GetTenantID(c))
}
