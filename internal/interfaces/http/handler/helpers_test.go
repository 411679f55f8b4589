package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/interfaces/http/middleware"
)

var (
	testTenantID   = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	testCustomerID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

// newTestRouter wires the request ID and tenant middleware in front of the
// handlers registered by register.
func newTestRouter(register func(r *gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.RequestID(), middleware.Tenant(middleware.DefaultTenantConfig()))
	register(api)
	return router
}

func doRequest(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.TenantHeaderKey, testTenantID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
