package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/payments", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "truncated")
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	router.GET("/payments", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	payment := `{"customer_id":"c1","amount":"5000.00","allocations":[{"invoice_id":"INV-1","allocated_amount":"3000"}]}`

	tests := []struct {
		name          string
		limit         int64
		body          string
		contentLength int64
		wantStatus    int
	}{
		{"payment within limit", 1024, payment, int64(len(payment)), http.StatusOK},
		{"exactly at limit", int64(len(payment)), payment, int64(len(payment)), http.StatusOK},
		{"declared length over limit", 32, payment, int64(len(payment)), http.StatusRequestEntityTooLarge},
		{"streamed body over limit", 32, payment, -1, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newBodyLimitRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	t.Run("rejection uses the error envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(payment))
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		newBodyLimitRouter(16).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})

	t.Run("requests without a body pass", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/payments", nil)
		w := httptest.NewRecorder()
		newBodyLimitRouter(1).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
