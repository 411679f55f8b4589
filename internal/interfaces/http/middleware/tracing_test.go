package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func tracedRouter(status int) *gin.Engine {
	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}),
		SpanErrorMarker(),
		Tenant(DefaultTenantConfig()),
		TracingAttributeInjector(),
	)
	router.POST("/api/v1/payments", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig(t *testing.T) {
	t.Run("disabled passes through", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := gin.New()
		router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, sr.Ended())
	})

	t.Run("names span after route and adds request attributes", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := tracedRouter(http.StatusCreated)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req.Header.Set(RequestIDHeader, "req-trace-1")
		req.Header.Set(TenantHeaderKey, "550e8400-e29b-41d4-a716-446655440000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		span := findSpan(t, sr, "POST /api/v1/payments")

		v, ok := spanAttr(span, "request_id")
		require.True(t, ok)
		assert.Equal(t, "req-trace-1", v.AsString())
		v, ok = spanAttr(span, "tenant_id")
		require.True(t, ok)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", v.AsString())
		assert.NotEqual(t, codes.Error, span.Status().Code)
	})
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusNotFound, "Not Found"},
		{http.StatusConflict, "Conflict"},
		{http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{http.StatusBadRequest, "Client Error"},
		{http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr := setupTestTracer(t)
			router := tracedRouter(tt.status)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
			req.Header.Set(TenantHeaderKey, "550e8400-e29b-41d4-a716-446655440000")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			span := findSpan(t, sr, "POST /api/v1/payments")
			assert.Equal(t, codes.Error, span.Status().Code)
			if tt.status < http.StatusInternalServerError {
				assert.Equal(t, tt.message, span.Status().Description)
			}
			v, ok := spanAttr(span, "error.description")
			require.True(t, ok)
			assert.Equal(t, tt.message, v.AsString())
			v, ok = spanAttr(span, "http.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), v.AsInt64())
		})
	}

	t.Run("no span is a no-op", func(t *testing.T) {
		router := gin.New()
		router.Use(SpanErrorMarker())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
