package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// KeyFunc overrides the default tenant plus client IP key.
	KeyFunc func(*gin.Context) string
}

// RateLimit limits requests per key with a sliding window counter from
// httprate. Rate limit headers are set on every response.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := httprate.NewRateLimiter(cfg.Requests, cfg.Window)
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = tenantIPKey
	}

	return func(c *gin.Context) {
		if limiter.OnLimit(c.Writer, c.Request, keyFunc(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// tenantIPKey keys by client IP, scoped by tenant when the header is present.
func tenantIPKey(c *gin.Context) string {
	key := c.ClientIP()
	if tenantID := c.GetHeader(TenantHeaderKey); tenantID != "" {
		key = tenantID + ":" + key
	}
	return key
}
