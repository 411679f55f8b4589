package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecurityConfig holds configuration for security headers
type SecurityConfig struct {
	// HSTS needs HTTPS; leave it off behind plain HTTP.
	HSTSEnabled           bool
	HSTSMaxAge            int64
	HSTSIncludeSubdomains bool

	ContentSecurityPolicy string
	PermissionsPolicy     string
	// IsDevelopment disables HSTS and host checks.
	IsDevelopment bool
}

// DefaultSecurityConfig returns settings suited to a JSON API.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		PermissionsPolicy:     "accelerometer=(), camera=(), geolocation=(), microphone=(), payment=(), usb=()",
	}
}

// SecureWithConfig sets the security response headers through unrolled/secure.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	opts := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		PermissionsPolicy:     cfg.PermissionsPolicy,
		IsDevelopment:         cfg.IsDevelopment,
	}
	if cfg.HSTSEnabled {
		opts.STSSeconds = cfg.HSTSMaxAge
		opts.STSIncludeSubdomains = cfg.HSTSIncludeSubdomains
		opts.ForceSTSHeader = true
	}
	s := secure.New(opts)

	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		// Process may have answered with a redirect.
		if status := c.Writer.Status(); status > http.StatusMultipleChoices && status < http.StatusBadRequest {
			c.Abort()
			return
		}
		c.Next()
	}
}
