package allocation

import (
	"time"

	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(*Service)

// WithEventPublisher publishes PaymentAllocatedEvent after each submission.
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithMetrics records allocation and submission metrics.
func WithMetrics(m *telemetry.AllocationMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSubmissionGuard deduplicates concurrent submissions sharing an
// idempotency key. ttl bounds how long a key stays bound.
func WithSubmissionGuard(g allocation.SubmissionGuard, ttl time.Duration) Option {
	return func(s *Service) {
		s.guard = g
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithSettings reads per-tenant preferences from provider, falling back to
// defaults for unset keys.
func WithSettings(provider settings.StoreProvider, defaults settings.Settings) Option {
	return func(s *Service) {
		s.settings = provider
		s.defaults = defaults
	}
}

// WithReceiptArchive enables receipt download links on GetPayment.
func WithReceiptArchive(a allocation.ReceiptArchive, urlExpiry time.Duration) Option {
	return func(s *Service) {
		s.archive = a
		s.receiptURLExpiry = urlExpiry
	}
}

// WithClock overrides time.Now, used for overdue flags and payment dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
