// Package settings reads and updates per-tenant allocation preferences.
package settings

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Service exposes a tenant's typed settings.
type Service struct {
	stores   settings.StoreProvider
	defaults settings.Settings
	logger   *zap.Logger
}

// NewService creates a new settings Service.
func NewService(stores settings.StoreProvider, defaults settings.Settings, logger *zap.Logger) *Service {
	return &Service{stores: stores, defaults: defaults, logger: logger}
}

// Get returns the tenant's settings with defaults filled in.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*settings.Settings, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settings", "get",
		telemetry.SpanAttrTenantID, tenantID.String(),
	)
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant is required")
	}
	st, err := settings.Load(ctx, s.stores.ForTenant(tenantID), s.defaults)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &st, nil
}

// Update validates and stores one key, then returns the resulting settings.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, key, value string) (*settings.Settings, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settings", "update",
		telemetry.SpanAttrTenantID, tenantID.String(),
		"setting.key", key,
	)
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant is required")
	}
	stored, err := settings.Set(ctx, s.stores.ForTenant(tenantID), key, value)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("setting updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", key),
		zap.String("value", stored),
	)
	return s.Get(ctx, tenantID)
}
