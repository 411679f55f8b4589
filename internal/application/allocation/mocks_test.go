package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mocks
// =============================================================================

type MockInvoiceLedger struct {
	mock.Mock
}

func (m *MockInvoiceLedger) ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]allocation.Invoice, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]allocation.Invoice), args.Error(1)
}

func (m *MockInvoiceLedger) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []allocation.InvoiceID) ([]allocation.Invoice, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]allocation.Invoice), args.Error(1)
}

func (m *MockInvoiceLedger) Record(ctx context.Context, tenantID uuid.UUID, invoice allocation.Invoice) error {
	args := m.Called(ctx, tenantID, invoice)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

// Submit returns the payment's own receipt unless the expectation supplies one.
func (m *MockPaymentRepository) Submit(ctx context.Context, payment *allocation.Payment) (*allocation.Receipt, error) {
	args := m.Called(ctx, payment)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if r, ok := args.Get(0).(*allocation.Receipt); ok && r != nil {
		return r, nil
	}
	return payment.Receipt(), nil
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*allocation.Payment, error) {
	args := m.Called(ctx, tenantID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*allocation.Payment, error) {
	args := m.Called(ctx, tenantID, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*allocation.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SetReceiptKey(ctx context.Context, tenantID, id uuid.UUID, key string) error {
	args := m.Called(ctx, tenantID, id, key)
	return args.Error(0)
}

type MockSubmissionGuard struct {
	mock.Mock
}

func (m *MockSubmissionGuard) Acquire(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, uuid.UUID, error) {
	args := m.Called(ctx, tenantID, key, ttl)
	return args.Bool(0), args.Get(1).(uuid.UUID), args.Error(2)
}

func (m *MockSubmissionGuard) Complete(ctx context.Context, tenantID uuid.UUID, key string, paymentID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, key, paymentID, ttl)
	return args.Error(0)
}

func (m *MockSubmissionGuard) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	args := m.Called(ctx, tenantID, key)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockReceiptArchive struct {
	mock.Mock
}

func (m *MockReceiptArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockReceiptArchive) URL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Error(1)
}

type MockReceiptTaskEnqueuer struct {
	mock.Mock
}

func (m *MockReceiptTaskEnqueuer) EnqueueReceiptArchive(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	args := m.Called(ctx, tenantID, paymentID)
	return args.Error(0)
}

// settingsProvider is an in-memory StoreProvider.
type settingsProvider map[uuid.UUID]settingsStore

type settingsStore map[string]string

func (s settingsStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func (s settingsStore) Set(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func (p settingsProvider) ForTenant(tenantID uuid.UUID) settings.ConfigStore {
	if _, ok := p[tenantID]; !ok {
		p[tenantID] = settingsStore{}
	}
	return p[tenantID]
}
