package handler

import (
	"context"

	"github.com/google/uuid"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// mockAllocationService implements LedgerService, AllocationService and
// PaymentService.
type mockAllocationService struct {
	mock.Mock
}

func (m *mockAllocationService) RecordInvoice(ctx context.Context, tenantID uuid.UUID, in allocationapp.RecordInvoiceInput) (*allocationapp.InvoiceView, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.InvoiceView), args.Error(1)
}

func (m *mockAllocationService) ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]allocationapp.InvoiceView, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]allocationapp.InvoiceView), args.Error(1)
}

func (m *mockAllocationService) Draft(ctx context.Context, tenantID uuid.UUID, in allocationapp.DraftInput) (*allocationapp.DraftResult, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.DraftResult), args.Error(1)
}

func (m *mockAllocationService) AutoAllocate(ctx context.Context, tenantID uuid.UUID, in allocationapp.AutoAllocateInput) (*allocationapp.AllocationResult, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.AllocationResult), args.Error(1)
}

func (m *mockAllocationService) EditAllocation(ctx context.Context, tenantID uuid.UUID, in allocationapp.EditAllocationInput) (*allocationapp.AllocationResult, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.AllocationResult), args.Error(1)
}

func (m *mockAllocationService) Validate(ctx context.Context, tenantID uuid.UUID, in allocationapp.ValidateInput) allocationapp.ValidationView {
	args := m.Called(ctx, tenantID, in)
	return args.Get(0).(allocationapp.ValidationView)
}

func (m *mockAllocationService) Clear(ctx context.Context, tenantID uuid.UUID, paymentAmount decimal.Decimal) *allocationapp.AllocationResult {
	args := m.Called(ctx, tenantID, paymentAmount)
	return args.Get(0).(*allocationapp.AllocationResult)
}

func (m *mockAllocationService) SubmitPayment(ctx context.Context, tenantID uuid.UUID, in allocationapp.SubmitPaymentInput) (*allocationapp.PaymentResult, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.PaymentResult), args.Error(1)
}

func (m *mockAllocationService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*allocationapp.PaymentView, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocationapp.PaymentView), args.Error(1)
}

func (m *mockAllocationService) ListPayments(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*allocation.Receipt, error) {
	args := m.Called(ctx, tenantID, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*allocation.Receipt), args.Error(1)
}

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) Get(ctx context.Context, tenantID uuid.UUID) (*settings.Settings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *mockSettingsService) Update(ctx context.Context, tenantID uuid.UUID, key, value string) (*settings.Settings, error) {
	args := m.Called(ctx, tenantID, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}
