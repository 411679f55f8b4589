package handler

import (
	"context"

	"github.com/google/uuid"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// LedgerService is the invoice side of the allocation service.
type LedgerService interface {
	RecordInvoice(ctx context.Context, tenantID uuid.UUID, in allocationapp.RecordInvoiceInput) (*allocationapp.InvoiceView, error)
	ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]allocationapp.InvoiceView, error)
}

// AllocationService runs allocation sessions.
type AllocationService interface {
	Draft(ctx context.Context, tenantID uuid.UUID, in allocationapp.DraftInput) (*allocationapp.DraftResult, error)
	AutoAllocate(ctx context.Context, tenantID uuid.UUID, in allocationapp.AutoAllocateInput) (*allocationapp.AllocationResult, error)
	EditAllocation(ctx context.Context, tenantID uuid.UUID, in allocationapp.EditAllocationInput) (*allocationapp.AllocationResult, error)
	Validate(ctx context.Context, tenantID uuid.UUID, in allocationapp.ValidateInput) allocationapp.ValidationView
	Clear(ctx context.Context, tenantID uuid.UUID, paymentAmount decimal.Decimal) *allocationapp.AllocationResult
}

// PaymentService submits and reads payments.
type PaymentService interface {
	SubmitPayment(ctx context.Context, tenantID uuid.UUID, in allocationapp.SubmitPaymentInput) (*allocationapp.PaymentResult, error)
	GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*allocationapp.PaymentView, error)
	ListPayments(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*allocation.Receipt, error)
}

// SettingsService reads and writes tenant settings.
type SettingsService interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*settings.Settings, error)
	Update(ctx context.Context, tenantID uuid.UUID, key, value string) (*settings.Settings, error)
}

var (
	_ LedgerService     = (*allocationapp.Service)(nil)
	_ AllocationService = (*allocationapp.Service)(nil)
	_ PaymentService    = (*allocationapp.Service)(nil)
)
