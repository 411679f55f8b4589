// Package allocation runs payment allocation sessions against the invoice
// ledger and submits the resulting payments.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/pharmaerp/receivables/internal/infrastructure/logger"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultReceiptURLExpiry = 15 * time.Minute
	maxPaymentPage          = 100
)

// Service coordinates allocation sessions and payment submission.
type Service struct {
	ledger   allocation.InvoiceLedger
	payments allocation.PaymentRepository

	settings settings.StoreProvider
	defaults settings.Settings
	guard    allocation.SubmissionGuard
	events   shared.EventPublisher
	metrics  *telemetry.AllocationMetrics
	archive  allocation.ReceiptArchive
	logger   *zap.Logger

	idempotencyTTL   time.Duration
	receiptURLExpiry time.Duration
	now              func() time.Time
}

// NewService creates a new allocation Service.
func NewService(ledger allocation.InvoiceLedger, payments allocation.PaymentRepository, opts ...Option) *Service {
	s := &Service{
		ledger:           ledger,
		payments:         payments,
		defaults:         settings.Defaults(),
		logger:           zap.NewNop(),
		idempotencyTTL:   defaultIdempotencyTTL,
		receiptURLExpiry: defaultReceiptURLExpiry,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInvoice registers an invoice in the ledger.
func (s *Service) RecordInvoice(ctx context.Context, tenantID uuid.UUID, in RecordInvoiceInput) (*InvoiceView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "record_invoice",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
	)
	defer span.End()

	if tenantID == uuid.Nil || in.CustomerID == uuid.Nil {
		return nil, invalidInput(span, "Tenant and customer are required")
	}
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		return nil, invalidInput(span, "Invoice number is required")
	}
	if in.IssueDate.IsZero() {
		return nil, invalidInput(span, "Issue date is required")
	}
	if in.DueDate != nil && in.DueDate.Before(in.IssueDate) {
		return nil, invalidInput(span, "Due date cannot be before the issue date")
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	amountDue := in.TotalAmount
	if in.AmountDue != nil {
		amountDue = *in.AmountDue
	}
	inv := allocation.Invoice{
		ID:            allocation.InvoiceID(id),
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		CustomerID:    in.CustomerID,
		IssueDate:     in.IssueDate,
		DueDate:       in.DueDate,
		TotalAmount:   in.TotalAmount,
		AmountDue:     amountDue,
	}
	if err := inv.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.ledger.Record(ctx, tenantID, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to record invoice: %w", err)
	}

	view := toInvoiceViews([]allocation.Invoice{inv}, s.now())[0]
	return &view, nil
}

// ListOutstanding returns the customer's invoices that still have an amount due.
func (s *Service) ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]InvoiceView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "list_outstanding",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, customerID.String(),
	)
	defer span.End()

	invoices, err := s.outstanding(ctx, tenantID, customerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceCount, len(invoices))
	return toInvoiceViews(invoices, s.now()), nil
}

// Draft opens an allocation session: it loads the outstanding invoices and,
// when the tenant has auto allocation on, proposes a FIFO allocation.
func (s *Service) Draft(ctx context.Context, tenantID uuid.UUID, in DraftInput) (*DraftResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "draft",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
		telemetry.SpanAttrPaymentAmount, in.PaymentAmount.String(),
	)
	defer span.End()

	if err := checkSession(tenantID, in.CustomerID, in.PaymentAmount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	st := s.tenantSettings(ctx, tenantID)
	invoices, err := s.outstanding(ctx, tenantID, in.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	state := allocation.NewState()
	state = allocation.Reduce(state, allocation.SetPaymentAmount{Amount: in.PaymentAmount})
	state = allocation.Reduce(state, allocation.LoadInvoices{Invoices: invoices})
	if st.AutoAllocate {
		state = s.runAuto(ctx, tenantID, state)
	}
	s.finish(ctx, span, tenantID, state)

	return &DraftResult{
		Mode:        state.Mode,
		Invoices:    toInvoiceViews(state.Invoices, s.now()),
		TotalDue:    allocation.TotalDue(state.Invoices),
		Allocations: state.Allocations.Allocations(),
		Validation:  s.validationView(state.Validation, st),
	}, nil
}

// AutoAllocate runs FIFO allocation against a fresh ledger snapshot.
func (s *Service) AutoAllocate(ctx context.Context, tenantID uuid.UUID, in AutoAllocateInput) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "auto_allocate",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
		telemetry.SpanAttrPaymentAmount, in.PaymentAmount.String(),
	)
	defer span.End()

	if err := checkSession(tenantID, in.CustomerID, in.PaymentAmount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	st := s.tenantSettings(ctx, tenantID)
	invoices, err := s.outstanding(ctx, tenantID, in.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	state := allocation.NewState()
	state = allocation.Reduce(state, allocation.SetPaymentAmount{Amount: in.PaymentAmount})
	state = allocation.Reduce(state, allocation.LoadInvoices{Invoices: invoices})
	state = s.runAuto(ctx, tenantID, state)
	s.finish(ctx, span, tenantID, state)

	return s.allocationResult(state, st), nil
}

// EditAllocation applies one manual edit to the caller's current set. Edits
// the engine refuses leave the set unchanged and set Rejected.
func (s *Service) EditAllocation(ctx context.Context, tenantID uuid.UUID, in EditAllocationInput) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "edit_allocation",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
		"invoice.id", in.InvoiceID.String(),
	)
	defer span.End()

	if err := checkSession(tenantID, in.CustomerID, in.PaymentAmount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if in.InvoiceID == "" {
		return nil, invalidInput(span, "Invoice ID is required")
	}

	st := s.tenantSettings(ctx, tenantID)
	invoices, err := s.outstanding(ctx, tenantID, in.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	state := allocation.State{
		PaymentAmount: in.PaymentAmount,
		Allocations:   allocation.NewAllocationSet(in.Current...),
		Mode:          allocation.ModeManual,
	}
	state = allocation.Reduce(state, allocation.LoadInvoices{Invoices: invoices})

	start := time.Now()
	telemetry.WithProfilingLabels(ctx, telemetry.AllocationLabels(telemetry.OperationManualEdit, string(allocation.ModeManual)), func(context.Context) {
		state = allocation.Reduce(state, allocation.EditAllocation{InvoiceID: in.InvoiceID, Amount: in.Amount})
	})
	s.metrics.RecordAllocation(ctx, tenantID, string(allocation.ModeManual), len(state.Invoices), time.Since(start))

	if state.LastEditRejected {
		s.metrics.RecordEditRejected(ctx, tenantID)
		telemetry.AddEvent(span, "edit_rejected",
			"invoice.id", in.InvoiceID.String(),
			"amount", in.Amount.String(),
		)
	}
	s.finish(ctx, span, tenantID, state)

	return s.allocationResult(state, st), nil
}

// Validate classifies an allocation set against a payment amount.
func (s *Service) Validate(ctx context.Context, tenantID uuid.UUID, in ValidateInput) ValidationView {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "validate",
		telemetry.SpanAttrTenantID, tenantID.String(),
	)
	defer span.End()

	result := allocation.Validate(in.PaymentAmount, allocation.NewAllocationSet(in.Allocations...))
	telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(result.Status))
	s.metrics.RecordValidation(ctx, tenantID, string(result.Status))
	return s.validationView(result, s.tenantSettings(ctx, tenantID))
}

// Clear returns the empty set validated against paymentAmount.
func (s *Service) Clear(ctx context.Context, tenantID uuid.UUID, paymentAmount decimal.Decimal) *AllocationResult {
	state := allocation.Reduce(allocation.State{PaymentAmount: paymentAmount, Mode: allocation.ModeManual},
		allocation.ClearAllocationsAction{})
	return s.allocationResult(state, s.tenantSettings(ctx, tenantID))
}

// GetPayment returns a submitted payment's receipt.
func (s *Service) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "get_payment",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)
	defer span.End()

	p, err := s.payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, allocation.ErrPaymentNotFound
	}

	view := &PaymentView{Receipt: p.Receipt()}
	if s.archive != nil && p.ReceiptKey != "" {
		url, err := s.archive.URL(ctx, p.ReceiptKey, s.receiptURLExpiry)
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("failed to sign receipt URL",
				zap.String("payment_id", paymentID.String()),
				zap.Error(err),
			)
		} else {
			view.ReceiptURL = url
		}
	}
	return view, nil
}

// ListPayments returns the customer's submitted payments as receipts, newest
// first.
func (s *Service) ListPayments(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*allocation.Receipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "list_payments",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, customerID.String(),
	)
	defer span.End()

	if customerID == uuid.Nil {
		return nil, invalidInput(span, "Customer is required")
	}
	if limit <= 0 || limit > maxPaymentPage {
		limit = maxPaymentPage
	}

	payments, err := s.payments.ListByCustomer(ctx, tenantID, customerID, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	receipts := make([]*allocation.Receipt, 0, len(payments))
	for _, p := range payments {
		receipts = append(receipts, p.Receipt())
	}
	return receipts, nil
}

// runAuto switches state to auto mode under profiling labels.
func (s *Service) runAuto(ctx context.Context, tenantID uuid.UUID, state allocation.State) allocation.State {
	start := time.Now()
	telemetry.WithProfilingLabels(ctx, telemetry.AllocationLabels(telemetry.OperationAutoAllocate, string(allocation.ModeAuto)), func(context.Context) {
		state = allocation.Reduce(state, allocation.RunAutoAllocation{})
	})
	s.metrics.RecordAllocation(ctx, tenantID, string(allocation.ModeAuto), len(state.Invoices), time.Since(start))
	return state
}

// finish annotates span with the session outcome and counts the validation.
func (s *Service) finish(ctx context.Context, span trace.Span, tenantID uuid.UUID, state allocation.State) {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceCount, len(state.Invoices),
		telemetry.SpanAttrAllocatedTotal, state.Allocations.TotalAllocated().String(),
		telemetry.SpanAttrStatus, string(state.Validation.Status),
	)
	s.metrics.RecordValidation(ctx, tenantID, string(state.Validation.Status))
}

func (s *Service) outstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]allocation.Invoice, error) {
	if tenantID == uuid.Nil || customerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant and customer are required")
	}
	invoices, err := s.ledger.ListOutstanding(ctx, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	return invoices, nil
}

func (s *Service) tenantSettings(ctx context.Context, tenantID uuid.UUID) settings.Settings {
	if s.settings == nil {
		return s.defaults
	}
	st, err := settings.Load(ctx, s.settings.ForTenant(tenantID), s.defaults)
	if err != nil {
		logger.Enrich(ctx, s.logger).Warn("using default allocation settings",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return s.defaults
	}
	return st
}

func (s *Service) allocationResult(state allocation.State, st settings.Settings) *AllocationResult {
	return &AllocationResult{
		Mode:        state.Mode,
		Allocations: state.Allocations.Allocations(),
		Validation:  s.validationView(state.Validation, st),
		Rejected:    state.LastEditRejected,
	}
}

func (s *Service) validationView(r allocation.ValidationResult, st settings.Settings) ValidationView {
	return ValidationView{
		Status:         r.Status,
		PaymentAmount:  r.PaymentAmount,
		TotalAllocated: r.TotalAllocated,
		Remaining:      r.Remaining,
		Excess:         r.Excess,
		Blocking:       r.Blocking(),
		Message:        r.Message(valueobject.NewPrinter(st.Locale), st.Currency),
	}
}

func checkSession(tenantID, customerID uuid.UUID, paymentAmount decimal.Decimal) error {
	if tenantID == uuid.Nil || customerID == uuid.Nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant and customer are required")
	}
	if paymentAmount.IsNegative() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Payment amount cannot be negative")
	}
	return nil
}

func invalidInput(span trace.Span, msg string) error {
	err := shared.NewDomainError(shared.ErrInvalidInput.Code, msg)
	telemetry.RecordError(span, err)
	return err
}

// isConflict reports whether err came from a unique constraint on the
// idempotency key.
func isConflict(err error) bool {
	return errors.Is(err, shared.ErrAlreadyExists)
}
