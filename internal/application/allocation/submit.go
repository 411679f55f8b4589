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
	"go.uber.org/zap"
)

// SubmitPayment persists a payment and its allocations.
//
// The allocations are rechecked against the ledger as it is now: unknown
// invoices fail with INVOICE_NOT_FOUND and amounts above the current amount
// due with ALLOCATION_STALE. An over-allocated set fails with
// OVER_ALLOCATED; an under-allocated one is accepted and the remainder is
// recorded as unallocated. A repeated idempotency key returns the receipt of
// the first submission.
func (s *Service) SubmitPayment(ctx context.Context, tenantID uuid.UUID, in SubmitPaymentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "submit_payment",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, in.CustomerID.String(),
		telemetry.SpanAttrPaymentAmount, in.Amount.String(),
		telemetry.SpanAttrIdempotencyKey, in.IdempotencyKey,
	)
	defer span.End()

	start := time.Now()
	var (
		result  *PaymentResult
		outcome string
		err     error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.AllocationLabels(telemetry.OperationSubmitPayment, ""), func(c context.Context) {
		result, outcome, err = s.submit(c, tenantID, in)
	})
	s.metrics.RecordSubmission(ctx, tenantID, string(in.Method), outcome, time.Since(start))

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, result.Receipt.PaymentID.String(),
		telemetry.SpanAttrPaymentNumber, result.Receipt.PaymentNumber,
		telemetry.SpanAttrStatus, string(result.Validation.Status),
	)
	if result.Replayed {
		telemetry.AddEvent(span, "payment_replayed")
	}
	return result, nil
}

func (s *Service) submit(ctx context.Context, tenantID uuid.UUID, in SubmitPaymentInput) (result *PaymentResult, outcome string, err error) {
	if tenantID == uuid.Nil || in.CustomerID == uuid.Nil {
		return nil, telemetry.OutcomeRejected, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant and customer are required")
	}
	for _, a := range in.Allocations {
		if a.AllocatedAmount.IsNegative() {
			return nil, telemetry.OutcomeRejected, shared.NewDomainError(shared.ErrInvalidInput.Code,
				fmt.Sprintf("Allocation for invoice %s cannot be negative", a.InvoiceID))
		}
	}

	st := s.tenantSettings(ctx, tenantID)
	key := strings.TrimSpace(in.IdempotencyKey)

	if key != "" {
		replay, err := s.replayByKey(ctx, tenantID, in.CustomerID, key, st)
		if err != nil {
			return nil, telemetry.OutcomeFailed, err
		}
		if replay != nil {
			return replay, telemetry.OutcomeReplayed, nil
		}

		if s.guard != nil {
			acquired, boundID, err := s.guard.Acquire(ctx, tenantID, key, s.idempotencyTTL)
			if err != nil {
				return nil, telemetry.OutcomeFailed, fmt.Errorf("failed to acquire idempotency key: %w", err)
			}
			if !acquired {
				if boundID == uuid.Nil {
					return nil, telemetry.OutcomeDuplicate, allocation.ErrDuplicateSubmission
				}
				replay, err := s.replayByID(ctx, tenantID, in.CustomerID, boundID, st)
				if errors.Is(err, allocation.ErrDuplicateSubmission) {
					return nil, telemetry.OutcomeDuplicate, err
				}
				if err != nil {
					return nil, telemetry.OutcomeFailed, err
				}
				return replay, telemetry.OutcomeReplayed, nil
			}
			defer func() {
				s.settleGuard(ctx, tenantID, key, result, err)
			}()
		}
	}

	currency := st.Currency
	if c := strings.TrimSpace(in.Currency); c != "" {
		parsed, err := valueobject.ParseCurrency(strings.ToUpper(c))
		if err != nil {
			return nil, telemetry.OutcomeRejected, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
		}
		currency = parsed
	}
	amount, err := valueobject.NewMoney(in.Amount, currency)
	if err != nil {
		return nil, telemetry.OutcomeRejected, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}

	set := allocation.NewAllocationSet(in.Allocations...)
	invoices, err := s.allocatedInvoices(ctx, tenantID, in.CustomerID, set)
	if err != nil {
		return nil, telemetry.OutcomeFailed, err
	}

	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}
	payment, err := allocation.NewPayment(allocation.NewPaymentInput{
		TenantID:       tenantID,
		CustomerID:     in.CustomerID,
		Amount:         amount,
		PaymentDate:    paymentDate,
		Method:         in.Method,
		Reference:      in.Reference,
		IdempotencyKey: key,
		Allocations:    set,
		Invoices:       invoices,
	})
	if err != nil {
		return nil, telemetry.OutcomeRejected, err
	}

	receipt, err := s.payments.Submit(ctx, payment)
	if err != nil {
		switch {
		case key != "" && isConflict(err):
			// Lost a race with a submission that bypassed the guard.
			replay, rerr := s.replayByKey(ctx, tenantID, in.CustomerID, key, st)
			if rerr == nil && replay != nil {
				return replay, telemetry.OutcomeReplayed, nil
			}
			return nil, telemetry.OutcomeDuplicate, allocation.ErrDuplicateSubmission
		case errors.Is(err, allocation.ErrAllocationStale):
			return nil, telemetry.OutcomeRejected, err
		default:
			return nil, telemetry.OutcomeFailed, fmt.Errorf("failed to submit payment: %w", err)
		}
	}

	s.publish(ctx, payment)
	s.metrics.RecordPaymentAmounts(ctx, tenantID, string(currency), in.Amount, payment.Unallocated)

	logger.Enrich(ctx, s.logger).Info("payment submitted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.String("amount", in.Amount.String()),
		zap.String("unallocated", payment.Unallocated.String()),
		zap.Int("lines", len(payment.Lines)),
	)

	return &PaymentResult{
		Receipt:    receipt,
		Validation: s.validationView(allocation.Validate(in.Amount, set), st),
	}, telemetry.OutcomeAccepted, nil
}

// allocatedInvoices loads the invoices referenced by set that belong to the
// customer.
func (s *Service) allocatedInvoices(ctx context.Context, tenantID, customerID uuid.UUID, set allocation.AllocationSet) ([]allocation.Invoice, error) {
	if set.IsEmpty() {
		return nil, nil
	}
	ids := make([]allocation.InvoiceID, 0, set.Len())
	for _, a := range set.Allocations() {
		ids = append(ids, a.InvoiceID)
	}
	found, err := s.ledger.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	invoices := make([]allocation.Invoice, 0, len(found))
	for _, inv := range found {
		if inv.CustomerID == customerID {
			invoices = append(invoices, inv)
		}
	}
	return invoices, nil
}

func (s *Service) replayByKey(ctx context.Context, tenantID, customerID uuid.UUID, key string, st settings.Settings) (*PaymentResult, error) {
	p, err := s.payments.FindByIdempotencyKey(ctx, tenantID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	if p.CustomerID != customerID {
		return nil, shared.NewDomainError(allocation.CodeDuplicateSubmission,
			"Idempotency key was already used for another customer")
	}
	return s.replayResult(p, st), nil
}

func (s *Service) replayByID(ctx context.Context, tenantID, customerID, paymentID uuid.UUID, st settings.Settings) (*PaymentResult, error) {
	p, err := s.payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, allocation.ErrDuplicateSubmission
	}
	if p.CustomerID != customerID {
		return nil, shared.NewDomainError(allocation.CodeDuplicateSubmission,
			"Idempotency key was already used for another customer")
	}
	return s.replayResult(p, st), nil
}

func (s *Service) replayResult(p *allocation.Payment, st settings.Settings) *PaymentResult {
	return &PaymentResult{
		Receipt:    p.Receipt(),
		Replayed:   true,
		Validation: s.validationView(allocation.Validate(p.Amount.Amount(), p.AllocationSet()), st),
	}
}

// settleGuard binds the key to the payment on success and frees it otherwise.
func (s *Service) settleGuard(ctx context.Context, tenantID uuid.UUID, key string, result *PaymentResult, err error) {
	log := logger.Enrich(ctx, s.logger)
	if err != nil || result == nil {
		if rerr := s.guard.Release(ctx, tenantID, key); rerr != nil {
			log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return
	}
	if cerr := s.guard.Complete(ctx, tenantID, key, result.Receipt.PaymentID, s.idempotencyTTL); cerr != nil {
		log.Warn("failed to bind idempotency key", zap.String("key", key), zap.Error(cerr))
	}
}

// publish sends the payment's domain events. The payment is already committed,
// so a publish failure is logged rather than returned.
func (s *Service) publish(ctx context.Context, p *allocation.Payment) {
	events := p.GetDomainEvents()
	p.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.logger).Error("failed to publish payment events",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err),
		)
	}
}
