package allocation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes an audit line for every allocated payment.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler.
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return []string{allocation.EventTypePaymentAllocated}
}

// Handle logs the payment and each invoice it settled.
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, ok := event.(*allocation.PaymentAllocatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			allocation.EventTypePaymentAllocated, event.EventType())
	}

	invoices := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		invoices = append(invoices, fmt.Sprintf("%s=%s", l.InvoiceNumber, l.AllocatedAmount.String()))
	}

	h.logger.Info("payment allocated",
		zap.String("event_id", e.EventID().String()),
		zap.String("tenant_id", e.TenantID().String()),
		zap.String("payment_id", e.PaymentID.String()),
		zap.String("payment_number", e.PaymentNumber),
		zap.String("customer_id", e.CustomerID.String()),
		zap.String("method", string(e.Method)),
		zap.String("amount", e.Amount.String()),
		zap.String("currency", e.Currency),
		zap.String("total_allocated", e.TotalAllocated.String()),
		zap.String("unallocated", e.Unallocated.String()),
		zap.Strings("invoices", invoices),
		zap.Time("occurred_at", e.OccurredAt()),
	)
	return nil
}

// ReceiptTaskEnqueuer hands receipt archiving to a background queue.
type ReceiptTaskEnqueuer interface {
	EnqueueReceiptArchive(ctx context.Context, tenantID, paymentID uuid.UUID) error
}

// ReceiptArchiveHandler archives receipts for allocated payments, through the
// job queue when one is configured and inline otherwise.
type ReceiptArchiveHandler struct {
	archiver *ReceiptArchiver
	enqueuer ReceiptTaskEnqueuer
	fallback bool
	logger   *zap.Logger
}

// NewReceiptArchiveHandler creates a new handler. enqueuer may be nil. With
// fallback set, a failed enqueue is retried inline.
func NewReceiptArchiveHandler(archiver *ReceiptArchiver, enqueuer ReceiptTaskEnqueuer, fallback bool, logger *zap.Logger) *ReceiptArchiveHandler {
	return &ReceiptArchiveHandler{archiver: archiver, enqueuer: enqueuer, fallback: fallback, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ReceiptArchiveHandler) EventTypes() []string {
	return []string{allocation.EventTypePaymentAllocated}
}

// Handle enqueues or performs the archive.
func (h *ReceiptArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*allocation.PaymentAllocatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			allocation.EventTypePaymentAllocated, event.EventType())
	}

	if h.enqueuer != nil {
		err := h.enqueuer.EnqueueReceiptArchive(ctx, e.TenantID(), e.PaymentID)
		if err == nil {
			return nil
		}
		if !h.fallback {
			return fmt.Errorf("failed to enqueue receipt archive: %w", err)
		}
		h.logger.Warn("failed to enqueue receipt archive, archiving inline",
			zap.String("payment_id", e.PaymentID.String()),
			zap.Error(err),
		)
	}

	if _, err := h.archiver.Archive(ctx, e.TenantID(), e.PaymentID); err != nil {
		h.logger.Error("failed to archive receipt",
			zap.String("payment_id", e.PaymentID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
