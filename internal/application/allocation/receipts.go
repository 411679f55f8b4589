package allocation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReceiptArchiver writes receipt documents to the archive and records their
// key on the payment.
type ReceiptArchiver struct {
	payments allocation.PaymentRepository
	archive  allocation.ReceiptArchive
	logger   *zap.Logger
}

// NewReceiptArchiver creates a new ReceiptArchiver.
func NewReceiptArchiver(payments allocation.PaymentRepository, archive allocation.ReceiptArchive, logger *zap.Logger) *ReceiptArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptArchiver{payments: payments, archive: archive, logger: logger}
}

// Archive stores the receipt of a payment and returns its key. It is
// idempotent: a payment that already has a receipt key is left alone.
func (a *ReceiptArchiver) Archive(ctx context.Context, tenantID, paymentID uuid.UUID) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "archive",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)
	defer span.End()

	var (
		key string
		err error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.AllocationLabels(telemetry.OperationArchive, ""), func(c context.Context) {
		key, err = a.store(c, tenantID, paymentID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return key, nil
}

func (a *ReceiptArchiver) store(ctx context.Context, tenantID, paymentID uuid.UUID) (string, error) {
	p, err := a.payments.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		return "", fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return "", allocation.ErrPaymentNotFound
	}
	if p.ReceiptKey != "" {
		return p.ReceiptKey, nil
	}

	key := p.ReceiptArchiveKey()
	receipt := p.Receipt()
	receipt.ArchiveKey = key
	doc, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}

	if err := a.archive.Put(ctx, key, doc, "application/json"); err != nil {
		return "", fmt.Errorf("failed to store receipt: %w", err)
	}
	if err := a.payments.SetReceiptKey(ctx, tenantID, paymentID, key); err != nil {
		return "", fmt.Errorf("failed to record receipt key: %w", err)
	}

	a.logger.Info("receipt archived",
		zap.String("payment_id", paymentID.String()),
		zap.String("payment_number", p.PaymentNumber),
		zap.String("key", key),
		zap.Int("bytes", len(doc)),
	)
	return key, nil
}
