package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is used when no queue is configured.
	QueueDefault = "receipts"
	// TaskReceiptArchive stores the receipt document of a committed payment.
	TaskReceiptArchive = "receipt:archive"
)

// ReceiptArchivePayload identifies the payment whose receipt is archived.
type ReceiptArchivePayload struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// NewReceiptArchiveTask constructs an Asynq task.
func NewReceiptArchiveTask(payload ReceiptArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptArchive, data), nil
}

// receiptArchiveTaskID dedupes archive tasks per payment.
func receiptArchiveTaskID(paymentID uuid.UUID) string {
	return "receipt-archive:" + paymentID.String()
}

func parseReceiptArchivePayload(data []byte) (ReceiptArchivePayload, error) {
	var payload ReceiptArchivePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("invalid receipt archive payload: %w", err)
	}
	if payload.TenantID == uuid.Nil || payload.PaymentID == uuid.Nil {
		return payload, fmt.Errorf("invalid receipt archive payload: tenant and payment are required")
	}
	return payload, nil
}
