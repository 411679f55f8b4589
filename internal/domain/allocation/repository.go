package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceLedger supplies outstanding invoices. It owns AmountDue; the engine
// only reads the snapshot it is handed.
type InvoiceLedger interface {
	// ListOutstanding returns the customer's invoices with AmountDue > 0 in
	// ledger order.
	ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]Invoice, error)
	// FindByIDs returns the invoices with the given IDs; unknown IDs are skipped.
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []InvoiceID) ([]Invoice, error)
	// Record registers a new invoice.
	Record(ctx context.Context, tenantID uuid.UUID, invoice Invoice) error
}

// PaymentSubmitter persists a validated payment and applies its allocations
// to the ledger atomically.
type PaymentSubmitter interface {
	Submit(ctx context.Context, payment *Payment) (*Receipt, error)
}

// PaymentRepository reads back submitted payments.
type PaymentRepository interface {
	PaymentSubmitter
	// FindByID returns nil, nil when not found.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	// FindByIdempotencyKey returns nil, nil when not found.
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*Payment, error)
	// ListByCustomer returns the customer's payments, newest first. A
	// non-positive limit returns all of them.
	ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*Payment, error)
	// SetReceiptKey records where the receipt document was archived.
	SetReceiptKey(ctx context.Context, tenantID, id uuid.UUID, key string) error
}

// SubmissionGuard serialises submissions that share an idempotency key.
type SubmissionGuard interface {
	// Acquire claims key. When the key is already claimed it returns false and
	// the payment ID bound to it, which is uuid.Nil while the first submission
	// is still in flight.
	Acquire(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, uuid.UUID, error)
	// Complete binds the key to the persisted payment.
	Complete(ctx context.Context, tenantID uuid.UUID, key string, paymentID uuid.UUID, ttl time.Duration) error
	// Release frees the key after a failed submission.
	Release(ctx context.Context, tenantID uuid.UUID, key string) error
}

// ReceiptArchive stores receipt documents.
type ReceiptArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// URL returns a time-limited download link for key.
	URL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
