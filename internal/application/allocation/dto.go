package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/shopspring/decimal"
)

// RecordInvoiceInput registers an invoice in the ledger.
type RecordInvoiceInput struct {
	// ID is optional; a UUID is assigned when empty.
	ID            string
	InvoiceNumber string
	CustomerID    uuid.UUID
	IssueDate     time.Time
	DueDate       *time.Time
	TotalAmount   decimal.Decimal
	// AmountDue defaults to TotalAmount when nil.
	AmountDue *decimal.Decimal
}

// InvoiceView is an outstanding invoice as shown to the caller.
type InvoiceView struct {
	ID            allocation.InvoiceID `json:"id"`
	InvoiceNumber string               `json:"invoice_number"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	IssueDate     time.Time            `json:"issue_date"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	AmountDue     decimal.Decimal      `json:"amount_due"`
	Overdue       bool                 `json:"overdue"`
}

// ValidationView is the validator outcome with a display message.
type ValidationView struct {
	Status         allocation.Status `json:"status"`
	PaymentAmount  decimal.Decimal   `json:"payment_amount"`
	TotalAllocated decimal.Decimal   `json:"total_allocated"`
	Remaining      decimal.Decimal   `json:"remaining"`
	Excess         decimal.Decimal   `json:"excess"`
	Blocking       bool              `json:"blocking"`
	Message        string            `json:"message"`
}

// DraftInput starts an allocation session for a customer.
type DraftInput struct {
	CustomerID    uuid.UUID
	PaymentAmount decimal.Decimal
}

// DraftResult is the opening state of an allocation session.
type DraftResult struct {
	Mode        allocation.Mode         `json:"mode"`
	Invoices    []InvoiceView           `json:"invoices"`
	TotalDue    decimal.Decimal         `json:"total_due"`
	Allocations []allocation.Allocation `json:"allocations"`
	Validation  ValidationView          `json:"validation"`
}

// AutoAllocateInput asks for a FIFO allocation against the current ledger.
type AutoAllocateInput struct {
	CustomerID    uuid.UUID
	PaymentAmount decimal.Decimal
}

// EditAllocationInput applies one manual edit to the caller's current set.
type EditAllocationInput struct {
	CustomerID    uuid.UUID
	PaymentAmount decimal.Decimal
	Current       []allocation.Allocation
	InvoiceID     allocation.InvoiceID
	Amount        decimal.Decimal
}

// ValidateInput classifies a set against a payment amount.
type ValidateInput struct {
	PaymentAmount decimal.Decimal
	Allocations   []allocation.Allocation
}

// AllocationResult is an allocation set with its validation.
type AllocationResult struct {
	Mode        allocation.Mode         `json:"mode"`
	Allocations []allocation.Allocation `json:"allocations"`
	Validation  ValidationView          `json:"validation"`
	// Rejected is set when a manual edit asked for a change and was refused.
	Rejected bool `json:"rejected"`
}

// SubmitPaymentInput records a payment with its allocations.
type SubmitPaymentInput struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	// Currency defaults to the tenant's allocation.currency setting.
	Currency       string
	PaymentDate    time.Time
	Method         allocation.PaymentMethod
	Reference      string
	IdempotencyKey string
	Allocations    []allocation.Allocation
}

// PaymentResult is the outcome of SubmitPayment.
type PaymentResult struct {
	Receipt *allocation.Receipt `json:"receipt"`
	// Replayed is true when the idempotency key matched an earlier submission.
	Replayed   bool           `json:"replayed"`
	Validation ValidationView `json:"validation"`
}

// PaymentView is a stored payment with its receipt download link.
type PaymentView struct {
	Receipt    *allocation.Receipt `json:"receipt"`
	ReceiptURL string              `json:"receipt_url,omitempty"`
}

func toInvoiceViews(invoices []allocation.Invoice, now time.Time) []InvoiceView {
	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, InvoiceView{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID,
			IssueDate:     inv.IssueDate,
			DueDate:       inv.DueDate,
			TotalAmount:   inv.TotalAmount,
			AmountDue:     inv.AmountDue,
			Overdue:       inv.IsOverdue(now),
		})
	}
	return views
}
