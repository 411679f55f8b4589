package allocation

import (
	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EventTypePaymentAllocated is published after a payment is persisted.
const EventTypePaymentAllocated = "PaymentAllocated"

// PaymentAllocatedLine is one allocation carried on the event.
type PaymentAllocatedLine struct {
	InvoiceID       InvoiceID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AmountDueAfter  decimal.Decimal `json:"amount_due_after"`
}

// PaymentAllocatedEvent announces a submitted payment and its allocations.
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID              `json:"payment_id"`
	PaymentNumber  string                 `json:"payment_number"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	Method         PaymentMethod          `json:"method"`
	TotalAllocated decimal.Decimal        `json:"total_allocated"`
	Unallocated    decimal.Decimal        `json:"unallocated"`
	Lines          []PaymentAllocatedLine `json:"lines"`
	ReceiptKey     string                 `json:"receipt_key"`
}

// NewPaymentAllocatedEvent builds the event from the payment aggregate.
func NewPaymentAllocatedEvent(p *Payment) *PaymentAllocatedEvent {
	lines := make([]PaymentAllocatedLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, PaymentAllocatedLine{
			InvoiceID:       l.InvoiceID,
			InvoiceNumber:   l.InvoiceNumber,
			AllocatedAmount: l.AllocatedAmount,
			AmountDueAfter:  l.AmountDueAfter,
		})
	}
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAllocated, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount.Amount(),
		Currency:        string(p.Amount.Currency()),
		Method:          p.Method,
		TotalAllocated:  p.TotalAllocated,
		Unallocated:     p.Unallocated,
		Lines:           lines,
		ReceiptKey:      p.ReceiptArchiveKey(),
	}
}
