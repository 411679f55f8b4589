package allocation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AggregateTypePayment is the aggregate type used on payment events.
const AggregateTypePayment = "Payment"

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid reports whether m is a known method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque,
		PaymentMethodUPI, PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentLine is one persisted allocation with the invoice balance it moved.
type PaymentLine struct {
	LineNo          int             `json:"line_no"`
	InvoiceID       InvoiceID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AmountDueBefore decimal.Decimal `json:"amount_due_before"`
	AmountDueAfter  decimal.Decimal `json:"amount_due_after"`
}

// Payment is a submitted customer payment and how it was allocated.
type Payment struct {
	shared.TenantAggregateRoot
	CustomerID     uuid.UUID
	PaymentNumber  string
	Amount         valueobject.Money
	PaymentDate    time.Time
	Method         PaymentMethod
	Reference      string
	IdempotencyKey string
	Lines          []PaymentLine
	TotalAllocated decimal.Decimal
	Unallocated    decimal.Decimal
	ReceiptKey     string
}

// NewPaymentInput carries what NewPayment needs.
type NewPaymentInput struct {
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	Amount         valueobject.Money
	PaymentDate    time.Time
	Method         PaymentMethod
	Reference      string
	IdempotencyKey string
	Allocations    AllocationSet
	// Invoices is a fresh ledger snapshot for the customer.
	Invoices []Invoice
}

// NewPayment checks the allocation set against the fresh invoice snapshot and
// the payment amount and builds the aggregate. Under-allocation is accepted;
// the remainder is kept as Unallocated.
func NewPayment(in NewPaymentInput) (*Payment, error) {
	if in.TenantID == uuid.Nil || in.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Tenant and customer are required")
	}
	if !in.Amount.Amount().IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment amount must be positive")
	}
	if !in.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown payment method %q", in.Method))
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = time.Now()
	}

	lines := make([]PaymentLine, 0, in.Allocations.Len())
	for i, a := range in.Allocations.Allocations() {
		inv, ok := findInvoice(in.Invoices, a.InvoiceID)
		if !ok {
			return nil, shared.NewDomainError(CodeInvoiceNotFound,
				fmt.Sprintf("Invoice %s is not outstanding for this customer", a.InvoiceID))
		}
		if a.AllocatedAmount.GreaterThan(inv.AmountDue) {
			return nil, shared.NewDomainError(CodeAllocationStale,
				fmt.Sprintf("Invoice %s has only %s due", inv.InvoiceNumber, inv.AmountDue.StringFixed(2)))
		}
		lines = append(lines, PaymentLine{
			LineNo:          i + 1,
			InvoiceID:       inv.ID,
			InvoiceNumber:   inv.InvoiceNumber,
			AllocatedAmount: a.AllocatedAmount,
			AmountDueBefore: inv.AmountDue,
			AmountDueAfter:  inv.AmountDue.Sub(a.AllocatedAmount),
		})
	}

	result := Validate(in.Amount.Amount(), in.Allocations)
	if result.Blocking() {
		return nil, shared.NewDomainError(CodeOverAllocated,
			fmt.Sprintf("Allocated total exceeds the payment by %s", result.Excess.StringFixed(2)))
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(in.TenantID),
		CustomerID:          in.CustomerID,
		Amount:              in.Amount,
		PaymentDate:         in.PaymentDate,
		Method:              in.Method,
		Reference:           strings.TrimSpace(in.Reference),
		IdempotencyKey:      in.IdempotencyKey,
		Lines:               lines,
		TotalAllocated:      result.TotalAllocated,
		Unallocated:         result.Unallocated(),
	}
	p.PaymentNumber = generatePaymentNumber(p.PaymentDate, p.ID)
	p.AddDomainEvent(NewPaymentAllocatedEvent(p))
	return p, nil
}

// AllocationSet rebuilds the allocation set from the persisted lines.
func (p *Payment) AllocationSet() AllocationSet {
	entries := make([]Allocation, 0, len(p.Lines))
	for _, l := range p.Lines {
		entries = append(entries, Allocation{InvoiceID: l.InvoiceID, AllocatedAmount: l.AllocatedAmount})
	}
	return NewAllocationSet(entries...)
}

// Receipt builds the receipt handed back to the caller.
func (p *Payment) Receipt() *Receipt {
	lines := make([]PaymentLine, len(p.Lines))
	copy(lines, p.Lines)
	return &Receipt{
		PaymentID:      p.ID,
		PaymentNumber:  p.PaymentNumber,
		CustomerID:     p.CustomerID,
		Amount:         p.Amount,
		PaymentDate:    p.PaymentDate,
		Method:         p.Method,
		Reference:      p.Reference,
		TotalAllocated: p.TotalAllocated,
		Unallocated:    p.Unallocated,
		Lines:          lines,
		IssuedAt:       p.CreatedAt,
		ArchiveKey:     p.ReceiptKey,
	}
}

// ReceiptArchiveKey is where the receipt document for p is stored.
func (p *Payment) ReceiptArchiveKey() string {
	return fmt.Sprintf("receipts/%s/%s/%s.json", p.TenantID, p.PaymentDate.Format("2006/01"), p.PaymentNumber)
}

// Receipt confirms a submitted payment.
type Receipt struct {
	PaymentID      uuid.UUID         `json:"payment_id"`
	PaymentNumber  string            `json:"payment_number"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	Amount         valueobject.Money `json:"amount"`
	PaymentDate    time.Time         `json:"payment_date"`
	Method         PaymentMethod     `json:"method"`
	Reference      string            `json:"reference,omitempty"`
	TotalAllocated decimal.Decimal   `json:"total_allocated"`
	Unallocated    decimal.Decimal   `json:"unallocated"`
	Lines          []PaymentLine     `json:"lines"`
	IssuedAt       time.Time         `json:"issued_at"`
	ArchiveKey     string            `json:"archive_key,omitempty"`
}

func generatePaymentNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("PAY-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}
