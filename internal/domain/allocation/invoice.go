package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceID is an opaque invoice identifier supplied by the ledger.
type InvoiceID string

// String returns the raw identifier.
func (id InvoiceID) String() string {
	return string(id)
}

// Invoice is a read-only outstanding invoice as reported by the ledger.
type Invoice struct {
	ID            InvoiceID
	InvoiceNumber string
	CustomerID    uuid.UUID
	IssueDate     time.Time
	DueDate       *time.Time
	TotalAmount   decimal.Decimal
	AmountDue     decimal.Decimal
}

// Validate checks 0 <= AmountDue <= TotalAmount.
func (i Invoice) Validate() error {
	if i.ID == "" {
		return shared.NewDomainError("INVALID_INPUT", "Invoice ID is required")
	}
	if i.TotalAmount.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Invoice total amount cannot be negative")
	}
	if i.AmountDue.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Invoice amount due cannot be negative")
	}
	if i.AmountDue.GreaterThan(i.TotalAmount) {
		return shared.NewDomainError("INVALID_INPUT", "Invoice amount due cannot exceed total amount")
	}
	return nil
}

// IsOutstanding reports whether the invoice still has an unpaid balance.
func (i Invoice) IsOutstanding() bool {
	return i.AmountDue.IsPositive()
}

// IsOverdue reports whether the invoice is past its due date at the given time.
func (i Invoice) IsOverdue(at time.Time) bool {
	return i.DueDate != nil && i.IsOutstanding() && at.After(*i.DueDate)
}

// findInvoice returns the invoice with the given ID.
func findInvoice(invoices []Invoice, id InvoiceID) (Invoice, bool) {
	for _, inv := range invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return Invoice{}, false
}

// TotalDue sums AmountDue over the invoices.
func TotalDue(invoices []Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.AmountDue)
	}
	return total
}
