package allocation

import (
	"github.com/shopspring/decimal"
)

// Allocation assigns part of a payment to one invoice.
type Allocation struct {
	InvoiceID       InvoiceID       `json:"invoice_id"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

// AllocationSet is an immutable, ordered set of allocations with at most one
// entry per invoice. Order is the invoice processing order for automatic
// allocation and insertion order for manual edits.
type AllocationSet struct {
	entries []Allocation
	total   decimal.Decimal
}

// NewAllocationSet builds a set from entries. Later entries for the same
// invoice overwrite earlier ones in place; non-positive amounts are dropped.
func NewAllocationSet(entries ...Allocation) AllocationSet {
	var s AllocationSet
	for _, e := range entries {
		s = s.with(e.InvoiceID, e.AllocatedAmount)
	}
	return s
}

// Allocations returns a copy of the entries in order. Each entry encodes to
// JSON as {"invoice_id", "allocated_amount"}, the shape the payment API takes.
func (s AllocationSet) Allocations() []Allocation {
	out := make([]Allocation, len(s.entries))
	copy(out, s.entries)
	return out
}

// TotalAllocated is the sum of all allocated amounts.
func (s AllocationSet) TotalAllocated() decimal.Decimal {
	return s.total
}

// Remaining is paymentAmount minus TotalAllocated. Negative means over-allocated.
func (s AllocationSet) Remaining(paymentAmount decimal.Decimal) decimal.Decimal {
	return paymentAmount.Sub(s.total)
}

// AmountFor returns the amount allocated to an invoice.
func (s AllocationSet) AmountFor(id InvoiceID) (decimal.Decimal, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.entries[i].AllocatedAmount, true
	}
	return decimal.Zero, false
}

// Len returns the number of entries.
func (s AllocationSet) Len() int {
	return len(s.entries)
}

// IsEmpty reports whether the set has no entries.
func (s AllocationSet) IsEmpty() bool {
	return len(s.entries) == 0
}

// Equal reports whether both sets hold the same entries in the same order.
func (s AllocationSet) Equal(other AllocationSet) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for i := range s.entries {
		if s.entries[i].InvoiceID != other.entries[i].InvoiceID ||
			!s.entries[i].AllocatedAmount.Equal(other.entries[i].AllocatedAmount) {
			return false
		}
	}
	return true
}

func (s AllocationSet) indexOf(id InvoiceID) int {
	for i, e := range s.entries {
		if e.InvoiceID == id {
			return i
		}
	}
	return -1
}

// with returns a copy with the invoice's entry set to amount, or removed when
// amount is not positive.
func (s AllocationSet) with(id InvoiceID, amount decimal.Decimal) AllocationSet {
	idx := s.indexOf(id)
	entries := make([]Allocation, 0, len(s.entries)+1)
	for i, e := range s.entries {
		if i == idx {
			if amount.IsPositive() {
				entries = append(entries, Allocation{InvoiceID: id, AllocatedAmount: amount})
			}
			continue
		}
		entries = append(entries, e)
	}
	if idx < 0 && amount.IsPositive() {
		entries = append(entries, Allocation{InvoiceID: id, AllocatedAmount: amount})
	}
	return newSet(entries)
}

func newSet(entries []Allocation) AllocationSet {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.AllocatedAmount)
	}
	return AllocationSet{entries: entries, total: total}
}
