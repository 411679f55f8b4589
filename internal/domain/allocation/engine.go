package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AutoAllocate distributes paymentAmount across invoices oldest first.
//
// Invoices are ordered by IssueDate ascending; invoices sharing a date keep
// their input order. Each invoice receives min(remaining, AmountDue). The walk
// stops as soon as nothing remains, so later invoices get no entry even when
// their AmountDue is zero. A payment larger than the total due leaves a
// positive remainder, which is a valid result.
//
// The invoices slice is not modified.
func AutoAllocate(paymentAmount decimal.Decimal, invoices []Invoice) AllocationSet {
	sorted := make([]Invoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IssueDate.Before(sorted[j].IssueDate)
	})

	remaining := paymentAmount
	entries := make([]Allocation, 0, len(sorted))
	for _, inv := range sorted {
		if !remaining.IsPositive() {
			break
		}

		amount := decimal.Min(remaining, inv.AmountDue)
		if !amount.IsPositive() {
			continue
		}

		entries = append(entries, Allocation{
			InvoiceID:       inv.ID,
			AllocatedAmount: amount,
		})
		remaining = remaining.Sub(amount)
	}

	return newSet(entries)
}

// SetManualAllocation sets the amount allocated to one invoice.
//
// The edit is silently rejected, returning current unchanged, when the
// invoice is not among invoices, when amount is negative, or when amount
// exceeds the invoice's AmountDue. There is no clamping. An amount of zero
// removes the invoice's entry. The set total is not checked against any
// payment amount; use Validate for that.
func SetManualAllocation(current AllocationSet, invoiceID InvoiceID, amount decimal.Decimal, invoices []Invoice) AllocationSet {
	inv, ok := findInvoice(invoices, invoiceID)
	if !ok {
		return current
	}
	if amount.IsNegative() || amount.GreaterThan(inv.AmountDue) {
		return current
	}
	return current.with(invoiceID, amount)
}

// ClearAllocations returns the empty allocation set.
func ClearAllocations() AllocationSet {
	return AllocationSet{total: decimal.Zero}
}
