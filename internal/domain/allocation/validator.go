package allocation

import (
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
)

// Status classifies an allocation set against the payment amount.
type Status string

const (
	StatusUnderAllocated Status = "UNDER_ALLOCATED"
	StatusFullyAllocated Status = "FULLY_ALLOCATED"
	StatusOverAllocated  Status = "OVER_ALLOCATED"
)

// ValidationResult is the advisory outcome of Validate.
type ValidationResult struct {
	Status         Status
	PaymentAmount  decimal.Decimal
	TotalAllocated decimal.Decimal
	// Remaining is payment minus total; negative when over-allocated.
	Remaining decimal.Decimal
	// Excess is |Remaining| when over-allocated, zero otherwise.
	Excess decimal.Decimal
}

// Validate classifies set against paymentAmount using exact decimal comparison.
// It never mutates the set and never fails.
func Validate(paymentAmount decimal.Decimal, set AllocationSet) ValidationResult {
	remaining := set.Remaining(paymentAmount)
	result := ValidationResult{
		PaymentAmount:  paymentAmount,
		TotalAllocated: set.TotalAllocated(),
		Remaining:      remaining,
		Excess:         decimal.Zero,
	}

	switch remaining.Sign() {
	case 1:
		result.Status = StatusUnderAllocated
	case 0:
		result.Status = StatusFullyAllocated
	default:
		result.Status = StatusOverAllocated
		result.Excess = remaining.Abs()
	}
	return result
}

// Blocking reports whether the result must stop a payment submission.
func (r ValidationResult) Blocking() bool {
	return r.Status == StatusOverAllocated
}

// Unallocated is the part of the payment not assigned to any invoice.
func (r ValidationResult) Unallocated() decimal.Decimal {
	if r.Remaining.IsPositive() {
		return r.Remaining
	}
	return decimal.Zero
}

// Message renders a short human-readable summary in the printer's locale.
func (r ValidationResult) Message(p *message.Printer, currency valueobject.Currency) string {
	format := func(d decimal.Decimal) string {
		m, err := valueobject.NewMoney(d, currency)
		if err != nil {
			return d.StringFixed(2)
		}
		return m.Format(p)
	}

	switch r.Status {
	case StatusUnderAllocated:
		return "Unallocated " + format(r.Remaining)
	case StatusOverAllocated:
		return "Over-allocated by " + format(r.Excess)
	default:
		return "Fully allocated"
	}
}
