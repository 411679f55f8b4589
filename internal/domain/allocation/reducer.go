package allocation

import (
	"github.com/shopspring/decimal"
)

// Mode records how the current allocation set was produced.
type Mode string

const (
	// ModeManual keeps allocations as edited when inputs change.
	ModeManual Mode = "manual"
	// ModeAuto re-runs AutoAllocate whenever the payment or invoices change.
	ModeAuto Mode = "auto"
)

// State is the full state of one payment-allocation session.
type State struct {
	PaymentAmount decimal.Decimal
	Invoices      []Invoice
	Allocations   AllocationSet
	Mode          Mode
	Validation    ValidationResult
	// LastEditRejected is true when the most recent EditAllocation asked for a
	// change that the engine refused.
	LastEditRejected bool
}

// NewState returns an empty manual-mode session.
func NewState() State {
	s := State{
		PaymentAmount: decimal.Zero,
		Allocations:   ClearAllocations(),
		Mode:          ModeManual,
	}
	s.Validation = Validate(s.PaymentAmount, s.Allocations)
	return s
}

// Action is a state transition request for Reduce.
type Action interface {
	isAction()
}

// SetPaymentAmount changes the payment being allocated.
type SetPaymentAmount struct {
	Amount decimal.Decimal
}

// LoadInvoices replaces the outstanding invoice snapshot.
type LoadInvoices struct {
	Invoices []Invoice
}

// RunAutoAllocation replaces the allocations with AutoAllocate's output and
// switches to ModeAuto.
type RunAutoAllocation struct{}

// EditAllocation applies a manual edit and switches to ModeManual.
type EditAllocation struct {
	InvoiceID InvoiceID
	Amount    decimal.Decimal
}

// ClearAllocationsAction empties the allocation set and switches to ModeManual.
type ClearAllocationsAction struct{}

func (SetPaymentAmount) isAction()       {}
func (LoadInvoices) isAction()           {}
func (RunAutoAllocation) isAction()      {}
func (EditAllocation) isAction()         {}
func (ClearAllocationsAction) isAction() {}

// Reduce applies action to state and returns the new state. It is pure: state
// is not modified and the same inputs always produce the same output.
// Validation is recomputed on every transition.
func Reduce(state State, action Action) State {
	next := state
	next.LastEditRejected = false

	switch a := action.(type) {
	case SetPaymentAmount:
		next.PaymentAmount = a.Amount
		if next.Mode == ModeAuto {
			next.Allocations = AutoAllocate(next.PaymentAmount, next.Invoices)
		}

	case LoadInvoices:
		next.Invoices = make([]Invoice, len(a.Invoices))
		copy(next.Invoices, a.Invoices)
		if next.Mode == ModeAuto {
			next.Allocations = AutoAllocate(next.PaymentAmount, next.Invoices)
		} else {
			next.Allocations = retainKnown(next.Allocations, next.Invoices)
		}

	case RunAutoAllocation:
		next.Mode = ModeAuto
		next.Allocations = AutoAllocate(next.PaymentAmount, next.Invoices)

	case EditAllocation:
		next.Mode = ModeManual
		updated := SetManualAllocation(next.Allocations, a.InvoiceID, a.Amount, next.Invoices)
		current, _ := next.Allocations.AmountFor(a.InvoiceID)
		next.LastEditRejected = updated.Equal(next.Allocations) && !current.Equal(a.Amount)
		next.Allocations = updated

	case ClearAllocationsAction:
		next.Mode = ModeManual
		next.Allocations = ClearAllocations()

	default:
		return state
	}

	next.Validation = Validate(next.PaymentAmount, next.Allocations)
	return next
}

// retainKnown drops entries whose invoice is no longer in the snapshot.
func retainKnown(set AllocationSet, invoices []Invoice) AllocationSet {
	out := set
	for _, e := range set.entries {
		if _, ok := findInvoice(invoices, e.InvoiceID); !ok {
			out = out.with(e.InvoiceID, decimal.Zero)
		}
	}
	return out
}
