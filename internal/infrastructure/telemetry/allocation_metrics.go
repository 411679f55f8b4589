package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Submission outcomes reported on receivables_payments_total.
const (
	OutcomeAccepted  = "accepted"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// AllocationMetrics records allocation and payment submission metrics.
// A nil *AllocationMetrics records nothing.
type AllocationMetrics struct {
	allocationRuns     *Counter
	allocationDuration *Histogram
	invoicesAllocated  *Histogram
	validations        *Counter
	editsRejected      *Counter
	payments           *Counter
	paymentAmount      *Histogram
	unallocatedAmount  *Histogram
	submitDuration     *Histogram
}

// NewAllocationMetrics registers the instruments on meter.
func NewAllocationMetrics(meter metric.Meter) (*AllocationMetrics, error) {
	m := &AllocationMetrics{}
	var err error

	if m.allocationRuns, err = NewCounter(meter,
		"receivables_allocation_runs_total", "Allocation engine runs", "{run}"); err != nil {
		return nil, err
	}
	if m.allocationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "receivables_allocation_duration_seconds",
		Description: "Time spent computing an allocation set",
		Unit:        "s",
		Boundaries:  FastDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.invoicesAllocated, err = NewHistogram(meter, HistogramOpts{
		Name:        "receivables_allocation_invoices",
		Description: "Invoices receiving an allocation per run",
		Unit:        "{invoice}",
		Boundaries:  []float64{0, 1, 2, 5, 10, 25, 50, 100},
	}); err != nil {
		return nil, err
	}
	if m.validations, err = NewCounter(meter,
		"receivables_allocation_validations_total", "Allocation validations by status", "{validation}"); err != nil {
		return nil, err
	}
	if m.editsRejected, err = NewCounter(meter,
		"receivables_allocation_edits_rejected_total", "Manual edits refused by the engine", "{edit}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter,
		"receivables_payments_total", "Payment submissions by outcome", "{payment}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "receivables_payment_amount",
		Description: "Accepted payment amounts",
		Unit:        "{currency}",
	}); err != nil {
		return nil, err
	}
	if m.unallocatedAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "receivables_payment_unallocated_amount",
		Description: "Unallocated remainder of accepted payments",
		Unit:        "{currency}",
	}); err != nil {
		return nil, err
	}
	if m.submitDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "receivables_payment_submit_duration_seconds",
		Description: "Payment submission latency",
		Unit:        "s",
		Boundaries:  RequestDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAllocation records one engine run in the given mode.
func (m *AllocationMetrics) RecordAllocation(ctx context.Context, tenantID uuid.UUID, mode string, invoices int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrMode.String(mode)}
	m.allocationRuns.Inc(ctx, attrs...)
	m.allocationDuration.RecordDuration(ctx, d, attrs...)
	m.invoicesAllocated.Record(ctx, float64(invoices), attrs...)
}

// RecordValidation counts a validation result.
func (m *AllocationMetrics) RecordValidation(ctx context.Context, tenantID uuid.UUID, status string) {
	if m == nil {
		return
	}
	m.validations.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrStatus.String(status))
}

// RecordEditRejected counts a refused manual edit.
func (m *AllocationMetrics) RecordEditRejected(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.editsRejected.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordSubmission counts a submission outcome and its latency.
func (m *AllocationMetrics) RecordSubmission(ctx context.Context, tenantID uuid.UUID, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(method),
		AttrOutcome.String(outcome),
	}
	m.payments.Inc(ctx, attrs...)
	m.submitDuration.RecordDuration(ctx, d, attrs...)
}

// RecordPaymentAmounts records the amount and unallocated remainder of an
// accepted payment. Amounts are exported as float64 and are approximate.
func (m *AllocationMetrics) RecordPaymentAmounts(ctx context.Context, tenantID uuid.UUID, currency string, amount, unallocated decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrCurrency.String(currency)}
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), attrs...)
	m.unallocatedAmount.Record(ctx, unallocated.InexactFloat64(), attrs...)
}
