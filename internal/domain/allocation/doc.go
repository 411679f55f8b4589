// Package allocation distributes a customer payment across that customer's
// outstanding invoices, oldest first, and classifies the result against the
// payment amount.
//
// AutoAllocate, SetManualAllocation, ClearAllocations and Validate are pure:
// they never fail, never mutate their inputs, and return the same output for
// the same inputs. Conditions such as an over-limit manual edit or an
// over-allocated set are reported as data, never as errors. Side effects
// (ledger reads, payment submission) sit behind the InvoiceLedger and
// PaymentSubmitter interfaces and are driven by the application layer.
package allocation
