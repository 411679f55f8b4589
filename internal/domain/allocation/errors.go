package allocation

import "github.com/pharmaerp/receivables/internal/domain/shared"

// Error codes raised around payment submission. The engine itself never
// returns errors.
const (
	CodeOverAllocated       = "OVER_ALLOCATED"
	CodeAllocationStale     = "ALLOCATION_STALE"
	CodeInvoiceNotFound     = "INVOICE_NOT_FOUND"
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodePaymentNotFound     = "PAYMENT_NOT_FOUND"
)

var (
	ErrOverAllocated       = shared.NewDomainError(CodeOverAllocated, "Allocated total exceeds the payment amount")
	ErrAllocationStale     = shared.NewDomainError(CodeAllocationStale, "Allocation exceeds the invoice's current amount due")
	ErrInvoiceNotFound     = shared.NewDomainError(CodeInvoiceNotFound, "Invoice not found for this customer")
	ErrDuplicateSubmission = shared.NewDomainError(CodeDuplicateSubmission, "A payment with this idempotency key is already being processed")
	ErrPaymentNotFound     = shared.NewDomainError(CodePaymentNotFound, "Payment not found")
)
