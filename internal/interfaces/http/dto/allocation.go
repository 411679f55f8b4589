package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// RecordInvoiceRequest seeds the invoice ledger.
type RecordInvoiceRequest struct {
	ID            string           `json:"id" binding:"omitempty,max=64"`
	InvoiceNumber string           `json:"invoice_number" binding:"required,max=64"`
	CustomerID    string           `json:"customer_id" binding:"required,uuid"`
	IssueDate     string           `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate       string           `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	TotalAmount   decimal.Decimal  `json:"total_amount" binding:"decimal_gt0"`
	AmountDue     *decimal.Decimal `json:"amount_due" binding:"omitempty,decimal_gte0"`
}

// AllocationLine is one invoice allocation on the wire.
type AllocationLine struct {
	InvoiceID       string          `json:"invoice_id" binding:"required,max=64"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount" binding:"decimal_gte0"`
}

// SessionRequest opens or refreshes an allocation session.
type SessionRequest struct {
	CustomerID    string          `json:"customer_id" binding:"required,uuid"`
	PaymentAmount decimal.Decimal `json:"payment_amount" binding:"decimal_gte0"`
}

// ManualAllocationRequest applies one edit to the caller's current set.
// Amount is not range-checked here; the engine rejects negative edits.
type ManualAllocationRequest struct {
	CustomerID    string           `json:"customer_id" binding:"required,uuid"`
	PaymentAmount decimal.Decimal  `json:"payment_amount" binding:"decimal_gte0"`
	Allocations   []AllocationLine `json:"allocations" binding:"omitempty,dive"`
	InvoiceID     string           `json:"invoice_id" binding:"required,max=64"`
	Amount        decimal.Decimal  `json:"amount"`
}

// ValidateRequest classifies a set against a payment amount.
type ValidateRequest struct {
	PaymentAmount decimal.Decimal  `json:"payment_amount" binding:"decimal_gte0"`
	Allocations   []AllocationLine `json:"allocations" binding:"omitempty,dive"`
}

// ClearRequest resets a session's allocations.
type ClearRequest struct {
	PaymentAmount decimal.Decimal `json:"payment_amount" binding:"decimal_gte0"`
}

// SubmitPaymentRequest records a payment. The Idempotency-Key header wins
// over IdempotencyKey.
type SubmitPaymentRequest struct {
	CustomerID     string           `json:"customer_id" binding:"required,uuid"`
	Amount         decimal.Decimal  `json:"amount" binding:"decimal_gt0"`
	Currency       string           `json:"currency" binding:"omitempty,len=3,alpha"`
	PaymentDate    string           `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Method         string           `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CHEQUE UPI CARD OTHER"`
	Reference      string           `json:"reference" binding:"omitempty,max=128"`
	IdempotencyKey string           `json:"idempotency_key" binding:"omitempty,max=128"`
	Allocations    []AllocationLine `json:"allocations" binding:"omitempty,dive"`
}

// UpdateSettingRequest writes one tenant setting.
type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// ListPaymentsQuery filters a customer's payments.
type ListPaymentsQuery struct {
	CustomerID string `form:"customer_id" binding:"required,uuid"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ToAllocations converts wire lines to domain allocations.
func ToAllocations(lines []AllocationLine) []allocation.Allocation {
	out := make([]allocation.Allocation, 0, len(lines))
	for _, l := range lines {
		out = append(out, allocation.Allocation{
			InvoiceID:       allocation.InvoiceID(l.InvoiceID),
			AllocatedAmount: l.AllocatedAmount,
		})
	}
	return out
}

// ParseDate parses a DateLayout date as UTC midnight. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

// ParseCustomerID parses a customer UUID already checked by binding.
func ParseCustomerID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid customer_id: %w", err)
	}
	return id, nil
}
