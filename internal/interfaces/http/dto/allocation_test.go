package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAllocations(t *testing.T) {
	lines := []AllocationLine{
		{InvoiceID: "INV-1", AllocatedAmount: decimal.RequireFromString("1000")},
		{InvoiceID: "INV-2", AllocatedAmount: decimal.RequireFromString("250.50")},
	}

	got := ToAllocations(lines)
	require.Len(t, got, 2)
	assert.Equal(t, allocation.InvoiceID("INV-1"), got[0].InvoiceID)
	assert.True(t, got[1].AllocatedAmount.Equal(decimal.RequireFromString("250.5")))
	assert.Empty(t, ToAllocations(nil))
}

func TestParseDate(t *testing.T) {
	t.Run("empty is nil", func(t *testing.T) {
		d, err := ParseDate("")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("parses as UTC midnight", func(t *testing.T) {
		d, err := ParseDate("2025-01-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *d)
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		_, err := ParseDate("15/01/2025")
		assert.ErrorContains(t, err, "invalid date")
	})
}

func TestSubmitPaymentRequest_DecodesAmounts(t *testing.T) {
	body := `{"customer_id":"550e8400-e29b-41d4-a716-446655440000","amount":"5000.00",
		"method":"UPI","allocations":[{"invoice_id":"INV-1","allocated_amount":3000}]}`

	var req SubmitPaymentRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(5000)))
	require.Len(t, req.Allocations, 1)
	assert.True(t, req.Allocations[0].AllocatedAmount.Equal(decimal.NewFromInt(3000)))
}
