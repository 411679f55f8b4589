package allocation

import (
	"testing"

	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	set := NewAllocationSet(
		Allocation{InvoiceID: "A", AllocatedAmount: dec("60")},
		Allocation{InvoiceID: "B", AllocatedAmount: dec("40")},
	)

	tests := []struct {
		name      string
		payment   string
		status    Status
		remaining string
		excess    string
	}{
		{"exact match", "100", StatusFullyAllocated, "0", "0"},
		{"one cent short of total", "99.99", StatusOverAllocated, "-0.01", "0.01"},
		{"one cent above total", "100.01", StatusUnderAllocated, "0.01", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(dec(tt.payment), set)
			assert.Equal(t, tt.status, result.Status)
			assert.True(t, result.Remaining.Equal(dec(tt.remaining)), result.Remaining.String())
			assert.True(t, result.Excess.Equal(dec(tt.excess)), result.Excess.String())
			assert.True(t, result.TotalAllocated.Equal(dec("100")))
		})
	}

	t.Run("empty set against zero payment is fully allocated", func(t *testing.T) {
		result := Validate(decimal.Zero, ClearAllocations())
		assert.Equal(t, StatusFullyAllocated, result.Status)
	})

	t.Run("blocking only when over-allocated", func(t *testing.T) {
		assert.True(t, Validate(dec("50"), set).Blocking())
		assert.False(t, Validate(dec("100"), set).Blocking())
		assert.False(t, Validate(dec("150"), set).Blocking())
	})

	t.Run("unallocated never negative", func(t *testing.T) {
		assert.True(t, Validate(dec("150"), set).Unallocated().Equal(dec("50")))
		assert.True(t, Validate(dec("50"), set).Unallocated().IsZero())
	})
}

func TestValidationResultMessage(t *testing.T) {
	p := valueobject.NewPrinter("en")
	set := NewAllocationSet(Allocation{InvoiceID: "A", AllocatedAmount: dec("100")})

	t.Run("under", func(t *testing.T) {
		msg := Validate(dec("100.01"), set).Message(p, valueobject.USD)
		assert.Contains(t, msg, "Unallocated")
		assert.Contains(t, msg, "0.01")
	})

	t.Run("over", func(t *testing.T) {
		msg := Validate(dec("99.99"), set).Message(p, valueobject.USD)
		assert.Contains(t, msg, "Over-allocated by")
		assert.Contains(t, msg, "0.01")
	})

	t.Run("full", func(t *testing.T) {
		assert.Equal(t, "Fully allocated", Validate(dec("100"), set).Message(p, valueobject.USD))
	})
}
