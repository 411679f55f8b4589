package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	ledger     *GormInvoiceLedger
	repo       *GormPaymentRepository
	tenantID   uuid.UUID
	customerID uuid.UUID
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := newTestDatabase(t)
	f := &paymentFixture{
		ledger:     NewGormInvoiceLedger(db.DB),
		repo:       NewGormPaymentRepository(db.DB),
		tenantID:   uuid.New(),
		customerID: uuid.New(),
	}
	seedInvoice(t, f.ledger, f.tenantID, f.customerID, "INV-1", 1, "3000", "3000")
	seedInvoice(t, f.ledger, f.tenantID, f.customerID, "INV-2", 15, "2000", "2000")
	return f
}

// newPayment builds a payment against the ledger as it is now.
func (f *paymentFixture) newPayment(t *testing.T, amount, key string, allocs ...allocation.Allocation) *allocation.Payment {
	t.Helper()
	invoices, err := f.ledger.ListOutstanding(context.Background(), f.tenantID, f.customerID)
	require.NoError(t, err)
	return f.newPaymentWith(t, invoices, amount, key, allocs...)
}

func (f *paymentFixture) newPaymentWith(t *testing.T, invoices []allocation.Invoice, amount, key string, allocs ...allocation.Allocation) *allocation.Payment {
	t.Helper()
	money, err := valueobject.NewMoney(dec(amount), valueobject.INR)
	require.NoError(t, err)
	p, err := allocation.NewPayment(allocation.NewPaymentInput{
		TenantID:       f.tenantID,
		CustomerID:     f.customerID,
		Amount:         money,
		PaymentDate:    time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Method:         allocation.PaymentMethodBankTransfer,
		Reference:      "UTR-1",
		IdempotencyKey: key,
		Allocations:    allocation.NewAllocationSet(allocs...),
		Invoices:       invoices,
	})
	require.NoError(t, err)
	return p
}

func alloc(id, amount string) allocation.Allocation {
	return allocation.Allocation{InvoiceID: allocation.InvoiceID(id), AllocatedAmount: dec(amount)}
}

func (f *paymentFixture) amountDue(t *testing.T, id string) string {
	t.Helper()
	inv, err := f.ledger.FindByID(context.Background(), f.tenantID, allocation.InvoiceID(id))
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.AmountDue.String()
}

func TestGormPaymentRepository_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements the ledger and stores the lines", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := f.newPayment(t, "4000", "key-1", alloc("INV-1", "3000"), alloc("INV-2", "1000"))

		receipt, err := f.repo.Submit(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, p.ID, receipt.PaymentID)
		require.Len(t, receipt.Lines, 2)
		assertDecimal(t, "3000", receipt.Lines[0].AmountDueBefore)
		assertDecimal(t, "0", receipt.Lines[0].AmountDueAfter)
		assertDecimal(t, "1000", receipt.Lines[1].AmountDueAfter)

		assert.Equal(t, "0", f.amountDue(t, "INV-1"))
		assert.Equal(t, "1000", f.amountDue(t, "INV-2"))

		outstanding, err := f.ledger.ListOutstanding(ctx, f.tenantID, f.customerID)
		require.NoError(t, err)
		require.Len(t, outstanding, 1)
		assert.Equal(t, allocation.InvoiceID("INV-2"), outstanding[0].ID)
	})

	t.Run("stores an unallocated remainder", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := f.newPayment(t, "500", "", alloc("INV-2", "200"))

		_, err := f.repo.Submit(ctx, p)
		require.NoError(t, err)

		stored, err := f.repo.FindByID(ctx, f.tenantID, p.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assertDecimal(t, "200", stored.TotalAllocated)
		assertDecimal(t, "300", stored.Unallocated)
		assert.Empty(t, stored.IdempotencyKey)
		assert.Equal(t, valueobject.INR, stored.Amount.Currency())
	})

	t.Run("rejects a stale allocation and keeps the ledger", func(t *testing.T) {
		f := newPaymentFixture(t)
		snapshot, err := f.ledger.ListOutstanding(ctx, f.tenantID, f.customerID)
		require.NoError(t, err)

		first := f.newPaymentWith(t, snapshot, "1500", "", alloc("INV-2", "1500"))
		_, err = f.repo.Submit(ctx, first)
		require.NoError(t, err)

		second := f.newPaymentWith(t, snapshot, "3000", "", alloc("INV-1", "1000"), alloc("INV-2", "1000"))
		_, err = f.repo.Submit(ctx, second)
		assert.ErrorIs(t, err, allocation.ErrAllocationStale)

		assert.Equal(t, "3000", f.amountDue(t, "INV-1"), "earlier lines are rolled back")
		assert.Equal(t, "500", f.amountDue(t, "INV-2"))

		missing, err := f.repo.FindByID(ctx, f.tenantID, second.ID)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("rejects an invoice of another customer", func(t *testing.T) {
		f := newPaymentFixture(t)
		other := uuid.New()
		seedInvoice(t, f.ledger, f.tenantID, other, "INV-9", 1, "100", "100")

		invoices := []allocation.Invoice{{ID: "INV-9", InvoiceNumber: "SI-INV-9", CustomerID: f.customerID, TotalAmount: dec("100"), AmountDue: dec("100")}}
		p := f.newPaymentWith(t, invoices, "100", "", alloc("INV-9", "100"))

		_, err := f.repo.Submit(ctx, p)
		assert.ErrorIs(t, err, allocation.ErrInvoiceNotFound)
		assert.Equal(t, "100", f.amountDue(t, "INV-9"))
	})

	t.Run("duplicate idempotency key rolls back", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.repo.Submit(ctx, f.newPayment(t, "100", "key-dup", alloc("INV-1", "100")))
		require.NoError(t, err)

		_, err = f.repo.Submit(ctx, f.newPayment(t, "100", "key-dup", alloc("INV-1", "100")))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.Equal(t, "2900", f.amountDue(t, "INV-1"))
	})
}

func TestGormPaymentRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t)

	first := f.newPayment(t, "1000", "key-a", alloc("INV-1", "1000"))
	_, err := f.repo.Submit(ctx, first)
	require.NoError(t, err)
	second := f.newPayment(t, "600", "key-b", alloc("INV-1", "500"), alloc("INV-2", "100"))
	_, err = f.repo.Submit(ctx, second)
	require.NoError(t, err)

	t.Run("by idempotency key", func(t *testing.T) {
		p, err := f.repo.FindByIdempotencyKey(ctx, f.tenantID, "key-b")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, second.ID, p.ID)
		require.Len(t, p.Lines, 2)
		assert.Equal(t, 1, p.Lines[0].LineNo)
		assert.Equal(t, allocation.InvoiceID("INV-1"), p.Lines[0].InvoiceID)
		assertDecimal(t, "2000", p.Lines[0].AmountDueBefore)
		assertDecimal(t, "1500", p.Lines[0].AmountDueAfter)

		none, err := f.repo.FindByIdempotencyKey(ctx, f.tenantID, "key-z")
		require.NoError(t, err)
		assert.Nil(t, none)

		other, err := f.repo.FindByIdempotencyKey(ctx, uuid.New(), "key-b")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("by customer", func(t *testing.T) {
		payments, err := f.repo.ListByCustomer(ctx, f.tenantID, f.customerID, 0)
		require.NoError(t, err)
		assert.Len(t, payments, 2)

		limited, err := f.repo.ListByCustomer(ctx, f.tenantID, f.customerID, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("set receipt key", func(t *testing.T) {
		require.NoError(t, f.repo.SetReceiptKey(ctx, f.tenantID, first.ID, "receipts/a.json"))

		p, err := f.repo.FindByID(ctx, f.tenantID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "receipts/a.json", p.ReceiptKey)

		err = f.repo.SetReceiptKey(ctx, f.tenantID, uuid.New(), "receipts/b.json")
		assert.ErrorIs(t, err, allocation.ErrPaymentNotFound)
	})
}
