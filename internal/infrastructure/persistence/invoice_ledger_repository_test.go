package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func seedInvoice(t *testing.T, ledger *GormInvoiceLedger, tenantID, customerID uuid.UUID, id string, issued int, total, due string) {
	t.Helper()
	err := ledger.Record(context.Background(), tenantID, allocation.Invoice{
		ID:            allocation.InvoiceID(id),
		InvoiceNumber: "SI-" + id,
		CustomerID:    customerID,
		IssueDate:     day(issued),
		TotalAmount:   dec(total),
		AmountDue:     dec(due),
	})
	require.NoError(t, err)
}

func TestGormInvoiceLedger_ListOutstanding(t *testing.T) {
	db := newTestDatabase(t)
	ledger := NewGormInvoiceLedger(db.DB)
	ctx := context.Background()
	tenantID, customerID := uuid.New(), uuid.New()

	seedInvoice(t, ledger, tenantID, customerID, "INV-3", 20, "500", "500")
	seedInvoice(t, ledger, tenantID, customerID, "INV-1", 1, "3000", "3000")
	seedInvoice(t, ledger, tenantID, customerID, "INV-2", 15, "2000", "1250.50")
	seedInvoice(t, ledger, tenantID, customerID, "INV-PAID", 2, "100", "0")
	seedInvoice(t, ledger, tenantID, uuid.New(), "INV-OTHER", 1, "100", "100")
	seedInvoice(t, ledger, uuid.New(), customerID, "INV-X", 1, "100", "100")

	invoices, err := ledger.ListOutstanding(ctx, tenantID, customerID)
	require.NoError(t, err)
	require.Len(t, invoices, 3)

	assert.Equal(t, allocation.InvoiceID("INV-1"), invoices[0].ID)
	assert.Equal(t, allocation.InvoiceID("INV-2"), invoices[1].ID)
	assert.Equal(t, allocation.InvoiceID("INV-3"), invoices[2].ID)
	assertDecimal(t, "1250.50", invoices[1].AmountDue)
	assertDecimal(t, "2000", invoices[1].TotalAmount)
	assert.Equal(t, customerID, invoices[0].CustomerID)
}

func TestGormInvoiceLedger_SameDayKeepsRecordOrder(t *testing.T) {
	db := newTestDatabase(t)
	ledger := NewGormInvoiceLedger(db.DB)
	tenantID, customerID := uuid.New(), uuid.New()

	seedInvoice(t, ledger, tenantID, customerID, "B", 5, "10", "10")
	time.Sleep(2 * time.Millisecond)
	seedInvoice(t, ledger, tenantID, customerID, "A", 5, "10", "10")

	invoices, err := ledger.ListOutstanding(context.Background(), tenantID, customerID)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, allocation.InvoiceID("B"), invoices[0].ID)
	assert.Equal(t, allocation.InvoiceID("A"), invoices[1].ID)
}

func TestGormInvoiceLedger_FindByIDs(t *testing.T) {
	db := newTestDatabase(t)
	ledger := NewGormInvoiceLedger(db.DB)
	ctx := context.Background()
	tenantID, customerID := uuid.New(), uuid.New()

	seedInvoice(t, ledger, tenantID, customerID, "INV-1", 1, "3000", "3000")
	seedInvoice(t, ledger, tenantID, customerID, "INV-2", 15, "2000", "2000")

	t.Run("skips unknown ids", func(t *testing.T) {
		invoices, err := ledger.FindByIDs(ctx, tenantID, []allocation.InvoiceID{"INV-2", "INV-404"})
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, allocation.InvoiceID("INV-2"), invoices[0].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		invoices, err := ledger.FindByIDs(ctx, tenantID, nil)
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})

	t.Run("is tenant scoped", func(t *testing.T) {
		invoices, err := ledger.FindByIDs(ctx, uuid.New(), []allocation.InvoiceID{"INV-1"})
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})

	t.Run("find by id", func(t *testing.T) {
		inv, err := ledger.FindByID(ctx, tenantID, "INV-1")
		require.NoError(t, err)
		require.NotNil(t, inv)
		assert.Equal(t, "SI-INV-1", inv.InvoiceNumber)

		missing, err := ledger.FindByID(ctx, tenantID, "INV-404")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestGormInvoiceLedger_RecordDuplicate(t *testing.T) {
	db := newTestDatabase(t)
	ledger := NewGormInvoiceLedger(db.DB)
	tenantID, customerID := uuid.New(), uuid.New()

	seedInvoice(t, ledger, tenantID, customerID, "INV-1", 1, "3000", "3000")

	err := ledger.Record(context.Background(), tenantID, allocation.Invoice{
		ID:            "INV-1",
		InvoiceNumber: "SI-OTHER",
		CustomerID:    customerID,
		IssueDate:     day(2),
		TotalAmount:   dec("1"),
		AmountDue:     dec("1"),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// The same ID under another tenant is a different invoice.
	seedInvoice(t, ledger, uuid.New(), customerID, "INV-1", 1, "3000", "3000")
}
