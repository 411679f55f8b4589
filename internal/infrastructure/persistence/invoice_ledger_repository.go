package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceLedger implements allocation.InvoiceLedger using GORM
type GormInvoiceLedger struct {
	db *gorm.DB
}

// NewGormInvoiceLedger creates a new GormInvoiceLedger
func NewGormInvoiceLedger(db *gorm.DB) *GormInvoiceLedger {
	return &GormInvoiceLedger{db: db}
}

// ListOutstanding returns the customer's unpaid invoices, oldest issue date
// first. Invoices issued on the same day keep the order they were recorded in.
func (r *GormInvoiceLedger) ListOutstanding(ctx context.Context, tenantID, customerID uuid.UUID) ([]allocation.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND amount_due > 0", tenantID, customerID).
		Order("issue_date ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// FindByIDs returns the invoices with the given IDs. Unknown IDs are skipped.
func (r *GormInvoiceLedger) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []allocation.InvoiceID) ([]allocation.Invoice, error) {
	if len(ids) == 0 {
		return []allocation.Invoice{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, raw).
		Order("issue_date ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// FindByID returns nil, nil when the invoice does not exist.
func (r *GormInvoiceLedger) FindByID(ctx context.Context, tenantID uuid.UUID, id allocation.InvoiceID) (*allocation.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	inv := model.ToDomain()
	return &inv, nil
}

// Record inserts a new invoice. A reused ID or invoice number fails with
// ALREADY_EXISTS.
func (r *GormInvoiceLedger) Record(ctx context.Context, tenantID uuid.UUID, invoice allocation.Invoice) error {
	model := models.InvoiceModelFromDomain(tenantID, invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code,
				fmt.Sprintf("Invoice %s already exists", invoice.InvoiceNumber))
		}
		return err
	}
	return nil
}

func toInvoices(rows []models.InvoiceModel) []allocation.Invoice {
	invoices := make([]allocation.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceLedger implements the interface
var _ allocation.InvoiceLedger = (*GormInvoiceLedger)(nil)
