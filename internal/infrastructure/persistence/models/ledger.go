package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the ledger's view of an invoice. The primary key is the
// ledger-supplied ID scoped by tenant.
type InvoiceModel struct {
	ID            string          `gorm:"type:varchar(64);primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;primaryKey;uniqueIndex:idx_invoices_tenant_number,priority:1;index:idx_invoices_tenant_customer_issue,priority:1"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_invoices_tenant_customer_issue,priority:2"`
	InvoiceNumber string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	IssueDate     time.Time       `gorm:"not null;index:idx_invoices_tenant_customer_issue,priority:3"`
	DueDate       *time.Time
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountDue     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
	Version       int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() allocation.Invoice {
	return allocation.Invoice{
		ID:            allocation.InvoiceID(m.ID),
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		IssueDate:     m.IssueDate,
		DueDate:       m.DueDate,
		TotalAmount:   m.TotalAmount,
		AmountDue:     m.AmountDue,
	}
}

// InvoiceModelFromDomain builds a model for tenantID from inv.
func InvoiceModelFromDomain(tenantID uuid.UUID, inv allocation.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:            string(inv.ID),
		TenantID:      tenantID,
		CustomerID:    inv.CustomerID,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		TotalAmount:   inv.TotalAmount,
		AmountDue:     inv.AmountDue,
		Version:       1,
	}
}
