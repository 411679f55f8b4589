package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate.
type PaymentModel struct {
	BaseModel
	TenantID       uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_payments_tenant_number,priority:1;uniqueIndex:idx_payments_tenant_idempotency,priority:1;index:idx_payments_tenant_customer,priority:1"`
	Version        int                      `gorm:"not null;default:1"`
	CustomerID     uuid.UUID                `gorm:"type:uuid;not null;index:idx_payments_tenant_customer,priority:2"`
	PaymentNumber  string                   `gorm:"type:varchar(32);not null;uniqueIndex:idx_payments_tenant_number,priority:2"`
	Amount         decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Currency       string                   `gorm:"type:char(3);not null"`
	PaymentDate    time.Time                `gorm:"not null;index:idx_payments_tenant_customer,priority:3"`
	Method         string                   `gorm:"type:varchar(20);not null"`
	Reference      string                   `gorm:"type:varchar(100);not null;default:''"`
	IdempotencyKey *string                  `gorm:"type:varchar(128);uniqueIndex:idx_payments_tenant_idempotency,priority:2"`
	TotalAllocated decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Unallocated    decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	ReceiptKey     string                   `gorm:"type:varchar(255);not null;default:''"`
	Lines          []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() (*allocation.Payment, error) {
	currency, err := valueobject.ParseCurrency(m.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := valueobject.NewMoney(m.Amount, currency)
	if err != nil {
		return nil, err
	}

	p := &allocation.Payment{
		CustomerID:     m.CustomerID,
		PaymentNumber:  m.PaymentNumber,
		Amount:         amount,
		PaymentDate:    m.PaymentDate,
		Method:         allocation.PaymentMethod(m.Method),
		Reference:      m.Reference,
		TotalAllocated: m.TotalAllocated,
		Unallocated:    m.Unallocated,
		ReceiptKey:     m.ReceiptKey,
		Lines:          make([]allocation.PaymentLine, 0, len(m.Lines)),
	}
	p.BaseEntity = m.BaseModel.ToDomain()
	p.TenantID = m.TenantID
	p.Version = m.Version
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	for i := range m.Lines {
		p.Lines = append(p.Lines, m.Lines[i].ToDomain())
	}
	return p, nil
}

// FromDomain populates the model from a domain Payment.
func (m *PaymentModel) FromDomain(p *allocation.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TenantID = p.TenantID
	m.Version = p.Version
	m.CustomerID = p.CustomerID
	m.PaymentNumber = p.PaymentNumber
	m.Amount = p.Amount.Amount()
	m.Currency = string(p.Amount.Currency())
	m.PaymentDate = p.PaymentDate
	m.Method = string(p.Method)
	m.Reference = p.Reference
	m.IdempotencyKey = nil
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.TotalAllocated = p.TotalAllocated
	m.Unallocated = p.Unallocated
	m.ReceiptKey = p.ReceiptKey

	m.Lines = make([]PaymentAllocationModel, 0, len(p.Lines))
	for _, l := range p.Lines {
		line := PaymentAllocationModel{PaymentID: p.ID}
		line.FromDomain(l)
		m.Lines = append(m.Lines, line)
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *allocation.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is one allocation line of a payment.
type PaymentAllocationModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_allocations_line,priority:1"`
	LineNo          int             `gorm:"not null;uniqueIndex:idx_payment_allocations_line,priority:2"`
	InvoiceID       string          `gorm:"type:varchar(64);not null;index"`
	InvoiceNumber   string          `gorm:"type:varchar(64);not null"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountDueBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountDueAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the line to a domain PaymentLine.
func (m *PaymentAllocationModel) ToDomain() allocation.PaymentLine {
	return allocation.PaymentLine{
		LineNo:          m.LineNo,
		InvoiceID:       allocation.InvoiceID(m.InvoiceID),
		InvoiceNumber:   m.InvoiceNumber,
		AllocatedAmount: m.AllocatedAmount,
		AmountDueBefore: m.AmountDueBefore,
		AmountDueAfter:  m.AmountDueAfter,
	}
}

// FromDomain populates the line from a domain PaymentLine.
func (m *PaymentAllocationModel) FromDomain(l allocation.PaymentLine) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.LineNo = l.LineNo
	m.InvoiceID = string(l.InvoiceID)
	m.InvoiceNumber = l.InvoiceNumber
	m.AllocatedAmount = l.AllocatedAmount
	m.AmountDueBefore = l.AmountDueBefore
	m.AmountDueAfter = l.AmountDueAfter
}
