package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements allocation.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Submit applies every allocation line to the ledger and stores the payment
// in one transaction.
//
// Each invoice is decremented only if its amount due still covers the line,
// so two submissions racing for the same balance cannot both succeed: the
// loser gets ALLOCATION_STALE and nothing it wrote is kept. The line's
// before and after balances are rewritten from the committed values.
func (r *GormPaymentRepository) Submit(ctx context.Context, payment *allocation.Payment) (*allocation.Receipt, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock invoices in a stable order.
		order := make([]int, len(payment.Lines))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return payment.Lines[order[a]].InvoiceID < payment.Lines[order[b]].InvoiceID
		})

		now := time.Now().UTC()
		for _, idx := range order {
			line := &payment.Lines[idx]
			if err := applyLine(tx, payment.TenantID, payment.CustomerID, line, now); err != nil {
				return err
			}
		}

		model := models.PaymentModelFromDomain(payment)
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError(shared.ErrAlreadyExists.Code,
					"A payment with this idempotency key already exists")
			}
			return err
		}
		payment.CreatedAt = model.CreatedAt
		payment.UpdatedAt = model.UpdatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment.Receipt(), nil
}

func applyLine(tx *gorm.DB, tenantID, customerID uuid.UUID, line *allocation.PaymentLine, now time.Time) error {
	result := tx.Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND id = ? AND customer_id = ? AND amount_due >= ?",
			tenantID, string(line.InvoiceID), customerID, line.AllocatedAmount).
		Updates(map[string]any{
			"amount_due": gorm.Expr("amount_due - ?", line.AllocatedAmount),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to apply allocation to invoice %s: %w", line.InvoiceID, result.Error)
	}

	var current models.InvoiceModel
	err := tx.Select("amount_due", "customer_id").
		First(&current, "tenant_id = ? AND id = ?", tenantID, string(line.InvoiceID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && current.CustomerID != customerID) {
		return shared.NewDomainError(allocation.CodeInvoiceNotFound,
			fmt.Sprintf("Invoice %s is not outstanding for this customer", line.InvoiceID))
	}
	if err != nil {
		return err
	}

	if result.RowsAffected == 0 {
		return shared.NewDomainError(allocation.CodeAllocationStale,
			fmt.Sprintf("Invoice %s has only %s due", line.InvoiceNumber, current.AmountDue.StringFixed(2)))
	}

	line.AmountDueAfter = current.AmountDue
	line.AmountDueBefore = current.AmountDue.Add(line.AllocatedAmount)
	return nil
}

// FindByID returns nil, nil when the payment does not exist.
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*allocation.Payment, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByIdempotencyKey returns nil, nil when no payment carries key.
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*allocation.Payment, error) {
	if key == "" {
		return nil, nil
	}
	return r.findOne(ctx, "tenant_id = ? AND idempotency_key = ?", tenantID, key)
}

func (r *GormPaymentRepository) findOne(ctx context.Context, query string, args ...any) (*allocation.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Where(query, args...).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListByCustomer returns the customer's payments, newest first.
func (r *GormPaymentRepository) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*allocation.Payment, error) {
	var rows []models.PaymentModel
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("payment_date DESC").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]*allocation.Payment, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// SetReceiptKey records where the receipt document was archived.
func (r *GormPaymentRepository) SetReceiptKey(ctx context.Context, tenantID, id uuid.UUID, key string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"receipt_key": key,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return allocation.ErrPaymentNotFound
	}
	return nil
}

// Ensure GormPaymentRepository implements the interface
var _ allocation.PaymentRepository = (*GormPaymentRepository)(nil)
