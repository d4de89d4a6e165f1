package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// Repository exposes persistence operations for payment transactions.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a transaction repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new transaction record.
func (r *Repository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if txn.Status == "" {
		txn.Status = enums.TransactionStatusPending
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// Save persists the provided transaction.
func (r *Repository) Save(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Save(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// FindByReference loads a transaction by its gateway reference.
func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindByReferenceForUpdate locks the transaction row for the surrounding
// transaction. Reconciliation paths for the same reference serialize here.
func (r *Repository) FindByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindPendingByCart returns the oldest unresolved transaction referencing the
// cart, if any.
func (r *Repository) FindPendingByCart(ctx context.Context, cartID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, enums.TransactionStatusPending).
		Order("created_at ASC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByOrder returns the transactions attached to an order.
func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
