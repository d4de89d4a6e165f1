package buyers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
)

// Repository exposes persistence operations for buyer profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a buyer repository bound to the provided DB.
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

// FindByID loads a buyer by its id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error) {
	var buyer models.Buyer
	if err := r.db.WithContext(ctx).First(&buyer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &buyer, nil
}

// FindByUserID loads the buyer profile owned by the given user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Buyer, error) {
	var buyer models.Buyer
	if err := r.db.WithContext(ctx).First(&buyer, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &buyer, nil
}

// Create inserts a buyer profile.
func (r *Repository) Create(ctx context.Context, buyer *models.Buyer) (*models.Buyer, error) {
	if err := r.db.WithContext(ctx).Create(buyer).Error; err != nil {
		return nil, err
	}
	return buyer, nil
}
