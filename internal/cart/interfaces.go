package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindActiveByBuyerForUpdate(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindByIDAndBuyerForUpdate(ctx context.Context, cartID, buyerID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ListAllItems(ctx context.Context, limit, offset int) ([]models.CartItem, error)
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}
