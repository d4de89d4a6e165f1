package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db"
	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type buyerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart mutation and read operations. Every mutation runs in a
// single transaction serialized on the buyer's cart row.
type Service interface {
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, buyerID, cartItemID uuid.UUID, action enums.QuantityAction) (*models.Cart, error)
	RemoveItem(ctx context.Context, buyerID, cartItemID uuid.UUID) (*models.Cart, error)
	GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	ListAllItems(ctx context.Context, limit, offset int) ([]models.CartItem, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	buyers   buyerLoader
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, buyers buyerLoader, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if buyers == nil {
		return nil, fmt.Errorf("buyer loader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, buyers: buyers, products: products}, nil
}

// AddItemInput captures the payload for adding one unit of a product.
type AddItemInput struct {
	ProductID uuid.UUID
	// PriceAtTime is the unit price the client saw. It must match the
	// catalog's current price or the add is rejected.
	PriceAtTime decimal.Decimal
}

// AddItem adds one unit of the product to the buyer's active cart, creating
// the cart if none exists yet.
func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if err := s.resolveBuyer(ctx, buyerID); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.lockOrCreateCart(ctx, repo, buyerID)
		if err != nil {
			return err
		}

		// Price and stock are read after the cart lock is held so the
		// snapshot and the checks belong to this transaction.
		product, err := s.resolveProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.Stock <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is out of stock")
		}
		if !input.PriceAtTime.Equal(product.Price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "product price has changed").
				WithDetails(map[string]any{"current_price": product.Price.String()})
		}

		item, err := repo.FindItem(ctx, cart.ID, product.ID)
		switch {
		case err == nil:
			newQty := item.Quantity + 1
			if newQty > product.Stock {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for requested quantity").
					WithDetails(map[string]any{"available": product.Stock})
			}
			item.Quantity = newQty
			item.Total = item.PriceAtTime.Mul(decimal.NewFromInt(int64(newQty)))
			if _, err := repo.SaveItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &models.CartItem{
				CartID:      cart.ID,
				ProductID:   product.ID,
				Quantity:    1,
				PriceAtTime: product.Price,
				Total:       product.Price,
			}
			if _, err := repo.SaveItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
		}

		result, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateQuantity steps a cart line's quantity up or down by one.
func (s *service) UpdateQuantity(ctx context.Context, buyerID, cartItemID uuid.UUID, action enums.QuantityAction) (*models.Cart, error) {
	if buyerID == uuid.Nil || cartItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and cart item id are required")
	}
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be increase or decrease")
	}

	if err := s.resolveBuyer(ctx, buyerID); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.lockActiveCart(ctx, repo, buyerID)
		if err != nil {
			return err
		}

		item, err := s.itemInCart(cart, cartItemID)
		if err != nil {
			return err
		}

		switch action {
		case enums.QuantityActionIncrease:
			product, err := s.resolveProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			newQty := item.Quantity + 1
			if newQty > product.Stock {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for requested quantity").
					WithDetails(map[string]any{"available": product.Stock})
			}
			item.Quantity = newQty
		case enums.QuantityActionDecrease:
			if item.Quantity <= 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot drop below 1, remove the item instead")
			}
			item.Quantity--
		}

		item.Total = item.PriceAtTime.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if _, err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}

		result, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveItem deletes a cart line. An emptied cart persists with a zero total.
func (s *service) RemoveItem(ctx context.Context, buyerID, cartItemID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil || cartItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and cart item id are required")
	}

	if err := s.resolveBuyer(ctx, buyerID); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.lockActiveCart(ctx, repo, buyerID)
		if err != nil {
			return err
		}

		item, err := s.itemInCart(cart, cartItemID)
		if err != nil {
			return err
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
		}

		result, err = s.recomputeTotal(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetActiveCart returns the buyer's active cart with its items.
func (s *service) GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	cart, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

// ListAllItems returns cart lines across all buyers for back-office review.
func (s *service) ListAllItems(ctx context.Context, limit, offset int) ([]models.CartItem, error) {
	items, err := s.repo.ListAllItems(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart items")
	}
	return items, nil
}

func (s *service) resolveBuyer(ctx context.Context, buyerID uuid.UUID) error {
	if _, err := s.buyers.FindByID(ctx, buyerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
	}
	return nil
}

func (s *service) resolveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

// lockOrCreateCart returns the buyer's active cart locked for update,
// creating it when absent. A create racing another first-add lands on the
// partial unique index and falls back to locking the winner's row.
func (s *service) lockOrCreateCart(ctx context.Context, repo CartRepository, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindActiveByBuyerForUpdate(ctx, buyerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart")
	}

	cart = &models.Cart{
		BuyerID:     buyerID,
		Status:      enums.CartStatusActive,
		TotalAmount: decimal.Zero,
	}
	if _, err := repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "idx_carts_active_buyer") {
			cart, err = repo.FindActiveByBuyerForUpdate(ctx, buyerID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart after create race")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return cart, nil
}

func (s *service) lockActiveCart(ctx context.Context, repo CartRepository, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindActiveByBuyerForUpdate(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart")
	}
	return cart, nil
}

func (s *service) itemInCart(cart *models.Cart, cartItemID uuid.UUID) (*models.CartItem, error) {
	for i := range cart.Items {
		if cart.Items[i].ID == cartItemID {
			return &cart.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

// recomputeTotal rebuilds the cart total from its lines. Full recomputation
// keeps the total self-healing against drift.
func (s *service) recomputeTotal(ctx context.Context, repo CartRepository, cart *models.Cart) (*models.Cart, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart items")
	}

	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Total)
	}

	cart.TotalAmount = total
	cart.Items = items
	if _, err := repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart total")
	}
	return cart, nil
}
