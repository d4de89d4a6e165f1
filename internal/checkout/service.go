package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/internal/payments"
	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
	"github.com/nairamart/nairamart-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type buyerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error)
}

// CartStore is the tx-scoped cart surface checkout needs.
type CartStore interface {
	FindByIDAndBuyerForUpdate(ctx context.Context, cartID, buyerID uuid.UUID) (*models.Cart, error)
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
}

// OrderStore is the tx-scoped order surface checkout needs.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PendingChecker reports unresolved transactions for a cart.
type PendingChecker interface {
	FindPendingByCart(ctx context.Context, cartID uuid.UUID) (*models.Transaction, error)
}

type paymentInitiator interface {
	Prepare(ctx context.Context, tx *gorm.DB, req payments.InitiateRequest) (*models.Transaction, error)
	Initiate(ctx context.Context, txn *models.Transaction) (*payments.InitiateResult, error)
}

// Factories binding stores to a DB transaction.
type (
	CartStoreFor      func(tx *gorm.DB) CartStore
	OrderStoreFor     func(tx *gorm.DB) OrderStore
	PendingCheckerFor func(tx *gorm.DB) PendingChecker
)

// Result is returned to the buyer to complete payment.
type Result struct {
	OrderID          uuid.UUID
	Reference        string
	AuthorizationURL string
}

// Service orchestrates cart-to-order conversion and payment initiation.
type Service interface {
	Checkout(ctx context.Context, buyerID, cartID uuid.UUID) (*Result, error)
}

type service struct {
	cartsFor   CartStoreFor
	ordersFor  OrderStoreFor
	pendingFor PendingCheckerFor
	payments   paymentInitiator
	buyers     buyerLoader
	tx         txRunner
	logger     *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// NewService builds the checkout orchestrator.
func NewService(
	cartsFor CartStoreFor,
	ordersFor OrderStoreFor,
	pendingFor PendingCheckerFor,
	pay paymentInitiator,
	buyers buyerLoader,
	tx txRunner,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if cartsFor == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if ordersFor == nil {
		return nil, fmt.Errorf("order store required")
	}
	if pendingFor == nil {
		return nil, fmt.Errorf("pending checker required")
	}
	if pay == nil {
		return nil, fmt.Errorf("payment initiator required")
	}
	if buyers == nil {
		return nil, fmt.Errorf("buyer loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartsFor:   cartsFor,
		ordersFor:  ordersFor,
		pendingFor: pendingFor,
		payments:   pay,
		buyers:     buyers,
		tx:         tx,
		logger:     logg,
		metrics:    paymentMetrics,
	}, nil
}

// Checkout snapshots the cart into an immutable order and records the
// pending transaction, then starts a hosted payment. The order, its lines,
// and the pending transaction commit before the gateway call so no row locks
// are held across network I/O and no second checkout can slip in during the
// gateway window; a failed gateway call deletes the order again and reopens
// the cart for a retry.
func (s *service) Checkout(ctx context.Context, buyerID, cartID uuid.UUID) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	buyer, err := s.buyers.FindByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncCheckout("rejected")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
	}

	var (
		order *models.Order
		txn   *models.Transaction
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.cartsFor(tx)
		cart, err := carts.FindByIDAndBuyerForUpdate(ctx, cartID, buyerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart does not belong to this buyer")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already checked out")
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		// One unresolved payment per cart. A buyer who abandoned the
		// hosted page must wait out or verify the pending reference.
		if _, err := s.pendingFor(tx).FindPendingByCart(ctx, cart.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a payment is already pending for this cart")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking pending payments")
		}

		orders := s.ordersFor(tx)
		order = &models.Order{
			BuyerID:     buyerID,
			Status:      enums.OrderStatusPending,
			TotalAmount: cart.TotalAmount,
		}
		if _, err := orders.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.PriceAtTime,
				Subtotal:  line.Total,
			})
		}
		if err := orders.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}
		order.Items = items

		// The pending transaction commits with the order, so any
		// checkout racing the upcoming gateway call hits the guard
		// above instead of snapshotting a second order.
		txn, err = s.payments.Prepare(ctx, tx, payments.InitiateRequest{
			Order:   order,
			BuyerID: buyerID,
			CartID:  cartID,
			Email:   buyer.Email,
		})
		if err != nil {
			return err
		}

		if err := carts.UpdateStatus(ctx, cart.ID, enums.CartStatusCheckedOut); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "closing cart")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout("rejected")
		return nil, err
	}

	init, err := s.payments.Initiate(ctx, txn)
	if err != nil {
		s.compensate(ctx, order.ID, cartID, buyerID)
		s.metrics.IncCheckout("failed")
		return nil, err
	}

	s.metrics.IncCheckout("success")
	ctx = s.logger.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"reference": init.Reference,
	})
	s.logger.Info(ctx, "checkout completed")

	return &Result{
		OrderID:          order.ID,
		Reference:        init.Reference,
		AuthorizationURL: init.AuthorizationURL,
	}, nil
}

// compensate removes the order rows created before a failed gateway call and
// hands the cart back, so no half-created orders are observable and the buyer
// can retry. The reopen is skipped when the buyer already started another
// active cart, which would collide with the one-active-cart index.
func (s *service) compensate(ctx context.Context, orderID, cartID, buyerID uuid.UUID) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ordersFor(tx).Delete(ctx, orderID); err != nil {
			return err
		}
		carts := s.cartsFor(tx)
		if _, err := carts.FindActiveByBuyer(ctx, buyerID); err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return carts.UpdateStatus(ctx, cartID, enums.CartStatusActive)
	})
	if err != nil {
		ctx = s.logger.WithField(ctx, "order_id", orderID.String())
		s.logger.Error(ctx, "failed to roll back order after gateway failure", err)
	}
}
