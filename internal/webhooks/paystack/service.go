package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
	"github.com/nairamart/nairamart-backend/pkg/metrics"
	"github.com/nairamart/nairamart-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransactionStore is the tx-scoped transaction surface reconciliation needs.
type TransactionStore interface {
	FindByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error)
	Save(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
}

// OrderStore is the tx-scoped order surface reconciliation needs.
type OrderStore interface {
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

// CartStore is the tx-scoped cart surface reconciliation needs.
type CartStore interface {
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
}

type verifier interface {
	Verify(ctx context.Context, reference string) (*paystack.TransactionData, error)
}

// Factories binding stores to a DB transaction.
type (
	TransactionStoreFor func(tx *gorm.DB) TransactionStore
	OrderStoreFor       func(tx *gorm.DB) OrderStore
	CartStoreFor        func(tx *gorm.DB) CartStore
)

// Service reconciles gateway payment outcomes into local state. Both the
// webhook path and the verify-polling path funnel into the same guarded
// transition.
type Service struct {
	txnsFor   TransactionStoreFor
	ordersFor OrderStoreFor
	cartsFor  CartStoreFor
	gateway   verifier
	tx        txRunner
	logger    *logger.Logger
	metrics   *metrics.PaymentMetrics
}

// ServiceParams collects the reconciliation dependencies.
type ServiceParams struct {
	Transactions      TransactionStoreFor
	Orders            OrderStoreFor
	Carts             CartStoreFor
	Gateway           verifier
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
}

// NewService builds the reconciliation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction store required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway verifier required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		txnsFor:   params.Transactions,
		ordersFor: params.Orders,
		cartsFor:  params.Carts,
		gateway:   params.Gateway,
		tx:        params.TransactionRunner,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// HandleEvent processes a verified webhook delivery. Only charge.success
// drives a transition; every other event type is accepted and ignored.
func (s *Service) HandleEvent(ctx context.Context, event *paystack.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	if event.Event != paystack.EventChargeSuccess {
		s.metrics.IncWebhook("ignored")
		return nil
	}
	if event.Data.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event reference is required")
	}

	err := s.reconcile(ctx, event.Data, enums.TransactionStatusSuccess)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			// The transaction already settled in another terminal
			// state. Retrying the delivery can never succeed, so
			// acknowledge it instead of making the gateway retry.
			ctx = s.logger.WithReference(ctx, event.Data.Reference)
			s.logger.Warn(ctx, "webhook for settled transaction ignored")
			s.metrics.IncWebhook("rejected")
			return nil
		}
		s.metrics.IncWebhook("error")
		return err
	}
	s.metrics.IncWebhook("reconciled")
	return nil
}

// VerifyAndReconcile polls the gateway for the reference and applies the same
// transition rules as the webhook path. Used when the webhook has not
// arrived yet.
func (s *Service) VerifyAndReconcile(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	data, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	target, terminal := targetStatus(data.Status)
	if terminal {
		if err := s.reconcile(ctx, *data, target); err != nil {
			return nil, err
		}
	}

	var txn *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.txnsFor(tx).FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
		}
		txn = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// reconcile applies one guarded status transition atomically. A replay is a
// safe no-op; a transition out of a terminal status is rejected.
func (s *Service) reconcile(ctx context.Context, data paystack.TransactionData, target enums.TransactionStatus) error {
	ctx = s.logger.WithReference(ctx, data.Reference)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txns := s.txnsFor(tx)

		txn, err := txns.FindByReferenceForUpdate(ctx, data.Reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A reference we never issued. Acknowledge without
				// fabricating state so the gateway stops retrying.
				s.logger.Warn(ctx, "webhook for unknown reference ignored")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
		}

		switch classify(txn.Status, target) {
		case transitionReplay:
			s.logger.Info(ctx, "transition replayed, no-op")
			return nil
		case transitionReject:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move transaction from %s to %s", txn.Status, target))
		}

		applyGatewayData(txn, data, target)
		if _, err := txns.Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving transaction")
		}

		if target == enums.TransactionStatusSuccess {
			orders := s.ordersFor(tx)
			order, err := orders.FindByPaymentReference(ctx, txn.Reference)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeInternal, "no order carries this payment reference")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
			}
			if err := orders.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
			}

			// The cart has served its purpose. Deleting an already
			// deleted cart is a no-op, which keeps replays safe.
			if err := s.cartsFor(tx).DeleteCart(ctx, txn.CartID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart")
			}
		} else if err := s.reopenCart(ctx, tx, txn); err != nil {
			return err
		}

		s.metrics.IncReconciled(target.String())
		s.logger.Info(ctx, "transaction reconciled")
		return nil
	})
}

// reopenCart hands a checked-out cart back after a failed or abandoned
// payment. Skipped when the buyer already started another active cart, which
// would collide with the one-active-cart index.
func (s *Service) reopenCart(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	carts := s.cartsFor(tx)
	if _, err := carts.FindActiveByBuyer(ctx, txn.BuyerID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking active cart")
	}
	if err := carts.UpdateStatus(ctx, txn.CartID, enums.CartStatusActive); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopening cart")
	}
	return nil
}

func applyGatewayData(txn *models.Transaction, data paystack.TransactionData, target enums.TransactionStatus) {
	txn.Status = target
	if data.GatewayResponse != "" {
		txn.GatewayResponse = &data.GatewayResponse
	}
	if data.Channel != "" {
		txn.Channel = &data.Channel
	}
	if data.Authorization.CardType != "" {
		txn.CardType = &data.Authorization.CardType
	}
	if data.Authorization.Bank != "" {
		txn.Bank = &data.Authorization.Bank
	}
	if data.PaidAt != nil {
		paidAt := data.PaidAt.UTC()
		txn.PaidAt = &paidAt
	} else if target == enums.TransactionStatusSuccess {
		now := time.Now().UTC()
		txn.PaidAt = &now
	}
}

// targetStatus maps a gateway-reported status onto the local lifecycle.
// Non-terminal gateway statuses leave the transaction pending.
func targetStatus(gatewayStatus string) (enums.TransactionStatus, bool) {
	switch gatewayStatus {
	case paystack.StatusSuccess:
		return enums.TransactionStatusSuccess, true
	case paystack.StatusFailed:
		return enums.TransactionStatusFailed, true
	case paystack.StatusAbandoned:
		return enums.TransactionStatusAbandoned, true
	default:
		return enums.TransactionStatusPending, false
	}
}
