package payments

import (
	"context"
	"encoding/json"
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

type gateway interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
}

// TransactionStore is the tx-scoped persistence surface for transactions.
type TransactionStore interface {
	Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	Save(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
}

// OrderWriter is the tx-scoped surface for stamping the gateway reference.
type OrderWriter interface {
	SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error
}

// TransactionStoreFor and OrderWriterFor bind stores to a DB transaction.
type (
	TransactionStoreFor func(tx *gorm.DB) TransactionStore
	OrderWriterFor      func(tx *gorm.DB) OrderWriter
)

// InitiateRequest carries the order snapshot a payment is started for.
type InitiateRequest struct {
	Order   *models.Order
	BuyerID uuid.UUID
	CartID  uuid.UUID
	Email   string
}

// InitiateResult is what the buyer needs to complete a hosted payment.
type InitiateResult struct {
	Reference        string
	AccessCode       string
	AuthorizationURL string
	Transaction      *models.Transaction
}

// Service starts gateway payments for orders. Prepare runs inside the
// caller's DB transaction; Initiate performs the gateway round-trip after the
// transaction has committed.
type Service interface {
	Prepare(ctx context.Context, tx *gorm.DB, req InitiateRequest) (*models.Transaction, error)
	Initiate(ctx context.Context, txn *models.Transaction) (*InitiateResult, error)
}

type service struct {
	txnsFor   TransactionStoreFor
	ordersFor OrderWriterFor
	gateway   gateway
	tx        txRunner
	logger    *logger.Logger
	metrics   *metrics.PaymentMetrics
	timeout   time.Duration
}

// NewService builds a payment service backed by the provided stack.
func NewService(
	txnsFor TransactionStoreFor,
	ordersFor OrderWriterFor,
	gw gateway,
	tx txRunner,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
	gatewayTimeout time.Duration,
) (Service, error) {
	if txnsFor == nil {
		return nil, fmt.Errorf("transaction store required")
	}
	if ordersFor == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 15 * time.Second
	}
	return &service{
		txnsFor:   txnsFor,
		ordersFor: ordersFor,
		gateway:   gw,
		tx:        tx,
		logger:    logg,
		metrics:   paymentMetrics,
		timeout:   gatewayTimeout,
	}, nil
}

// Prepare reserves a gateway reference and records the pending transaction
// inside the caller's DB transaction, before any network I/O happens. The
// pending row is what blocks a second checkout for the same cart, so it must
// be visible the moment the caller's transaction commits.
func (s *service) Prepare(ctx context.Context, tx *gorm.DB, req InitiateRequest) (*models.Transaction, error) {
	if req.Order == nil || req.Order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if req.BuyerID == uuid.Nil || req.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and cart id are required")
	}
	if req.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer email is required")
	}
	if !req.Order.TotalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	reference := paystack.NewReference()

	metadata, err := json.Marshal(map[string]string{
		"order_id": req.Order.ID.String(),
		"buyer_id": req.BuyerID.String(),
		"cart_id":  req.CartID.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding transaction metadata")
	}

	txn := &models.Transaction{
		Reference: reference,
		OrderID:   req.Order.ID,
		BuyerID:   req.BuyerID,
		CartID:    req.CartID,
		Email:     req.Email,
		Amount:    req.Order.TotalAmount,
		Status:    enums.TransactionStatusPending,
		Metadata:  metadata,
	}
	if _, err := s.txnsFor(tx).Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording transaction")
	}
	if err := s.ordersFor(tx).SetPaymentReference(ctx, req.Order.ID, reference); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "setting payment reference")
	}
	return txn, nil
}

// Initiate opens a hosted checkout at the gateway for a prepared transaction.
// It runs after the preparing transaction committed so row locks never wait
// on network I/O. A gateway failure marks the transaction failed, releasing
// the cart's pending-payment guard.
func (s *service) Initiate(ctx context.Context, txn *models.Transaction) (*InitiateResult, error) {
	if txn == nil || txn.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prepared transaction is required")
	}
	ctx = s.logger.WithReference(ctx, txn.Reference)

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	init, err := s.gateway.Initialize(gwCtx, paystack.InitializeParams{
		Email:     txn.Email,
		Amount:    txn.Amount,
		Reference: txn.Reference,
		Metadata: map[string]any{
			"order_id": txn.OrderID.String(),
			"buyer_id": txn.BuyerID.String(),
			"cart_id":  txn.CartID.String(),
		},
	})
	s.metrics.ObserveGatewayDuration("initialize", time.Since(started))
	if err != nil {
		s.logger.Error(ctx, "payment initialization failed", err)
		s.markFailed(ctx, txn)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initializing payment")
	}

	txn.AccessCode = &init.AccessCode
	txn.AuthorizationURL = &init.AuthorizationURL
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.txnsFor(tx).Save(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "payment initiated")
	return &InitiateResult{
		Reference:        txn.Reference,
		AccessCode:       init.AccessCode,
		AuthorizationURL: init.AuthorizationURL,
		Transaction:      txn,
	}, nil
}

// markFailed resolves a prepared transaction that never reached the gateway.
// Leaving it pending would lock the cart out of checkout indefinitely.
func (s *service) markFailed(ctx context.Context, txn *models.Transaction) {
	txn.Status = enums.TransactionStatusFailed
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.txnsFor(tx).Save(ctx, txn)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "failed to resolve transaction after gateway failure", err)
	}
}
