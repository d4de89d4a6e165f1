package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
)

type orderRepo interface {
	FindByIDAndBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error)
	List(ctx context.Context, limit, offset int) ([]models.Order, error)
}

// Service exposes order reads for buyers and admins. Order creation happens
// in the checkout orchestrator, never here.
type Service interface {
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error)
	AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AdminListOrders(ctx context.Context, limit, offset int) ([]models.Order, error)
}

type service struct {
	repo orderRepo
}

// NewService builds an order read service.
func NewService(repo orderRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and order id are required")
	}
	order, err := s.repo.FindByIDAndBuyer(ctx, orderID, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, nil
}

func (s *service) AdminGetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) AdminListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, nil
}
