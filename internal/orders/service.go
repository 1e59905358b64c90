package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Service is the checkout collaborator surface the promotion and reward
// ledgers depend on.
type Service interface {
	GetOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	UserHasPriorOrders(ctx context.Context, userID uuid.UUID) (bool, error)
	OrderBelongsTo(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	CategoryIDsForProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
}

// NewService wires the orders collaborator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	if orderID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order.TotalAmount, nil
}

func (s *service) UserHasPriorOrders(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count user orders")
	}
	return count > 0, nil
}

func (s *service) OrderBelongsTo(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil || userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id and user id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return false, nil
	}
	return order.UserID == userID, nil
}

func (s *service) CategoryIDsForProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.CategoryIDsForProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product categories")
	}
	return ids, nil
}
