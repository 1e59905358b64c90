package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type fakeRepository struct {
	orders     map[uuid.UUID]*models.Order
	categories map[uuid.UUID]uuid.UUID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		orders:     make(map[uuid.UUID]*models.Order),
		categories: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return f.orders[orderID], nil
}

func (f *fakeRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, order := range f.orders {
		if order.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) CategoryIDsForProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, productID := range productIDs {
		categoryID, ok := f.categories[productID]
		if !ok || seen[categoryID] {
			continue
		}
		seen[categoryID] = true
		ids = append(ids, categoryID)
	}
	return ids, nil
}

func TestGetOrderTotal(t *testing.T) {
	repo := newFakeRepository()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	orderID := uuid.New()
	repo.orders[orderID] = &models.Order{ID: orderID, UserID: uuid.New(), TotalAmount: decimal.NewFromInt(250)}

	total, err := svc.GetOrderTotal(ctx, orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected 250, got %s", total)
	}

	if _, err := svc.GetOrderTotal(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetOrderTotal(ctx, uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserHasPriorOrders(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo)
	ctx := context.Background()

	userID := uuid.New()
	has, err := svc.UserHasPriorOrders(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Fatalf("expected no prior orders")
	}

	orderID := uuid.New()
	repo.orders[orderID] = &models.Order{ID: orderID, UserID: userID, TotalAmount: decimal.NewFromInt(10)}

	has, err = svc.UserHasPriorOrders(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Fatalf("expected prior orders")
	}
}

func TestOrderBelongsTo(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo)
	ctx := context.Background()

	userID := uuid.New()
	orderID := uuid.New()
	repo.orders[orderID] = &models.Order{ID: orderID, UserID: userID, TotalAmount: decimal.NewFromInt(10)}

	owns, err := svc.OrderBelongsTo(ctx, orderID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !owns {
		t.Fatalf("expected order to belong to user")
	}

	owns, err = svc.OrderBelongsTo(ctx, orderID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owns {
		t.Fatalf("expected foreign order rejection")
	}

	// Unknown orders are simply not owned, not an error.
	owns, err = svc.OrderBelongsTo(ctx, uuid.New(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owns {
		t.Fatalf("expected unknown order to be unowned")
	}
}

func TestCategoryIDsForProductsDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo)
	ctx := context.Background()

	categoryID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()
	repo.categories[productA] = categoryID
	repo.categories[productB] = categoryID

	ids, err := svc.CategoryIDsForProducts(ctx, []uuid.UUID{productA, productB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != categoryID {
		t.Fatalf("expected single deduplicated category, got %v", ids)
	}
}
