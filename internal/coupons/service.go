package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderHistory is the slice of the checkout collaborator the coupon
// engine needs: prior-order lookups and product/category membership.
type orderHistory interface {
	UserHasPriorOrders(ctx context.Context, userID uuid.UUID) (bool, error)
	CategoryIDsForProducts(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Service validates coupons and prices discounts. Pricing is read-only;
// usage counters move only when a completed order records its usage.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	ValidateAndPrice(ctx context.Context, input PriceRequest) (decimal.Decimal, error)
	RecordUsage(ctx context.Context, code string, userID, orderID uuid.UUID, discountApplied decimal.Decimal) error
}

// PriceRequest carries the order context a discount is computed against.
type PriceRequest struct {
	Code        string
	OrderAmount decimal.Decimal
	UserID      *uuid.UUID
	ProductIDs  []uuid.UUID
}

// CreateCouponInput is the administrative creation payload.
type CreateCouponInput struct {
	Code                  string     `validate:"required,min=3,max=64"`
	Description           *string    `validate:"omitempty,max=500"`
	DiscountAmount        *float64   `validate:"omitempty,gt=0"`
	DiscountPercentage    *float64   `validate:"omitempty,gt=0,lte=100"`
	MinPurchaseAmount     *float64   `validate:"omitempty,gte=0"`
	MaxDiscountAmount     *float64   `validate:"omitempty,gt=0"`
	UsageLimit            int        `validate:"gte=0"`
	ApplicableProductIDs  []uuid.UUID
	ApplicableCategoryIDs []uuid.UUID
	ForNewUsersOnly       bool
	StartsAt              time.Time `validate:"required"`
	EndsAt                time.Time `validate:"required"`
}

type service struct {
	tx       txRunner
	repo     Repository
	orders   orderHistory
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the coupon engine.
func NewService(tx txRunner, repo Repository, orders orderHistory) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders collaborator required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		orders:   orders,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon input")
	}
	if (input.DiscountAmount == nil) == (input.DiscountPercentage == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of discount amount and discount percentage must be set")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}

	coupon := &models.Coupon{
		Code:                  normalizeCode(input.Code),
		Description:           input.Description,
		DiscountAmount:        decimalPtr(input.DiscountAmount),
		DiscountPercentage:    decimalPtr(input.DiscountPercentage),
		MinPurchaseAmount:     decimalPtr(input.MinPurchaseAmount),
		MaxDiscountAmount:     decimalPtr(input.MaxDiscountAmount),
		UsageLimit:            input.UsageLimit,
		ApplicableProductIDs:  input.ApplicableProductIDs,
		ApplicableCategoryIDs: input.ApplicableCategoryIDs,
		ForNewUsersOnly:       input.ForNewUsersOnly,
		StartsAt:              input.StartsAt,
		EndsAt:                input.EndsAt,
		IsActive:              true,
		Version:               1,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_coupons_code") {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "coupon code already exists").
				WithDetails(map[string]any{"rule": "duplicate_code"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

// ValidateAndPrice checks the coupon against the order context and
// returns the discount it would grant. It never mutates state.
func (s *service) ValidateAndPrice(ctx context.Context, input PriceRequest) (decimal.Decimal, error) {
	code := normalizeCode(input.Code)
	if code == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if !input.OrderAmount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}

	if err := s.checkEligibility(ctx, coupon, input); err != nil {
		return decimal.Zero, err
	}

	return priceDiscount(coupon, input.OrderAmount), nil
}

func (s *service) checkEligibility(ctx context.Context, coupon *models.Coupon, input PriceRequest) error {
	now := s.now()

	if !coupon.IsActive {
		return ruleViolation("inactive", "coupon is not active")
	}
	if now.Before(coupon.StartsAt) || now.After(coupon.EndsAt) {
		return ruleViolation("outside_validity_window", "coupon is not currently valid")
	}
	if coupon.MinPurchaseAmount != nil && input.OrderAmount.LessThan(*coupon.MinPurchaseAmount) {
		return ruleViolation("min_purchase_not_met", fmt.Sprintf("order must be at least %s", coupon.MinPurchaseAmount.StringFixed(2)))
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return ruleViolation("usage_limit_reached", "coupon usage limit reached")
	}
	if coupon.ForNewUsersOnly && input.UserID != nil {
		hasOrders, err := s.orders.UserHasPriorOrders(ctx, *input.UserID)
		if err != nil {
			return err
		}
		if hasOrders {
			return ruleViolation("new_users_only", "coupon is limited to first orders")
		}
	}
	if len(input.ProductIDs) > 0 && coupon.HasProductRestrictions() {
		ok, err := s.matchesRestrictions(ctx, coupon, input.ProductIDs)
		if err != nil {
			return err
		}
		if !ok {
			return ruleViolation("products_not_eligible", "coupon does not apply to these products")
		}
	}
	return nil
}

func (s *service) matchesRestrictions(ctx context.Context, coupon *models.Coupon, productIDs []uuid.UUID) (bool, error) {
	if intersects(coupon.ApplicableProductIDs, productIDs) {
		return true, nil
	}
	if len(coupon.ApplicableCategoryIDs) == 0 {
		return false, nil
	}
	categoryIDs, err := s.orders.CategoryIDsForProducts(ctx, productIDs)
	if err != nil {
		return false, err
	}
	return intersects(coupon.ApplicableCategoryIDs, categoryIDs), nil
}

// RecordUsage consumes the coupon for a completed order. Calling it a
// second time with the same order is a no-op.
func (s *service) RecordUsage(ctx context.Context, code string, userID, orderID uuid.UUID, discountApplied decimal.Decimal) error {
	normalized := normalizeCode(code)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if userID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}
	if discountApplied.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount applied cannot be negative")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		coupon, err := repo.FindByCode(ctx, normalized)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}
		if coupon == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}

		exists, err := repo.UsageExists(ctx, coupon.ID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon usage")
		}
		if exists {
			return nil
		}
		if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
			return ruleViolation("usage_limit_reached", "coupon usage limit reached")
		}

		usage := &models.CouponUsage{
			CouponID:        coupon.ID,
			OrderID:         orderID,
			UserID:          userID,
			DiscountApplied: discountApplied,
		}
		if err := repo.CreateUsage(ctx, usage); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_coupon_usages_coupon_order") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon usage")
		}

		updated, err := repo.IncrementUsage(ctx, coupon.ID, coupon.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "coupon was updated concurrently")
		}
		return nil
	})
}

func priceDiscount(coupon *models.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	if coupon.IsPercentage() {
		discount = orderAmount.Mul(*coupon.DiscountPercentage).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
	} else if coupon.DiscountAmount != nil {
		discount = *coupon.DiscountAmount
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	return discount
}

func ruleViolation(rule, message string) error {
	return pkgerrors.New(pkgerrors.CodeBusinessRule, message).
		WithDetails(map[string]any{"rule": rule})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func intersects(a, b []uuid.UUID) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
