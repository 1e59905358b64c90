package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  discount_amount NUMERIC,
  discount_percentage NUMERIC,
  min_purchase_amount NUMERIC,
  max_discount_amount NUMERIC,
  usage_limit INTEGER NOT NULL DEFAULT 0,
  used_count INTEGER NOT NULL DEFAULT 0,
  applicable_product_ids TEXT,
  applicable_category_ids TEXT,
  for_new_users_only INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  version INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	usages := `
CREATE TABLE IF NOT EXISTS coupon_usages (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  discount_applied NUMERIC NOT NULL,
  created_at DATETIME,
  UNIQUE (coupon_id, order_id)
);`
	for _, stmt := range []string{coupons, usages} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM coupon_usages`)
		db.Exec(`DELETE FROM coupons`)
	})
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB) *models.Coupon {
	t.Helper()
	pct := decimal.NewFromInt(10)
	now := time.Now()
	coupon := &models.Coupon{
		ID:                 uuid.New(),
		Code:               "SAVE10-" + uuid.NewString()[:8],
		DiscountPercentage: &pct,
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(time.Hour),
		IsActive:           true,
		Version:            1,
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestRepositoryFindByCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db)

	found, err := repo.FindByCode(ctx, coupon.Code)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, coupon.ID, found.ID)

	missing, err := repo.FindByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryFindByCodeSkipsSoftDeleted(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db)
	now := time.Now()
	require.NoError(t, db.Model(coupon).Update("deleted_at", &now).Error)

	found, err := repo.FindByCode(ctx, coupon.Code)
	require.NoError(t, err)
	assert.Nil(t, found, "soft-deleted coupons must not resolve")
}

func TestRepositoryIncrementUsageVersionGuard(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db)

	ok, err := repo.IncrementUsage(ctx, coupon.ID, coupon.Version)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer holding the stale version loses.
	ok, err = repo.IncrementUsage(ctx, coupon.ID, coupon.Version)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := repo.FindByCode(ctx, coupon.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.UsedCount)
	assert.Equal(t, int64(2), fresh.Version)
}

func TestRepositoryUsageUniquePerOrder(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db)
	orderID := uuid.New()
	userID := uuid.New()

	require.NoError(t, repo.CreateUsage(ctx, &models.CouponUsage{
		ID:              uuid.New(),
		CouponID:        coupon.ID,
		OrderID:         orderID,
		UserID:          userID,
		DiscountApplied: decimal.NewFromInt(5),
	}))

	exists, err := repo.UsageExists(ctx, coupon.ID, orderID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.CreateUsage(ctx, &models.CouponUsage{
		ID:              uuid.New(),
		CouponID:        coupon.ID,
		OrderID:         orderID,
		UserID:          userID,
		DiscountApplied: decimal.NewFromInt(5),
	})
	assert.Error(t, err, "a coupon can be recorded at most once per order")

	// The same coupon on a different order is fine.
	exists, err = repo.UsageExists(ctx, coupon.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}
