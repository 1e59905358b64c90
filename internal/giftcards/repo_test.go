package giftcards

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
	"github.com/perkstack/rewards-backend/pkg/enums"
)

func setupGiftCardsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	giftCards := `
CREATE TABLE IF NOT EXISTS gift_cards (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  amount NUMERIC NOT NULL,
  remaining_amount NUMERIC NOT NULL,
  purchased_by_user_id TEXT NOT NULL,
  assigned_to_user_id TEXT,
  message TEXT,
  expires_at DATETIME NOT NULL,
  is_redeemed INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  version INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	giftCardTransactions := `
CREATE TABLE IF NOT EXISTS gift_card_transactions (
  id TEXT PRIMARY KEY,
  gift_card_id TEXT NOT NULL,
  order_id TEXT,
  amount NUMERIC NOT NULL,
  type TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);`
	for _, stmt := range []string{giftCards, giftCardTransactions} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM gift_card_transactions`)
		db.Exec(`DELETE FROM gift_cards`)
	})
	return db
}

func seedCard(t *testing.T, db *gorm.DB, remaining int64) *models.GiftCard {
	t.Helper()
	amount := decimal.NewFromInt(remaining)
	card := &models.GiftCard{
		ID:                uuid.New(),
		Code:              "GC-" + uuid.NewString()[:12],
		Amount:            amount,
		RemainingAmount:   amount,
		PurchasedByUserID: uuid.New(),
		ExpiresAt:         time.Now().Add(24 * time.Hour),
		IsActive:          true,
		Version:           1,
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

func TestRepositoryFindByCode(t *testing.T) {
	db := setupGiftCardsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	card := seedCard(t, db, 50)

	found, err := repo.FindByCode(ctx, card.Code)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, card.ID, found.ID)

	missing, err := repo.FindByCode(ctx, "GC-NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryFindByCodeSkipsSoftDeleted(t *testing.T) {
	db := setupGiftCardsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	card := seedCard(t, db, 50)
	now := time.Now()
	require.NoError(t, db.Model(card).Update("deleted_at", &now).Error)

	found, err := repo.FindByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.Nil(t, found, "soft-deleted cards must not resolve")

	// The code stays reserved so a new card can never reuse it.
	exists, err := repo.CodeExists(ctx, card.Code)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepositoryAssignVersionGuard(t *testing.T) {
	db := setupGiftCardsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	card := seedCard(t, db, 50)
	userID := uuid.New()

	ok, err := repo.Assign(ctx, card.ID, card.Version, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer holding the stale version loses.
	ok, err = repo.Assign(ctx, card.ID, card.Version, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := repo.FindByCode(ctx, card.Code)
	require.NoError(t, err)
	require.NotNil(t, fresh.AssignedToUserID)
	assert.Equal(t, userID, *fresh.AssignedToUserID)
	assert.Equal(t, int64(2), fresh.Version)
}

func TestRepositoryBalanceConservation(t *testing.T) {
	db := setupGiftCardsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	card := seedCard(t, db, 100)
	require.NoError(t, repo.CreateTransaction(ctx, &models.GiftCardTransaction{
		ID:         uuid.New(),
		GiftCardID: card.ID,
		Amount:     card.Amount,
		Type:       enums.GiftCardTransactionTypePurchase,
	}))

	debits := []int64{30, 25, 45}
	remaining := card.RemainingAmount
	version := card.Version
	for _, debit := range debits {
		amount := decimal.NewFromInt(debit)
		remaining = remaining.Sub(amount)

		ok, err := repo.UpdateBalance(ctx, card.ID, version, remaining, remaining.IsZero())
		require.NoError(t, err)
		require.True(t, ok)
		version++

		orderID := uuid.New()
		require.NoError(t, repo.CreateTransaction(ctx, &models.GiftCardTransaction{
			ID:         uuid.New(),
			GiftCardID: card.ID,
			OrderID:    &orderID,
			Amount:     amount,
			Type:       enums.GiftCardTransactionTypeRedeem,
		}))
	}

	fresh, err := repo.FindByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.True(t, fresh.RemainingAmount.IsZero())
	assert.True(t, fresh.IsRedeemed)

	// Face value equals remaining plus the sum of redemption rows.
	var txns []models.GiftCardTransaction
	require.NoError(t, db.Where("gift_card_id = ? AND type = ?", card.ID, enums.GiftCardTransactionTypeRedeem).Find(&txns).Error)
	redeemed := decimal.Zero
	for _, txn := range txns {
		redeemed = redeemed.Add(txn.Amount)
	}
	assert.True(t, card.Amount.Equal(fresh.RemainingAmount.Add(redeemed)),
		"face %s != remaining %s + redeemed %s", card.Amount, fresh.RemainingAmount, redeemed)
}
