package giftcards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/db/models"
)

// Repository manages persistence for gift cards and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, card *models.GiftCard) error
	FindByCode(ctx context.Context, code string) (*models.GiftCard, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.GiftCardTransaction) error
	Assign(ctx context.Context, cardID uuid.UUID, version int64, userID uuid.UUID) (bool, error)
	UpdateBalance(ctx context.Context, cardID uuid.UUID, version int64, remaining decimal.Decimal, redeemed bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gift card repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, card *models.GiftCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := r.db.WithContext(ctx).
		Scopes(dbpkg.NotDeleted).
		Where("code = ?", code).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// CodeExists checks all rows, including soft-deleted ones, so a retired
// card can never collide with a fresh code.
func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.GiftCardTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// Assign attaches the card to a user guarded by the optimistic version
// token. A false return means another writer won.
func (r *repository) Assign(ctx context.Context, cardID uuid.UUID, version int64, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND version = ?", cardID, version).
		Updates(map[string]any{
			"assigned_to_user_id": userID,
			"version":             gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateBalance writes the new remaining balance guarded by the
// optimistic version token.
func (r *repository) UpdateBalance(ctx context.Context, cardID uuid.UUID, version int64, remaining decimal.Decimal, redeemed bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND version = ?", cardID, version).
		Updates(map[string]any{
			"remaining_amount": remaining,
			"is_redeemed":      redeemed,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
