package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
)

// Repository manages persistence for loyalty accounts, their
// transaction log and the tier catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*models.LoyaltyAccount, error)
	UpdateAccount(ctx context.Context, account *models.LoyaltyAccount) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error
	ListActiveTiers(ctx context.Context) ([]models.LoyaltyTier, error)
	FindTierByID(ctx context.Context, tierID uuid.UUID) (*models.LoyaltyTier, error)
	FindDueTransactions(ctx context.Context, cutoff time.Time, limit int) ([]models.LoyaltyTransaction, error)
	MarkTransactionExpired(ctx context.Context, txnID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loyalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// UpdateAccount writes the balance, lifetime and tier fields guarded by
// the optimistic version token. The in-memory version is bumped on
// success so the caller can chain further writes. A false return means
// another writer won.
func (r *repository) UpdateAccount(ctx context.Context, account *models.LoyaltyAccount) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]any{
			"points_balance":   account.PointsBalance,
			"lifetime_points":  account.LifetimePoints,
			"tier_id":          account.TierID,
			"tier_achieved_at": account.TierAchievedAt,
			"tier_expires_at":  account.TierExpiresAt,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	account.Version++
	return true, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListActiveTiers(ctx context.Context) ([]models.LoyaltyTier, error) {
	var tiers []models.LoyaltyTier
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("minimum_points ASC").
		Find(&tiers).Error
	return tiers, err
}

func (r *repository) FindTierByID(ctx context.Context, tierID uuid.UUID) (*models.LoyaltyTier, error) {
	var tier models.LoyaltyTier
	err := r.db.WithContext(ctx).
		Where("id = ?", tierID).
		First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

// FindDueTransactions returns positive, unexpired rows whose expiry has
// passed. The sweep processes them oldest first.
func (r *repository) FindDueTransactions(ctx context.Context, cutoff time.Time, limit int) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	query := r.db.WithContext(ctx).
		Where("is_expired = ? AND points > 0 AND expires_at < ?", false, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&txns).Error
	return txns, err
}

// MarkTransactionExpired flips the expired flag exactly once. A false
// return means another sweep already claimed the row.
func (r *repository) MarkTransactionExpired(ctx context.Context, txnID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("id = ? AND is_expired = ?", txnID, false).
		Update("is_expired", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
