package referrals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
)

// Repository manages persistence for referral codes and referrals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCode(ctx context.Context, code *models.ReferralCode) error
	FindCodeByUserID(ctx context.Context, userID uuid.UUID) (*models.ReferralCode, error)
	FindCodeByValue(ctx context.Context, code string) (*models.ReferralCode, error)
	FindCodeByID(ctx context.Context, codeID uuid.UUID) (*models.ReferralCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	IncrementCodeUsage(ctx context.Context, codeID uuid.UUID) (bool, error)
	CreateReferral(ctx context.Context, referral *models.Referral) error
	FindReferralByReferredUser(ctx context.Context, referredUserID uuid.UUID) (*models.Referral, error)
	AdvanceStatus(ctx context.Context, referralID uuid.UUID, version int64, status enums.ReferralStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCode(ctx context.Context, code *models.ReferralCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindCodeByUserID(ctx context.Context, userID uuid.UUID) (*models.ReferralCode, error) {
	var code models.ReferralCode
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

func (r *repository) FindCodeByValue(ctx context.Context, code string) (*models.ReferralCode, error) {
	var row models.ReferralCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindCodeByID(ctx context.Context, codeID uuid.UUID) (*models.ReferralCode, error) {
	var row models.ReferralCode
	err := r.db.WithContext(ctx).
		Where("id = ?", codeID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferralCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// IncrementCodeUsage bumps the usage counter, enforcing the usage cap
// in the same statement so concurrent applications cannot overshoot it.
// A false return means the cap was already reached.
func (r *repository) IncrementCodeUsage(ctx context.Context, codeID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReferralCode{}).
		Where("id = ? AND (max_usage = 0 OR usage_count < max_usage)", codeID).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repository) FindReferralByReferredUser(ctx context.Context, referredUserID uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	err := r.db.WithContext(ctx).
		Where("referred_user_id = ?", referredUserID).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// AdvanceStatus moves the referral forward guarded by the optimistic
// version token. Extra column writes ride along in updates. A false
// return means another writer won.
func (r *repository) AdvanceStatus(ctx context.Context, referralID uuid.UUID, version int64, status enums.ReferralStatus, updates map[string]any) (bool, error) {
	values := map[string]any{
		"status":  status,
		"version": gorm.Expr("version + 1"),
	}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ? AND version = ?", referralID, version).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
