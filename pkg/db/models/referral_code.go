package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralCode is the per-user shareable token that links a referrer to
// the users who sign up with it.
type ReferralCode struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID       `gorm:"column:user_id;type:uuid;uniqueIndex:ux_referral_codes_user;not null"`
	Code               string          `gorm:"column:code;uniqueIndex:ux_referral_codes_code;not null"`
	UsageCount         int             `gorm:"column:usage_count;not null;default:0"`
	MaxUsage           int             `gorm:"column:max_usage;not null;default:0"`
	PointsReward       int64           `gorm:"column:points_reward;not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
