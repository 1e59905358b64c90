package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount is the per-user points balance projection. The balance
// always equals the sum of non-expired transaction points for the account.
type LoyaltyAccount struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;uniqueIndex:ux_loyalty_accounts_user;not null"`
	PointsBalance  int64      `gorm:"column:points_balance;not null;default:0"`
	LifetimePoints int64      `gorm:"column:lifetime_points;not null;default:0"`
	TierID         *uuid.UUID `gorm:"column:tier_id;type:uuid"`
	TierAchievedAt *time.Time `gorm:"column:tier_achieved_at"`
	TierExpiresAt  *time.Time `gorm:"column:tier_expires_at"`
	Version        int64      `gorm:"column:version;not null;default:1"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
