package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// Referral links a referred user to a referrer. At most one referral
// exists per referred user and status only moves forward:
// pending -> completed -> rewarded.
type Referral struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferrerID     uuid.UUID            `gorm:"column:referrer_id;type:uuid;not null;index"`
	ReferredUserID uuid.UUID            `gorm:"column:referred_user_id;type:uuid;uniqueIndex:ux_referrals_referred_user;not null"`
	ReferralCodeID uuid.UUID            `gorm:"column:referral_code_id;type:uuid;not null"`
	Status         enums.ReferralStatus `gorm:"column:status;type:referral_status;not null;default:'pending'"`
	PointsAwarded  int64                `gorm:"column:points_awarded;not null;default:0"`
	FirstOrderID   *uuid.UUID           `gorm:"column:first_order_id;type:uuid"`
	Version        int64                `gorm:"column:version;not null;default:1"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
