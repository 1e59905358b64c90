package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoyaltyTier is a threshold band over lifetime points. An account's
// current tier is the active tier with the greatest MinimumPoints not
// exceeding its lifetime points.
type LoyaltyTier struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string          `gorm:"column:name;not null"`
	Level            int             `gorm:"column:level;uniqueIndex:ux_loyalty_tiers_level;not null"`
	MinimumPoints    int64           `gorm:"column:minimum_points;not null"`
	PointsMultiplier decimal.Decimal `gorm:"column:points_multiplier;type:numeric(5,2);not null;default:1"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
