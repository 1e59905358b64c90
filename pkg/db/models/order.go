package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the checkout collaborator's projection consumed by the
// ledgers: totals, ownership and first-order lookups. The full order
// lifecycle lives outside this service.
type Order struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PlacedAt    time.Time       `gorm:"column:placed_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
