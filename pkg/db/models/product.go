package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal catalog projection the coupon engine needs to
// resolve product-to-category membership for restricted coupons.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
