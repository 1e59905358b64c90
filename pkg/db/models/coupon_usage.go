package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponUsage records a coupon being consumed by a completed order.
// The (coupon_id, order_id) pair is unique so usage can be recorded at
// most once per order.
type CouponUsage struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID        uuid.UUID       `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_order"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_order"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	DiscountApplied decimal.Decimal `gorm:"column:discount_applied;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
