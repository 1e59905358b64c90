package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon represents a discount code applied against an order total.
// Exactly one of DiscountAmount and DiscountPercentage is set. Codes are
// stored upper-cased so lookups stay case-insensitive.
type Coupon struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                  string           `gorm:"column:code;uniqueIndex:ux_coupons_code;not null"`
	Description           *string          `gorm:"column:description"`
	DiscountAmount        *decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2)"`
	DiscountPercentage    *decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2)"`
	MinPurchaseAmount     *decimal.Decimal `gorm:"column:min_purchase_amount;type:numeric(12,2)"`
	MaxDiscountAmount     *decimal.Decimal `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	UsageLimit            int              `gorm:"column:usage_limit;not null;default:0"`
	UsedCount             int              `gorm:"column:used_count;not null;default:0"`
	ApplicableProductIDs  []uuid.UUID      `gorm:"column:applicable_product_ids;type:jsonb;serializer:json"`
	ApplicableCategoryIDs []uuid.UUID      `gorm:"column:applicable_category_ids;type:jsonb;serializer:json"`
	ForNewUsersOnly       bool             `gorm:"column:for_new_users_only;not null;default:false"`
	StartsAt              time.Time        `gorm:"column:starts_at;not null"`
	EndsAt                time.Time        `gorm:"column:ends_at;not null"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`
	Version               int64            `gorm:"column:version;not null;default:1"`
	DeletedAt             *time.Time       `gorm:"column:deleted_at"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPercentage reports whether the coupon discounts by percentage.
func (c *Coupon) IsPercentage() bool {
	return c.DiscountPercentage != nil && !c.DiscountPercentage.IsZero()
}

// HasProductRestrictions reports whether the coupon is limited to a
// product or category set.
func (c *Coupon) HasProductRestrictions() bool {
	return len(c.ApplicableProductIDs) > 0 || len(c.ApplicableCategoryIDs) > 0
}
