package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GiftCard carries a stored-value balance. RemainingAmount always stays
// within [0, Amount]; every balance change appends a GiftCardTransaction.
type GiftCard struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string                `gorm:"column:code;uniqueIndex:ux_gift_cards_code;not null"`
	Amount            decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	RemainingAmount   decimal.Decimal       `gorm:"column:remaining_amount;type:numeric(12,2);not null"`
	PurchasedByUserID uuid.UUID             `gorm:"column:purchased_by_user_id;type:uuid;not null"`
	AssignedToUserID  *uuid.UUID            `gorm:"column:assigned_to_user_id;type:uuid"`
	Message           *string               `gorm:"column:message"`
	ExpiresAt         time.Time             `gorm:"column:expires_at;not null"`
	IsRedeemed        bool                  `gorm:"column:is_redeemed;not null;default:false"`
	IsActive          bool                  `gorm:"column:is_active;not null;default:true"`
	Version           int64                 `gorm:"column:version;not null;default:1"`
	DeletedAt         *time.Time            `gorm:"column:deleted_at"`
	Transactions      []GiftCardTransaction `gorm:"foreignKey:GiftCardID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
