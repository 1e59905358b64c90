package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// GiftCardTransaction is the append-only log of gift card balance
// movements. Rows are immutable once written.
type GiftCardTransaction struct {
	ID         uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GiftCardID uuid.UUID                     `gorm:"column:gift_card_id;type:uuid;not null;index"`
	OrderID    *uuid.UUID                    `gorm:"column:order_id;type:uuid"`
	Amount     decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	Type       enums.GiftCardTransactionType `gorm:"column:type;type:gift_card_transaction_type;not null"`
	Notes      *string                       `gorm:"column:notes"`
	CreatedAt  time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
