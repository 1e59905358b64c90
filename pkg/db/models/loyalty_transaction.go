package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// LoyaltyTransaction is the append-only log of point movements. Rows are
// immutable once written except for the IsExpired flip applied by the
// expiration sweep; once expired the points never count toward a balance
// again.
type LoyaltyTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID                    `gorm:"column:account_id;type:uuid;not null;index"`
	Points      int64                        `gorm:"column:points;not null"`
	Type        enums.LoyaltyTransactionType `gorm:"column:type;type:loyalty_transaction_type;not null"`
	Description string                       `gorm:"column:description;not null;default:''"`
	OrderID     *uuid.UUID                   `gorm:"column:order_id;type:uuid"`
	ExpiresAt   time.Time                    `gorm:"column:expires_at;not null;index"`
	IsExpired   bool                         `gorm:"column:is_expired;not null;default:false"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
