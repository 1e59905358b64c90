package enums

import "fmt"

// LoyaltyTransactionType maps to the loyalty_transaction_type enum in Postgres.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionTypeSignup     LoyaltyTransactionType = "signup"
	LoyaltyTransactionTypeEarn       LoyaltyTransactionType = "earn"
	LoyaltyTransactionTypeRedeem     LoyaltyTransactionType = "redeem"
	LoyaltyTransactionTypeReferral   LoyaltyTransactionType = "referral"
	LoyaltyTransactionTypeExpire     LoyaltyTransactionType = "expire"
	LoyaltyTransactionTypeAdjustment LoyaltyTransactionType = "adjustment"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionTypeSignup,
	LoyaltyTransactionTypeEarn,
	LoyaltyTransactionTypeRedeem,
	LoyaltyTransactionTypeReferral,
	LoyaltyTransactionTypeExpire,
	LoyaltyTransactionTypeAdjustment,
}

// IsValid reports whether the value matches the canonical enum.
func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into LoyaltyTransactionType.
// Raw strings are validated once at the boundary; services only pass the
// typed variant around afterwards.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
