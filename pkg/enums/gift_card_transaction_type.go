package enums

import "fmt"

// GiftCardTransactionType maps to the gift_card_transaction_type enum in Postgres.
type GiftCardTransactionType string

const (
	GiftCardTransactionTypePurchase GiftCardTransactionType = "purchase"
	GiftCardTransactionTypeRedeem   GiftCardTransactionType = "redeem"
)

var validGiftCardTransactionTypes = []GiftCardTransactionType{
	GiftCardTransactionTypePurchase,
	GiftCardTransactionTypeRedeem,
}

// IsValid reports whether the value matches the canonical enum.
func (t GiftCardTransactionType) IsValid() bool {
	for _, candidate := range validGiftCardTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGiftCardTransactionType converts raw input into GiftCardTransactionType.
func ParseGiftCardTransactionType(value string) (GiftCardTransactionType, error) {
	for _, candidate := range validGiftCardTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gift card transaction type %q", value)
}
