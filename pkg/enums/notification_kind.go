package enums

// NotificationKind labels the notification rows the ledgers enqueue.
type NotificationKind string

const (
	NotificationKindGiftCardIssued   NotificationKind = "gift_card_issued"
	NotificationKindReferralRewarded NotificationKind = "referral_rewarded"
)

// IsValid reports whether the value matches the canonical enum.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationKindGiftCardIssued, NotificationKindReferralRewarded:
		return true
	}
	return false
}
