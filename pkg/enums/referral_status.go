package enums

import "fmt"

// ReferralStatus maps to the referral_status enum in Postgres.
// Transitions are strictly forward: pending -> completed -> rewarded.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusRewarded  ReferralStatus = "rewarded"
)

var validReferralStatuses = []ReferralStatus{
	ReferralStatusPending,
	ReferralStatusCompleted,
	ReferralStatusRewarded,
}

var referralStatusRank = map[ReferralStatus]int{
	ReferralStatusPending:   0,
	ReferralStatusCompleted: 1,
	ReferralStatusRewarded:  2,
}

// IsValid reports whether the value matches the canonical enum.
func (s ReferralStatus) IsValid() bool {
	for _, candidate := range validReferralStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving to next is a forward transition.
func (s ReferralStatus) CanTransitionTo(next ReferralStatus) bool {
	from, ok := referralStatusRank[s]
	if !ok {
		return false
	}
	to, ok := referralStatusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ParseReferralStatus converts raw input into ReferralStatus.
func ParseReferralStatus(value string) (ReferralStatus, error) {
	for _, candidate := range validReferralStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referral status %q", value)
}
