package loyalty

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/pkg/db/models"
)

// evaluateTier picks the active tier with the greatest MinimumPoints
// not exceeding the account's lifetime points and applies it to the
// account in memory. Accounts never move down: a lapsed or lowered
// tier stays until a higher one is earned.
func evaluateTier(ctx context.Context, repo Repository, account *models.LoyaltyAccount, tierLifetime time.Duration, now time.Time) (bool, error) {
	tiers, err := repo.ListActiveTiers(ctx)
	if err != nil {
		return false, err
	}

	var candidate *models.LoyaltyTier
	for i := range tiers {
		if tiers[i].MinimumPoints <= account.LifetimePoints {
			candidate = &tiers[i]
		}
	}
	if candidate == nil {
		return false, nil
	}
	if account.TierID != nil {
		current, err := repo.FindTierByID(ctx, *account.TierID)
		if err != nil {
			return false, err
		}
		if current != nil && current.MinimumPoints >= candidate.MinimumPoints {
			return false, nil
		}
	}

	achievedAt := now
	expiresAt := now.Add(tierLifetime)
	account.TierID = &candidate.ID
	account.TierAchievedAt = &achievedAt
	account.TierExpiresAt = &expiresAt
	return true, nil
}

// multiplierFor resolves the earn multiplier for the account's current
// tier. Accounts without a tier earn at 1x.
func multiplierFor(ctx context.Context, repo Repository, account *models.LoyaltyAccount) (decimal.Decimal, error) {
	if account.TierID == nil {
		return decimal.NewFromInt(1), nil
	}
	tier, err := repo.FindTierByID(ctx, *account.TierID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if tier == nil || !tier.IsActive {
		return decimal.NewFromInt(1), nil
	}
	return tier.PointsMultiplier, nil
}
