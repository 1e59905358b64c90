package referrals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/loyalty"
	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/pkg/codes"
	"github.com/perkstack/rewards-backend/pkg/config"
	dbpkg "github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// errUsageCapReached rolls the application back when a concurrent
// signup takes the code's last slot mid-transaction.
var errUsageCapReached = errors.New("referral code usage cap reached")

// pointsCreditor is the slice of the loyalty ledger the referral
// processor needs: crediting the referrer inside the reward commit.
type pointsCreditor interface {
	EarnPointsInTx(ctx context.Context, tx *gorm.DB, input loyalty.EarnInput) (int64, error)
}

// codeGenerator produces candidate referral codes.
type codeGenerator interface {
	Referral() (string, error)
}

// Service drives the referral state machine:
// pending -> completed -> rewarded, each step taken at most once.
type Service interface {
	IssueCode(ctx context.Context, userID uuid.UUID) (*models.ReferralCode, error)
	ApplyCode(ctx context.Context, newUserID uuid.UUID, code string) (bool, error)
	ProcessReward(ctx context.Context, referredUserID, orderID uuid.UUID) error
}

type service struct {
	tx      txRunner
	repo    Repository
	points  pointsCreditor
	notify  notifications.Enqueuer
	codeGen codeGenerator
	cfg     config.RewardsConfig
	now     func() time.Time
}

// NewService builds the referral processor.
func NewService(tx txRunner, repo Repository, points pointsCreditor, notify notifications.Enqueuer, cfg config.RewardsConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("referrals repository required")
	}
	if points == nil {
		return nil, fmt.Errorf("loyalty creditor required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifications enqueuer required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		points:  points,
		notify:  notify,
		codeGen: codes.NewGenerator(),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// IssueCode returns the user's shareable code, creating it on first
// call. Repeat calls hand back the same code.
func (s *service) IssueCode(ctx context.Context, userID uuid.UUID) (*models.ReferralCode, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	existing, err := s.repo.FindCodeByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral code")
	}
	if existing != nil {
		return existing, nil
	}

	value, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	code := &models.ReferralCode{
		UserID:             userID,
		Code:               value,
		MaxUsage:           s.cfg.ReferralCodeMaxUsage,
		PointsReward:       s.cfg.ReferralPointsReward,
		DiscountPercentage: decimal.NewFromInt(s.cfg.RefereeDiscountPercent),
		IsActive:           true,
	}
	if err := s.repo.CreateCode(ctx, code); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_referral_codes_user") {
			// Lost a race with another request for the same user.
			return s.repo.FindCodeByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral code")
	}
	return code, nil
}

func (s *service) uniqueCode(ctx context.Context) (string, error) {
	attempts := s.cfg.CodeMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		value, err := s.codeGen.Referral()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate referral code")
		}
		exists, err := s.repo.CodeExists(ctx, value)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check referral code")
		}
		if !exists {
			return value, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not generate a unique referral code")
}

// ApplyCode links a new user to a referrer. It reports false, without
// an error, when the code cannot be applied: signup flows treat that as
// "no referral" rather than a failure.
func (s *service) ApplyCode(ctx context.Context, newUserID uuid.UUID, code string) (bool, error) {
	if newUserID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	referralCode, err := s.repo.FindCodeByValue(ctx, normalized)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral code")
	}
	if referralCode == nil || !referralCode.IsActive {
		return false, nil
	}
	if referralCode.UserID == newUserID {
		// Self-referral.
		return false, nil
	}
	if referralCode.MaxUsage > 0 && referralCode.UsageCount >= referralCode.MaxUsage {
		return false, nil
	}

	existing, err := s.repo.FindReferralByReferredUser(ctx, newUserID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
	}
	if existing != nil {
		return false, nil
	}

	applied := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		referral := &models.Referral{
			ReferrerID:     referralCode.UserID,
			ReferredUserID: newUserID,
			ReferralCodeID: referralCode.ID,
			Status:         enums.ReferralStatusPending,
			Version:        1,
		}
		if err := repo.CreateReferral(ctx, referral); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_referrals_referred_user") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral")
		}
		incremented, err := repo.IncrementCodeUsage(ctx, referralCode.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment code usage")
		}
		if !incremented {
			return errUsageCapReached
		}
		applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errUsageCapReached) {
			return false, nil
		}
		return false, err
	}
	return applied, nil
}

// ProcessReward settles the referral after the referred user's first
// order: the referral completes, the referrer is credited, and the
// whole step commits once. Users without a pending referral, and
// repeat invocations, are no-ops.
func (s *service) ProcessReward(ctx context.Context, referredUserID, orderID uuid.UUID) error {
	if referredUserID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}

	referral, err := s.repo.FindReferralByReferredUser(ctx, referredUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
	}
	if referral == nil || referral.Status != enums.ReferralStatusPending {
		return nil
	}

	referralCode, err := s.repo.FindCodeByID(ctx, referral.ReferralCodeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral code")
	}
	if referralCode == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "referral without code")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		completed, err := repo.AdvanceStatus(ctx, referral.ID, referral.Version, enums.ReferralStatusCompleted, map[string]any{
			"first_order_id": orderID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete referral")
		}
		if !completed {
			// Another processor claimed this referral.
			return nil
		}

		awarded, err := s.points.EarnPointsInTx(ctx, tx, loyalty.EarnInput{
			UserID:      referral.ReferrerID,
			BasePoints:  referralCode.PointsReward,
			Type:        enums.LoyaltyTransactionTypeReferral,
			Description: "referral reward",
			OrderID:     &orderID,
		})
		if err != nil {
			return err
		}

		rewarded, err := repo.AdvanceStatus(ctx, referral.ID, referral.Version+1, enums.ReferralStatusRewarded, map[string]any{
			"points_awarded": awarded,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark referral rewarded")
		}
		if !rewarded {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "referral was updated concurrently")
		}

		err = s.notify.EnqueueInTx(ctx, tx, notifications.EnqueueInput{
			UserID:  referral.ReferrerID,
			Kind:    enums.NotificationKindReferralRewarded,
			Subject: "Your referral paid off",
			Body:    fmt.Sprintf("You earned %d points for referring a friend.", awarded),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue referral notification")
		}
		return nil
	})
}
