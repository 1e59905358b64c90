package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/config"
	dbpkg "github.com/perkstack/rewards-backend/pkg/db"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the points ledger. The account balance is a projection of
// the transaction log; both move together inside one commit.
type Service interface {
	CreateAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	EarnPoints(ctx context.Context, input EarnInput) (int64, error)
	EarnPointsInTx(ctx context.Context, tx *gorm.DB, input EarnInput) (int64, error)
	RedeemPoints(ctx context.Context, userID uuid.UUID, points int64, orderID *uuid.UUID) (bool, error)
	ExpireDuePoints(ctx context.Context) (int, error)
	PointsForAmount(amount decimal.Decimal) int64
	RedemptionValue(points int64) decimal.Decimal
}

// EarnInput captures a points credit before the tier multiplier.
type EarnInput struct {
	UserID      uuid.UUID
	BasePoints  int64
	Type        enums.LoyaltyTransactionType
	Description string
	OrderID     *uuid.UUID
}

type service struct {
	tx   txRunner
	repo Repository
	cfg  config.RewardsConfig
	now  func() time.Time
}

// NewService builds the loyalty ledger.
func NewService(tx txRunner, repo Repository, cfg config.RewardsConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	return &service{
		tx:   tx,
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}, nil
}

// CreateAccount opens the per-user account and grants the signup bonus
// in the same commit.
func (s *service) CreateAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	existing, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "loyalty account already exists").
			WithDetails(map[string]any{"rule": "account_exists"})
	}

	account := &models.LoyaltyAccount{
		UserID:  userID,
		Version: 1,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateAccount(ctx, account); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_loyalty_accounts_user") {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "loyalty account already exists").
					WithDetails(map[string]any{"rule": "account_exists"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loyalty account")
		}
		if s.cfg.SignupBonusPoints > 0 {
			_, err := s.EarnPointsInTx(ctx, tx, EarnInput{
				UserID:      userID,
				BasePoints:  s.cfg.SignupBonusPoints,
				Type:        enums.LoyaltyTransactionTypeSignup,
				Description: "signup bonus",
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, userID)
}

func (s *service) GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
	}
	return account, nil
}

// EarnPoints credits points inside its own commit.
func (s *service) EarnPoints(ctx context.Context, input EarnInput) (int64, error) {
	var credited int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		credited, err = s.EarnPointsInTx(ctx, tx, input)
		return err
	})
	return credited, err
}

// EarnPointsInTx credits points inside the caller's transaction so a
// collaborator can bundle the credit with its own writes. The credited
// amount is the base scaled by the account's tier multiplier, rounded
// toward zero. Accounts are created lazily on first earn.
func (s *service) EarnPointsInTx(ctx context.Context, tx *gorm.DB, input EarnInput) (int64, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.BasePoints <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "points to earn must be positive")
	}
	if !input.Type.IsValid() || input.Type == enums.LoyaltyTransactionTypeRedeem || input.Type == enums.LoyaltyTransactionTypeExpire {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid earn type %q", input.Type))
	}

	repo := s.repo.WithTx(tx)

	account, err := repo.FindAccountByUserID(ctx, input.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	if account == nil {
		account = &models.LoyaltyAccount{
			UserID:  input.UserID,
			Version: 1,
		}
		if err := repo.CreateAccount(ctx, account); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loyalty account")
		}
	}

	multiplier, err := multiplierFor(ctx, repo, account)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tier multiplier")
	}
	credited := decimal.NewFromInt(input.BasePoints).Mul(multiplier).IntPart()

	now := s.now()
	txn := &models.LoyaltyTransaction{
		AccountID:   account.ID,
		Points:      credited,
		Type:        input.Type,
		Description: input.Description,
		OrderID:     input.OrderID,
		ExpiresAt:   now.Add(s.cfg.PointsLifetime),
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record loyalty credit")
	}

	account.PointsBalance += credited
	account.LifetimePoints += credited
	if _, err := evaluateTier(ctx, repo, account, s.cfg.TierLifetime, now); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evaluate tier")
	}

	updated, err := repo.UpdateAccount(ctx, account)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loyalty account")
	}
	if !updated {
		return 0, pkgerrors.New(pkgerrors.CodeConcurrency, "loyalty account was updated concurrently")
	}
	return credited, nil
}

// RedeemPoints debits points against the balance. It reports false,
// without an error, when the account is missing or the balance is
// short; checkout treats that as "no discount" rather than a failure.
func (s *service) RedeemPoints(ctx context.Context, userID uuid.UUID, points int64, orderID *uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if points <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "points to redeem must be positive")
	}

	redeemed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.FindAccountByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
		}
		if account == nil || account.PointsBalance < points {
			return nil
		}

		now := s.now()
		txn := &models.LoyaltyTransaction{
			AccountID:   account.ID,
			Points:      -points,
			Type:        enums.LoyaltyTransactionTypeRedeem,
			Description: "points redemption",
			OrderID:     orderID,
			ExpiresAt:   now,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record loyalty debit")
		}

		account.PointsBalance -= points
		updated, err := repo.UpdateAccount(ctx, account)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loyalty account")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "loyalty account was updated concurrently")
		}
		redeemed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return redeemed, nil
}

// ExpireDuePoints sweeps transactions whose lifetime has passed. Each
// entry commits on its own, so a cancelled or crashed sweep never
// undoes finished work and the next run picks up where it stopped.
func (s *service) ExpireDuePoints(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.FindDueTransactions(ctx, now, 0)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due loyalty transactions")
	}

	expired := 0
	var errs error
	for _, txn := range due {
		if err := ctx.Err(); err != nil {
			return expired, multierr.Append(errs, err)
		}
		if err := s.expireOne(ctx, txn); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) expireOne(ctx context.Context, due models.LoyaltyTransaction) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		claimed, err := repo.MarkTransactionExpired(ctx, due.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction expired")
		}
		if !claimed {
			// Another sweep got here first.
			return nil
		}

		account, err := repo.FindAccountByID(ctx, due.AccountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "loyalty transaction without account")
		}

		// The balance mirrors the unexpired transaction sum, so the
		// full credit comes off even when part of it was already
		// spent; the balance may go negative until new credits land.
		account.PointsBalance -= due.Points
		updated, err := repo.UpdateAccount(ctx, account)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loyalty account")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "loyalty account was updated concurrently")
		}
		return nil
	})
}

// PointsForAmount converts an order amount into base points using the
// configured rate, rounding toward zero.
func (s *service) PointsForAmount(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Mul(decimal.NewFromInt(s.cfg.PointsPerCurrencyUnit)).IntPart()
}

// RedemptionValue converts points into currency at the configured
// cents-per-point rate.
func (s *service) RedemptionValue(points int64) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(points * s.cfg.PointValueCents).Div(decimal.NewFromInt(100))
}
