package giftcards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/pkg/codes"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderReader is the slice of the checkout collaborator the gift card
// ledger needs: totals and ownership.
type orderReader interface {
	GetOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	OrderBelongsTo(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
}

// codeGenerator produces candidate gift card codes.
type codeGenerator interface {
	GiftCard() (string, error)
}

// Service is the stored-value ledger. Balances only move through Issue
// and ApplyToOrder, and every movement leaves a transaction row.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*models.GiftCard, error)
	Redeem(ctx context.Context, code string, userID uuid.UUID) (*models.GiftCard, error)
	ApplyToOrder(ctx context.Context, code string, userID, orderID uuid.UUID) (decimal.Decimal, error)
	Quote(ctx context.Context, code string, orderAmount decimal.Decimal) (decimal.Decimal, error)
}

// IssueInput captures a gift card purchase.
type IssueInput struct {
	PurchasedByUserID uuid.UUID
	Amount            decimal.Decimal
	AssignedToUserID  *uuid.UUID
	Message           *string
	ExpiresAt         *time.Time
}

type service struct {
	tx      txRunner
	repo    Repository
	orders  orderReader
	notify  notifications.Enqueuer
	codeGen codeGenerator
	cfg     config.RewardsConfig
	now     func() time.Time
}

// NewService builds the gift card ledger.
func NewService(tx txRunner, repo Repository, orders orderReader, notify notifications.Enqueuer, cfg config.RewardsConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders collaborator required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifications enqueuer required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		orders:  orders,
		notify:  notify,
		codeGen: codes.NewGenerator(),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// Issue creates a card, its opening purchase transaction, and the
// recipient notification in a single commit.
func (s *service) Issue(ctx context.Context, input IssueInput) (*models.GiftCard, error) {
	if input.PurchasedByUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaser id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card amount must be positive")
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.GiftCardLifetime)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
		}
		expiresAt = *input.ExpiresAt
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	card := &models.GiftCard{
		Code:              code,
		Amount:            input.Amount,
		RemainingAmount:   input.Amount,
		PurchasedByUserID: input.PurchasedByUserID,
		AssignedToUserID:  input.AssignedToUserID,
		Message:           input.Message,
		ExpiresAt:         expiresAt,
		IsActive:          true,
		Version:           1,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, card); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gift card")
		}
		txn := &models.GiftCardTransaction{
			GiftCardID: card.ID,
			Amount:     input.Amount,
			Type:       enums.GiftCardTransactionTypePurchase,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gift card purchase")
		}
		if input.AssignedToUserID != nil {
			err := s.notify.EnqueueInTx(ctx, tx, notifications.EnqueueInput{
				UserID:  *input.AssignedToUserID,
				Kind:    enums.NotificationKindGiftCardIssued,
				Subject: "You received a gift card",
				Body:    fmt.Sprintf("A gift card worth %s is waiting for you.", input.Amount.StringFixed(2)),
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue gift card notification")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// uniqueCode draws candidate codes until one is free of collisions,
// giving up after the configured number of attempts.
func (s *service) uniqueCode(ctx context.Context) (string, error) {
	attempts := s.cfg.CodeMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code, err := s.codeGen.GiftCard()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate gift card code")
		}
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check gift card code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not generate a unique gift card code")
}

// Redeem attaches an unassigned card to the calling user. Redeeming a
// card already attached to the same user is a no-op.
func (s *service) Redeem(ctx context.Context, code string, userID uuid.UUID) (*models.GiftCard, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	card, err := s.loadUsableCard(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}
	if card.AssignedToUserID != nil {
		if *card.AssignedToUserID == userID {
			return card, nil
		}
		return nil, ruleViolation("assigned_to_other_user", "gift card belongs to another user")
	}

	updated, err := s.repo.Assign(ctx, card.ID, card.Version, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign gift card")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "gift card was updated concurrently")
	}
	card.AssignedToUserID = &userID
	card.Version++
	return card, nil
}

// ApplyToOrder debits the card against the order and returns the amount
// actually applied, which never exceeds the remaining balance or the
// order total.
func (s *service) ApplyToOrder(ctx context.Context, code string, userID, orderID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}

	owned, err := s.orders.OrderBelongsTo(ctx, orderID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !owned {
		return decimal.Zero, ruleViolation("order_not_owned", "order does not belong to this user")
	}
	orderTotal, err := s.orders.GetOrderTotal(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	if !orderTotal.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	var applied decimal.Decimal
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		card, err := s.loadUsableCard(ctx, repo, code)
		if err != nil {
			return err
		}
		if card.AssignedToUserID != nil && *card.AssignedToUserID != userID {
			return ruleViolation("assigned_to_other_user", "gift card belongs to another user")
		}

		applied = decimal.Min(card.RemainingAmount, orderTotal)
		remaining := card.RemainingAmount.Sub(applied)

		updated, err := repo.UpdateBalance(ctx, card.ID, card.Version, remaining, remaining.IsZero())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit gift card")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "gift card was updated concurrently")
		}

		txn := &models.GiftCardTransaction{
			GiftCardID: card.ID,
			OrderID:    &orderID,
			Amount:     applied,
			Type:       enums.GiftCardTransactionTypeRedeem,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gift card redemption")
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return applied, nil
}

// Quote returns how much of the order a code would cover, never more
// than the remaining balance or the order amount. Unknown or unusable
// cards quote as zero rather than erroring, so checkout previews stay
// cheap.
func (s *service) Quote(ctx context.Context, code string, orderAmount decimal.Decimal) (decimal.Decimal, error) {
	if !orderAmount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	card, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
	}
	if card == nil || !card.IsActive || card.IsRedeemed || !card.RemainingAmount.IsPositive() || s.now().After(card.ExpiresAt) {
		return decimal.Zero, nil
	}
	return decimal.Min(card.RemainingAmount, orderAmount), nil
}

// loadUsableCard resolves a code and rejects cards that can no longer
// move value. Checks run in a fixed order so callers see stable errors.
func (s *service) loadUsableCard(ctx context.Context, repo Repository, code string) (*models.GiftCard, error) {
	card, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
	}
	if card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
	}
	if !card.IsActive {
		return nil, ruleViolation("inactive", "gift card is not active")
	}
	if card.IsRedeemed || !card.RemainingAmount.IsPositive() {
		return nil, ruleViolation("fully_spent", "gift card has no remaining balance")
	}
	if s.now().After(card.ExpiresAt) {
		return nil, ruleViolation("expired", "gift card has expired")
	}
	return card, nil
}

func ruleViolation(rule, message string) error {
	return pkgerrors.New(pkgerrors.CodeBusinessRule, message).
		WithDetails(map[string]any{"rule": rule})
}
