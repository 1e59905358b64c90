package giftcards

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/notifications"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepository struct {
	card        *models.GiftCard
	existing    map[string]bool
	txns        []*models.GiftCardTransaction
	assigns     int
	assignOK    bool
	balanceOK   bool
	lastBalance decimal.Decimal
	lastRedeem  bool
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, card *models.GiftCard) error {
	card.ID = uuid.New()
	f.card = card
	return nil
}

func (f *fakeRepository) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	if f.card == nil || f.card.Code != code {
		return nil, nil
	}
	clone := *f.card
	return &clone, nil
}

func (f *fakeRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return f.existing[code], nil
}

func (f *fakeRepository) CreateTransaction(ctx context.Context, txn *models.GiftCardTransaction) error {
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeRepository) Assign(ctx context.Context, cardID uuid.UUID, version int64, userID uuid.UUID) (bool, error) {
	f.assigns++
	if f.assignOK {
		f.card.AssignedToUserID = &userID
		f.card.Version++
	}
	return f.assignOK, nil
}

func (f *fakeRepository) UpdateBalance(ctx context.Context, cardID uuid.UUID, version int64, remaining decimal.Decimal, redeemed bool) (bool, error) {
	if f.balanceOK {
		f.lastBalance = remaining
		f.lastRedeem = redeemed
		f.card.RemainingAmount = remaining
		f.card.IsRedeemed = redeemed
		f.card.Version++
	}
	return f.balanceOK, nil
}

type fakeOrders struct {
	total  decimal.Decimal
	owned  bool
	ownErr error
}

func (f *fakeOrders) GetOrderTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	return f.total, nil
}

func (f *fakeOrders) OrderBelongsTo(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	return f.owned, f.ownErr
}

type fakeEnqueuer struct {
	inputs []notifications.EnqueueInput
}

func (f *fakeEnqueuer) EnqueueInTx(ctx context.Context, tx *gorm.DB, input notifications.EnqueueInput) error {
	f.inputs = append(f.inputs, input)
	return nil
}

type fakeCodeGen struct {
	codes []string
	next  int
}

func (f *fakeCodeGen) GiftCard() (string, error) {
	code := f.codes[f.next%len(f.codes)]
	f.next++
	return code, nil
}

func testConfig() config.RewardsConfig {
	return config.RewardsConfig{
		GiftCardLifetime: 365 * 24 * time.Hour,
		CodeMaxAttempts:  5,
	}
}

func newTestService(t *testing.T, repo *fakeRepository, orders *fakeOrders, notify *fakeEnqueuer, gen codeGenerator) *service {
	t.Helper()
	svc, err := NewService(fakeTx{}, repo, orders, notify, testConfig())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	impl := svc.(*service)
	if gen != nil {
		impl.codeGen = gen
	}
	return impl
}

func activeCard(code string, remaining int64) *models.GiftCard {
	amount := decimal.NewFromInt(remaining)
	return &models.GiftCard{
		ID:                uuid.New(),
		Code:              code,
		Amount:            amount,
		RemainingAmount:   amount,
		PurchasedByUserID: uuid.New(),
		ExpiresAt:         time.Now().Add(30 * 24 * time.Hour),
		IsActive:          true,
		Version:           1,
	}
}

func TestIssue_CreatesCardAndOpeningTransaction(t *testing.T) {
	repo := &fakeRepository{existing: map[string]bool{}}
	notify := &fakeEnqueuer{}
	svc := newTestService(t, repo, &fakeOrders{}, notify, nil)

	recipient := uuid.New()
	card, err := svc.Issue(context.Background(), IssueInput{
		PurchasedByUserID: uuid.New(),
		Amount:            decimal.NewFromInt(75),
		AssignedToUserID:  &recipient,
	})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !card.RemainingAmount.Equal(card.Amount) {
		t.Fatalf("remaining must open equal to face value, got %s/%s", card.RemainingAmount, card.Amount)
	}
	if len(repo.txns) != 1 || !repo.txns[0].Amount.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected one purchase transaction of 75, got %v", repo.txns)
	}
	if len(notify.inputs) != 1 || notify.inputs[0].UserID != recipient {
		t.Fatalf("expected recipient notification, got %v", notify.inputs)
	}
}

func TestIssue_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, &fakeRepository{existing: map[string]bool{}}, &fakeOrders{}, &fakeEnqueuer{}, nil)

	_, err := svc.Issue(context.Background(), IssueInput{
		PurchasedByUserID: uuid.New(),
		Amount:            decimal.Zero,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIssue_RetriesCollidingCodes(t *testing.T) {
	repo := &fakeRepository{existing: map[string]bool{"GC-AAAA-AAAA-AAAA": true}}
	gen := &fakeCodeGen{codes: []string{"GC-AAAA-AAAA-AAAA", "GC-BBBB-BBBB-BBBB"}}
	svc := newTestService(t, repo, &fakeOrders{}, &fakeEnqueuer{}, gen)

	card, err := svc.Issue(context.Background(), IssueInput{
		PurchasedByUserID: uuid.New(),
		Amount:            decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if card.Code != "GC-BBBB-BBBB-BBBB" {
		t.Fatalf("expected the second candidate code, got %s", card.Code)
	}
}

func TestIssue_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &fakeRepository{existing: map[string]bool{"GC-AAAA-AAAA-AAAA": true}}
	gen := &fakeCodeGen{codes: []string{"GC-AAAA-AAAA-AAAA"}}
	svc := newTestService(t, repo, &fakeOrders{}, &fakeEnqueuer{}, gen)

	_, err := svc.Issue(context.Background(), IssueInput{
		PurchasedByUserID: uuid.New(),
		Amount:            decimal.NewFromInt(10),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error after exhausted attempts, got %v", err)
	}
	if gen.next != 5 {
		t.Fatalf("expected 5 attempts, got %d", gen.next)
	}
}

func TestRedeem_AssignsUnassignedCard(t *testing.T) {
	repo := &fakeRepository{card: activeCard("GC-TEST", 50), assignOK: true}
	svc := newTestService(t, repo, &fakeOrders{}, &fakeEnqueuer{}, nil)

	userID := uuid.New()
	card, err := svc.Redeem(context.Background(), "GC-TEST", userID)
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if card.AssignedToUserID == nil || *card.AssignedToUserID != userID {
		t.Fatalf("expected card assigned to user")
	}
}

func TestRedeem_IdempotentForSameUser(t *testing.T) {
	userID := uuid.New()
	card := activeCard("GC-TEST", 50)
	card.AssignedToUserID = &userID
	repo := &fakeRepository{card: card}
	svc := newTestService(t, repo, &fakeOrders{}, &fakeEnqueuer{}, nil)

	if _, err := svc.Redeem(context.Background(), "GC-TEST", userID); err != nil {
		t.Fatalf("repeat redeem must be a no-op, got %v", err)
	}
	if repo.assigns != 0 {
		t.Fatalf("repeat redeem must not rewrite assignment")
	}
}

func TestRedeem_RuleOrder(t *testing.T) {
	otherUser := uuid.New()

	tests := []struct {
		name  string
		setup func(c *models.GiftCard)
		code  pkgerrors.Code
		rule  string
	}{
		{
			name:  "inactive before expired",
			setup: func(c *models.GiftCard) { c.IsActive = false; c.ExpiresAt = time.Now().Add(-time.Hour) },
			code:  pkgerrors.CodeBusinessRule,
			rule:  "inactive",
		},
		{
			name:  "fully spent before expired",
			setup: func(c *models.GiftCard) { c.RemainingAmount = decimal.Zero; c.ExpiresAt = time.Now().Add(-time.Hour) },
			code:  pkgerrors.CodeBusinessRule,
			rule:  "fully_spent",
		},
		{
			name:  "expired",
			setup: func(c *models.GiftCard) { c.ExpiresAt = time.Now().Add(-time.Hour) },
			code:  pkgerrors.CodeBusinessRule,
			rule:  "expired",
		},
		{
			name:  "assigned to another user",
			setup: func(c *models.GiftCard) { c.AssignedToUserID = &otherUser },
			code:  pkgerrors.CodeBusinessRule,
			rule:  "assigned_to_other_user",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card := activeCard("GC-TEST", 50)
			tc.setup(card)
			svc := newTestService(t, &fakeRepository{card: card}, &fakeOrders{}, &fakeEnqueuer{}, nil)

			_, err := svc.Redeem(context.Background(), "GC-TEST", uuid.New())
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			details, ok := pkgerrors.As(err).Details().(map[string]any)
			if !ok || details["rule"] != tc.rule {
				t.Fatalf("expected rule %q, got %v", tc.rule, details)
			}
		})
	}
}

func TestRedeem_UnknownCode(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeOrders{}, &fakeEnqueuer{}, nil)

	_, err := svc.Redeem(context.Background(), "GC-NOPE", uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyToOrder_PartialBalance(t *testing.T) {
	userID := uuid.New()
	card := activeCard("GC-TEST", 100)
	card.AssignedToUserID = &userID
	repo := &fakeRepository{card: card, balanceOK: true}
	svc := newTestService(t, repo, &fakeOrders{total: decimal.NewFromInt(30), owned: true}, &fakeEnqueuer{}, nil)

	applied, err := svc.ApplyToOrder(context.Background(), "GC-TEST", userID, uuid.New())
	if err != nil {
		t.Fatalf("ApplyToOrder error: %v", err)
	}
	if !applied.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 applied, got %s", applied)
	}
	if !repo.lastBalance.Equal(decimal.NewFromInt(70)) || repo.lastRedeem {
		t.Fatalf("expected remaining 70 and card still open, got %s redeemed=%v", repo.lastBalance, repo.lastRedeem)
	}
	if len(repo.txns) != 1 || repo.txns[0].OrderID == nil {
		t.Fatalf("expected a redeem transaction bound to the order")
	}
}

func TestApplyToOrder_DrainsAndMarksRedeemed(t *testing.T) {
	userID := uuid.New()
	card := activeCard("GC-TEST", 20)
	card.AssignedToUserID = &userID
	repo := &fakeRepository{card: card, balanceOK: true}
	svc := newTestService(t, repo, &fakeOrders{total: decimal.NewFromInt(50), owned: true}, &fakeEnqueuer{}, nil)

	applied, err := svc.ApplyToOrder(context.Background(), "GC-TEST", userID, uuid.New())
	if err != nil {
		t.Fatalf("ApplyToOrder error: %v", err)
	}
	if !applied.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("applied must not exceed balance, got %s", applied)
	}
	if !repo.lastBalance.IsZero() || !repo.lastRedeem {
		t.Fatalf("expected drained card marked redeemed")
	}
}

func TestApplyToOrder_RejectsForeignOrder(t *testing.T) {
	userID := uuid.New()
	card := activeCard("GC-TEST", 20)
	card.AssignedToUserID = &userID
	svc := newTestService(t, &fakeRepository{card: card}, &fakeOrders{owned: false}, &fakeEnqueuer{}, nil)

	_, err := svc.ApplyToOrder(context.Background(), "GC-TEST", userID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule) {
		t.Fatalf("expected business rule violation, got %v", err)
	}
}

func TestApplyToOrder_ConcurrentUpdateSurfacesConflict(t *testing.T) {
	userID := uuid.New()
	card := activeCard("GC-TEST", 20)
	card.AssignedToUserID = &userID
	repo := &fakeRepository{card: card, balanceOK: false}
	svc := newTestService(t, repo, &fakeOrders{total: decimal.NewFromInt(10), owned: true}, &fakeEnqueuer{}, nil)

	_, err := svc.ApplyToOrder(context.Background(), "GC-TEST", userID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
}

func TestQuote_ZeroForUnusableCards(t *testing.T) {
	expired := activeCard("GC-EXP", 40)
	expired.ExpiresAt = time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		card *models.GiftCard
	}{
		{name: "unknown", card: nil},
		{name: "expired", card: expired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{card: tc.card}
			svc := newTestService(t, repo, &fakeOrders{}, &fakeEnqueuer{}, nil)

			quote, err := svc.Quote(context.Background(), "GC-EXP", decimal.NewFromInt(30))
			if err != nil {
				t.Fatalf("Quote error: %v", err)
			}
			if !quote.IsZero() {
				t.Fatalf("expected zero quote, got %s", quote)
			}
		})
	}
}

func TestQuote_ClampsToOrderAmount(t *testing.T) {
	card := activeCard("GC-TEST", 100)
	svc := newTestService(t, &fakeRepository{card: card}, &fakeOrders{}, &fakeEnqueuer{}, nil)

	// A 100 card against a 30 order covers only 30.
	quote, err := svc.Quote(context.Background(), "GC-TEST", decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Quote error: %v", err)
	}
	if !quote.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30, got %s", quote)
	}
}

func TestQuote_ClampsToRemainingBalance(t *testing.T) {
	card := activeCard("GC-TEST", 100)
	card.RemainingAmount = decimal.NewFromInt(42)
	svc := newTestService(t, &fakeRepository{card: card}, &fakeOrders{}, &fakeEnqueuer{}, nil)

	quote, err := svc.Quote(context.Background(), "GC-TEST", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("Quote error: %v", err)
	}
	if !quote.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("expected 42, got %s", quote)
	}
}

func TestQuote_RejectsNonPositiveOrderAmount(t *testing.T) {
	card := activeCard("GC-TEST", 100)
	svc := newTestService(t, &fakeRepository{card: card}, &fakeOrders{}, &fakeEnqueuer{}, nil)

	if _, err := svc.Quote(context.Background(), "GC-TEST", decimal.Zero); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
