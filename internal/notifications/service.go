package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Mailer is the email delivery boundary. The ledgers trigger messages
// but delivery is implemented outside this service.
type Mailer interface {
	Send(ctx context.Context, userID uuid.UUID, subject, body string) error
}

// Enqueuer writes notification rows inside the caller's transaction so
// the trigger commits (or rolls back) with the domain mutation.
type Enqueuer interface {
	EnqueueInTx(ctx context.Context, tx *gorm.DB, input EnqueueInput) error
}

// EnqueueInput captures a pending notification.
type EnqueueInput struct {
	UserID  uuid.UUID
	Kind    enums.NotificationKind
	Subject string
	Body    string
}

type service struct {
	repo Repository
}

// NewService wires the notifications enqueuer.
func NewService(repo Repository) (Enqueuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) EnqueueInTx(ctx context.Context, tx *gorm.DB, input EnqueueInput) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if input.UserID == uuid.Nil {
		return fmt.Errorf("user id required")
	}
	if !input.Kind.IsValid() {
		return fmt.Errorf("invalid notification kind %q", input.Kind)
	}
	row := &models.Notification{
		UserID:  input.UserID,
		Kind:    input.Kind,
		Subject: input.Subject,
		Body:    input.Body,
	}
	return s.repo.WithTx(tx).Create(ctx, row)
}

// Dispatcher drains pending notification rows through the Mailer.
type Dispatcher interface {
	DispatchPending(ctx context.Context, limit int) (int, error)
}

type dispatcher struct {
	repo   Repository
	mailer Mailer
	now    func() time.Time
}

// NewDispatcher wires the notification dispatcher.
func NewDispatcher(repo Repository, mailer Mailer) (Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &dispatcher{
		repo:   repo,
		mailer: mailer,
		now:    time.Now,
	}, nil
}

// DispatchPending sends pending rows one at a time. Each row is claimed
// before the send so concurrent dispatchers never double-mail; a failed
// send is accumulated and the drain keeps going.
func (d *dispatcher) DispatchPending(ctx context.Context, limit int) (int, error) {
	rows, err := d.repo.ListUnsent(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending notifications")
	}

	sent := 0
	var errs error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sent, multierr.Append(errs, err)
		}
		claimed, err := d.repo.MarkSent(ctx, row.ID, d.now())
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim notification"))
			continue
		}
		if !claimed {
			// Another dispatcher got here first.
			continue
		}
		if err := d.mailer.Send(ctx, row.UserID, row.Subject, row.Body); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification"))
			continue
		}
		sent++
	}
	return sent, errs
}
