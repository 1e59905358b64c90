package cron

import (
	"context"
	"fmt"

	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
)

// notificationDispatcher is the notifications surface the job drives.
type notificationDispatcher interface {
	DispatchPending(ctx context.Context, limit int) (int, error)
}

// NotificationDispatchJobParams configure the notification dispatch job.
type NotificationDispatchJobParams struct {
	Logger        *logger.Logger
	Notifications notificationDispatcher
	Metrics       *metrics.CronJobMetrics
	BatchSize     int
}

// NewNotificationDispatchJob builds the job that drains pending
// notification rows through the mailer.
func NewNotificationDispatchJob(params NotificationDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &notificationDispatchJob{
		logg:      params.Logger,
		notify:    params.Notifications,
		metrics:   params.Metrics,
		batchSize: params.BatchSize,
	}, nil
}

type notificationDispatchJob struct {
	logg      *logger.Logger
	notify    notificationDispatcher
	metrics   *metrics.CronJobMetrics
	batchSize int
}

func (j *notificationDispatchJob) Name() string { return "notification-dispatch" }

// Run drains the pending queue. Rows that fail to send stay unclaimed
// or unsent and are picked up again next cycle.
func (j *notificationDispatchJob) Run(ctx context.Context) error {
	sent, err := j.notify.DispatchPending(ctx, j.batchSize)
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), sent)
	}
	logCtx := j.logg.WithField(ctx, "notifications_sent", sent)
	if err != nil {
		j.logg.Warn(logCtx, "notification dispatch finished with errors")
		return fmt.Errorf("notification dispatch: %w", err)
	}
	j.logg.Info(logCtx, "notification dispatch complete")
	return nil
}
