package cron

import (
	"context"
	"fmt"

	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
)

// pointsExpirer is the loyalty ledger surface the job drives.
type pointsExpirer interface {
	ExpireDuePoints(ctx context.Context) (int, error)
}

// PointsExpirationJobParams configure the points expiration job.
type PointsExpirationJobParams struct {
	Logger  *logger.Logger
	Loyalty pointsExpirer
	Metrics *metrics.CronJobMetrics
}

// NewPointsExpirationJob builds the job that sweeps lapsed loyalty
// credits.
func NewPointsExpirationJob(params PointsExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &pointsExpirationJob{
		logg:    params.Logger,
		loyalty: params.Loyalty,
		metrics: params.Metrics,
	}, nil
}

type pointsExpirationJob struct {
	logg    *logger.Logger
	loyalty pointsExpirer
	metrics *metrics.CronJobMetrics
}

func (j *pointsExpirationJob) Name() string { return "points-expiration" }

// Run expires all due loyalty credits. Partial progress counts: the
// sweep commits per entry, so an error here only means some entries
// will be retried next cycle.
func (j *pointsExpirationJob) Run(ctx context.Context) error {
	expired, err := j.loyalty.ExpireDuePoints(ctx)
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), expired)
	}
	logCtx := j.logg.WithField(ctx, "points_expired", expired)
	if err != nil {
		j.logg.Warn(logCtx, "points expiration finished with errors")
		return fmt.Errorf("points expiration: %w", err)
	}
	j.logg.Info(logCtx, "points expiration complete")
	return nil
}
