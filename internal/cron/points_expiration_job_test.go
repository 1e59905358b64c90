package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/perkstack/rewards-backend/pkg/logger"
)

type fakeExpirer struct {
	expired int
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireDuePoints(ctx context.Context) (int, error) {
	f.calls++
	return f.expired, f.err
}

func newPointsExpirationJob(t *testing.T, expirer *fakeExpirer) Job {
	t.Helper()
	job, err := NewPointsExpirationJob(PointsExpirationJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Loyalty: expirer,
	})
	if err != nil {
		t.Fatalf("NewPointsExpirationJob: %v", err)
	}
	return job
}

func TestPointsExpirationJobRunsSweep(t *testing.T) {
	expirer := &fakeExpirer{expired: 7}
	job := newPointsExpirationJob(t, expirer)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", expirer.calls)
	}
}

func TestPointsExpirationJobPropagatesErrors(t *testing.T) {
	expirer := &fakeExpirer{expired: 3, err: errors.New("boom")}
	job := newPointsExpirationJob(t, expirer)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPointsExpirationJobRequiresDependencies(t *testing.T) {
	if _, err := NewPointsExpirationJob(PointsExpirationJobParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
