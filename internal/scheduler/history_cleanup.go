package scheduler

import (
	"context"
	"time"

	"nemt_portal_backend/platform/logger"
)

const (
	defaultHistoryCleanupInterval = time.Hour
	defaultSuccessRetention       = 180 * 24 * time.Hour
	defaultFailureRetention       = 30 * 24 * time.Hour
)

// HistoryPruner deletes recorded submissions older than the given cutoffs.
type HistoryPruner interface {
	DeleteBefore(ctx context.Context, successBefore, failureBefore time.Time) (int64, error)
}

// HistoryCleanup periodically removes old ride submission records.
type HistoryCleanup struct {
	pruner           HistoryPruner
	log              *logger.Logger
	interval         time.Duration
	successRetention time.Duration
	failureRetention time.Duration
	now              func() time.Time
}

func NewHistoryCleanup(pruner HistoryPruner, log *logger.Logger, interval, successRetention, failureRetention time.Duration) *HistoryCleanup {
	if interval <= 0 {
		interval = defaultHistoryCleanupInterval
	}
	if successRetention <= 0 {
		successRetention = defaultSuccessRetention
	}
	if failureRetention <= 0 {
		failureRetention = defaultFailureRetention
	}

	return &HistoryCleanup{
		pruner:           pruner,
		log:              log,
		interval:         interval,
		successRetention: successRetention,
		failureRetention: failureRetention,
		now:              time.Now,
	}
}

func (c *HistoryCleanup) Run(ctx context.Context) {
	if c == nil || c.pruner == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *HistoryCleanup) cleanup(ctx context.Context) {
	now := c.now()
	successBefore := now.Add(-c.successRetention)
	failureBefore := now.Add(-c.failureRetention)

	deleted, err := c.pruner.DeleteBefore(ctx, successBefore, failureBefore)
	if err != nil {
		c.log.Warn("ride submission history cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("ride submission history cleanup deleted records", "deleted", deleted)
	}
}
