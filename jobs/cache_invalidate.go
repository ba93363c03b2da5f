package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kotor-apartments/stayboard/internal/jobs"
)

// CacheInvalidator drops cached snapshots across instances.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CacheInvalidateJob bumps the snapshot cache version.
type CacheInvalidateJob struct {
	Invalidator CacheInvalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewCacheInvalidateJob wires dependencies for the invalidation handler.
func NewCacheInvalidateJob(invalidator CacheInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheInvalidateJob {
	return &CacheInvalidateJob{Invalidator: invalidator, Logger: logger, Metrics: metrics}
}

// Handle processes cache invalidation tasks.
func (j *CacheInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Invalidator == nil {
		return errors.New("cache invalidate: handler not configured")
	}
	var payload CacheInvalidatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheInvalidate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskCacheInvalidate), slog.String("reason", payload.Reason))
	if err := j.Invalidator.Invalidate(ctx); err != nil {
		logger.Error("invalidate snapshot cache", slog.Any("error", err))
		return err
	}
	logger.Info("snapshot cache invalidated")
	return nil
}
