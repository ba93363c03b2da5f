package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
	jobmetrics "github.com/kotor-apartments/stayboard/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SnapshotWarmer loads a fresh snapshot and stores it in the shared cache.
type SnapshotWarmer interface {
	Warm(ctx context.Context) (dashboard.Snapshot, error)
}

// SnapshotWarmupJob keeps the snapshot cache hot so page loads skip the record source.
type SnapshotWarmupJob struct {
	Warmer  SnapshotWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(warmer SnapshotWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{
		Warmer:  warmer,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 30 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes snapshot warmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Warmer == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	var payload SnapshotWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskSnapshotWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := j.now()

	warmCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		warmCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	snap, err := j.Warmer.Warm(warmCtx)
	if err != nil {
		logger.Error("warm snapshot", slog.Any("error", err))
		return err
	}
	if snap.Degraded {
		logger.Warn("warmed snapshot is degraded")
	}

	m := j.metrics()
	m.SetWarmedRecords("apartments", len(snap.Apartments))
	m.SetWarmedRecords("reservations", len(snap.Reservations))
	m.SetWarmedRecords("cleaning_jobs", len(snap.CleaningJobs))

	logger.Info("completed snapshot warmup",
		slog.Int("apartments", len(snap.Apartments)),
		slog.Int("reservations", len(snap.Reservations)),
		slog.Int("cleaning_jobs", len(snap.CleaningJobs)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return nil
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}

func (j *SnapshotWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SnapshotWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
