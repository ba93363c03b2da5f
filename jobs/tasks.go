package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotWarmup reloads the record snapshot into the shared cache.
	TaskSnapshotWarmup = "dashboard:snapshot_warmup"
	// TaskCacheInvalidate bumps the snapshot cache version on every instance.
	TaskCacheInvalidate = "dashboard:cache_invalidate"
)

// SnapshotWarmupPayload describes why a warmup was requested.
type SnapshotWarmupPayload struct {
	Reason string `json:"reason"`
}

// CacheInvalidatePayload describes why the cache was dropped.
type CacheInvalidatePayload struct {
	Reason string `json:"reason"`
}

// NewSnapshotWarmupTask builds a warmup task. An empty reason is recorded as "manual".
func NewSnapshotWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	body, err := json.Marshal(SnapshotWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarmup, body, asynq.Queue(QueueDefault)), nil
}

// NewCacheInvalidateTask builds a cache invalidation task.
func NewCacheInvalidateTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	body, err := json.Marshal(CacheInvalidatePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheInvalidate, body, asynq.Queue(QueueDefault)), nil
}

// NewTask resolves a task by its type name, as used by the CLI trigger.
func NewTask(name, reason string) (*asynq.Task, error) {
	switch name {
	case TaskSnapshotWarmup:
		return NewSnapshotWarmupTask(reason)
	case TaskCacheInvalidate:
		return NewCacheInvalidateTask(reason)
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
}
