package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/kotor-apartments/stayboard/jobs"
)

// JobsCLI wraps manual management helpers for the dashboard tasks.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis connection.
func NewJobsCLI(opts asynq.RedisClientOpt) (*JobsCLI, error) {
	if opts.Addr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	errs = append(errs, c.client.Close())
	return errors.Join(errs...)
}

// Trigger enqueues a supported task by name.
func (c *JobsCLI) Trigger(ctx context.Context, name, reason string) (*asynq.TaskInfo, error) {
	if c == nil {
		return nil, jobs.ErrNotConfigured
	}
	return c.client.Trigger(ctx, name, reason)
}

// InspectQueue reports the state of the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	return jobs.InspectQueue(c.inspector)
}
