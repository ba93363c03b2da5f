package jobs

import (
	"errors"

	"github.com/hibiken/asynq"
)

// QueueStats is a point-in-time view of the default queue.
type QueueStats struct {
	Queue          string  `json:"queue"`
	Paused         bool    `json:"paused"`
	Pending        int     `json:"pending"`
	Active         int     `json:"active"`
	Scheduled      int     `json:"scheduled"`
	Retry          int     `json:"retry"`
	Archived       int     `json:"archived"`
	ProcessedToday int     `json:"processedToday"`
	FailedToday    int     `json:"failedToday"`
	LatencySeconds float64 `json:"latencySeconds"`
}

// InspectQueue reads the default queue. A queue that has never seen a task
// reports zeros rather than an error.
func InspectQueue(inspector *asynq.Inspector) (QueueStats, error) {
	stats := QueueStats{Queue: QueueDefault}
	if inspector == nil {
		return stats, nil
	}
	info, err := inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return stats, nil
		}
		return QueueStats{}, err
	}
	if info == nil {
		return stats, nil
	}
	return QueueStats{
		Queue:          info.Queue,
		Paused:         info.Paused,
		Pending:        info.Pending,
		Active:         info.Active,
		Scheduled:      info.Scheduled,
		Retry:          info.Retry,
		Archived:       info.Archived,
		ProcessedToday: info.Processed,
		FailedToday:    info.Failed,
		LatencySeconds: info.Latency.Seconds(),
	}, nil
}
