package dashboard

import (
	"context"
	"sync"
	"time"
)

// DefaultRefreshDelay is the simulated latency of a manual refresh.
const DefaultRefreshDelay = time.Second

// Refresher tracks the "last updated" stamp shown on the dashboard. A refresh
// waits out the simulated delay and restamps; it does not reload records.
type Refresher struct {
	mu    sync.Mutex
	busy  bool
	last  time.Time
	delay time.Duration
	now   func() time.Time
}

// NewRefresher starts with the current time as the last update.
func NewRefresher(delay time.Duration, now func() time.Time) *Refresher {
	if now == nil {
		now = time.Now
	}
	if delay < 0 {
		delay = 0
	}
	return &Refresher{delay: delay, now: now, last: now()}
}

// LastUpdated returns the current stamp.
func (r *Refresher) LastUpdated() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Busy reports whether a refresh is in flight.
func (r *Refresher) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Refresh waits the simulated delay and stamps a new last-updated time. A call
// made while another refresh is running returns the current stamp at once.
func (r *Refresher) Refresh(ctx context.Context) (time.Time, error) {
	r.mu.Lock()
	if r.busy {
		last := r.last
		r.mu.Unlock()
		return last, nil
	}
	r.busy = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return r.LastUpdated(), ctx.Err()
		case <-timer.C:
		}
	}

	r.mu.Lock()
	r.last = r.now()
	stamp := r.last
	r.mu.Unlock()
	return stamp, nil
}
