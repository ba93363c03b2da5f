package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshStampsNewTime(t *testing.T) {
	start := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	clock := start
	r := NewRefresher(0, func() time.Time { return clock })
	assert.Equal(t, start, r.LastUpdated())

	clock = start.Add(time.Minute)
	stamp, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, clock, stamp)
	assert.Equal(t, clock, r.LastUpdated())
	assert.False(t, r.Busy())
}

func TestRefreshWhileBusyIsNoop(t *testing.T) {
	start := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	r := NewRefresher(200*time.Millisecond, func() time.Time { return start })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Refresh(context.Background())
	}()
	require.Eventually(t, r.Busy, time.Second, 5*time.Millisecond)

	stamp, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start, stamp)
	<-done
	assert.False(t, r.Busy())
}

func TestRefreshCancelled(t *testing.T) {
	start := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	r := NewRefresher(time.Hour, func() time.Time { return start.Add(time.Hour) })
	r.last = start

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stamp, err := r.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, start, stamp)
	assert.False(t, r.Busy())
}
