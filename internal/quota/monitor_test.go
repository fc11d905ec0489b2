package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorOptimisticStart(t *testing.T) {
	t.Parallel()

	m := NewMonitor(300, time.Second)

	assert.True(t, m.Ready(), "dispatch should be allowed before any observation")

	_, observed := m.Remaining()
	assert.False(t, observed)

	err := m.AwaitCapacity(context.Background())
	require.NoError(t, err, "AwaitCapacity should not block before any observation")
}

func TestMonitorConsumeBeforeObservation(t *testing.T) {
	t.Parallel()

	m := NewMonitor(300, time.Second)

	// Decrements before the first observation must not push the unknown
	// quota below the buffer.
	m.Consume(1)
	m.Consume(1)

	assert.True(t, m.Ready())

	remaining, observed := m.Remaining()
	assert.False(t, observed)
	assert.Zero(t, remaining)
}

func TestMonitorObserveWins(t *testing.T) {
	t.Parallel()

	m := NewMonitor(300, time.Second)

	m.Observe(700)
	m.Consume(1)

	remaining, observed := m.Remaining()
	assert.True(t, observed)
	assert.InDelta(t, 699, remaining, 0.001)

	// A fresh server figure supersedes the local estimate.
	m.Observe(650)

	remaining, _ = m.Remaining()
	assert.InDelta(t, 650, remaining, 0.001)
}

func TestMonitorBlocksBelowBuffer(t *testing.T) {
	t.Parallel()

	m := NewMonitor(300, 10*time.Millisecond)
	m.Observe(50)

	assert.False(t, m.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.AwaitCapacity(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMonitorResumesWhenQuotaRecovers(t *testing.T) {
	t.Parallel()

	m := NewMonitor(300, 5*time.Millisecond)
	m.Observe(50)

	done := make(chan error, 1)

	go func() {
		done <- m.AwaitCapacity(context.Background())
	}()

	time.Sleep(15 * time.Millisecond)
	m.Observe(500)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitCapacity did not resume after quota recovered")
	}
}

func TestMonitorDefaults(t *testing.T) {
	t.Parallel()

	m := NewMonitor(0, 0)

	m.Observe(299)
	assert.False(t, m.Ready(), "default buffer should gate at 300")

	m.Observe(300)
	assert.True(t, m.Ready())
}
