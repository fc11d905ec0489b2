// Package quota tracks the server-reported remaining request quota and
// gates dispatch on it.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/edukit-io/canvas-client/internal/constants"
)

// Monitor holds the one piece of mutable state shared by all concurrent
// calls: the last-observed remaining quota. The server's figure always wins;
// local decrements are only an optimistic stopgap between an admission and
// the response that corrects it.
type Monitor struct {
	mu            sync.Mutex
	remaining     float64
	observed      bool
	buffer        float64
	checkInterval time.Duration
}

// NewMonitor creates a monitor with the given dispatch floor and poll
// interval. Before the first observation the quota is unknown and calls
// proceed immediately.
func NewMonitor(buffer float64, checkInterval time.Duration) *Monitor {
	if buffer <= 0 {
		buffer = constants.DefaultRateLimitBuffer
	}

	if checkInterval <= 0 {
		checkInterval = constants.DefaultCheckStatusInterval
	}

	return &Monitor{
		buffer:        buffer,
		checkInterval: checkInterval,
	}
}

// Consume optimistically decrements the tracked quota before a call fires,
// preventing over-dispatch inside the staggering window. It is a no-op
// until a real observation has arrived.
func (m *Monitor) Consume(cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.observed {
		m.remaining -= cost
	}
}

// Observe overwrites the tracked quota with the server's authoritative
// figure, superseding any local estimate.
func (m *Monitor) Observe(remaining float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remaining = remaining
	m.observed = true
}

// Remaining reports the tracked quota and whether any observation has
// arrived yet.
func (m *Monitor) Remaining() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.remaining, m.observed
}

// Ready reports whether dispatch is currently allowed. There is no upper
// bound, only a floor.
func (m *Monitor) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.observed || m.remaining >= m.buffer
}

// AwaitCapacity blocks while the tracked quota is below the buffer,
// re-checking every poll interval, and returns once capacity is available
// or the context is done.
func (m *Monitor) AwaitCapacity(ctx context.Context) error {
	if m.Ready() {
		return nil
	}

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Ready() {
				return nil
			}
		}
	}
}
