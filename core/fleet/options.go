package fleet

import (
	"time"

	"github.com/kilianp07/fleetnav/core/logger"
	"github.com/kilianp07/fleetnav/core/metrics"
	"github.com/kilianp07/fleetnav/core/traffic"
)

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for tick loop diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithEventSink sets where drained agent log entries go.
func WithEventSink(s EventSink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithMetrics sets the metrics sink fed after every tick.
func WithMetrics(s metrics.FleetSink) Option {
	return func(m *Manager) {
		if s != nil {
			m.metrics = s
		}
	}
}

// WithClock replaces time.Now for wait deadlines and conflict windows.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithParallel updates agents concurrently within a tick.
func WithParallel(enabled bool) Option {
	return func(m *Manager) { m.parallel = enabled }
}

// WithConflictHook registers a callback for every logged conflict.
func WithConflictHook(h func(traffic.Conflict)) Option {
	return func(m *Manager) {
		if h != nil {
			m.conflictHooks = append(m.conflictHooks, h)
		}
	}
}
