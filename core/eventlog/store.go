// Package eventlog defines persistent storage for agent log entries.
package eventlog

import (
	"context"
	"time"

	"github.com/kilianp07/fleetnav/core/model"
)

// Query filters stored entries. Zero values disable a filter.
type Query struct {
	Start   time.Time
	End     time.Time
	AgentID *int
	Limit   int
}

// Match reports whether e passes the filter, ignoring Limit.
func (q Query) Match(e model.LogEntry) bool {
	if !q.Start.IsZero() && e.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Time.After(q.End) {
		return false
	}
	if q.AgentID != nil && e.AgentID != *q.AgentID {
		return false
	}
	return true
}

// Store persists agent log entries.
type Store interface {
	Append(ctx context.Context, e model.LogEntry) error
	Query(ctx context.Context, q Query) ([]model.LogEntry, error)
	Close() error
}
