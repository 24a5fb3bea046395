package metrics

import (
	"time"

	"github.com/kilianp07/fleetnav/core/model"
)

// TickSummary aggregates one orchestrator cycle.
type TickSummary struct {
	Tick            uint64
	Time            time.Time
	Duration        time.Duration
	Agents          int
	StatusCounts    map[model.Status]int
	ActiveConflicts int
	MeanBattery     float64
}

// FleetSink records tick summaries.
type FleetSink interface {
	RecordTick(s TickSummary) error
}

// AgentStateRecorder records per-agent snapshots after a tick.
type AgentStateRecorder interface {
	RecordAgentStates(states []model.AgentSnapshot) error
}

// ConflictEvent is a conflict reported by the coordinator.
type ConflictEvent struct {
	Time    time.Time
	Message string
}

// ConflictRecorder records conflicts as they are logged.
type ConflictRecorder interface {
	RecordConflict(ev ConflictEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickSummary) error                  { return nil }
func (NopSink) RecordAgentStates([]model.AgentSnapshot) error { return nil }
func (NopSink) RecordConflict(ConflictEvent) error            { return nil }
