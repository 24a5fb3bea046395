package events

import (
	"time"

	"github.com/kilianp07/fleetnav/core/model"
)

// AgentLog carries one log entry drained from an agent.
type AgentLog struct {
	Entry model.LogEntry
}

// Conflict is published whenever the coordinator logs a conflict.
type Conflict struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Tick is published after every orchestrator cycle.
type Tick struct {
	Number    uint64
	Duration  time.Duration
	Snapshots []model.AgentSnapshot
}
