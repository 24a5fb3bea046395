package model

import (
	"time"

	"github.com/paulmach/orb"
)

// AgentSnapshot is a point-in-time view of an agent for observers.
type AgentSnapshot struct {
	ID             int       `json:"id"`
	Status         Status    `json:"status"`
	Battery        float64   `json:"battery"`
	ChargeProgress float64   `json:"charge_progress"`
	Position       orb.Point `json:"position"`
	Current        int       `json:"current"`
	Target         int       `json:"target"`
	HasTarget      bool      `json:"has_target"`
	Lane           *Lane     `json:"lane,omitempty"`
	Progress       float64   `json:"progress"`
	Path           []int     `json:"path"`
	Emergency      bool      `json:"emergency"`
}

// LogEntry is one human-readable event emitted by an agent.
type LogEntry struct {
	AgentID int       `json:"agent_id"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// String formats the entry the way the event log sinks print it.
func (e LogEntry) String() string {
	return e.Time.Format("2006-01-02 15:04:05") + " - " + e.Message
}
