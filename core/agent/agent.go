// Package agent implements the per-agent state machine: planning, lane
// traversal with reservations, retries, waiting and charging.
package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/navgraph"
	"github.com/kilianp07/fleetnav/core/traffic"
)

// Rejection reasons returned by AssignTask.
const (
	ReasonAssigned        = "task assigned"
	ReasonCharging        = "charging in progress"
	ReasonCriticalBattery = "critical battery"
	ReasonAtTarget        = "already at target"
	ReasonNoPath          = "no path found"
	ReasonInvalidTarget   = "invalid target"
	ReasonDisabled        = "agent disabled"
)

// Agent is one fleet member. All methods are safe for concurrent use; a
// single Update must not run concurrently with itself.
type Agent struct {
	mu sync.Mutex

	id    int
	graph *navgraph.Graph
	coord *traffic.Coordinator
	cfg   Config
	now   func() time.Time

	current   int
	target    int
	hasTarget bool
	path      []int // remaining hops, head is the next vertex
	lane      *model.Lane
	progress  float64

	status         model.Status
	battery        float64
	chargeProgress float64

	emergency        bool
	pathRetries      int
	emergencyRetries int
	waitUntil        time.Time

	logs []model.LogEntry
}

// New creates an idle agent parked at start with a full battery.
func New(id, start int, g *navgraph.Graph, c *traffic.Coordinator, cfg Config, now func() time.Time) *Agent {
	if now == nil {
		now = time.Now
	}
	a := &Agent{
		id:      id,
		graph:   g,
		coord:   c,
		cfg:     cfg,
		now:     now,
		current: start,
		target:  start,
		status:  model.StatusIdle,
		battery: 100,
	}
	a.logf("Agent %d spawned at %s", id, g.Name(start))
	return a
}

// ID returns the agent identifier.
func (a *Agent) ID() int { return a.id }

// Status returns the current state.
func (a *Agent) Status() model.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Battery returns the battery level in percent.
func (a *Agent) Battery() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.battery
}

// Current returns the vertex the agent is at or departing from.
func (a *Agent) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// SetBattery overrides the battery level, clamped to [0,100].
func (a *Agent) SetBattery(level float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.battery = clamp(level)
}

// DrainBattery removes amount percent of battery. The status is left alone;
// the next Update reacts to the new level.
func (a *Agent) DrainBattery(amount float64) {
	if amount <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.battery = clamp(a.battery - amount)
	a.logf("Battery manually reduced to %.0f%%", a.battery)
	if a.battery <= a.cfg.LowThreshold {
		a.logf("Battery at or below low threshold (%.0f%%)", a.battery)
	}
}

// Position interpolates the agent's coordinate along its current lane.
func (a *Agent) Position() orb.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position()
}

func (a *Agent) position() orb.Point {
	from := a.graph.Point(a.current)
	if a.lane == nil {
		return from
	}
	to := a.graph.Point(a.lane.To)
	p := a.progress
	return orb.Point{from[0] + (to[0]-from[0])*p, from[1] + (to[1]-from[1])*p}
}

// Snapshot returns a copy of the observable state.
func (a *Agent) Snapshot() model.AgentSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := model.AgentSnapshot{
		ID:             a.id,
		Status:         a.status,
		Battery:        a.battery,
		ChargeProgress: a.chargeProgress,
		Position:       a.position(),
		Current:        a.current,
		Target:         a.target,
		HasTarget:      a.hasTarget,
		Progress:       a.progress,
		Path:           append([]int(nil), a.path...),
		Emergency:      a.emergency,
	}
	if a.lane != nil {
		l := *a.lane
		s.Lane = &l
	}
	return s
}

// Logs drains the pending log entries in FIFO order.
func (a *Agent) Logs() []model.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.logs
	a.logs = nil
	return out
}

func (a *Agent) logf(format string, args ...any) {
	a.logs = append(a.logs, model.LogEntry{
		AgentID: a.id,
		Time:    a.now(),
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *Agent) name(v int) string { return a.graph.Name(v) }

func clamp(b float64) float64 {
	switch {
	case b < 0:
		return 0
	case b > 100:
		return 100
	}
	return b
}
