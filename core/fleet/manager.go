// Package fleet is the composition root of the coordination core: it owns
// the agents, the shared coordinator and the tick loop.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetnav/core/agent"
	"github.com/kilianp07/fleetnav/core/logger"
	"github.com/kilianp07/fleetnav/core/metrics"
	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/monitoring"
	"github.com/kilianp07/fleetnav/core/navgraph"
	"github.com/kilianp07/fleetnav/core/traffic"
)

// ErrUnknownAgent is returned for ids that were never spawned.
var ErrUnknownAgent = errors.New("unknown agent")

// ReasonInvalidAgent is the AssignTask reason for an unknown id.
const ReasonInvalidAgent = "invalid agent id"

// Config groups the fleet wide settings.
type Config struct {
	Agent            agent.Config
	DirectedLanes    bool
	ConflictWindow   time.Duration
	ConflictCapacity int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{Agent: agent.DefaultConfig(), ConflictWindow: 5 * time.Second, ConflictCapacity: 256}
}

// Manager owns the agents of one graph. Mutating calls (Spawn, AssignTask,
// DrainBattery, Tick) are serialized so commands always land between ticks.
type Manager struct {
	graph *navgraph.Graph
	coord *traffic.Coordinator
	cfg   Config

	op     sync.Mutex
	mu     sync.RWMutex
	agents []*agent.Agent
	ticks  atomic.Uint64

	log           logger.Logger
	sink          EventSink
	metrics       metrics.FleetSink
	now           func() time.Time
	parallel      bool
	conflictHooks []func(traffic.Conflict)
}

// NewManager builds a manager for g.
func NewManager(g *navgraph.Graph, cfg Config, opts ...Option) (*Manager, error) {
	if g == nil {
		return nil, errors.New("fleet: nil graph")
	}
	if err := cfg.Agent.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		graph:   g,
		cfg:     cfg,
		log:     logger.NopLogger{},
		metrics: metrics.NopSink{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.coord = traffic.NewCoordinator(traffic.Options{
		DirectedLanes:    cfg.DirectedLanes,
		ConflictWindow:   cfg.ConflictWindow,
		ConflictCapacity: cfg.ConflictCapacity,
		Now:              m.now,
		OnConflict:       m.onConflict,
	})
	return m, nil
}

func (m *Manager) onConflict(c traffic.Conflict) {
	m.log.Warnf("conflict: %s", c.Message)
	if r, ok := m.metrics.(metrics.ConflictRecorder); ok {
		if err := r.RecordConflict(metrics.ConflictEvent{Time: c.Time, Message: c.Message}); err != nil {
			m.log.Errorf("record conflict: %v", err)
		}
	}
	for _, h := range m.conflictHooks {
		h(c)
	}
}

// Spawn creates an agent parked at vertex and returns its id. Vacancy is the
// caller's responsibility; see VertexVacant. The agent claims no reservation
// until it first moves, so until then other agents may route through and
// stop on its vertex.
func (m *Manager) Spawn(vertex int) (int, error) {
	if vertex < 0 || vertex >= m.graph.Len() {
		return 0, fmt.Errorf("spawn: vertex %d out of range [0,%d)", vertex, m.graph.Len())
	}
	m.op.Lock()
	defer m.op.Unlock()
	m.mu.Lock()
	id := len(m.agents)
	a := agent.New(id, vertex, m.graph, m.coord, m.cfg.Agent, m.now)
	m.agents = append(m.agents, a)
	m.mu.Unlock()
	m.log.Infof("agent %d spawned at %s", id, m.graph.Name(vertex))
	return id, nil
}

// VertexVacant reports whether no agent is parked on or has reserved vertex.
func (m *Manager) VertexVacant(vertex int) bool {
	if _, owned := m.coord.VertexOwner(vertex); owned {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agents {
		s := a.Snapshot()
		if s.Current == vertex || (s.Lane != nil && s.Lane.To == vertex) {
			return false
		}
	}
	return true
}

// AssignTask routes agent id to target.
func (m *Manager) AssignTask(id, target int) (bool, string) {
	a, err := m.agent(id)
	if err != nil {
		return false, ReasonInvalidAgent
	}
	m.op.Lock()
	ok, reason := a.AssignTask(target)
	m.op.Unlock()
	if ok {
		m.log.Infof("agent %d assigned task to %s", id, m.graph.Name(target))
	} else {
		m.log.Warnf("failed to assign task to agent %d: %s", id, reason)
	}
	m.forward(context.Background(), a.Logs())
	return ok, reason
}

// DrainBattery reduces the battery of agent id.
func (m *Manager) DrainBattery(id int, amount float64) error {
	a, err := m.agent(id)
	if err != nil {
		return err
	}
	m.op.Lock()
	a.DrainBattery(amount)
	m.op.Unlock()
	m.forward(context.Background(), a.Logs())
	return nil
}

// SetBattery overrides the battery level of agent id.
func (m *Manager) SetBattery(id int, level float64) error {
	a, err := m.agent(id)
	if err != nil {
		return err
	}
	m.op.Lock()
	a.SetBattery(level)
	m.op.Unlock()
	return nil
}

// Tick updates every agent once, in registration order unless parallel
// updates are enabled, then forwards their logs and records metrics.
func (m *Manager) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	m.op.Lock()
	defer m.op.Unlock()

	agents := m.list()
	if m.parallel {
		g := new(errgroup.Group)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, a := range agents {
			g.Go(func() error {
				a.Update()
				return nil
			})
		}
		_ = g.Wait()
		for _, a := range agents {
			m.forward(ctx, a.Logs())
		}
	} else {
		for _, a := range agents {
			a.Update()
			m.forward(ctx, a.Logs())
		}
	}

	n := m.ticks.Add(1)
	snaps := make([]model.AgentSnapshot, len(agents))
	for i, a := range agents {
		snaps[i] = a.Snapshot()
	}
	m.record(n, time.Since(start), snaps)
	return nil
}

func (m *Manager) forward(ctx context.Context, entries []model.LogEntry) {
	if len(entries) == 0 || m.sink == nil {
		return
	}
	if err := m.sink.Emit(ctx, entries); err != nil {
		m.log.Errorf("event sink: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "fleet"})
	}
}

func (m *Manager) record(n uint64, d time.Duration, snaps []model.AgentSnapshot) {
	s := metrics.TickSummary{
		Tick:            n,
		Time:            m.now(),
		Duration:        d,
		Agents:          len(snaps),
		StatusCounts:    make(map[model.Status]int, len(model.Statuses)),
		ActiveConflicts: len(m.coord.ActiveConflicts()),
	}
	var total float64
	for _, sn := range snaps {
		s.StatusCounts[sn.Status]++
		total += sn.Battery
	}
	if len(snaps) > 0 {
		s.MeanBattery = total / float64(len(snaps))
	}
	if err := m.metrics.RecordTick(s); err != nil {
		m.log.Errorf("record tick: %v", err)
	}
	if r, ok := m.metrics.(metrics.AgentStateRecorder); ok {
		if err := r.RecordAgentStates(snaps); err != nil {
			m.log.Errorf("record agent states: %v", err)
		}
	}
	m.log.Debugw("tick", map[string]any{"tick": n, "agents": len(snaps), "duration_ms": d.Milliseconds()})
}

// Position returns the interpolated coordinate of agent id.
func (m *Manager) Position(id int) (orb.Point, error) {
	a, err := m.agent(id)
	if err != nil {
		return orb.Point{}, err
	}
	return a.Position(), nil
}

// Status returns the state of agent id.
func (m *Manager) Status(id int) (model.Status, error) {
	a, err := m.agent(id)
	if err != nil {
		return 0, err
	}
	return a.Status(), nil
}

// Snapshot returns the observable state of agent id.
func (m *Manager) Snapshot(id int) (model.AgentSnapshot, error) {
	a, err := m.agent(id)
	if err != nil {
		return model.AgentSnapshot{}, err
	}
	return a.Snapshot(), nil
}

// Snapshots returns every agent in registration order.
func (m *Manager) Snapshots() []model.AgentSnapshot {
	agents := m.list()
	out := make([]model.AgentSnapshot, len(agents))
	for i, a := range agents {
		out[i] = a.Snapshot()
	}
	return out
}

// Conflicts returns the active conflict messages.
func (m *Manager) Conflicts() []string { return m.coord.ActiveConflicts() }

// ConflictLog returns the active conflicts with timestamps.
func (m *Manager) ConflictLog() []traffic.Conflict { return m.coord.Conflicts() }

// Owners returns a copy of the reservation tables.
func (m *Manager) Owners() traffic.Owners { return m.coord.Owners() }

// Waiting returns the agents registered as waiting at vertex.
func (m *Manager) Waiting(vertex int) []int { return m.coord.Waiting(vertex) }

// Graph returns the navigation graph.
func (m *Manager) Graph() *navgraph.Graph { return m.graph }

// Len returns the number of spawned agents.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// TickCount returns the number of completed ticks.
func (m *Manager) TickCount() uint64 { return m.ticks.Load() }

func (m *Manager) agent(id int) (*agent.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.agents) {
		return nil, fmt.Errorf("agent %d: %w", id, ErrUnknownAgent)
	}
	return m.agents[id], nil
}

func (m *Manager) list() []*agent.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*agent.Agent(nil), m.agents...)
}
