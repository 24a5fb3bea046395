package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetnav/core/events"
	"github.com/kilianp07/fleetnav/core/fleet"
	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/traffic"
	"github.com/kilianp07/fleetnav/internal/eventbus"
)

// ErrOwnershipBreach is returned when two agents hold the same corridor or
// enter the same vertex during one tick.
var ErrOwnershipBreach = errors.New("exclusive lane ownership breached")

// Epoch is the simulated start time of every run.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type AgentTrace struct {
	ID       int          `json:"id"`
	Status   model.Status `json:"status"`
	Vertex   int          `json:"vertex"`
	Battery  float64      `json:"battery"`
	Lane     *model.Lane  `json:"lane,omitempty"`
	Progress float64      `json:"progress"`
}

type TickTrace struct {
	Tick   int          `json:"tick"`
	Time   time.Time    `json:"time"`
	Agents []AgentTrace `json:"agents"`
	// Owners is the largest number of agents sharing one lane key or
	// entering one vertex during this tick.
	Owners int `json:"owners"`
}

type Report struct {
	RunID     string      `json:"run_id"`
	Scenario  string      `json:"scenario"`
	Ticks     int         `json:"ticks"`
	Trace     []TickTrace `json:"trace"`
	MaxOwners int         `json:"max_owners"`
	// Completion maps an agent to the first tick it was seen Complete.
	Completion    map[int]int      `json:"completion"`
	Conflicts     int              `json:"conflicts"`
	BatteryMean   float64          `json:"battery_mean"`
	BatteryStdDev float64          `json:"battery_std_dev"`
	Logs          []model.LogEntry `json:"logs"`
	DroppedLogs   uint64           `json:"dropped_logs"`
	Failures      []string         `json:"failures,omitempty"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool { return len(r.Failures) == 0 }

type simClock struct{ t time.Time }

func (c *simClock) now() time.Time { return c.t }

// Run replays sc. Expectation mismatches are listed in the report; an
// ownership breach aborts the run with ErrOwnershipBreach.
func Run(ctx context.Context, sc *Scenario) (*Report, error) {
	g, err := sc.Graph.Build()
	if err != nil {
		return nil, err
	}
	clock := &simClock{t: Epoch}
	logs := eventbus.New[events.AgentLog](1024)
	defer logs.Close()
	sub := logs.Subscribe()

	key := model.CorridorKey
	if sc.DirectedLanes {
		key = model.DirectedKey
	}
	var conflicts atomic.Int64
	rep := &Report{RunID: uuid.NewString(), Scenario: sc.Name, Ticks: sc.Ticks, Completion: map[int]int{}}
	cfg := fleet.DefaultConfig()
	cfg.DirectedLanes = sc.DirectedLanes
	m, err := fleet.NewManager(g, cfg,
		fleet.WithClock(clock.now),
		fleet.WithParallel(sc.Parallel),
		fleet.WithEventSink(fleet.BusSink{Bus: logs}),
		fleet.WithConflictHook(func(traffic.Conflict) { conflicts.Add(1) }),
	)
	if err != nil {
		return nil, err
	}
	for i, a := range sc.Agents {
		if _, err := m.Spawn(a.Spawn); err != nil {
			return nil, fmt.Errorf("agents[%d]: %w", i, err)
		}
		if a.Battery != nil {
			if err := m.SetBattery(i, *a.Battery); err != nil {
				return nil, err
			}
		}
	}

	byTick := map[int][]CommandDef{}
	for _, c := range sc.Commands {
		byTick[c.Tick] = append(byTick[c.Tick], c)
	}

	drain := func() {
		for {
			select {
			case ev := <-sub:
				rep.Logs = append(rep.Logs, ev.Entry)
			default:
				return
			}
		}
	}

	for tick := 0; tick < sc.Ticks; tick++ {
		for _, c := range byTick[tick] {
			apply(m, c)
		}
		if err := m.Tick(ctx); err != nil {
			return rep, err
		}
		drain()
		tr := trace(tick, clock.now(), m.Snapshots(), key)
		rep.Trace = append(rep.Trace, tr)
		rep.MaxOwners = max(rep.MaxOwners, tr.Owners)
		for _, a := range tr.Agents {
			if _, seen := rep.Completion[a.ID]; !seen && a.Status == model.StatusComplete {
				rep.Completion[a.ID] = tick
			}
		}
		if tr.Owners > 1 {
			return rep, fmt.Errorf("tick %d: %w", tick, ErrOwnershipBreach)
		}
		clock.t = clock.t.Add(sc.TickPeriod)
	}
	rep.DroppedLogs = logs.Dropped()
	rep.Conflicts = int(conflicts.Load())

	final := m.Snapshots()
	batteries := make([]float64, len(final))
	for i, s := range final {
		batteries[i] = s.Battery
	}
	if len(batteries) > 0 {
		rep.BatteryMean, rep.BatteryStdDev = stat.MeanStdDev(batteries, nil)
	}
	rep.Failures = check(sc.Expected, final)
	return rep, nil
}

func apply(m *fleet.Manager, c CommandDef) {
	switch c.Kind {
	case CommandAssign:
		m.AssignTask(c.Agent, c.Target)
	case CommandDrain:
		_ = m.DrainBattery(c.Agent, c.Amount)
	}
}

func trace(tick int, now time.Time, snaps []model.AgentSnapshot, key func(model.Lane) model.LaneKey) TickTrace {
	tr := TickTrace{Tick: tick, Time: now}
	corridors := map[model.LaneKey]int{}
	heads := map[int]int{}
	for _, s := range snaps {
		tr.Agents = append(tr.Agents, AgentTrace{
			ID: s.ID, Status: s.Status, Vertex: s.Current, Battery: s.Battery, Lane: s.Lane, Progress: s.Progress,
		})
		if s.Lane == nil || s.Progress == 0 {
			continue
		}
		corridors[key(*s.Lane)]++
		heads[s.Lane.To]++
	}
	for _, n := range corridors {
		tr.Owners = max(tr.Owners, n)
	}
	for _, n := range heads {
		tr.Owners = max(tr.Owners, n)
	}
	return tr
}

func check(expected []Expectation, final []model.AgentSnapshot) []string {
	var out []string
	for _, e := range expected {
		s := final[e.Agent]
		if e.Status != "" && s.Status.String() != e.Status {
			out = append(out, fmt.Sprintf("agent %d: status %s, want %s", e.Agent, s.Status, e.Status))
		}
		if e.Vertex != nil && s.Current != *e.Vertex {
			out = append(out, fmt.Sprintf("agent %d: vertex %d, want %d", e.Agent, s.Current, *e.Vertex))
		}
	}
	sort.Strings(out)
	return out
}
