// Package scenarios replays scripted fleet runs on a simulated clock and
// reports ownership, completion and battery statistics.
package scenarios

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/navgraph"
)

type VertexDef struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Name    string  `yaml:"name,omitempty"`
	Charger bool    `yaml:"charger,omitempty"`
}

type GraphDef struct {
	Vertices []VertexDef `yaml:"vertices"`
	Lanes    [][2]int    `yaml:"lanes"`
}

// Build converts the inline definition into a navigation graph.
func (g GraphDef) Build() (*navgraph.Graph, error) {
	specs := make([]navgraph.VertexSpec, len(g.Vertices))
	for i, v := range g.Vertices {
		specs[i] = navgraph.VertexSpec{X: v.X, Y: v.Y, Name: v.Name, IsCharger: v.Charger}
	}
	return navgraph.New(specs, g.Lanes)
}

type AgentDef struct {
	Spawn   int      `yaml:"spawn"`
	Battery *float64 `yaml:"battery,omitempty"`
}

// Command kinds.
const (
	CommandAssign = "assign"
	CommandDrain  = "drain"
)

// CommandDef is applied right before the tick with the same number; tick 0
// runs before the first update.
type CommandDef struct {
	Tick   int     `yaml:"tick"`
	Kind   string  `yaml:"kind"`
	Agent  int     `yaml:"agent"`
	Target int     `yaml:"target,omitempty"`
	Amount float64 `yaml:"amount,omitempty"`
}

type Expectation struct {
	Agent  int    `yaml:"agent"`
	Status string `yaml:"status,omitempty"`
	Vertex *int   `yaml:"vertex,omitempty"`
}

type Scenario struct {
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description,omitempty"`
	Graph         GraphDef      `yaml:"graph"`
	Agents        []AgentDef    `yaml:"agents"`
	Commands      []CommandDef  `yaml:"commands"`
	Ticks         int           `yaml:"ticks"`
	TickPeriod    time.Duration `yaml:"tick_period,omitempty"`
	Parallel      bool          `yaml:"parallel,omitempty"`
	DirectedLanes bool          `yaml:"directed_lanes,omitempty"`
	Expected      []Expectation `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML scenario and validates it.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.TickPeriod == 0 {
		sc.TickPeriod = 100 * time.Millisecond
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}

// Validate checks references between agents, commands and expectations.
func (sc Scenario) Validate() error {
	if sc.Ticks <= 0 {
		return errors.New("ticks must be positive")
	}
	if sc.TickPeriod <= 0 {
		return errors.New("tick_period must be positive")
	}
	if len(sc.Graph.Vertices) == 0 {
		return errors.New("graph has no vertices")
	}
	for i, a := range sc.Agents {
		if a.Spawn < 0 || a.Spawn >= len(sc.Graph.Vertices) {
			return fmt.Errorf("agents[%d]: spawn vertex %d out of range", i, a.Spawn)
		}
	}
	for i, c := range sc.Commands {
		if c.Agent < 0 || c.Agent >= len(sc.Agents) {
			return fmt.Errorf("commands[%d]: unknown agent %d", i, c.Agent)
		}
		if c.Tick < 0 || c.Tick >= sc.Ticks {
			return fmt.Errorf("commands[%d]: tick %d outside run", i, c.Tick)
		}
		switch c.Kind {
		case CommandAssign, CommandDrain:
		default:
			return fmt.Errorf("commands[%d]: unknown kind %q", i, c.Kind)
		}
	}
	for i, e := range sc.Expected {
		if e.Agent < 0 || e.Agent >= len(sc.Agents) {
			return fmt.Errorf("expected[%d]: unknown agent %d", i, e.Agent)
		}
		if e.Status != "" {
			if _, err := model.ParseStatus(e.Status); err != nil {
				return fmt.Errorf("expected[%d]: %w", i, err)
			}
		}
	}
	return nil
}
