package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind names a remote fleet operation.
type CommandKind string

const (
	CommandSpawn CommandKind = "spawn"
	CommandTask  CommandKind = "task"
	CommandDrain CommandKind = "drain"
)

// Command is a decoded inbound request.
type Command struct {
	Kind      CommandKind `json:"kind"`
	CommandID string      `json:"command_id"`
	AgentID   int         `json:"agent_id"`
	Vertex    int         `json:"vertex"`
	Target    int         `json:"target"`
	Amount    float64     `json:"amount"`
}

// Ack answers a Command.
type Ack struct {
	CommandID string `json:"command_id"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
	AgentID   int    `json:"agent_id"`
}

// Fleet is the part of the fleet manager commands act on.
type Fleet interface {
	Spawn(vertex int) (int, error)
	VertexVacant(vertex int) bool
	AssignTask(id, target int) (bool, string)
	DrainBattery(id int, amount float64) error
}

// Apply runs the command against f and builds the acknowledgment.
func (c Command) Apply(f Fleet) Ack {
	ack := Ack{CommandID: c.CommandID, AgentID: c.AgentID}
	switch c.Kind {
	case CommandSpawn:
		if !f.VertexVacant(c.Vertex) {
			ack.Reason = "vertex occupied"
			return ack
		}
		id, err := f.Spawn(c.Vertex)
		if err != nil {
			ack.Reason = err.Error()
			return ack
		}
		ack.AgentID, ack.Success, ack.Reason = id, true, "agent spawned"
	case CommandTask:
		ack.Success, ack.Reason = f.AssignTask(c.AgentID, c.Target)
	case CommandDrain:
		if err := f.DrainBattery(c.AgentID, c.Amount); err != nil {
			ack.Reason = err.Error()
			return ack
		}
		ack.Success, ack.Reason = true, "battery drained"
	default:
		ack.Reason = fmt.Sprintf("unknown command %q", c.Kind)
	}
	return ack
}

// topics groups the bridge topic names under one prefix.
type topics struct{ prefix string }

func (t topics) spawn() string          { return t.prefix + "/spawn" }
func (t topics) task() string           { return t.prefix + "/agents/+/task" }
func (t topics) drain() string          { return t.prefix + "/agents/+/drain" }
func (t topics) conflicts() string      { return t.prefix + "/conflicts" }
func (t topics) ack(agent int) string   { return fmt.Sprintf("%s/agents/%d/ack", t.prefix, agent) }
func (t topics) state(agent int) string { return fmt.Sprintf("%s/agents/%d/state", t.prefix, agent) }
func (t topics) spawnAck() string       { return t.prefix + "/spawn/ack" }

// agentFromTopic extracts the id from <prefix>/agents/<id>/<verb>.
func (t topics) agentFromTopic(topic string) (int, error) {
	rest := strings.TrimPrefix(topic, t.prefix+"/agents/")
	if rest == topic {
		return 0, fmt.Errorf("topic %s outside %s/agents", topic, t.prefix)
	}
	idStr, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, fmt.Errorf("topic %s has no verb", topic)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("topic %s: agent id: %w", topic, err)
	}
	return id, nil
}
