package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Vertex is a navigable location of the environment graph.
type Vertex struct {
	ID        int       `json:"id"`
	Point     orb.Point `json:"point"`
	Name      string    `json:"name"`
	IsCharger bool      `json:"is_charger"`
}

// Lane is a directed traversal between two adjacent vertices.
type Lane struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Reverse returns the opposite direction of the same corridor.
func (l Lane) Reverse() Lane { return Lane{From: l.To, To: l.From} }

func (l Lane) String() string { return fmt.Sprintf("(%d,%d)", l.From, l.To) }

// LaneKey identifies a lane in the reservation tables. Corridor keys are
// direction-free so both directions of a corridor map to the same key.
type LaneKey struct {
	A, B int
}

// DirectedKey keys the lane by its travel direction.
func DirectedKey(l Lane) LaneKey { return LaneKey{A: l.From, B: l.To} }

// CorridorKey keys the lane by its physical corridor.
func CorridorKey(l Lane) LaneKey {
	if l.From > l.To {
		return LaneKey{A: l.To, B: l.From}
	}
	return LaneKey{A: l.From, B: l.To}
}

func (k LaneKey) String() string { return fmt.Sprintf("(%d,%d)", k.A, k.B) }
