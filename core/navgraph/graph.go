// Package navgraph holds the immutable navigation graph shared by every agent
// and the breadth-first searches used for routing.
//
// A Graph is never mutated after New returns, so all methods are safe for
// concurrent use without locking.
package navgraph

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/kilianp07/fleetnav/core/model"
)

// VertexSpec is a vertex as produced by a graph loader.
type VertexSpec struct {
	X         float64
	Y         float64
	Name      string
	IsCharger bool
}

// Graph is a static set of vertices connected by bidirectional corridors.
type Graph struct {
	vertices []model.Vertex
	adj      [][]int
	lanes    []model.Lane
	laneSet  map[model.Lane]struct{}
	chargers []int
	bounds   orb.Bound
}

// New builds a graph from loader output. Lanes are unordered vertex pairs;
// both directions are stored and neighbors keep lane insertion order.
func New(vertices []VertexSpec, lanes [][2]int) (*Graph, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("graph has no vertices")
	}
	g := &Graph{
		vertices: make([]model.Vertex, len(vertices)),
		adj:      make([][]int, len(vertices)),
		laneSet:  make(map[model.Lane]struct{}, 2*len(lanes)),
	}
	for i, v := range vertices {
		name := v.Name
		if name == "" {
			name = fmt.Sprintf("V%d", i)
		}
		p := orb.Point{v.X, v.Y}
		g.vertices[i] = model.Vertex{ID: i, Point: p, Name: name, IsCharger: v.IsCharger}
		if v.IsCharger {
			g.chargers = append(g.chargers, i)
		}
		if i == 0 {
			g.bounds = orb.Bound{Min: p, Max: p}
		} else {
			g.bounds = g.bounds.Extend(p)
		}
	}
	for _, l := range lanes {
		a, b := l[0], l[1]
		if !g.valid(a) || !g.valid(b) {
			return nil, fmt.Errorf("lane (%d,%d) references unknown vertex", a, b)
		}
		if a == b {
			return nil, fmt.Errorf("lane (%d,%d) is a self loop", a, b)
		}
		if _, dup := g.laneSet[model.Lane{From: a, To: b}]; dup {
			continue
		}
		g.addLane(a, b)
		g.addLane(b, a)
	}
	return g, nil
}

func (g *Graph) addLane(from, to int) {
	l := model.Lane{From: from, To: to}
	g.laneSet[l] = struct{}{}
	g.lanes = append(g.lanes, l)
	g.adj[from] = append(g.adj[from], to)
}

func (g *Graph) valid(id int) bool { return id >= 0 && id < len(g.vertices) }

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.vertices) }

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id int) (model.Vertex, bool) {
	if !g.valid(id) {
		return model.Vertex{}, false
	}
	return g.vertices[id], true
}

// Vertices returns a copy of all vertices ordered by id.
func (g *Graph) Vertices() []model.Vertex {
	out := make([]model.Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Neighbors returns the vertices reachable in one hop, in lane insertion order.
func (g *Graph) Neighbors(id int) []int {
	if !g.valid(id) {
		return nil
	}
	out := make([]int, len(g.adj[id]))
	copy(out, g.adj[id])
	return out
}

// Lanes returns every directed lane.
func (g *Graph) Lanes() []model.Lane {
	out := make([]model.Lane, len(g.lanes))
	copy(out, g.lanes)
	return out
}

// HasLane reports whether from and to are adjacent.
func (g *Graph) HasLane(from, to int) bool {
	_, ok := g.laneSet[model.Lane{From: from, To: to}]
	return ok
}

// IsCharger reports whether the vertex is a charging station.
func (g *Graph) IsCharger(id int) bool {
	return g.valid(id) && g.vertices[id].IsCharger
}

// Chargers returns the charger vertex ids in ascending order.
func (g *Graph) Chargers() []int {
	out := make([]int, len(g.chargers))
	copy(out, g.chargers)
	return out
}

// Name returns the display name of a vertex.
func (g *Graph) Name(id int) string {
	if !g.valid(id) {
		return fmt.Sprintf("V%d", id)
	}
	return g.vertices[id].Name
}

// Point returns the coordinate of a vertex.
func (g *Graph) Point(id int) orb.Point {
	if !g.valid(id) {
		return orb.Point{}
	}
	return g.vertices[id].Point
}

// Bounds is the bounding box of all vertex coordinates.
func (g *Graph) Bounds() orb.Bound { return g.bounds }

// LaneLength returns the euclidean length of a lane, or 0 when the lane does
// not exist.
func (g *Graph) LaneLength(from, to int) float64 {
	if !g.HasLane(from, to) {
		return 0
	}
	return planar.Distance(g.vertices[from].Point, g.vertices[to].Point)
}
