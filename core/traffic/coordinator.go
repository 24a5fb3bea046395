// Package traffic arbitrates vertex and lane occupancy between agents.
package traffic

import (
	"sync"
	"time"

	"github.com/kilianp07/fleetnav/core/model"
)

// Options configures a Coordinator.
type Options struct {
	// DirectedLanes keys lanes by travel direction instead of by corridor.
	DirectedLanes bool
	// ConflictWindow is how long a conflict stays active.
	ConflictWindow time.Duration
	// ConflictCapacity bounds the number of retained conflicts.
	ConflictCapacity int
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// OnConflict is invoked, outside the lock, for every logged conflict.
	OnConflict func(Conflict)
}

// Coordinator owns the reservation tables. Every operation runs inside one
// critical section; TryReserve is a single test-and-set so two agents can
// never both win the same resource.
type Coordinator struct {
	mu          sync.Mutex
	vertexOwner map[int]int
	laneOwner   map[model.LaneKey]int
	waiting     map[int][]int
	conflicts   *ConflictLog

	key        func(model.Lane) model.LaneKey
	now        func() time.Time
	onConflict func(Conflict)
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.ConflictWindow <= 0 {
		opts.ConflictWindow = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	key := model.CorridorKey
	if opts.DirectedLanes {
		key = model.DirectedKey
	}
	return &Coordinator{
		vertexOwner: make(map[int]int),
		laneOwner:   make(map[model.LaneKey]int),
		waiting:     make(map[int][]int),
		conflicts:   NewConflictLog(opts.ConflictWindow, opts.ConflictCapacity),
		key:         key,
		now:         opts.Now,
		onConflict:  opts.OnConflict,
	}
}

// LaneKey maps a lane to its reservation key under the configured policy.
func (c *Coordinator) LaneKey(l model.Lane) model.LaneKey { return c.key(l) }

// KeyFunc returns the lane keying policy, for seeding searches.
func (c *Coordinator) KeyFunc() func(model.Lane) model.LaneKey { return c.key }

// TryReserveVertex claims the vertex for agent unless another agent owns it.
func (c *Coordinator) TryReserveVertex(vertex, agent int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.vertexOwner[vertex]; ok && owner != agent {
		return false
	}
	c.vertexOwner[vertex] = agent
	return true
}

// TryReserveLane claims the lane for agent unless another agent owns it.
func (c *Coordinator) TryReserveLane(l model.Lane, agent int) bool {
	k := c.key(l)
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.laneOwner[k]; ok && owner != agent {
		return false
	}
	c.laneOwner[k] = agent
	return true
}

// ReleaseVertex drops the reservation if agent holds it.
func (c *Coordinator) ReleaseVertex(vertex, agent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.vertexOwner[vertex]; ok && owner == agent {
		delete(c.vertexOwner, vertex)
	}
}

// ReleaseLane drops the reservation if agent holds it.
func (c *Coordinator) ReleaseLane(l model.Lane, agent int) {
	k := c.key(l)
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.laneOwner[k]; ok && owner == agent {
		delete(c.laneOwner, k)
	}
}

// ReleaseAll drops every reservation held by agent.
func (c *Coordinator) ReleaseAll(agent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for v, owner := range c.vertexOwner {
		if owner == agent {
			delete(c.vertexOwner, v)
		}
	}
	for k, owner := range c.laneOwner {
		if owner == agent {
			delete(c.laneOwner, k)
		}
	}
}

// IsVertexOccupied reports whether someone other than agent owns the vertex.
func (c *Coordinator) IsVertexOccupied(vertex, agent int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.vertexOwner[vertex]
	return ok && owner != agent
}

// IsLaneOccupied reports whether someone other than agent owns the lane.
func (c *Coordinator) IsLaneOccupied(l model.Lane, agent int) bool {
	k := c.key(l)
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.laneOwner[k]
	return ok && owner != agent
}

// VertexOwner returns the owner of a vertex, if any.
func (c *Coordinator) VertexOwner(vertex int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.vertexOwner[vertex]
	return owner, ok
}

// BlockedVerticesFor returns the vertices owned by agents other than agent.
func (c *Coordinator) BlockedVerticesFor(agent int) map[int]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]struct{})
	for v, owner := range c.vertexOwner {
		if owner != agent {
			out[v] = struct{}{}
		}
	}
	return out
}

// BlockedLanesFor returns the lane keys owned by agents other than agent.
func (c *Coordinator) BlockedLanesFor(agent int) map[model.LaneKey]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.LaneKey]struct{})
	for k, owner := range c.laneOwner {
		if owner != agent {
			out[k] = struct{}{}
		}
	}
	return out
}

// Owners is a copy of the reservation tables.
type Owners struct {
	Vertices map[int]int           `json:"vertices"`
	Lanes    map[model.LaneKey]int `json:"-"`
}

// Owners returns a snapshot of both reservation tables.
func (c *Coordinator) Owners() Owners {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := Owners{
		Vertices: make(map[int]int, len(c.vertexOwner)),
		Lanes:    make(map[model.LaneKey]int, len(c.laneOwner)),
	}
	for v, a := range c.vertexOwner {
		o.Vertices[v] = a
	}
	for k, a := range c.laneOwner {
		o.Lanes[k] = a
	}
	return o
}

// AddWaiting records that agent waits at vertex. The registry is purely
// informational: it grants no turn order.
func (c *Coordinator) AddWaiting(vertex, agent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiting[vertex] = append(c.waiting[vertex], agent)
}

// RemoveWaiting removes the first registration of agent at vertex.
func (c *Coordinator) RemoveWaiting(vertex, agent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiting[vertex]
	for i, a := range list {
		if a == agent {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.waiting, vertex)
		return
	}
	c.waiting[vertex] = list
}

// Waiting returns the agents registered as waiting at vertex.
func (c *Coordinator) Waiting(vertex int) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.waiting[vertex]))
	copy(out, c.waiting[vertex])
	return out
}

// LogConflict records a conflict message at the current time.
func (c *Coordinator) LogConflict(msg string) {
	c.mu.Lock()
	conflict := c.conflicts.Add(c.now(), msg)
	hook := c.onConflict
	c.mu.Unlock()
	if hook != nil {
		hook(conflict)
	}
}

// ActiveConflicts returns the messages of the conflicts still in the window.
func (c *Coordinator) ActiveConflicts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.conflicts.Active(c.now())
	out := make([]string, len(active))
	for i, cf := range active {
		out[i] = cf.Message
	}
	return out
}

// Conflicts returns the active conflicts with their timestamps.
func (c *Coordinator) Conflicts() []Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflicts.Active(c.now())
}
