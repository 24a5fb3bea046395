package navgraph

import "github.com/kilianp07/fleetnav/core/model"

// Blocked lists resources excluded from a search. Lanes are matched by Key,
// which decides whether a blocked lane also blocks its reverse direction.
type Blocked struct {
	Lanes    map[model.LaneKey]struct{}
	Vertices map[int]struct{}
	Key      func(model.Lane) model.LaneKey
}

func (b Blocked) lane(from, to int) bool {
	if len(b.Lanes) == 0 {
		return false
	}
	key := b.Key
	if key == nil {
		key = model.CorridorKey
	}
	l := model.Lane{From: from, To: to}
	if _, ok := b.Lanes[key(l)]; ok {
		return true
	}
	_, ok := b.Lanes[key(l.Reverse())]
	return ok
}

func (b Blocked) vertex(v int) bool {
	_, ok := b.Vertices[v]
	return ok
}

// ShortestPath runs a breadth-first search from start to end and returns the
// minimum-hop vertex sequence including both endpoints. Blocked lanes and
// vertices are skipped during traversal. ok is false when end is unreachable.
func (g *Graph) ShortestPath(start, end int, blocked Blocked) (path []int, ok bool) {
	if !g.valid(start) || !g.valid(end) {
		return nil, false
	}
	if start == end {
		return []int{start}, true
	}
	parent := make([]int, len(g.vertices))
	for i := range parent {
		parent[i] = -1
	}
	parent[start] = start
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.adj[cur] {
			if parent[n] != -1 || blocked.lane(cur, n) || blocked.vertex(n) {
				continue
			}
			parent[n] = cur
			if n == end {
				return g.trace(parent, start, end), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// NearestCharger returns the minimum-hop charger reachable from start along
// with the path to it. A charger that is itself blocked is passed over.
func (g *Graph) NearestCharger(start int, blocked Blocked) (charger int, path []int, ok bool) {
	if !g.valid(start) || len(g.chargers) == 0 {
		return 0, nil, false
	}
	parent := make([]int, len(g.vertices))
	for i := range parent {
		parent[i] = -1
	}
	parent[start] = start
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.vertices[cur].IsCharger && !blocked.vertex(cur) {
			return cur, g.trace(parent, start, cur), true
		}
		for _, n := range g.adj[cur] {
			if parent[n] != -1 || blocked.lane(cur, n) || blocked.vertex(n) {
				continue
			}
			parent[n] = cur
			queue = append(queue, n)
		}
	}
	return 0, nil, false
}

func (g *Graph) trace(parent []int, start, end int) []int {
	var rev []int
	for v := end; v != start; v = parent[v] {
		rev = append(rev, v)
	}
	rev = append(rev, start)
	path := make([]int, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}
