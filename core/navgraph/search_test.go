package navgraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetnav/core/model"
)

func lanes(ls ...model.Lane) map[model.LaneKey]struct{} {
	m := make(map[model.LaneKey]struct{}, len(ls))
	for _, l := range ls {
		m[model.CorridorKey(l)] = struct{}{}
	}
	return m
}

func vertices(vs ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

func TestShortestPathSelf(t *testing.T) {
	g := square(t)
	for v := 0; v < g.Len(); v++ {
		p, ok := g.ShortestPath(v, v, Blocked{})
		require.True(t, ok)
		assert.Equal(t, []int{v}, p)
	}
}

func TestShortestPathCycleTieBreak(t *testing.T) {
	g := square(t)
	for i := 0; i < 10; i++ {
		p, ok := g.ShortestPath(0, 2, Blocked{})
		require.True(t, ok)
		assert.Equal(t, []int{0, 1, 2}, p)
	}

	// Reversing the insertion order of the first corridors flips the tie-break.
	g2, err := New([]VertexSpec{{}, {}, {}, {}}, [][2]int{{3, 0}, {0, 1}, {1, 2}, {2, 3}})
	require.NoError(t, err)
	p, ok := g2.ShortestPath(0, 2, Blocked{})
	require.True(t, ok)
	assert.Equal(t, []int{0, 3, 2}, p)
}

func TestShortestPathAvoidsBlocked(t *testing.T) {
	g := square(t)
	p, ok := g.ShortestPath(0, 2, Blocked{Vertices: vertices(1)})
	require.True(t, ok)
	assert.Equal(t, []int{0, 3, 2}, p)

	p, ok = g.ShortestPath(0, 2, Blocked{Lanes: lanes(model.Lane{From: 1, To: 0})})
	require.True(t, ok)
	assert.Equal(t, []int{0, 3, 2}, p)

	_, ok = g.ShortestPath(0, 2, Blocked{Vertices: vertices(1, 3)})
	assert.False(t, ok)
}

func TestShortestPathDirectedKeyBlocksReverseToo(t *testing.T) {
	g := square(t)
	b := Blocked{
		Lanes: map[model.LaneKey]struct{}{model.DirectedKey(model.Lane{From: 1, To: 0}): {}},
		Key:   model.DirectedKey,
	}
	p, ok := g.ShortestPath(0, 2, b)
	require.True(t, ok)
	assert.Equal(t, []int{0, 3, 2}, p)
}

func TestShortestPathDisconnected(t *testing.T) {
	g, err := New([]VertexSpec{{}, {}, {}}, [][2]int{{0, 1}})
	require.NoError(t, err)
	_, ok := g.ShortestPath(0, 2, Blocked{})
	assert.False(t, ok)
	_, ok = g.ShortestPath(0, 7, Blocked{})
	assert.False(t, ok)
}

func TestShortestPathMatchesReachability(t *testing.T) {
	// line 0-1-2-3 with a spur 1-4
	g, err := New(make([]VertexSpec, 5), [][2]int{{0, 1}, {1, 2}, {2, 3}, {1, 4}})
	require.NoError(t, err)
	cases := []struct {
		name    string
		blocked Blocked
		end     int
		want    bool
	}{
		{"open", Blocked{}, 3, true},
		{"vertex cut", Blocked{Vertices: vertices(2)}, 3, false},
		{"lane cut", Blocked{Lanes: lanes(model.Lane{From: 2, To: 3})}, 3, false},
		{"unrelated block", Blocked{Vertices: vertices(4)}, 3, true},
		{"spur", Blocked{Lanes: lanes(model.Lane{From: 2, To: 3})}, 4, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := g.ShortestPath(0, tc.end, tc.blocked)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestNearestCharger(t *testing.T) {
	// 0 - 1 - 2(charger) and 0 - 3 - 4 - 5(charger)
	specs := make([]VertexSpec, 6)
	specs[2].IsCharger = true
	specs[5].IsCharger = true
	g, err := New(specs, [][2]int{{0, 1}, {1, 2}, {0, 3}, {3, 4}, {4, 5}})
	require.NoError(t, err)

	c, p, ok := g.NearestCharger(0, Blocked{})
	require.True(t, ok)
	assert.Equal(t, 2, c)
	assert.Equal(t, []int{0, 1, 2}, p)

	c, p, ok = g.NearestCharger(0, Blocked{Vertices: vertices(2)})
	require.True(t, ok)
	assert.Equal(t, 5, c)
	assert.Equal(t, []int{0, 3, 4, 5}, p)

	c, p, ok = g.NearestCharger(2, Blocked{})
	require.True(t, ok)
	assert.Equal(t, 2, c)
	assert.Equal(t, []int{2}, p)

	_, _, ok = g.NearestCharger(0, Blocked{Lanes: lanes(model.Lane{From: 0, To: 1}, model.Lane{From: 0, To: 3})})
	assert.False(t, ok)
}

func TestNearestChargerNoChargers(t *testing.T) {
	g, err := New(make([]VertexSpec, 2), [][2]int{{0, 1}})
	require.NoError(t, err)
	_, _, ok := g.NearestCharger(0, Blocked{})
	assert.False(t, ok)
}

func TestSearchesConcurrent(t *testing.T) {
	g := square(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p, ok := g.ShortestPath(0, 2, Blocked{})
				if !ok || len(p) != 3 {
					t.Errorf("unexpected path %v", p)
					return
				}
				if _, _, ok := g.NearestCharger(3, Blocked{}); !ok {
					t.Errorf("charger not found")
					return
				}
			}
		}()
	}
	wg.Wait()
}
