package navgraph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(t *testing.T) *Graph {
	t.Helper()
	g, err := New([]VertexSpec{
		{X: 0, Y: 0, Name: "A"},
		{X: 1, Y: 0, Name: "B"},
		{X: 1, Y: 1, Name: "C", IsCharger: true},
		{X: 0, Y: 1},
	}, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}})
	require.NoError(t, err)
	return g
}

func TestNewBuildsBothDirections(t *testing.T) {
	g := square(t)
	assert.Equal(t, 4, g.Len())
	assert.Len(t, g.Lanes(), 8)
	assert.True(t, g.HasLane(0, 1))
	assert.True(t, g.HasLane(1, 0))
	assert.False(t, g.HasLane(0, 2))
	assert.Equal(t, []int{1, 3}, g.Neighbors(0))
	assert.Equal(t, []int{2}, g.Chargers())
	assert.Equal(t, "V3", g.Name(3))
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, g.Bounds())
	assert.InDelta(t, 1.0, g.LaneLength(1, 2), 1e-9)
	assert.Zero(t, g.LaneLength(0, 2))
}

func TestNewRejectsBadLanes(t *testing.T) {
	_, err := New([]VertexSpec{{}, {}}, [][2]int{{0, 5}})
	assert.Error(t, err)
	_, err = New([]VertexSpec{{}, {}}, [][2]int{{1, 1}})
	assert.Error(t, err)
	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestNewIgnoresDuplicateCorridors(t *testing.T) {
	g, err := New([]VertexSpec{{}, {}}, [][2]int{{0, 1}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Len(t, g.Lanes(), 2)
	assert.Equal(t, []int{1}, g.Neighbors(0))
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := square(t)
	n := g.Neighbors(0)
	n[0] = 99
	assert.Equal(t, []int{1, 3}, g.Neighbors(0))
	vs := g.Vertices()
	vs[0].Name = "changed"
	assert.Equal(t, "A", g.Name(0))
}
