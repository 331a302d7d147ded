package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPolicy keeps the kept edge values and logs hook calls.
type recordingPolicy struct {
	moved  []NodeID
	joined []NodeID
	nodes  int
}

func (p *recordingPolicy) MoveEdge(moved, rerouted *Edge) {
	a, b := moved.Nodes()
	p.moved = append(p.moved, a, b)
}

func (p *recordingPolicy) JoinEdge(kept, incoming *Edge) {
	a, b := kept.Nodes()
	p.joined = append(p.joined, a, b)
}

func (p *recordingPolicy) JoinNode(kept, removed *Node) { p.nodes++ }

func buildTriangle(t *testing.T) *Graph {
	t.Helper()
	g := New()
	sizes := map[NodeID]uint64{1: 10, 2: 20, 3: 30, 4: 40}
	for id, s := range sizes {
		n, err := g.InsertNode(id)
		require.NoError(t, err)
		n.Size = s
		n.BoundarySize = 1
	}
	mk := func(a, b NodeID, w float64, preserve, falseEdge bool) {
		e, err := g.InsertEdge(a, b)
		require.NoError(t, err)
		e.Weight, e.Preserve, e.FalseEdge = w, preserve, falseEdge
	}
	mk(1, 2, 0.1, false, false)
	mk(1, 3, 0.3, true, true)
	mk(2, 3, 0.7, false, true)
	mk(1, 4, 0.5, false, false)
	return g
}

func TestJoin_FoldsAndReroutes(t *testing.T) {
	g := buildTriangle(t)
	p := &recordingPolicy{}

	require.NoError(t, g.Join(2, 1, p))

	_, ok := g.Node(1)
	assert.False(t, ok)
	n2, _ := g.Node(2)
	assert.Equal(t, uint64(30), n2.Size)
	assert.Equal(t, uint64(2), n2.BoundarySize)

	// 1-4 had no counterpart and is rerouted with its values
	e24, ok := g.Edge(2, 4)
	require.True(t, ok)
	assert.Equal(t, 0.5, e24.Weight)
	assert.Equal(t, []NodeID{2, 4}, p.moved)

	// 1-3 collides with 2-3: preserve is ORed, false flag ANDed
	e23, ok := g.Edge(2, 3)
	require.True(t, ok)
	assert.True(t, e23.Preserve)
	assert.True(t, e23.FalseEdge)
	assert.Equal(t, 0.7, e23.Weight, "recording policy keeps the kept weight")
	assert.Equal(t, []NodeID{2, 3}, p.joined)
	assert.Equal(t, 1, p.nodes)

	assert.Equal(t, 2, g.NumEdges())
}

func TestJoin_FalseFlagClearedWhenEitherIsReal(t *testing.T) {
	g := buildTriangle(t)
	e13, _ := g.Edge(1, 3)
	e13.FalseEdge = false

	require.NoError(t, g.Join(2, 1, &recordingPolicy{}))
	e23, _ := g.Edge(2, 3)
	assert.False(t, e23.FalseEdge)
}

func TestJoin_Preconditions(t *testing.T) {
	g := buildTriangle(t)
	assert.ErrorIs(t, g.Join(3, 4, &recordingPolicy{}), ErrNotConnected)
	assert.ErrorIs(t, g.Join(9, 1, &recordingPolicy{}), ErrNodeNotFound)
	assert.ErrorIs(t, g.Join(1, 1, &recordingPolicy{}), ErrNotConnected)
}
