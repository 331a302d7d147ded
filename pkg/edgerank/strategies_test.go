package edgerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

type testNode struct {
	id       rag.NodeID
	size     uint64
	boundary uint64
	synapses uint64
}

type testEdge struct {
	a, b rag.NodeID
	w    float64
}

func buildGraph(t *testing.T, nodes []testNode, edges []testEdge) *rag.Graph {
	t.Helper()
	g := rag.New()
	for _, tn := range nodes {
		n, err := g.InsertNode(tn.id)
		require.NoError(t, err)
		n.Size = tn.size
		n.BoundarySize = tn.boundary
		if tn.synapses > 0 {
			n.SetSynapseWeight(tn.synapses)
		}
	}
	for _, te := range edges {
		e, err := g.InsertEdge(te.a, te.b)
		require.NoError(t, err)
		e.Weight = te.w
	}
	return g
}

// keepPolicy folds edges without touching weights.
type keepPolicy struct{}

func (keepPolicy) MoveEdge(moved, rerouted *rag.Edge) {}
func (keepPolicy) JoinEdge(kept, incoming *rag.Edge)  {}
func (keepPolicy) JoinNode(kept, removed *rag.Node)   {}

var _ Strategy = (*NodeSizeRank)(nil)
var _ Strategy = (*SynapseRank)(nil)
var _ Strategy = (*OrphanRank)(nil)
var _ Strategy = (*ProbEdgeRank)(nil)

func TestNodeSizeRank_ScenarioA(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 100}, {id: 2, size: 50}, {id: 3, size: 5000}},
		[]testEdge{{1, 2, 0.2}, {2, 3, 0.9}},
	)
	r := NewNodeSizeRank(g)
	r.Initialize(40, 0)

	total := 5150.0
	thr := VOIChange(minimumRealBodySize, 40, total)
	assert.InDelta(t, thr, r.Threshold(), 1e-12)

	// Head 3 only reaches regions under the scoring floor; heads 1 and 2
	// reach node 3 but their best score stays under the threshold.
	require.Less(t, 0.2*0.9*VOIChange(100, 5000, total), thr)
	require.Less(t, 0.9*VOIChange(50, 5000, total), thr)

	_, ok := r.TopEdge()
	assert.False(t, ok)
	assert.True(t, r.Finished())
	assert.Equal(t, 0, r.NumRemaining())
}

func TestNodeSizeRank_TopEdgeRejectUndo(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 30000}, {id: 2, size: 30000}, {id: 3, size: 100}},
		[]testEdge{{1, 2, 0.8}, {1, 3, 0.5}},
	)
	r := NewNodeSizeRank(g)
	r.Initialize(1000, 0)

	require.GreaterOrEqual(t, 0.8*VOIChange(30000, 30000, 60100), r.Threshold())

	top, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 2, Secondary: 1}, top, "equal sizes favour the found region")

	c, ok := r.FindMostUncertainNode(1)
	require.True(t, ok)
	assert.Equal(t, rag.NodeID(2), c.Node)
	assert.InDelta(t, 0.8*VOIChange(30000, 30000, 60100), c.Score, 1e-12)

	e, _ := g.Edge(1, 2)
	e.Weight = 1.2
	r.ExaminedEdge(top, true)
	assert.True(t, r.Finished())
	assert.Equal(t, 1, r.NumProcessed())

	e.Weight = 0.8
	r.Undo()
	again, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, top, again)
	assert.Equal(t, 0, r.NumProcessed())
	assert.Equal(t, 2, r.NumRemaining())
}

func TestNodeSizeRank_MergeUpdatesList(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 30000}, {id: 2, size: 30000}, {id: 3, size: 100}},
		[]testEdge{{1, 2, 0.8}, {1, 3, 0.5}},
	)
	r := NewNodeSizeRank(g)
	r.Initialize(1000, 0)
	top, _ := r.TopEdge()

	require.NoError(t, g.Join(top.Primary, top.Secondary, keepPolicy{}))
	r.ExaminedEdge(top, false)

	_, ok := r.List().Get(top.Secondary)
	assert.False(t, ok, "merged-away region leaves the list")
	assert.True(t, r.Finished(), "only region 3 is left and it is too small to score")
}

func TestNodeSizeRank_DepthLimitsReach(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 30000}, {id: 2, size: 10}, {id: 3, size: 30000}},
		[]testEdge{{1, 2, 0.9}, {2, 3, 0.9}},
	)

	r := NewNodeSizeRank(g)
	r.Initialize(1000, 1)
	assert.True(t, r.Finished(), "region 3 is two hops away")

	r.Initialize(1000, 2)
	top, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 1, Secondary: 2}, top, "edge leads to the first hop")
}

func TestSynapseRank_ScoresAnnotatedPairs(t *testing.T) {
	g := buildGraph(t,
		[]testNode{
			{id: 1, size: 50, synapses: 10},
			{id: 2, size: 40, synapses: 5},
			{id: 3, size: 90},
		},
		[]testEdge{{1, 2, 0.6}, {2, 3, 0.9}},
	)
	r := NewSynapseRank(g)
	r.Initialize(0.1)

	assert.InDelta(t, VOIChange(0.1, 0.1, 15), r.Threshold(), 1e-12)
	assert.Equal(t, 2, r.NumRemaining())

	top, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 1, Secondary: 2}, top)

	c, ok := r.FindMostUncertainNode(1)
	require.True(t, ok)
	assert.InDelta(t, 0.6*VOIChange(10, 5, 15), c.Score, 1e-12)

	_, ok = r.FindMostUncertainNode(3)
	assert.False(t, ok, "region without synapses never scores")
}

func TestOrphanRank_ScenarioD(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 4, size: 10, boundary: 0}, {id: 5, size: 100, boundary: 1}},
		[]testEdge{{4, 5, 0.5}},
	)
	r := NewOrphanRank(g)
	r.Initialize(5)

	c, ok := r.FindMostUncertainNode(4)
	require.True(t, ok)
	assert.Equal(t, rag.NodeID(5), c.Node)
	assert.Equal(t, 0.5, c.Score)

	top, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 5, Secondary: 4}, top)

	require.NoError(t, g.Join(top.Primary, top.Secondary, keepPolicy{}))
	r.ExaminedEdge(top, false)

	_, ok = r.List().Get(4)
	assert.False(t, ok)
	assert.True(t, r.Finished())
	for _, n := range g.Nodes() {
		assert.True(t, n.IsBoundary(), "node %d", n.ID())
	}
}

func TestOrphanRank_Membership(t *testing.T) {
	g := buildGraph(t,
		[]testNode{
			{id: 1, size: 10},               // small orphan
			{id: 2, size: 10, synapses: 1},  // small orphan with synapses
			{id: 3, size: 500},              // large orphan
			{id: 4, size: 500, boundary: 2}, // not an orphan
		},
		[]testEdge{{1, 4, 0.3}, {2, 4, 0.3}, {3, 4, 0.3}},
	)
	r := NewOrphanRank(g)
	r.Initialize(100)

	ids := func() []rag.NodeID {
		var out []rag.NodeID
		for _, item := range r.List().Items() {
			out = append(out, item.ID)
		}
		return out
	}
	assert.Equal(t, []rag.NodeID{3, 2}, ids())

	_, ok := r.FindMostUncertainNode(4)
	assert.False(t, ok, "boundary heads are never examined")
}

func TestProbEdgeRank_WindowAndReject(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 100}, {id: 2, size: 200}, {id: 3, size: 300}, {id: 4, size: 10}},
		[]testEdge{{1, 2, 0.45}, {2, 3, 0.6}, {1, 3, 0.1}, {3, 4, 0.5}},
	)
	r := NewProbEdgeRank(g)
	r.Initialize(0.2, 0.9, 0.5, 27)

	assert.Equal(t, 2, r.NumRemaining(), "0.1 is outside the window and node 4 is too small")

	top, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 2, Secondary: 1}, top)

	e, _ := g.Edge(1, 2)
	e.Weight = 1.2
	r.ExaminedEdge(top, true)
	next, _ := r.TopEdge()
	assert.Equal(t, NodePair{Primary: 3, Secondary: 2}, next)
	assert.Equal(t, 1, r.NumRemaining())

	e.Weight = 0.45
	r.Undo()
	again, _ := r.TopEdge()
	assert.Equal(t, top, again)
	assert.Equal(t, 0, r.NumProcessed())
}

func TestProbEdgeRank_MergeRecomputes(t *testing.T) {
	g := buildGraph(t,
		[]testNode{{id: 1, size: 100}, {id: 2, size: 200}, {id: 3, size: 400}},
		[]testEdge{{1, 2, 0.5}, {2, 3, 0.6}},
	)
	r := NewProbEdgeRank(g)
	r.Initialize(0, 1, 0.5, 27)

	top, _ := r.TopEdge()
	require.NoError(t, g.Join(top.Primary, top.Secondary, keepPolicy{}))
	r.ExaminedEdge(top, false)

	next, ok := r.TopEdge()
	require.True(t, ok)
	assert.Equal(t, NodePair{Primary: 3, Secondary: 2}, next)
	assert.Equal(t, 1, r.NumRemaining())
}
