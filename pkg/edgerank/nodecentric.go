package edgerank

import "github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"

// Constants shared by the node-centric strategies.
const (
	// minimumRealBodySize is the smallest region treated as a real body when
	// deriving the acceptance threshold.
	minimumRealBodySize = 25000

	// minimumScoredSize is the size below which a reached region scores 0.
	minimumScoredSize = 1000

	// searchEpsilon prunes affinity paths.
	searchEpsilon = 0.01
)

// Candidate is the outcome of examining a head region.
type Candidate struct {
	Node  rag.NodeID // region the score was computed against
	Via   rag.NodeID // neighbor of the head on the best path to Node
	Score float64
}

// NodePolicy supplies the strategy-specific parts of a NodeCentric ranking.
type NodePolicy interface {
	// FindMostUncertainNode returns the best candidate reachable from head.
	FindMostUncertainNode(head rag.NodeID) (Candidate, bool)

	// InsertNode adds id to the list if it currently qualifies.
	InsertNode(id rag.NodeID)

	// UpdateNeighboringNodes re-evaluates the regions around a region that
	// just changed.
	UpdateNeighboringNodes(id rag.NodeID)
}

// NodeCentric ranks edges by walking a list of important regions: the top
// edge joins the most important region that still has an uncertain
// connection to the first hop of that connection.
type NodeCentric struct {
	graph  *rag.Graph
	list   *NodeRankList
	policy NodePolicy

	top       NodePair
	hasTop    bool
	processed int
}

// NewNodeCentric returns a node-centric ranking driven by policy.
func NewNodeCentric(g *rag.Graph, policy NodePolicy) *NodeCentric {
	return &NodeCentric{
		graph:  g,
		list:   NewNodeRankList(),
		policy: policy,
	}
}

// List exposes the priority list to policies.
func (nc *NodeCentric) List() *NodeRankList { return nc.list }

// ExaminedEdge implements Strategy. On a merge pair.Primary is the survivor.
func (nc *NodeCentric) ExaminedEdge(pair NodePair, rejected bool) {
	nc.processed++
	nc.list.StartCheckpoint()

	if !rejected {
		nc.list.Remove(pair.Secondary)
		nc.list.Remove(pair.Primary)
		nc.policy.InsertNode(pair.Primary)
		nc.policy.UpdateNeighboringNodes(pair.Primary)
	}

	nc.UpdatePriority()
	nc.list.StopCheckpoint()
}

// TopEdge implements Strategy.
func (nc *NodeCentric) TopEdge() (NodePair, bool) {
	return nc.top, nc.hasTop
}

// Undo implements Strategy.
func (nc *NodeCentric) Undo() {
	if nc.processed > 0 {
		nc.processed--
	}
	nc.list.UndoLastCheckpoint()
	nc.UpdatePriority()
}

// Finished implements Strategy.
func (nc *NodeCentric) Finished() bool { return !nc.hasTop }

// NumRemaining implements Strategy. It counts regions still to visit.
func (nc *NodeCentric) NumRemaining() int { return nc.list.Len() }

// NumProcessed implements Strategy.
func (nc *NodeCentric) NumProcessed() int { return nc.processed }

// UpdatePriority recomputes the top edge. Heads without a candidate are
// popped until one yields a candidate or the list is exhausted.
func (nc *NodeCentric) UpdatePriority() {
	nc.hasTop = false
	nc.top = NodePair{}

	for {
		head, ok := nc.list.First()
		if !ok {
			return
		}
		if c, found := nc.policy.FindMostUncertainNode(head.ID); found {
			nc.top = orderPair(nc.graph, c.Via, head.ID)
			nc.hasTop = true
			return
		}
		nc.list.Pop()
	}
}

// reset empties the list and clears the top edge.
func (nc *NodeCentric) reset() {
	nc.list.Clear()
	nc.hasTop = false
	nc.top = NodePair{}
}
