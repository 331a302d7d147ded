package edgerank

import (
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/affinity"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// NodeSizeRank prioritizes large regions and, for each, the reachable
// region whose merge would change the segmentation's information content
// the most.
type NodeSizeRank struct {
	*NodeCentric

	ignoreSize float64
	depth      int
	volume     float64
	threshold  float64
}

// NewNodeSizeRank returns an uninitialized size-ranked strategy over g.
func NewNodeSizeRank(g *rag.Graph) *NodeSizeRank {
	r := &NodeSizeRank{}
	r.NodeCentric = NewNodeCentric(g, r)
	return r
}

// Initialize rebuilds the list from every region of at least ignoreSize
// voxels. depth bounds the affinity search, 0 for unbounded.
func (r *NodeSizeRank) Initialize(ignoreSize float64, depth int) {
	r.reset()
	r.ignoreSize = ignoreSize
	r.depth = depth
	r.volume = float64(r.graph.TotalSize())
	r.threshold = VOIChange(minimumRealBodySize, ignoreSize, r.volume)

	for _, n := range r.graph.Nodes() {
		if r.qualifies(n) {
			r.list.Insert(NodeRank{ID: n.ID(), Size: n.Size})
		}
	}
	r.UpdatePriority()
}

// Identifier implements Strategy.
func (r *NodeSizeRank) Identifier() string { return IdentNodeSize }

// Threshold returns the score a candidate must reach.
func (r *NodeSizeRank) Threshold() float64 { return r.threshold }

func (r *NodeSizeRank) qualifies(n *rag.Node) bool {
	return float64(n.Size) >= r.ignoreSize
}

// FindMostUncertainNode implements NodePolicy.
func (r *NodeSizeRank) FindMostUncertainNode(head rag.NodeID) (Candidate, bool) {
	hn, ok := r.graph.Node(head)
	if !ok {
		return Candidate{}, false
	}

	table := affinity.Search(r.graph, head, r.depth, searchEpsilon, true)
	best := Candidate{Score: -1}
	for _, p := range table.Pairs() {
		aff, _ := table.Get(p)
		other, _ := r.graph.Node(p.Other(head))

		score := 0.0
		if other.Size >= minimumScoredSize {
			score = aff.Weight * VOIChange(float64(hn.Size), float64(other.Size), r.volume)
		}
		if score >= best.Score {
			best = Candidate{Node: other.ID(), Via: aff.Via, Score: score}
		}
	}

	if best.Score >= 0 && best.Score >= r.threshold {
		return best, true
	}
	return Candidate{}, false
}

// InsertNode implements NodePolicy.
func (r *NodeSizeRank) InsertNode(id rag.NodeID) {
	if n, ok := r.graph.Node(id); ok && r.qualifies(n) {
		r.list.Insert(NodeRank{ID: id, Size: n.Size})
	}
}

// UpdateNeighboringNodes implements NodePolicy. Every region reachable from
// id is re-admitted if it qualifies, since a head popped earlier may now
// have a candidate again.
func (r *NodeSizeRank) UpdateNeighboringNodes(id rag.NodeID) {
	table := affinity.Search(r.graph, id, r.depth, searchEpsilon, true)
	for _, p := range table.Pairs() {
		other, _ := r.graph.Node(p.Other(id))
		r.list.Remove(other.ID())
		if r.qualifies(other) {
			r.list.Insert(NodeRank{ID: other.ID(), Size: other.Size})
		}
	}
}
