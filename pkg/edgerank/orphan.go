package edgerank

import (
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/affinity"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// OrphanRank walks orphan regions, largest first, and proposes the strongest
// path from each to any region that touches the boundary.
type OrphanRank struct {
	*NodeCentric

	ignoreSize float64
}

// NewOrphanRank returns an uninitialized orphan strategy over g.
func NewOrphanRank(g *rag.Graph) *OrphanRank {
	r := &OrphanRank{}
	r.NodeCentric = NewNodeCentric(g, r)
	return r
}

// Initialize rebuilds the list from every orphan that is at least
// ignoreSize voxels or carries synapses.
func (r *OrphanRank) Initialize(ignoreSize float64) {
	r.reset()
	r.ignoreSize = ignoreSize

	for _, n := range r.graph.Nodes() {
		if r.qualifies(n) {
			r.list.Insert(NodeRank{ID: n.ID(), Size: n.Size})
		}
	}
	r.UpdatePriority()
}

// Identifier implements Strategy.
func (r *OrphanRank) Identifier() string { return IdentOrphan }

func (r *OrphanRank) qualifies(n *rag.Node) bool {
	if n.IsBoundary() {
		return false
	}
	return float64(n.Size) >= r.ignoreSize || n.SynapseWeight() > 0
}

// FindMostUncertainNode implements NodePolicy. Any path from an orphan to a
// boundary region is worth a look; the score is the path affinity.
func (r *OrphanRank) FindMostUncertainNode(head rag.NodeID) (Candidate, bool) {
	hn, ok := r.graph.Node(head)
	if !ok || hn.IsBoundary() {
		return Candidate{}, false
	}

	table := affinity.Search(r.graph, head, 0, searchEpsilon, true)
	var (
		best  Candidate
		found bool
	)
	for _, p := range table.Pairs() {
		aff, _ := table.Get(p)
		other, _ := r.graph.Node(p.Other(head))
		if !other.IsBoundary() {
			continue
		}
		if aff.Weight >= best.Score {
			best = Candidate{Node: other.ID(), Via: aff.Via, Score: aff.Weight}
			found = true
		}
	}
	return best, found
}

// InsertNode implements NodePolicy. Regions that now touch the boundary are
// no longer orphans and stay out.
func (r *OrphanRank) InsertNode(id rag.NodeID) {
	if n, ok := r.graph.Node(id); ok && !n.IsBoundary() {
		r.list.Insert(NodeRank{ID: id, Size: n.Size})
	}
}

// UpdateNeighboringNodes implements NodePolicy.
func (r *OrphanRank) UpdateNeighboringNodes(id rag.NodeID) {
	table := affinity.Search(r.graph, id, 0, searchEpsilon, true)
	for _, p := range table.Pairs() {
		other, _ := r.graph.Node(p.Other(id))
		r.list.Remove(other.ID())
		if r.qualifies(other) {
			r.list.Insert(NodeRank{ID: other.ID(), Size: other.Size})
		}
	}
}
