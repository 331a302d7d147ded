package edgerank

import (
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/affinity"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// SynapseRank works like NodeSizeRank but weighs regions by their synapse
// annotation count. Regions without synapses are never ranked.
type SynapseRank struct {
	*NodeCentric

	ignoreSize float64
	volume     float64
	threshold  float64
}

// NewSynapseRank returns an uninitialized synapse-weighted strategy over g.
func NewSynapseRank(g *rag.Graph) *SynapseRank {
	r := &SynapseRank{}
	r.NodeCentric = NewNodeCentric(g, r)
	return r
}

// Initialize rebuilds the list from every region carrying synapses.
func (r *SynapseRank) Initialize(ignoreSize float64) {
	r.reset()
	r.ignoreSize = ignoreSize
	r.volume = 0

	for _, n := range r.graph.Nodes() {
		w := n.SynapseWeight()
		if w == 0 {
			continue
		}
		r.volume += float64(w)
		r.list.Insert(NodeRank{ID: n.ID(), Size: w})
	}
	r.threshold = VOIChange(ignoreSize, ignoreSize, r.volume)
	r.UpdatePriority()
}

// Identifier implements Strategy.
func (r *SynapseRank) Identifier() string { return IdentSynapse }

// Threshold returns the score a candidate must reach.
func (r *SynapseRank) Threshold() float64 { return r.threshold }

// FindMostUncertainNode implements NodePolicy.
func (r *SynapseRank) FindMostUncertainNode(head rag.NodeID) (Candidate, bool) {
	hn, ok := r.graph.Node(head)
	if !ok {
		return Candidate{}, false
	}
	hw := hn.SynapseWeight()

	table := affinity.Search(r.graph, head, 0, searchEpsilon, true)
	best := Candidate{Score: -1}
	for _, p := range table.Pairs() {
		aff, _ := table.Get(p)
		other, _ := r.graph.Node(p.Other(head))
		ow := other.SynapseWeight()

		score := 0.0
		if hw > 0 && ow > 0 {
			score = aff.Weight * VOIChange(float64(hw), float64(ow), r.volume)
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
func (r *SynapseRank) InsertNode(id rag.NodeID) {
	n, ok := r.graph.Node(id)
	if !ok {
		return
	}
	if w := n.SynapseWeight(); w > 0 {
		r.list.Insert(NodeRank{ID: id, Size: w})
	}
}

// UpdateNeighboringNodes implements NodePolicy.
func (r *SynapseRank) UpdateNeighboringNodes(id rag.NodeID) {
	table := affinity.Search(r.graph, id, 0, searchEpsilon, true)
	for _, p := range table.Pairs() {
		other, _ := r.graph.Node(p.Other(id))
		r.list.Remove(other.ID())
		if w := other.SynapseWeight(); w > 0 {
			r.list.Insert(NodeRank{ID: other.ID(), Size: w})
		}
	}
}
