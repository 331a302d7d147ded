package edgerank

import (
	"math"

	"github.com/tidwall/btree"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/affinity"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// edgeRank is an entry of the weight-range ranking.
type edgeRank struct {
	dist float64 // |weight - start|
	pair affinity.Pair
}

func edgeRankLess(a, b edgeRank) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.pair.Region1 != b.pair.Region1 {
		return a.pair.Region1 < b.pair.Region1
	}
	return a.pair.Region2 < b.pair.Region2
}

// ProbEdgeRank proposes edges whose weight lies in [lower, upper], closest
// to start first. It ranks edges directly and keeps no node list.
type ProbEdgeRank struct {
	graph   *rag.Graph
	ranking *btree.BTreeG[edgeRank]
	byPair  map[affinity.Pair]edgeRank

	lower, upper, start float64
	ignoreSize          float64
	processed           int
}

// NewProbEdgeRank returns an uninitialized weight-range strategy over g.
func NewProbEdgeRank(g *rag.Graph) *ProbEdgeRank {
	return &ProbEdgeRank{
		graph:   g,
		ranking: btree.NewBTreeG(edgeRankLess),
		byPair:  make(map[affinity.Pair]edgeRank),
	}
}

// Initialize sets the weight window and rebuilds the ranking. Only edges
// whose endpoints are both larger than ignoreSize are ranked.
func (r *ProbEdgeRank) Initialize(lower, upper, start, ignoreSize float64) {
	r.lower, r.upper, r.start = lower, upper, start
	r.ignoreSize = ignoreSize
	r.recompute()
}

// Identifier implements Strategy.
func (r *ProbEdgeRank) Identifier() string { return IdentProb }

// ExaminedEdge implements Strategy. A merge reshapes the neighborhood so the
// ranking is rebuilt; a rejection only retires the examined edge.
func (r *ProbEdgeRank) ExaminedEdge(pair NodePair, rejected bool) {
	r.processed++
	if !rejected {
		r.recompute()
		return
	}
	key := affinity.NewPair(pair.Primary, pair.Secondary)
	if item, ok := r.byPair[key]; ok {
		r.ranking.Delete(item)
		delete(r.byPair, key)
	}
}

// TopEdge implements Strategy.
func (r *ProbEdgeRank) TopEdge() (NodePair, bool) {
	item, ok := r.ranking.Min()
	if !ok {
		return NodePair{}, false
	}
	return orderPair(r.graph, item.pair.Region1, item.pair.Region2), true
}

// Undo implements Strategy.
func (r *ProbEdgeRank) Undo() {
	if r.processed > 0 {
		r.processed--
	}
	r.recompute()
}

// Finished implements Strategy.
func (r *ProbEdgeRank) Finished() bool { return r.ranking.Len() == 0 }

// NumRemaining implements Strategy. The count is exact.
func (r *ProbEdgeRank) NumRemaining() int { return r.ranking.Len() }

// NumProcessed implements Strategy.
func (r *ProbEdgeRank) NumProcessed() int { return r.processed }

func (r *ProbEdgeRank) recompute() {
	r.ranking.Clear()
	clear(r.byPair)

	for _, e := range r.graph.Edges() {
		if e.Weight < r.lower || e.Weight > r.upper {
			continue
		}
		a, b := e.Nodes()
		na, _ := r.graph.Node(a)
		nb, _ := r.graph.Node(b)
		if float64(na.Size) <= r.ignoreSize || float64(nb.Size) <= r.ignoreSize {
			continue
		}
		item := edgeRank{dist: math.Abs(e.Weight - r.start), pair: affinity.NewPair(a, b)}
		r.ranking.Set(item)
		r.byPair[item.pair] = item
	}
}
