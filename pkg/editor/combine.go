package editor

import "github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"

// ConfirmedWeight is written to an edge whose boundary was confirmed by a
// reviewer. Any weight above 1.0 is treated as confirmed.
const ConfirmedWeight = 1.2

// LowWeightCombine is the combine policy used for reviewer merges.
//
// A rerouted edge keeps its own weight. When two edges fold together the
// lower weight wins, except that a kept weight above 1.0 is never lowered
// and an incoming weight above 1.0 always wins. When both are above 1.0
// the larger one is kept. Adopting the incoming weight also adopts its
// location and size unless it is a false edge; a kept false edge always
// takes the incoming location.
type LowWeightCombine struct{}

// MoveEdge implements rag.CombinePolicy.
func (LowWeightCombine) MoveEdge(moved, rerouted *rag.Edge) {
	moved.Weight = rerouted.Weight
}

// JoinEdge implements rag.CombinePolicy.
func (LowWeightCombine) JoinEdge(kept, incoming *rag.Edge) {
	keptFalse := kept.FalseEdge

	switch {
	case kept.Weight > 1.0 && incoming.Weight > 1.0:
		kept.Weight = max(kept.Weight, incoming.Weight)
	case (incoming.Weight <= kept.Weight && kept.Weight <= 1.0) || incoming.Weight > 1.0:
		kept.Weight = incoming.Weight
		if !incoming.FalseEdge {
			copyLocation(kept, incoming)
			if size, ok := incoming.EdgeSize(); ok {
				kept.SetEdgeSize(size)
			}
		}
	}

	if keptFalse {
		copyLocation(kept, incoming)
	}
}

// JoinNode implements rag.CombinePolicy. Node values are combined by the
// editor.
func (LowWeightCombine) JoinNode(kept, removed *rag.Node) {}

func copyLocation(dst, src *rag.Edge) {
	if loc, ok := src.Location(); ok {
		dst.SetLocation(loc)
	}
}
