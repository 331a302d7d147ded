package rag

import "fmt"

// CombinePolicy resolves edge and node values while Join folds one node
// into another. Hooks run before Join applies its fixed bookkeeping.
type CombinePolicy interface {
	// MoveEdge is called when an edge of the removed node has been rerouted
	// to the kept node because the kept node had no edge to that neighbor.
	// moved is a fresh edge already carrying a copy of rerouted's values.
	MoveEdge(moved, rerouted *Edge)

	// JoinEdge is called when both nodes had an edge to the same neighbor
	// and the incoming edge folds into the kept one.
	JoinEdge(kept, incoming *Edge)

	// JoinNode is called once all edges are folded, before the removed
	// node is deleted.
	JoinNode(kept, removed *Node)
}

// Join merges node remove into node keep. The two nodes must be connected.
//
// For every other neighbor of remove the edge is either rerouted to keep or,
// when keep already touches that neighbor, folded into keep's edge. A folded
// edge is preserved if either side was, and stays a false edge only if both
// sides were. Sizes and boundary sizes are summed onto keep, then remove is
// deleted along with its edges.
func (g *Graph) Join(keep, remove NodeID, policy CombinePolicy) error {
	kn, ok := g.nodes[keep]
	if !ok {
		return fmt.Errorf("join %d<-%d: %w", keep, remove, ErrNodeNotFound)
	}
	rn, ok := g.nodes[remove]
	if !ok {
		return fmt.Errorf("join %d<-%d: %w", keep, remove, ErrNodeNotFound)
	}
	if _, ok := kn.edges[remove]; !ok || keep == remove {
		return fmt.Errorf("join %d<-%d: %w", keep, remove, ErrNotConnected)
	}

	for _, e := range rn.Edges() {
		other := e.Other(remove)
		if other == keep {
			continue
		}

		kept, collide := kn.edges[other]
		if !collide {
			moved, err := g.InsertEdge(keep, other)
			if err != nil {
				return fmt.Errorf("join %d<-%d: %w", keep, remove, err)
			}
			moved.Weight = e.Weight
			moved.Preserve = e.Preserve
			moved.FalseEdge = e.FalseEdge
			moved.Props = e.Props.Clone()
			policy.MoveEdge(moved, e)
			continue
		}

		policy.JoinEdge(kept, e)
		kept.Preserve = kept.Preserve || e.Preserve
		kept.FalseEdge = kept.FalseEdge && e.FalseEdge
	}

	kn.Size += rn.Size
	kn.BoundarySize += rn.BoundarySize
	policy.JoinNode(kn, rn)

	return g.RemoveNode(remove)
}
