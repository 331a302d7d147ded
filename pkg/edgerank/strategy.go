// Package edgerank decides which edge of a region graph should be examined
// next by a proofreader.
//
// A Strategy only ranks; it never mutates the graph. The caller applies each
// decision to the graph first and then reports it through ExaminedEdge, and
// reverts the graph before calling Undo.
package edgerank

import "github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"

// Strategy identifiers, stable across sessions.
const (
	IdentNodeSize = "nodesize"
	IdentSynapse  = "synapse"
	IdentOrphan   = "orphan"
	IdentProb     = "prob"
)

// NodePair is the edge under decision. Primary is the larger region and is
// the one kept when the pair is merged.
type NodePair struct {
	Primary   rag.NodeID `json:"primary"`
	Secondary rag.NodeID `json:"secondary"`
}

// Strategy ranks the edges of a graph.
type Strategy interface {
	// ExaminedEdge updates the ranking after a decision on pair has been
	// applied to the graph. rejected is false for a merge.
	ExaminedEdge(pair NodePair, rejected bool)

	// TopEdge returns the current best candidate, or false when finished.
	TopEdge() (NodePair, bool)

	// Undo reverts the ranking effect of the most recent ExaminedEdge. The
	// graph must already be back in its prior state.
	Undo()

	// Finished reports whether no candidate remains.
	Finished() bool

	// NumRemaining returns the strategy's own estimate of remaining work.
	NumRemaining() int

	// Identifier returns the stable strategy name.
	Identifier() string

	// NumProcessed returns the number of decisions not undone.
	NumProcessed() int
}

// orderPair returns (a, b) with the larger region first. Equal sizes favour
// a.
func orderPair(g *rag.Graph, a, b rag.NodeID) NodePair {
	na, _ := g.Node(a)
	nb, _ := g.Node(b)
	if na != nil && nb != nil && nb.Size > na.Size {
		return NodePair{Primary: b, Secondary: a}
	}
	return NodePair{Primary: a, Secondary: b}
}
