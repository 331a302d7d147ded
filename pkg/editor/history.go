package editor

import (
	"fmt"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

type edgeSnapshot struct {
	a, b      rag.NodeID
	weight    float64
	preserve  bool
	falseEdge bool
	props     rag.Properties
}

func takeEdge(e *rag.Edge) edgeSnapshot {
	a, b := e.Nodes()
	return edgeSnapshot{
		a:         a,
		b:         b,
		weight:    e.Weight,
		preserve:  e.Preserve,
		falseEdge: e.FalseEdge,
		props:     e.Props.Clone(),
	}
}

func (s edgeSnapshot) applyTo(e *rag.Edge) {
	e.Weight = s.weight
	e.Preserve = s.preserve
	e.FalseEdge = s.falseEdge
	e.Props = s.props.Clone()
}

type nodeSnapshot struct {
	id       rag.NodeID
	size     uint64
	boundary uint64
	props    rag.Properties
	edges    []edgeSnapshot
}

func takeNode(n *rag.Node) nodeSnapshot {
	s := nodeSnapshot{
		id:       n.ID(),
		size:     n.Size,
		boundary: n.BoundarySize,
		props:    n.Props.Clone(),
	}
	for _, e := range n.Edges() {
		s.edges = append(s.edges, takeEdge(e))
	}
	return s
}

func (s nodeSnapshot) applyTo(n *rag.Node) {
	n.Size = s.size
	n.BoundarySize = s.boundary
	n.Props = s.props.Clone()
}

// historyEntry is one undoable step. A merge captures both regions with
// their full neighbourhoods; any other step only captures the edge.
type historyEntry struct {
	merge    bool
	decision bool // reported to the strategy
	pair     [2]rag.NodeID
	edge     edgeSnapshot
	kept     nodeSnapshot
	removed  nodeSnapshot
}

func newMergeEntry(g *rag.Graph, keep, remove rag.NodeID) (historyEntry, error) {
	e, ok := g.Edge(keep, remove)
	if !ok {
		return historyEntry{}, fmt.Errorf("merge %d-%d: %w", keep, remove, rag.ErrEdgeNotFound)
	}
	nk, _ := g.Node(keep)
	nr, _ := g.Node(remove)
	return historyEntry{
		merge:    true,
		decision: true,
		pair:     [2]rag.NodeID{keep, remove},
		edge:     takeEdge(e),
		kept:     takeNode(nk),
		removed:  takeNode(nr),
	}, nil
}

func newEdgeEntry(g *rag.Graph, a, b rag.NodeID, decision bool) (historyEntry, error) {
	e, ok := g.Edge(a, b)
	if !ok {
		return historyEntry{}, fmt.Errorf("edge %d-%d: %w", a, b, rag.ErrEdgeNotFound)
	}
	return historyEntry{
		decision: decision,
		pair:     [2]rag.NodeID{a, b},
		edge:     takeEdge(e),
	}, nil
}

// restore reverts the graph to the state captured by h. It must be applied
// in reverse order of capture; a graph that does not match the capture
// means the history is corrupt and restore panics.
func (h historyEntry) restore(g *rag.Graph) {
	if !h.merge {
		e, ok := g.Edge(h.pair[0], h.pair[1])
		if !ok {
			panic(fmt.Sprintf("editor: undo of edge %d-%d: edge missing", h.pair[0], h.pair[1]))
		}
		h.edge.applyTo(e)
		return
	}

	kept, ok := g.Node(h.kept.id)
	if !ok {
		panic(fmt.Sprintf("editor: undo of merge %d-%d: kept region missing", h.kept.id, h.removed.id))
	}

	// 1. Drop the edges the merge left on the kept region.
	for _, e := range kept.Edges() {
		must(g.RemoveEdge(h.kept.id, e.Other(h.kept.id)))
	}

	// 2. Bring back the removed region and both sets of values.
	removed, err := g.InsertNode(h.removed.id)
	must(err)
	h.kept.applyTo(kept)
	h.removed.applyTo(removed)

	// 3. Rebuild both neighbourhoods. The shared edge appears in both.
	for _, snaps := range [][]edgeSnapshot{h.kept.edges, h.removed.edges} {
		for _, s := range snaps {
			if _, ok := g.Edge(s.a, s.b); ok {
				continue
			}
			e, err := g.InsertEdge(s.a, s.b)
			must(err)
			s.applyTo(e)
		}
	}
}

func must(err error) {
	if err != nil {
		panic("editor: inconsistent undo history: " + err.Error())
	}
}
