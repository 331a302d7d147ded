// Package rag implements an in-memory region-adjacency graph.
//
// Nodes are segmentation regions identified by NodeID; edges join two
// distinct regions that share a boundary. At most one edge connects any two
// nodes. Node and edge handles stay valid until the node is removed: callers
// that may observe a merge followed by an undo must re-resolve handles by id.
//
// Iteration helpers (Nodes, Edges, Node.Edges) always visit in ascending id
// order so that every consumer of the graph is deterministic.
//
// Graph is not safe for concurrent use.
package rag

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// NodeID identifies a region.
type NodeID uint64

// Node is a region of the segmentation.
type Node struct {
	id NodeID

	Size         uint64     // voxel count
	BoundarySize uint64     // 0 marks an orphan
	Props        Properties // optional values, e.g. PropSynapseWeight

	edges map[NodeID]*Edge // keyed by the other endpoint
}

// ID returns the node id.
func (n *Node) ID() NodeID { return n.id }

// IsBoundary reports whether the region touches the reference boundary.
// A node without boundary contact is an orphan.
func (n *Node) IsBoundary() bool { return n.BoundarySize > 0 }

// Degree returns the number of incident edges.
func (n *Node) Degree() int { return len(n.edges) }

// SynapseWeight returns the synapse annotation count, 0 when unset.
func (n *Node) SynapseWeight() uint64 {
	w, _ := Property[uint64](n.Props, PropSynapseWeight)
	return w
}

// SetSynapseWeight sets the synapse annotation count.
func (n *Node) SetSynapseWeight(w uint64) {
	SetProperty(&n.Props, PropSynapseWeight, w)
}

// Edges returns the incident edges ordered by the id of the other endpoint.
func (n *Node) Edges() []*Edge {
	ids := slices.Sorted(maps.Keys(n.edges))
	out := make([]*Edge, len(ids))
	for i, id := range ids {
		out[i] = n.edges[id]
	}
	return out
}

// Edge joins two regions.
type Edge struct {
	node1, node2 NodeID // node1 < node2

	Weight    float64    // boundary confidence; > 1.0 means confirmed
	Preserve  bool       // never merge across this edge
	FalseEdge bool       // synthetic edge with no voxel contact
	Props     Properties // optional values, e.g. PropLocation
}

// Nodes returns the endpoint ids, smaller first.
func (e *Edge) Nodes() (NodeID, NodeID) { return e.node1, e.node2 }

// Other returns the endpoint opposite id.
func (e *Edge) Other(id NodeID) NodeID {
	if e.node1 == id {
		return e.node2
	}
	return e.node1
}

// Location returns the edge location estimate if set.
func (e *Edge) Location() (Location, bool) {
	return Property[Location](e.Props, PropLocation)
}

// SetLocation sets the edge location estimate.
func (e *Edge) SetLocation(loc Location) {
	SetProperty(&e.Props, PropLocation, loc)
}

// EdgeSize returns the contact size if set.
func (e *Edge) EdgeSize() (uint64, bool) {
	return Property[uint64](e.Props, PropEdgeSize)
}

// SetEdgeSize sets the contact size.
func (e *Edge) SetEdgeSize(size uint64) {
	SetProperty(&e.Props, PropEdgeSize, size)
}

// Graph is a region-adjacency graph.
type Graph struct {
	nodes    map[NodeID]*Node
	numEdges int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return g.numEdges }

// Node looks up a node by id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge looks up the edge between a and b, in either order.
func (g *Graph) Edge(a, b NodeID) (*Edge, bool) {
	n, ok := g.nodes[a]
	if !ok {
		return nil, false
	}
	e, ok := n.edges[b]
	return e, ok
}

// InsertNode adds an empty node.
func (g *Graph) InsertNode(id NodeID) (*Node, error) {
	if _, ok := g.nodes[id]; ok {
		return nil, fmt.Errorf("insert node %d: %w", id, ErrDuplicateNode)
	}
	n := &Node{id: id, edges: make(map[NodeID]*Edge)}
	g.nodes[id] = n
	return n, nil
}

// InsertEdge adds an edge with zero weight between two existing nodes.
func (g *Graph) InsertEdge(a, b NodeID) (*Edge, error) {
	if a == b {
		return nil, fmt.Errorf("insert edge %d-%d: %w", a, b, ErrSelfLoop)
	}
	na, ok := g.nodes[a]
	if !ok {
		return nil, fmt.Errorf("insert edge %d-%d: %w", a, b, ErrNodeNotFound)
	}
	nb, ok := g.nodes[b]
	if !ok {
		return nil, fmt.Errorf("insert edge %d-%d: %w", a, b, ErrNodeNotFound)
	}
	if _, ok := na.edges[b]; ok {
		return nil, fmt.Errorf("insert edge %d-%d: %w", a, b, ErrDuplicateEdge)
	}

	e := &Edge{node1: min(a, b), node2: max(a, b)}
	na.edges[b] = e
	nb.edges[a] = e
	g.numEdges++
	return e, nil
}

// RemoveEdge deletes the edge between a and b.
func (g *Graph) RemoveEdge(a, b NodeID) error {
	e, ok := g.Edge(a, b)
	if !ok {
		return fmt.Errorf("remove edge %d-%d: %w", a, b, ErrEdgeNotFound)
	}
	delete(g.nodes[e.node1].edges, e.node2)
	delete(g.nodes[e.node2].edges, e.node1)
	g.numEdges--
	return nil
}

// RemoveNode deletes a node together with its incident edges.
func (g *Graph) RemoveNode(id NodeID) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("remove node %d: %w", id, ErrNodeNotFound)
	}
	for other := range n.edges {
		delete(g.nodes[other].edges, id)
		g.numEdges--
	}
	delete(g.nodes, id)
	return nil
}

// NodeIDs returns every node id in ascending order.
func (g *Graph) NodeIDs() []NodeID {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Nodes returns every node in ascending id order.
func (g *Graph) Nodes() []*Node {
	ids := g.NodeIDs()
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns every edge ordered by (node1, node2).
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, g.numEdges)
	for _, n := range g.nodes {
		for other, e := range n.edges {
			if n.id < other {
				out = append(out, e)
			}
		}
	}
	slices.SortFunc(out, func(a, b *Edge) int {
		return cmp.Or(cmp.Compare(a.node1, b.node1), cmp.Compare(a.node2, b.node2))
	})
	return out
}

// TotalSize returns the sum of all node sizes.
func (g *Graph) TotalSize() uint64 {
	var total uint64
	for _, n := range g.nodes {
		total += n.Size
	}
	return total
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New()
	for id, n := range g.nodes {
		c.nodes[id] = &Node{
			id:           id,
			Size:         n.Size,
			BoundarySize: n.BoundarySize,
			Props:        n.Props.Clone(),
			edges:        make(map[NodeID]*Edge, len(n.edges)),
		}
	}
	for _, e := range g.Edges() {
		ce := &Edge{
			node1:     e.node1,
			node2:     e.node2,
			Weight:    e.Weight,
			Preserve:  e.Preserve,
			FalseEdge: e.FalseEdge,
			Props:     e.Props.Clone(),
		}
		c.nodes[e.node1].edges[e.node2] = ce
		c.nodes[e.node2].edges[e.node1] = ce
	}
	c.numEdges = g.numEdges
	return c
}
