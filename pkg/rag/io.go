package rag

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults applied to absent edge_list fields. edge_list carries no boundary
// information, so a node it introduces is not an orphan.
const (
	DefaultNodeSize     = 1
	DefaultEdgeSize     = 5
	DefaultBoundarySize = 1
)

// Document is the JSON form of a graph.
//
// edge_list alone is enough to build a graph; node sizes are then taken from
// size1/size2. node_list, when present, carries isolated nodes, boundary
// sizes and synapse counts and wins over the per-edge sizes.
type Document struct {
	NodeList []NodeRecord `json:"node_list,omitempty"`
	EdgeList []EdgeRecord `json:"edge_list"`
}

// NodeRecord is one entry of node_list.
type NodeRecord struct {
	ID            NodeID  `json:"id"`
	Size          uint64  `json:"size"`
	BoundarySize  uint64  `json:"boundary_size"`
	SynapseWeight *uint64 `json:"synapse_weight,omitempty"`
}

// EdgeRecord is one entry of edge_list.
type EdgeRecord struct {
	Node1     NodeID   `json:"node1"`
	Node2     NodeID   `json:"node2"`
	Size1     *uint64  `json:"size1,omitempty"`
	Size2     *uint64  `json:"size2,omitempty"`
	Weight    float64  `json:"weight"`
	EdgeSize  *uint64  `json:"edge_size,omitempty"`
	Preserve  Flag     `json:"preserve"`
	FalseEdge Flag     `json:"false_edge"`
	Location  []uint32 `json:"location,omitempty"`
}

// Flag is a boolean that also accepts 0/1 on input.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	if v, err := strconv.ParseBool(string(b)); err == nil {
		*f = Flag(v)
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid flag %s", b)
	}
	*f = n != 0
	return nil
}

// Build constructs a graph from the document.
func (d *Document) Build() (*Graph, error) {
	g := New()

	for _, rec := range d.NodeList {
		n, err := g.InsertNode(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
		}
		n.Size = rec.Size
		n.BoundarySize = rec.BoundarySize
		if rec.SynapseWeight != nil {
			n.SetSynapseWeight(*rec.SynapseWeight)
		}
	}

	for i, rec := range d.EdgeList {
		if rec.Node1 == rec.Node2 {
			return nil, fmt.Errorf("%w: edge %d joins node %d to itself", ErrMalformedGraph, i, rec.Node1)
		}
		ensureNode(g, rec.Node1, rec.Size1)
		ensureNode(g, rec.Node2, rec.Size2)

		// first occurrence of an edge wins
		if _, ok := g.Edge(rec.Node1, rec.Node2); ok {
			continue
		}
		e, err := g.InsertEdge(rec.Node1, rec.Node2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
		}
		e.Weight = rec.Weight
		e.Preserve = bool(rec.Preserve)
		e.FalseEdge = bool(rec.FalseEdge)

		if len(rec.Location) > 0 {
			if len(rec.Location) != 3 {
				return nil, fmt.Errorf("%w: edge %d-%d location has %d coordinates", ErrMalformedGraph, rec.Node1, rec.Node2, len(rec.Location))
			}
			e.SetLocation(Location{X: rec.Location[0], Y: rec.Location[1], Z: rec.Location[2]})
		}
		edgeSize := uint64(DefaultEdgeSize)
		if rec.EdgeSize != nil {
			edgeSize = *rec.EdgeSize
		}
		e.SetEdgeSize(edgeSize)
	}

	return g, nil
}

func ensureNode(g *Graph, id NodeID, size *uint64) {
	if _, ok := g.Node(id); ok {
		return
	}
	n, _ := g.InsertNode(id)
	n.Size = DefaultNodeSize
	n.BoundarySize = DefaultBoundarySize
	if size != nil {
		n.Size = *size
	}
}

// Document returns the canonical document form of the graph: nodes and
// edges in ascending id order with every known property written out.
func (g *Graph) Document() Document {
	doc := Document{
		NodeList: make([]NodeRecord, 0, g.NumNodes()),
		EdgeList: make([]EdgeRecord, 0, g.NumEdges()),
	}
	for _, n := range g.Nodes() {
		rec := NodeRecord{ID: n.id, Size: n.Size, BoundarySize: n.BoundarySize}
		if w, ok := Property[uint64](n.Props, PropSynapseWeight); ok {
			rec.SynapseWeight = &w
		}
		doc.NodeList = append(doc.NodeList, rec)
	}
	for _, e := range g.Edges() {
		size1, size2 := g.nodes[e.node1].Size, g.nodes[e.node2].Size
		rec := EdgeRecord{
			Node1:     e.node1,
			Node2:     e.node2,
			Size1:     &size1,
			Size2:     &size2,
			Weight:    e.Weight,
			Preserve:  Flag(e.Preserve),
			FalseEdge: Flag(e.FalseEdge),
		}
		if s, ok := e.EdgeSize(); ok {
			rec.EdgeSize = &s
		}
		if loc, ok := e.Location(); ok {
			rec.Location = []uint32{loc.X, loc.Y, loc.Z}
		}
		doc.EdgeList = append(doc.EdgeList, rec)
	}
	return doc
}

// Decode reads a graph document from r and builds the graph.
func Decode(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
	}
	return doc.Build()
}

// Encode writes the canonical document of g to w.
func Encode(w io.Writer, g *Graph) error {
	doc := g.Document()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&doc)
}

// LoadFile reads a graph from a JSON file.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph %s: %w", path, err)
	}
	defer f.Close()

	g, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	return g, nil
}

// SaveFile writes g to path, replacing the file atomically.
func SaveFile(path string, g *Graph) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := Encode(w, g); err != nil {
		f.Close()
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
