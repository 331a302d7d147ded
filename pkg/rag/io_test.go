package rag

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const edgeListJSON = `{
  "edge_list": [
    {"node1": 1, "node2": 2, "size1": 100, "size2": 50, "weight": 0.2, "location": [4, 5, 6]},
    {"node1": 2, "node2": 3, "size2": 5000, "weight": 0.9, "preserve": 1, "edge_size": 12},
    {"node1": 3, "node2": 2, "weight": 0.4}
  ]
}`

func TestDecode_EdgeListDefaults(t *testing.T) {
	g, err := Decode(strings.NewReader(edgeListJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())

	n3, _ := g.Node(3)
	assert.Equal(t, uint64(5000), n3.Size)
	assert.Equal(t, uint64(DefaultBoundarySize), n3.BoundarySize)
	assert.True(t, n3.IsBoundary())

	e12, _ := g.Edge(1, 2)
	loc, ok := e12.Location()
	require.True(t, ok)
	assert.Equal(t, Location{X: 4, Y: 5, Z: 6}, loc)
	size, _ := e12.EdgeSize()
	assert.Equal(t, uint64(DefaultEdgeSize), size)

	// duplicate 3-2 ignored
	e23, _ := g.Edge(2, 3)
	assert.Equal(t, 0.9, e23.Weight)
	assert.True(t, e23.Preserve)
	size, _ = e23.EdgeSize()
	assert.Equal(t, uint64(12), size)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", `{"edge_list": [`},
		{"self loop", `{"edge_list": [{"node1": 1, "node2": 1}]}`},
		{"short location", `{"edge_list": [{"node1": 1, "node2": 2, "location": [1, 2]}]}`},
		{"duplicate node", `{"node_list": [{"id": 1}, {"id": 1}], "edge_list": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrMalformedGraph)
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	g, err := Decode(strings.NewReader(edgeListJSON))
	require.NoError(t, err)
	n1, _ := g.Node(1)
	n1.BoundarySize = 3
	n1.SetSynapseWeight(8)
	_, _ = g.InsertNode(77)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g))

	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Document(), back.Document())
}

func TestSaveFile_LoadFile(t *testing.T) {
	g, err := Decode(strings.NewReader(edgeListJSON))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, SaveFile(path, g))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, g.Document(), back.Document())
}
