package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

func writeGraph(t *testing.T) string {
	t.Helper()
	doc := rag.Document{
		NodeList: []rag.NodeRecord{
			{ID: 1, Size: 100, BoundarySize: 1},
			{ID: 2, Size: 50, BoundarySize: 1},
			{ID: 3, Size: 5000, BoundarySize: 0},
			{ID: 4, Size: 40000, BoundarySize: 0},
		},
		EdgeList: []rag.EdgeRecord{
			{Node1: 1, Node2: 2, Weight: 0.2},
			{Node1: 2, Node2: 3, Weight: 0.9},
			{Node1: 3, Node2: 4, Weight: 0.4},
		},
	}
	g, err := doc.Build()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, rag.SaveFile(path, g))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	configPath, graphPath, statePath, logLevel = "", "", "", ""
	httpAddr, violatorsThreshold, exportOut = "", 0, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestViolatorsCommand(t *testing.T) {
	graph := writeGraph(t)

	out := execute(t, "violators", "--graph", graph)
	assert.Equal(t, "4\n", out)

	out = execute(t, "violators", "--graph", graph, "--threshold", "1000")
	assert.Equal(t, []string{"3", "4"}, strings.Fields(out))
}

func TestEstimateCommand(t *testing.T) {
	out := execute(t, "estimate", "--graph", writeGraph(t))
	assert.True(t, strings.HasPrefix(out, "mode=nodesize processed=0 remaining="), out)
}

func TestExportCommand(t *testing.T) {
	graph := writeGraph(t)
	dest := filepath.Join(t.TempDir(), "out.json")

	execute(t, "export", "--graph", graph, "--out", dest)

	st, err := editor.LoadStateFile(dest)
	require.NoError(t, err)
	assert.True(t, st.NodeSizeMode)
	assert.ElementsMatch(t, []rag.NodeID{3, 4}, st.OrphanBodies)
}

func TestConfigFile(t *testing.T) {
	graph := writeGraph(t)
	cfg := filepath.Join(t.TempDir(), "neuroproof.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("graph_path: "+graph+"\nqa_threshold: 1000\n"), 0o644))

	out := execute(t, "violators", "--config", cfg)
	assert.Equal(t, []string{"3", "4"}, strings.Fields(out))
}

func TestMissingGraphFails(t *testing.T) {
	configPath, graphPath, statePath, logLevel = "", "", "", ""
	rootCmd.SetArgs([]string{"estimate"})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}
