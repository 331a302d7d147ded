package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neuroproof.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
graph_path: /data/graph.json
state_path: /data/state.json
journal_path: /data/session.journal
journal_sync: always
journal_flush_interval: 250ms
mode: prob
ignore_size: 30
range:
  lower: 0.2
  upper: 0.8
  start: 0.3
seed: 42
http:
  addr: 127.0.0.1:8080
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/graph.json", cfg.GraphPath)
	assert.Equal(t, "always", cfg.JournalSync)
	assert.Equal(t, 250*time.Millisecond, cfg.JournalFlushInterval)
	assert.Equal(t, "prob", cfg.Mode)
	require.NotNil(t, cfg.IgnoreSize)
	assert.Equal(t, 30.0, *cfg.IgnoreSize)
	assert.Equal(t, editor.Range{Lower: 0.2, Upper: 0.8, Start: 0.3}, cfg.Range)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, uint64(25000), cfg.QAThreshold, "default kept")
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "graph_path: g.json\ncolour: blue\n"},
		{"missing graph", "mode: prob\n"},
		{"bad mode", "graph_path: g.json\nmode: sideways\n"},
		{"bad sync", "graph_path: g.json\njournal_sync: sometimes\n"},
		{"bad level", "graph_path: g.json\nlog:\n  level: loud\n"},
		{"inverted range", "graph_path: g.json\nrange:\n  lower: 0.9\n  upper: 0.1\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig_NeedsGraph(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.GraphPath = "graph.json"
	assert.NoError(t, cfg.Validate())
}
