package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

type testEnv struct {
	srv  *Server
	http *httptest.Server
	cfg  session.Config
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	doc := rag.Document{
		NodeList: []rag.NodeRecord{
			{ID: 1, Size: 100, BoundarySize: 1},
			{ID: 2, Size: 50, BoundarySize: 1},
			{ID: 3, Size: 5000, BoundarySize: 1},
			{ID: 4, Size: 30000, BoundarySize: 0},
		},
		EdgeList: []rag.EdgeRecord{
			{Node1: 1, Node2: 2, Weight: 0.2, Location: []uint32{10, 20, 30}},
			{Node1: 2, Node2: 3, Weight: 0.9},
			{Node1: 3, Node2: 4, Weight: 0.95},
		},
	}
	g, err := doc.Build()
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.GraphPath = filepath.Join(dir, "graph.json")
	cfg.StatePath = filepath.Join(dir, "state.json")
	cfg.JournalPath = filepath.Join(dir, "session.journal")
	cfg.Mode = "prob"
	cfg.HTTP.AuthToken = token
	require.NoError(t, rag.SaveFile(cfg.GraphPath, g))

	sess, err := session.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	srv := NewServer(sess, cfg.HTTP, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, http: ts, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if e.cfg.HTTP.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.HTTP.AuthToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestHealthzEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	code, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, env.srv.Session.ID(), body["session"])
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "test-secret-token")

	resp, err := http.Get(env.http.URL + "/v1/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, _ := env.do(t, http.MethodGet, "/v1/stats", "")
	assert.Equal(t, http.StatusOK, code)

	// Health and metrics stay open for probes.
	resp, err = http.Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t, "")

	code, top := env.do(t, http.MethodGet, "/v1/top-edge", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), top["primary"])
	assert.Equal(t, float64(2), top["secondary"])
	assert.Equal(t, []any{float64(10), float64(20), float64(30)}, top["location"])
	assert.Equal(t, 0.2, top["weight"])

	code, stats := env.do(t, http.MethodPost, "/v1/decisions", `{"primary":1,"secondary":2,"rejected":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), stats["num_processed"])
	assert.Equal(t, float64(3), stats["num_nodes"])

	code, undo := env.do(t, http.MethodPost, "/v1/undo", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, undo["undone"])
	assert.Equal(t, float64(0), undo["num_processed"])
	assert.Equal(t, float64(4), undo["num_nodes"])

	code, undo = env.do(t, http.MethodPost, "/v1/undo", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, undo["undone"])
}

func TestDecisionErrors(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"primary":`, http.StatusBadRequest},
		{"unknown field", `{"primary":1,"secondary":2,"merge":true}`, http.StatusBadRequest},
		{"missing secondary", `{"primary":1}`, http.StatusBadRequest},
		{"same region", `{"primary":2,"secondary":2}`, http.StatusBadRequest},
		{"no edge", `{"primary":1,"secondary":3}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPost, "/v1/decisions", tt.body)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, uint64(0), env.srv.Session.Stats().Processed)
}

func TestEdgeWeight(t *testing.T) {
	env := newTestEnv(t, "")

	code, _ := env.do(t, http.MethodPost, "/v1/edges/weight", `{"node1":1,"node2":2,"weight":0.4}`)
	require.Equal(t, http.StatusOK, code)

	_, top := env.do(t, http.MethodGet, "/v1/top-edge", "")
	assert.Equal(t, 0.4, top["weight"])

	code, _ = env.do(t, http.MethodPost, "/v1/edges/weight", `{"node1":1,"node2":4,"weight":0.4}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestModeSwitch(t *testing.T) {
	env := newTestEnv(t, "")

	code, stats := env.do(t, http.MethodPost, "/v1/mode", `{"mode":"orphan"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "orphan", stats["mode"])

	code, _ = env.do(t, http.MethodPost, "/v1/mode", `{"mode":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/v1/mode", `{"mode":"prob","range":{"lower":0.9,"upper":0.1}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "orphan", env.srv.Session.Stats().Mode)
}

func TestTopEdgeExhausted(t *testing.T) {
	env := newTestEnv(t, "")

	code, _ := env.do(t, http.MethodPost, "/v1/mode", `{"mode":"prob","range":{"lower":0.3,"upper":0.4,"start":0.3}}`)
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/v1/top-edge", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], editor.ErrNoCandidateEdge.Error())
}

func TestEstimate(t *testing.T) {
	env := newTestEnv(t, "")

	code, body := env.do(t, http.MethodPost, "/v1/estimate", "")
	require.Equal(t, http.StatusOK, code)
	assert.GreaterOrEqual(t, body["remaining"], float64(1))

	code, body = env.do(t, http.MethodPost, "/v1/estimate?async=true", "")
	require.Equal(t, http.StatusAccepted, code)
	id, ok := body["task_id"].(string)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, task := env.do(t, http.MethodGet, "/v1/tasks/"+id, "")
		return task["status"] == string(TaskStatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)

	code, _ = env.do(t, http.MethodGet, "/v1/tasks/unknown", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestViolators(t *testing.T) {
	env := newTestEnv(t, "")

	code, body := env.do(t, http.MethodGet, "/v1/qa-violators", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{float64(4)}, body["regions"])

	code, body = env.do(t, http.MethodGet, "/v1/qa-violators?threshold=40000", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["regions"])

	code, _ = env.do(t, http.MethodGet, "/v1/qa-violators?threshold=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStateAndExport(t *testing.T) {
	env := newTestEnv(t, "")

	code, _ := env.do(t, http.MethodPost, "/v1/decisions", `{"primary":1,"secondary":2,"rejected":true}`)
	require.Equal(t, http.StatusOK, code)

	code, state := env.do(t, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), state["num_processed"])
	assert.Equal(t, true, state["prob_mode"])

	code, body := env.do(t, http.MethodPost, "/v1/state/export", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, env.cfg.StatePath, body["state_path"])

	st, err := editor.LoadStateFile(env.cfg.StatePath)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.NumProcessed)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodGet, "/v1/stats", "")

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "neuroproof_http_requests_total")
	assert.Contains(t, string(raw), "neuroproof_graph_nodes")
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t, "")
	h := env.srv.RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}
