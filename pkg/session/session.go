// Package session hosts one proofreading editor for concurrent callers. It
// loads the graph and the state document, replays the decision journal,
// and journals, logs and meters every change.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janelia-flyem/NeuroProof-sub002/internal/logging"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/edgerank"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/metrics"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/persistence"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

var (
	// ErrInvalidRequest marks caller input that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoStatePath is returned by Export when the session has nowhere to
	// write its state document.
	ErrNoStatePath = errors.New("no state path configured")
)

// Candidate is the edge proposed for review.
type Candidate struct {
	Primary   rag.NodeID `json:"primary"`
	Secondary rag.NodeID `json:"secondary"`
	Location  [3]uint32  `json:"location"`
	Weight    float64    `json:"weight"`
}

// ModeRequest switches the active strategy. Nil fields take the mode's
// defaults.
type ModeRequest struct {
	Mode       string        `json:"mode" validate:"required,oneof=nodesize synapse orphan prob"`
	IgnoreSize *float64      `json:"ignore_size,omitempty" validate:"omitempty,gte=0"`
	Depth      int           `json:"depth,omitempty" validate:"gte=0"`
	Range      *editor.Range `json:"range,omitempty"`
}

// Session serializes access to one editor.
type Session struct {
	mu      sync.Mutex
	id      string
	cfg     Config
	editor  *editor.Editor
	journal *persistence.Journal
	logger  *slog.Logger

	// adoptID is set while a session without a saved state document
	// replays its journal: the journal header then names the session.
	adoptID bool
	base    *slog.Logger
}

// Open loads the session described by cfg. The logger is taken from ctx.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	logger := logging.FromContext(ctx)

	// 1. Graph
	g, err := rag.LoadFile(cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	// 2. State document, with config defaults where it is silent
	st := &editor.State{}
	if cfg.StatePath != "" {
		loaded, err := editor.LoadStateFile(cfg.StatePath)
		switch {
		case err == nil:
			st = loaded
		case errors.Is(err, os.ErrNotExist):
			logger.Info("No state document, starting fresh", "path", cfg.StatePath)
		default:
			return nil, fmt.Errorf("load state: %w", err)
		}
	}
	if err := applyDefaults(st, cfg); err != nil {
		return nil, err
	}
	fresh := st.SessionID == ""
	if fresh {
		st.SessionID = uuid.NewString()
	}

	// 3. Editor
	ed, err := editor.New(g, st,
		editor.WithLogger(logger.With("session", st.SessionID)),
		editor.WithSeed(cfg.Seed),
		editor.WithRange(cfg.Range),
	)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      st.SessionID,
		cfg:     cfg,
		editor:  ed,
		logger:  logger.With("session", st.SessionID),
		adoptID: fresh,
		base:    logger,
	}

	// 4. Journal
	if cfg.JournalPath != "" {
		n, err := persistence.ReplayFile(cfg.JournalPath, s.replay)
		if err != nil {
			return nil, fmt.Errorf("replay journal: %w", err)
		}
		s.adoptID = false
		if n > 0 {
			s.logger.Info("Journal replayed", "path", cfg.JournalPath, "records", n)
		}

		s.journal, err = persistence.OpenJournal(cfg.JournalPath, persistence.SyncPolicy(cfg.JournalSync))
		if err != nil {
			return nil, err
		}
		if s.journal.Size() == 0 {
			if err := s.appendLocked(s.headerRecord()); err != nil {
				_ = s.journal.Close()
				return nil, err
			}
		}
	}

	s.observeLocked()
	s.logger.Info("Session opened",
		"graph", cfg.GraphPath,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"mode", ed.Mode(),
		"processed", ed.Stats().Processed)
	return s, nil
}

func applyDefaults(st *editor.State, cfg Config) error {
	if !st.HasMode() && cfg.Mode != "" {
		if err := st.SetMode(cfg.Mode); err != nil {
			return err
		}
	}
	if st.IgnoreSize == nil && cfg.IgnoreSize != nil {
		v := *cfg.IgnoreSize
		st.IgnoreSize = &v
	}
	if st.CurrentDepth == nil && cfg.Depth > 0 {
		v := uint64(cfg.Depth)
		st.CurrentDepth = &v
	}
	return nil
}

func (s *Session) headerRecord() persistence.Record {
	now := time.Now().UTC()
	return persistence.Record{Op: persistence.OpHeader, SessionID: s.id, Created: &now}
}

// replay applies one journal record to the editor.
func (s *Session) replay(r persistence.Record) error {
	switch r.Op {
	case persistence.OpHeader:
		switch {
		case s.adoptID && r.SessionID != "":
			s.id = r.SessionID
			s.editor.SetSessionID(r.SessionID)
			s.logger = s.base.With("session", r.SessionID)
		case r.SessionID != s.id:
			s.logger.Warn("Journal belongs to another session", "journal_session", r.SessionID)
		}
		s.adoptID = false
	case persistence.OpDecide:
		pair := edgerank.NodePair{Primary: rag.NodeID(r.Primary), Secondary: rag.NodeID(r.Secondary)}
		if err := s.editor.ApplyDecision(pair, r.Rejected); err != nil {
			return fmt.Errorf("replay decision %d-%d: %w", r.Primary, r.Secondary, err)
		}
	case persistence.OpUndo:
		if !s.editor.Undo() {
			s.logger.Warn("Journal undo reaches past the saved state, ignored")
		}
	case persistence.OpSetEdge:
		if err := s.editor.SetEdge(rag.NodeID(r.Node1), rag.NodeID(r.Node2), r.Weight); err != nil {
			return fmt.Errorf("replay edge edit %d-%d: %w", r.Node1, r.Node2, err)
		}
	case persistence.OpMode:
		p := editor.Params{
			IgnoreSize: r.IgnoreSize,
			Depth:      r.Depth,
			Range:      editor.Range{Lower: r.Lower, Upper: r.Upper, Start: r.Start},
		}
		if err := s.editor.SetStrategy(r.Mode, p); err != nil {
			return fmt.Errorf("replay mode switch: %w", err)
		}
	default:
		s.logger.Warn("Unknown journal record skipped", "op", r.Op)
	}
	return nil
}

// appendLocked journals r. Callers hold s.mu or own s exclusively.
func (s *Session) appendLocked(r persistence.Record) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Append(r); err != nil {
		s.logger.Error("Journal append failed", "op", r.Op, "error", err)
		return fmt.Errorf("journal: %w", err)
	}
	metrics.JournalRecordsTotal.WithLabelValues(r.Op.String()).Inc()
	return nil
}

func (s *Session) observeLocked() {
	metrics.RemainingWork.WithLabelValues(s.editor.Mode()).Set(float64(s.editor.NumRemaining()))
	metrics.GraphNodes.Set(float64(s.editor.Graph().NumNodes()))
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config { return s.cfg }

// TopEdge returns the next edge to review.
func (s *Session) TopEdge() (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, loc, err := s.editor.TopEdge()
	if err != nil {
		return Candidate{}, err
	}
	w, err := s.editor.EdgeWeight(pair)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Primary:   pair.Primary,
		Secondary: pair.Secondary,
		Location:  [3]uint32{loc.X, loc.Y, loc.Z},
		Weight:    w,
	}, nil
}

// Decide applies a reviewer decision. rejected false merges Secondary into
// Primary.
func (s *Session) Decide(ctx context.Context, pair edgerank.NodePair, rejected bool) (editor.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.ApplyDecision(pair, rejected); err != nil {
		return editor.Stats{}, err
	}
	outcome := "merge"
	if rejected {
		outcome = "reject"
	}
	metrics.DecisionsTotal.WithLabelValues(s.editor.Mode(), outcome).Inc()
	s.observeLocked()

	logging.FromContext(ctx).Debug("Decision recorded",
		"session", s.id, "primary", pair.Primary, "secondary", pair.Secondary, "outcome", outcome)

	err := s.appendLocked(persistence.Record{
		Op:        persistence.OpDecide,
		Primary:   uint64(pair.Primary),
		Secondary: uint64(pair.Secondary),
		Rejected:  rejected,
	})
	return s.editor.Stats(), err
}

// Undo reverts the latest decision or edge edit.
func (s *Session) Undo(ctx context.Context) (bool, editor.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editor.Undo() {
		return false, s.editor.Stats(), nil
	}
	metrics.UndosTotal.WithLabelValues(s.editor.Mode()).Inc()
	s.observeLocked()
	logging.FromContext(ctx).Debug("Undo recorded", "session", s.id)

	err := s.appendLocked(persistence.Record{Op: persistence.OpUndo})
	return true, s.editor.Stats(), err
}

// SetEdgeWeight overwrites an edge weight. The edit is undoable.
func (s *Session) SetEdgeWeight(ctx context.Context, a, b rag.NodeID, weight float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.SetEdge(a, b, weight); err != nil {
		return err
	}
	s.observeLocked()
	logging.FromContext(ctx).Debug("Edge weight set", "session", s.id, "node1", a, "node2", b, "weight", weight)

	return s.appendLocked(persistence.Record{
		Op:     persistence.OpSetEdge,
		Node1:  uint64(a),
		Node2:  uint64(b),
		Weight: weight,
	})
}

// Estimate runs the remaining-work simulation. The graph is unchanged.
func (s *Session) Estimate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.editor.EstimateRemainingWork()
	if err != nil {
		return 0, err
	}
	metrics.EstimateDuration.WithLabelValues(s.editor.Mode()).Observe(time.Since(start).Seconds())
	s.observeLocked()

	logging.FromContext(ctx).Info("Estimate finished",
		"session", s.id, "mode", s.editor.Mode(), "remaining", n, "took", time.Since(start))
	return n, nil
}

// Stats returns a progress snapshot.
func (s *Session) Stats() editor.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Stats()
}

// SetMode switches the strategy. The undo log is discarded.
func (s *Session) SetMode(ctx context.Context, req ModeRequest) (editor.Stats, error) {
	if err := validate.Struct(req); err != nil {
		return editor.Stats{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := editor.Params{
		IgnoreSize: editor.DefaultIgnoreSize(req.Mode),
		Depth:      req.Depth,
		Range:      s.editor.Window(),
	}
	if req.IgnoreSize != nil {
		p.IgnoreSize = *req.IgnoreSize
	}
	if req.Range != nil {
		p.Range = *req.Range
	}
	if err := s.editor.SetStrategy(req.Mode, p); err != nil {
		return editor.Stats{}, err
	}
	s.observeLocked()
	logging.FromContext(ctx).Info("Mode switched", "session", s.id, "mode", req.Mode)

	err := s.appendLocked(persistence.Record{
		Op:         persistence.OpMode,
		Mode:       req.Mode,
		IgnoreSize: p.IgnoreSize,
		Depth:      p.Depth,
		Lower:      p.Range.Lower,
		Upper:      p.Range.Upper,
		Start:      p.Range.Start,
	})
	return s.editor.Stats(), err
}

// QAViolators lists orphans with synapses or at least threshold in size.
// A zero threshold uses the configured one.
func (s *Session) QAViolators(threshold uint64) []rag.NodeID {
	if threshold == 0 {
		threshold = s.cfg.QAThreshold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.QAViolators(threshold)
}

// State captures the current state document.
func (s *Session) State() *editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.ExportState()
}

// WriteState writes the current state document to w.
func (s *Session) WriteState(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return editor.WriteState(w, s.editor.ExportState())
}

// Export saves the graph and the state document to their configured paths
// and truncates the journal. The saved snapshot is a commit point: the undo
// history is dropped with the journal.
func (s *Session) Export(ctx context.Context) error {
	if s.cfg.StatePath == "" {
		return fmt.Errorf("export: %w", ErrNoStatePath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Graph first: a state document never refers to regions that the
	// saved graph lacks.
	if err := rag.SaveFile(s.cfg.GraphPath, s.editor.Graph()); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	// 2. State
	if err := editor.SaveStateFile(s.cfg.StatePath, s.editor.ExportState()); err != nil {
		return fmt.Errorf("export state: %w", err)
	}

	// 3. Journal restarts from the new snapshot.
	if s.journal != nil {
		if err := s.journal.Truncate(); err != nil {
			return fmt.Errorf("export: truncate journal: %w", err)
		}
		if err := s.appendLocked(s.headerRecord()); err != nil {
			return err
		}
	}
	s.editor.ClearHistory()

	logging.FromContext(ctx).Info("Session exported",
		"session", s.id, "graph", s.cfg.GraphPath, "state", s.cfg.StatePath)
	return nil
}

// RunFlusher keeps the journal synced until ctx is done. Without a journal
// it just waits.
func (s *Session) RunFlusher(ctx context.Context) error {
	if s.journal == nil {
		<-ctx.Done()
		return nil
	}
	return s.journal.RunFlusher(ctx, s.cfg.JournalFlushInterval)
}

// Close syncs and closes the journal.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}
