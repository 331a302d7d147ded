// Package editor is the focused-proofreading controller. It owns the active
// ranking strategy, applies reviewer decisions to the region graph, keeps
// an exact undo log and estimates how much review work is left.
//
// An Editor is single-threaded; callers serialize access.
package editor

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/gammazero/deque"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/edgerank"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// IdentCustom is reported by Mode when a caller-supplied strategy is active.
const IdentCustom = "custom"

// Range is the weight window of the prob strategy.
type Range struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Start float64 `json:"start" yaml:"start"`
}

// DefaultRange is used when neither the caller nor the state document
// provides a window.
var DefaultRange = Range{Lower: 0.1, Upper: 0.9, Start: 0.1}

// Params configures a strategy. Fields a strategy does not use are ignored.
type Params struct {
	IgnoreSize float64
	Depth      int
	Range      Range
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithSeed seeds the random source used by EstimateRemainingWork.
func WithSeed(seed uint64) Option {
	return func(e *Editor) { e.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithRange sets the window used when the state document has none.
func WithRange(r Range) Option {
	return func(e *Editor) { e.defaultRange = r }
}

// Editor applies decisions to a graph on behalf of a ranking strategy.
type Editor struct {
	graph  *rag.Graph
	logger *slog.Logger
	rng    *rand.Rand

	nodeSize *edgerank.NodeSizeRank
	synapse  *edgerank.SynapseRank
	orphan   *edgerank.OrphanRank
	prob     *edgerank.ProbEdgeRank

	active edgerank.Strategy
	mode   string
	params Params

	history deque.Deque[historyEntry]

	// processed counts every decision not undone; loaded holds the per-mode
	// totals of earlier sessions.
	processed    uint64
	loaded       map[string]uint64
	estRemaining uint64
	estimated    bool

	defaultRange Range
	window       Range // last prob window, exported with the state
	numSlices    uint64
	sessionID    string
}

// New builds an editor over g. A nil state starts a fresh session in
// nodesize mode. The state's synapse and orphan lists are written into g
// before the strategy initializes.
func New(g *rag.Graph, st *State, opts ...Option) (*Editor, error) {
	e := &Editor{
		graph:        g,
		logger:       slog.Default(),
		rng:          rand.New(rand.NewPCG(1, 1)),
		nodeSize:     edgerank.NewNodeSizeRank(g),
		synapse:      edgerank.NewSynapseRank(g),
		orphan:       edgerank.NewOrphanRank(g),
		prob:         edgerank.NewProbEdgeRank(g),
		loaded:       make(map[string]uint64),
		defaultRange: DefaultRange,
		numSlices:    DefaultNumSlices,
	}
	for _, opt := range opts {
		opt(e)
	}
	if st == nil {
		st = &State{}
	}

	// 1. Seed the graph.
	if err := st.seed(g); err != nil {
		return nil, err
	}

	// 2. Restore counters.
	e.processed = st.NumProcessed
	e.loaded[edgerank.IdentSynapse] = st.NumSynProcessed
	e.loaded[edgerank.IdentProb] = st.NumEdgeProcessed
	e.loaded[edgerank.IdentNodeSize] = st.NumBodyProcessed
	e.loaded[edgerank.IdentOrphan] = st.NumOrphanProcessed
	if st.NumSlices != nil {
		e.numSlices = *st.NumSlices
	}
	e.sessionID = st.SessionID

	// 3. Activate the selected strategy.
	params, err := st.Params(e.defaultRange)
	if err != nil {
		return nil, err
	}
	e.window = params.Range
	if err := e.SetStrategy(st.Mode(), params); err != nil {
		return nil, err
	}
	return e, nil
}

// Graph returns the edited graph.
func (e *Editor) Graph() *rag.Graph { return e.graph }

// Mode returns the active strategy identifier.
func (e *Editor) Mode() string { return e.mode }

// Params returns the parameters of the active strategy.
func (e *Editor) Params() Params { return e.params }

// Window returns the weight window last used by the prob strategy.
func (e *Editor) Window() Range { return e.window }

// SessionID returns the id stored with exported state.
func (e *Editor) SessionID() string { return e.sessionID }

// SetSessionID sets the id stored with exported state.
func (e *Editor) SetSessionID(id string) { e.sessionID = id }

// SetStrategy activates the named strategy. The undo log and the work
// estimate are discarded; decision counters are kept.
func (e *Editor) SetStrategy(mode string, p Params) error {
	switch mode {
	case edgerank.IdentNodeSize, edgerank.IdentSynapse, edgerank.IdentOrphan:
	case edgerank.IdentProb:
		if p.Range.Lower > p.Range.Upper {
			return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, p.Range.Lower, p.Range.Upper)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	e.reinitialize()

	switch mode {
	case edgerank.IdentNodeSize:
		e.nodeSize.Initialize(p.IgnoreSize, p.Depth)
		e.active = e.nodeSize
	case edgerank.IdentSynapse:
		e.synapse.Initialize(p.IgnoreSize)
		e.active = e.synapse
	case edgerank.IdentOrphan:
		e.orphan.Initialize(p.IgnoreSize)
		e.active = e.orphan
	case edgerank.IdentProb:
		e.prob.Initialize(p.Range.Lower, p.Range.Upper, p.Range.Start, p.IgnoreSize)
		e.active = e.prob
		e.window = p.Range
	}
	e.mode = mode
	e.params = p

	e.logger.Info("Strategy activated",
		"mode", mode,
		"ignore_size", p.IgnoreSize,
		"depth", p.Depth,
		"remaining", e.active.NumRemaining())
	return nil
}

// SetNodeSizeMode activates the size-ranked strategy.
func (e *Editor) SetNodeSizeMode(ignoreSize float64, depth int) {
	_ = e.SetStrategy(edgerank.IdentNodeSize, Params{IgnoreSize: ignoreSize, Depth: depth})
}

// SetSynapseMode activates the synapse-weighted strategy.
func (e *Editor) SetSynapseMode(ignoreSize float64) {
	_ = e.SetStrategy(edgerank.IdentSynapse, Params{IgnoreSize: ignoreSize})
}

// SetOrphanMode activates the orphan strategy.
func (e *Editor) SetOrphanMode(ignoreSize float64) {
	_ = e.SetStrategy(edgerank.IdentOrphan, Params{IgnoreSize: ignoreSize})
}

// SetProbMode activates the weight-range strategy.
func (e *Editor) SetProbMode(r Range, ignoreSize float64) error {
	return e.SetStrategy(edgerank.IdentProb, Params{IgnoreSize: ignoreSize, Range: r})
}

// SetCustomStrategy activates a caller-supplied strategy. It must rank
// the graph returned by Graph.
func (e *Editor) SetCustomStrategy(s edgerank.Strategy) {
	e.reinitialize()
	e.active = s
	e.mode = IdentCustom
	e.params = Params{}
	e.logger.Info("Strategy activated", "mode", IdentCustom, "identifier", s.Identifier())
}

// ClearHistory drops the undo log. Decisions made so far can no longer be
// undone.
func (e *Editor) ClearHistory() {
	e.history.Clear()
	e.logger.Debug("Undo history cleared")
}

// reinitialize drops the undo log and the estimate.
func (e *Editor) reinitialize() {
	e.history.Clear()
	e.estRemaining = 0
	e.estimated = false
}

// TopEdge returns the edge the active strategy wants examined next and the
// location estimate of that edge. The location is the zero value when the
// edge has none.
func (e *Editor) TopEdge() (edgerank.NodePair, rag.Location, error) {
	pair, ok := e.active.TopEdge()
	if !ok {
		return edgerank.NodePair{}, rag.Location{}, ErrNoCandidateEdge
	}
	var loc rag.Location
	if edge, ok := e.graph.Edge(pair.Primary, pair.Secondary); ok {
		loc, _ = edge.Location()
	}
	return pair, loc, nil
}

// EdgeWeight returns the weight of the edge joining pair.
func (e *Editor) EdgeWeight(pair edgerank.NodePair) (float64, error) {
	edge, ok := e.graph.Edge(pair.Primary, pair.Secondary)
	if !ok {
		return 0, fmt.Errorf("edge %d-%d: %w", pair.Primary, pair.Secondary, rag.ErrEdgeNotFound)
	}
	return edge.Weight, nil
}

// ApplyDecision applies a reviewer decision on pair. A merge (rejected
// false) folds Secondary into Primary; a rejection confirms the boundary.
// The pair must be joined by an edge; nothing is changed otherwise.
func (e *Editor) ApplyDecision(pair edgerank.NodePair, rejected bool) error {
	if err := e.apply(pair, rejected); err != nil {
		return err
	}
	e.logger.Debug("Decision applied",
		"primary", pair.Primary,
		"secondary", pair.Secondary,
		"rejected", rejected,
		"processed", e.processed)
	return nil
}

func (e *Editor) apply(pair edgerank.NodePair, rejected bool) error {
	if _, ok := e.graph.Edge(pair.Primary, pair.Secondary); !ok {
		return fmt.Errorf("decide %d-%d: %w", pair.Primary, pair.Secondary, rag.ErrEdgeNotFound)
	}

	e.processed++
	if e.estRemaining > 0 {
		e.estRemaining--
	}

	if rejected {
		h, err := newEdgeEntry(e.graph, pair.Primary, pair.Secondary, true)
		if err != nil {
			return err
		}
		e.history.PushBack(h)
		edge, _ := e.graph.Edge(pair.Primary, pair.Secondary)
		edge.Weight = ConfirmedWeight
	} else {
		if err := e.merge(pair.Primary, pair.Secondary); err != nil {
			return err
		}
	}

	e.active.ExaminedEdge(pair, rejected)
	return nil
}

func (e *Editor) merge(keep, remove rag.NodeID) error {
	h, err := newMergeEntry(e.graph, keep, remove)
	if err != nil {
		return err
	}

	nk, _ := e.graph.Node(keep)
	nr, _ := e.graph.Node(remove)
	_, keepHas := rag.Property[uint64](nk.Props, rag.PropSynapseWeight)
	_, removeHas := rag.Property[uint64](nr.Props, rag.PropSynapseWeight)
	synapses := nk.SynapseWeight() + nr.SynapseWeight()

	if err := e.graph.Join(keep, remove, LowWeightCombine{}); err != nil {
		return err
	}
	e.history.PushBack(h)

	if keepHas || removeHas {
		nk.SetSynapseWeight(synapses)
	}
	return nil
}

// SetEdge overwrites the weight of the edge joining a and b. The change is
// undoable but is not a decision: strategies are not told about it.
func (e *Editor) SetEdge(a, b rag.NodeID, weight float64) error {
	h, err := newEdgeEntry(e.graph, a, b, false)
	if err != nil {
		return err
	}
	e.history.PushBack(h)
	edge, _ := e.graph.Edge(a, b)
	edge.Weight = weight
	return nil
}

// Undo reverts the most recent decision or edge edit. It returns false
// when there is nothing to undo.
func (e *Editor) Undo() bool {
	if !e.undo() {
		return false
	}
	e.logger.Debug("Decision undone", "processed", e.processed, "history", e.history.Len())
	return true
}

func (e *Editor) undo() bool {
	if e.history.Len() == 0 {
		return false
	}
	h := e.history.PopBack()
	h.restore(e.graph)

	if !h.decision {
		return true
	}
	if e.processed > 0 {
		e.processed--
	}
	if e.estimated {
		e.estRemaining++
	}
	e.active.Undo()
	return true
}

// EstimateRemainingWork simulates the rest of the session: every proposed
// edge is merged with a probability of one minus its weight and rejected
// otherwise, until the strategy is finished. All simulated decisions are
// then undone and their count becomes the remaining-work estimate.
func (e *Editor) EstimateRemainingWork() (int, error) {
	steps := 0
	for !e.active.Finished() {
		pair, ok := e.active.TopEdge()
		if !ok {
			break
		}
		edge, ok := e.graph.Edge(pair.Primary, pair.Secondary)
		if !ok {
			e.rollback(steps)
			return 0, fmt.Errorf("estimate %d-%d: %w", pair.Primary, pair.Secondary, rag.ErrEdgeNotFound)
		}

		roll := e.rng.IntN(100)
		merge := roll > int(math.Round(100*edge.Weight))
		if err := e.apply(pair, !merge); err != nil {
			e.rollback(steps)
			return 0, err
		}
		steps++
	}

	e.rollback(steps)
	e.estRemaining = uint64(steps)
	e.estimated = true

	e.logger.Info("Remaining work estimated", "mode", e.mode, "decisions", steps)
	return steps, nil
}

func (e *Editor) rollback(steps int) {
	for range steps {
		e.undo()
	}
}

// NumRemaining returns 0 when the strategy is finished, the estimate when
// one is held, and the strategy's own count otherwise.
func (e *Editor) NumRemaining() int {
	switch {
	case e.active.Finished():
		return 0
	case e.estRemaining > 0:
		return int(e.estRemaining)
	default:
		return e.active.NumRemaining()
	}
}

// Finished reports whether the active strategy has no candidate left.
func (e *Editor) Finished() bool { return e.active.Finished() }

// HistoryLen returns the number of undoable steps.
func (e *Editor) HistoryLen() int { return e.history.Len() }

// QAViolators lists orphan regions that carry synapses or are at least
// threshold in size.
func (e *Editor) QAViolators(threshold uint64) []rag.NodeID {
	var out []rag.NodeID
	for _, n := range e.graph.Nodes() {
		if !n.IsBoundary() && (n.SynapseWeight() > 0 || n.Size >= threshold) {
			out = append(out, n.ID())
		}
	}
	return out
}

// Stats is a snapshot of session progress.
type Stats struct {
	Mode         string            `json:"mode"`
	Processed    uint64            `json:"num_processed"`
	Remaining    int               `json:"num_remaining"`
	Estimated    bool              `json:"estimated"`
	Finished     bool              `json:"finished"`
	HistoryDepth int               `json:"history_depth"`
	ByMode       map[string]uint64 `json:"processed_by_mode"`
	Nodes        int               `json:"num_nodes"`
	Edges        int               `json:"num_edges"`
}

// Stats returns a progress snapshot.
func (e *Editor) Stats() Stats {
	return Stats{
		Mode:         e.mode,
		Processed:    e.processed,
		Remaining:    e.NumRemaining(),
		Estimated:    e.estimated,
		Finished:     e.active.Finished(),
		HistoryDepth: e.history.Len(),
		ByMode:       e.processedByMode(),
		Nodes:        e.graph.NumNodes(),
		Edges:        e.graph.NumEdges(),
	}
}

func (e *Editor) processedByMode() map[string]uint64 {
	out := make(map[string]uint64, 4)
	for _, s := range []edgerank.Strategy{e.nodeSize, e.synapse, e.orphan, e.prob} {
		out[s.Identifier()] = e.loaded[s.Identifier()] + uint64(s.NumProcessed())
	}
	return out
}

// ExportState captures the session so that New can resume it.
func (e *Editor) ExportState() *State {
	byMode := e.processedByMode()
	orphans, synapses := derivedBodies(e.graph)
	depth := uint64(max(e.params.Depth, 0))
	ignore := e.params.IgnoreSize
	slices := e.numSlices

	st := &State{
		NumProcessed:       e.processed,
		NumSynProcessed:    byMode[edgerank.IdentSynapse],
		NumEdgeProcessed:   byMode[edgerank.IdentProb],
		NumBodyProcessed:   byMode[edgerank.IdentNodeSize],
		NumOrphanProcessed: byMode[edgerank.IdentOrphan],
		NumEstRemaining:    e.estRemaining,
		NumSlices:          &slices,
		CurrentDepth:       &depth,
		Range:              []float64{e.window.Lower, e.window.Upper},
		IgnoreSize:         &ignore,
		OrphanBodies:       orphans,
		SynapseBodies:      synapses,
		SessionID:          e.sessionID,
	}
	if e.mode != IdentCustom {
		_ = st.SetMode(e.mode)
	}
	return st
}
