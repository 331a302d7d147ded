package editor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/edgerank"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults applied to keys absent from a state document.
const (
	DefaultNumSlices    = 250
	DefaultCurrentDepth = 0

	DefaultSynapseIgnoreSize = 0.1
	DefaultProbIgnoreSize    = 27.0
	DefaultBodyIgnoreSize    = 25000.0
)

// DefaultIgnoreSize returns the ignore size used by mode when none is set.
func DefaultIgnoreSize(mode string) float64 {
	switch mode {
	case edgerank.IdentSynapse:
		return DefaultSynapseIgnoreSize
	case edgerank.IdentProb:
		return DefaultProbIgnoreSize
	default:
		return DefaultBodyIgnoreSize
	}
}

// State is the persisted session document. Pointer fields distinguish an
// absent key from a zero value.
type State struct {
	NumProcessed       uint64 `json:"num_processed"`
	NumSynProcessed    uint64 `json:"num_syn_processed"`
	NumEdgeProcessed   uint64 `json:"num_edge_processed"`
	NumBodyProcessed   uint64 `json:"num_body_processed"`
	NumOrphanProcessed uint64 `json:"num_orphan_processed"`
	NumEstRemaining    uint64 `json:"num_est_remaining"`

	NumSlices    *uint64   `json:"num_slices,omitempty"`
	CurrentDepth *uint64   `json:"current_depth,omitempty"`
	Range        []float64 `json:"range,omitempty"`
	IgnoreSize   *float64  `json:"ignore_size,omitempty"`

	NodeSizeMode bool `json:"nodesize_mode,omitempty"`
	SynapseMode  bool `json:"synapse_mode,omitempty"`
	OrphanMode   bool `json:"orphan_mode,omitempty"`
	ProbMode     bool `json:"prob_mode,omitempty"`

	OrphanBodies  []rag.NodeID `json:"orphan_bodies,omitempty"`
	SynapseBodies [][2]uint64  `json:"synapse_bodies,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}

// Mode returns the strategy selected by the document. Synapse wins over
// prob, prob over orphan, and nodesize is the fallback.
func (s *State) Mode() string {
	switch {
	case s.SynapseMode:
		return edgerank.IdentSynapse
	case s.ProbMode:
		return edgerank.IdentProb
	case s.OrphanMode:
		return edgerank.IdentOrphan
	default:
		return edgerank.IdentNodeSize
	}
}

// HasMode reports whether any mode flag is set.
func (s *State) HasMode() bool {
	return s.NodeSizeMode || s.SynapseMode || s.OrphanMode || s.ProbMode
}

// SetMode sets the flag for mode and clears the others.
func (s *State) SetMode(mode string) error {
	s.NodeSizeMode, s.SynapseMode, s.OrphanMode, s.ProbMode = false, false, false, false
	switch mode {
	case edgerank.IdentNodeSize:
		s.NodeSizeMode = true
	case edgerank.IdentSynapse:
		s.SynapseMode = true
	case edgerank.IdentOrphan:
		s.OrphanMode = true
	case edgerank.IdentProb:
		s.ProbMode = true
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return nil
}

// Params resolves the strategy parameters for the selected mode, falling
// back to fallback for the window when the document has no range.
func (s *State) Params(fallback Range) (Params, error) {
	p := Params{Range: fallback}
	if s.Range != nil {
		if len(s.Range) != 2 || s.Range[0] > s.Range[1] {
			return Params{}, fmt.Errorf("%w: range %v", ErrMalformedState, s.Range)
		}
		p.Range = Range{Lower: s.Range[0], Upper: s.Range[1], Start: s.Range[0]}
	}
	if s.IgnoreSize != nil {
		p.IgnoreSize = *s.IgnoreSize
	} else {
		p.IgnoreSize = DefaultIgnoreSize(s.Mode())
	}
	if s.CurrentDepth != nil {
		p.Depth = int(*s.CurrentDepth)
	}
	return p, nil
}

// seed writes the synapse counts and orphan set of s into g.
func (s *State) seed(g *rag.Graph) error {
	for _, sb := range s.SynapseBodies {
		n, ok := g.Node(rag.NodeID(sb[0]))
		if !ok {
			return fmt.Errorf("%w: synapse_bodies references region %d", ErrMalformedState, sb[0])
		}
		n.SetSynapseWeight(sb[1])
	}

	if s.OrphanBodies == nil {
		return nil
	}
	orphans := make(map[rag.NodeID]struct{}, len(s.OrphanBodies))
	for _, id := range s.OrphanBodies {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("%w: orphan_bodies references region %d", ErrMalformedState, id)
		}
		orphans[id] = struct{}{}
	}
	for _, n := range g.Nodes() {
		if _, ok := orphans[n.ID()]; ok {
			n.BoundarySize = 0
		} else if n.BoundarySize == 0 {
			n.BoundarySize = 1
		}
	}
	return nil
}

// ReadState decodes a state document.
func ReadState(r io.Reader) (*State, error) {
	var s State
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return &s, nil
}

// WriteState encodes s as indented JSON.
func WriteState(w io.Writer, s *State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// LoadStateFile reads a state document from path.
func LoadStateFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadState(f)
}

// SaveStateFile writes s to path atomically.
func SaveStateFile(path string, s *State) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteState(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// derivedBodies lists the current orphans and annotated regions of g.
func derivedBodies(g *rag.Graph) (orphans []rag.NodeID, synapses [][2]uint64) {
	for _, n := range g.Nodes() {
		if !n.IsBoundary() {
			orphans = append(orphans, n.ID())
		}
		if w := n.SynapseWeight(); w > 0 {
			synapses = append(synapses, [2]uint64{uint64(n.ID()), w})
		}
	}
	return orphans, synapses
}
