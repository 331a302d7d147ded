package editor

import "errors"

// Sentinel errors returned by the editor.
var (
	// ErrNoCandidateEdge is returned when the active strategy has nothing
	// left to propose.
	ErrNoCandidateEdge = errors.New("no candidate edge")

	// ErrMalformedState is returned when a persisted state document cannot
	// be interpreted or references regions missing from the graph.
	ErrMalformedState = errors.New("malformed persisted state")

	// ErrUnknownMode is returned for a strategy identifier the editor does
	// not know.
	ErrUnknownMode = errors.New("unknown strategy mode")

	// ErrInvalidRange is returned for a weight window whose lower bound
	// lies above its upper bound.
	ErrInvalidRange = errors.New("invalid weight range")
)
