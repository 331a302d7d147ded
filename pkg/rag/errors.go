package rag

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is returned when an operation references a node id
	// that is not present in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when no edge connects the two given ids.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDuplicateNode is returned when inserting a node id that already exists.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDuplicateEdge is returned when inserting a second edge between the
	// same two nodes. At most one edge may join any pair.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("self loop")

	// ErrNotConnected is returned by Join when the two nodes share no edge.
	ErrNotConnected = errors.New("nodes are not connected")

	// ErrMalformedGraph is returned when a graph document cannot be interpreted.
	ErrMalformedGraph = errors.New("malformed graph document")
)
