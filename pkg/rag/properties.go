package rag

import "maps"

// Well-known property keys.
const (
	// PropSynapseWeight holds the synapse annotation count of a node (uint64).
	PropSynapseWeight = "synapse_weight"
	// PropLocation holds the 3-D location estimate of an edge (Location).
	PropLocation = "location"
	// PropEdgeSize holds the contact size of an edge (uint64).
	PropEdgeSize = "edge_size"
)

// Location is a voxel coordinate.
type Location struct {
	X, Y, Z uint32
}

// Properties is a bag of optional values attached to a node or an edge.
// Values must be plain values (no pointers, maps or slices) so that Clone
// yields an independent snapshot.
type Properties map[string]any

// Clone returns a copy of the bag. A nil bag clones to nil.
func (p Properties) Clone() Properties {
	return maps.Clone(p)
}

// Property returns the value stored under key if it is present and of type T.
// A missing or differently-typed value is reported as absent.
func Property[T any](p Properties, key string) (T, bool) {
	v, ok := p[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// SetProperty stores v under key, allocating the bag on first use.
func SetProperty[T any](p *Properties, key string, v T) {
	if *p == nil {
		*p = make(Properties)
	}
	(*p)[key] = v
}
