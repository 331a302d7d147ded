// Package affinity computes path-based connection estimates between regions.
//
// The affinity between two regions is the product of edge weights along the
// best path joining them. A Table holds these values keyed by an unordered
// pair of region ids; Search fills one from a single start region.
package affinity

import (
	"cmp"
	"maps"
	"slices"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// Pair is an unordered pair of region ids, stored smaller id first so that
// Pair{a,b} and Pair{b,a} are the same map key.
type Pair struct {
	Region1 rag.NodeID
	Region2 rag.NodeID
}

// NewPair builds the canonical pair for a and b.
func NewPair(a, b rag.NodeID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Region1: a, Region2: b}
}

// Other returns the member of the pair that is not id.
func (p Pair) Other(id rag.NodeID) rag.NodeID {
	if p.Region1 == id {
		return p.Region2
	}
	return p.Region1
}

// Affinity is the value stored for a pair.
type Affinity struct {
	Weight float64 // product of edge weights along the best path
	Size   uint64  // product of the two region sizes

	// Via is the neighbor of the search start through which the best path
	// leaves. Equal to the start itself for the trivial self pair.
	Via rag.NodeID
}

// Table maps pairs to affinities. Entries are never combined implicitly:
// Insert leaves an existing entry untouched and Erase is the only way to
// replace one.
type Table struct {
	entries map[Pair]Affinity
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Pair]Affinity)}
}

// Insert stores a for p unless p is already present. It reports whether the
// entry was stored.
func (t *Table) Insert(p Pair, a Affinity) bool {
	if _, ok := t.entries[p]; ok {
		return false
	}
	t.entries[p] = a
	return true
}

// Erase removes p and reports whether it was present.
func (t *Table) Erase(p Pair) bool {
	if _, ok := t.entries[p]; !ok {
		return false
	}
	delete(t.entries, p)
	return true
}

// Get returns the entry for p.
func (t *Table) Get(p Pair) (Affinity, bool) {
	a, ok := t.entries[p]
	return a, ok
}

// Contains reports whether p has an entry.
func (t *Table) Contains(p Pair) bool {
	_, ok := t.entries[p]
	return ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Clear removes every entry.
func (t *Table) Clear() { clear(t.entries) }

// Pairs returns all keys ordered by (Region1, Region2).
func (t *Table) Pairs() []Pair {
	return slices.SortedFunc(maps.Keys(t.entries), func(a, b Pair) int {
		return cmp.Or(cmp.Compare(a.Region1, b.Region1), cmp.Compare(a.Region2, b.Region2))
	})
}
