package affinity

import (
	"container/heap"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// path is a partial path from the search start, waiting to be expanded.
type path struct {
	node   rag.NodeID // last region on the path
	prev   rag.NodeID // region before node; equals node at the start
	via    rag.NodeID // first hop out of the start
	weight float64    // product of edge weights so far
	hops   int
}

// pathHeap is a max-heap of paths ordered by cumulative weight. The
// strongest path is always at the top so the first time a region is popped
// it is reached at its best weight. Ties go to the shorter path, then to the
// lower region id, to keep the traversal deterministic.
type pathHeap []*path

// Len returns the size of the heap.
func (h pathHeap) Len() int { return len(h) }

// Less orders stronger paths first.
func (h pathHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	if a.node != b.node {
		return a.node < b.node
	}
	return a.via < b.via
}

// Swap swaps the elements at indices i and j.
func (h pathHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push adds an element to the heap.
func (h *pathHeap) Push(x any) { *h = append(*h, x.(*path)) }

// Pop removes and returns the last element of the backing slice.
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

func newPathHeap(capacity int) *pathHeap {
	h := make(pathHeap, 0, capacity)
	heap.Init(&h)
	return &h
}
