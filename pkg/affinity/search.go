package affinity

import (
	"container/heap"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// ConfirmedWeight is the largest weight that still denotes an uncertain
// boundary. Heavier edges are confirmed and never carry affinity.
const ConfirmedWeight = 1.0

// Search runs a best-first traversal from start and returns the affinity of
// every region it reaches.
//
// Path weights are products of edge weights, starting at 1.0. An edge is not
// followed if it leads straight back to the previous region, if its own
// weight is below epsilon or above ConfirmedWeight, or if the product would
// drop below epsilon. With maxDepth > 0 no path longer than maxDepth hops is
// followed; 0 leaves depth unbounded. Each region is recorded once, the first
// time it is popped, which by heap order is at its best weight.
//
// The trivial pair (start, start) is dropped when excludeStart is set. An
// unknown start yields an empty table.
func Search(g *rag.Graph, start rag.NodeID, maxDepth int, epsilon float64, excludeStart bool) *Table {
	table := NewTable()

	head, ok := g.Node(start)
	if !ok {
		return table
	}

	pq := newPathHeap(head.Degree() + 1)
	heap.Push(pq, &path{node: start, prev: start, via: start, weight: 1.0})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*path)

		// 1. Record on first pop
		pair := NewPair(start, cur.node)
		if table.Contains(pair) {
			continue
		}
		node, _ := g.Node(cur.node)
		table.Insert(pair, Affinity{
			Weight: cur.weight,
			Size:   head.Size * node.Size,
			Via:    cur.via,
		})

		// 2. Depth bound
		if maxDepth > 0 && cur.hops >= maxDepth {
			continue
		}

		// 3. Expand
		for _, e := range node.Edges() {
			next := e.Other(cur.node)
			if cur.hops > 0 && next == cur.prev {
				continue
			}
			if e.Weight < epsilon || e.Weight > ConfirmedWeight {
				continue
			}
			weight := cur.weight * e.Weight
			if weight < epsilon {
				continue
			}
			if table.Contains(NewPair(start, next)) {
				continue
			}

			via := cur.via
			if cur.hops == 0 {
				via = next
			}
			heap.Push(pq, &path{
				node:   next,
				prev:   cur.node,
				via:    via,
				weight: weight,
				hops:   cur.hops + 1,
			})
		}
	}

	if excludeStart {
		table.Erase(NewPair(start, start))
	}
	return table
}
