package edgerank

import (
	"github.com/gammazero/deque"
	"github.com/tidwall/btree"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
)

// NodeRank is an entry of a NodeRankList. Size is whatever quantity the
// owning strategy ranks by (voxels, synapse count).
type NodeRank struct {
	ID   rag.NodeID
	Size uint64
}

// rankLess orders by size descending, then id ascending.
func rankLess(a, b NodeRank) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.ID < b.ID
}

// rankChange is one recorded list mutation.
type rankChange struct {
	item     NodeRank
	inserted bool
}

// NodeRankList is an ordered set of regions, most important first, with at
// most one entry per id.
//
// Mutations made between StartCheckpoint and StopCheckpoint are recorded in
// a frame; UndoLastCheckpoint reverts the most recent frame as a unit.
// Frames stack, but only the top one can be undone.
type NodeRankList struct {
	items *btree.BTreeG[NodeRank]
	byID  map[rag.NodeID]NodeRank

	frames    deque.Deque[[]rankChange]
	recording bool
}

// NewNodeRankList returns an empty list.
func NewNodeRankList() *NodeRankList {
	return &NodeRankList{
		items: btree.NewBTreeG(rankLess),
		byID:  make(map[rag.NodeID]NodeRank),
	}
}

// Insert adds item, replacing any entry with the same id.
func (l *NodeRankList) Insert(item NodeRank) {
	if old, ok := l.byID[item.ID]; ok {
		if old == item {
			return
		}
		l.remove(old)
	}
	l.insert(item)
}

// Remove drops the entry for id. Absent ids are ignored.
func (l *NodeRankList) Remove(id rag.NodeID) {
	if old, ok := l.byID[id]; ok {
		l.remove(old)
	}
}

// RemoveItem drops item if the list holds exactly that entry.
func (l *NodeRankList) RemoveItem(item NodeRank) {
	if old, ok := l.byID[item.ID]; ok && old == item {
		l.remove(old)
	}
}

// First returns the most important entry.
func (l *NodeRankList) First() (NodeRank, bool) {
	return l.items.Min()
}

// Pop removes and returns the most important entry.
func (l *NodeRankList) Pop() (NodeRank, bool) {
	item, ok := l.items.Min()
	if !ok {
		return NodeRank{}, false
	}
	l.remove(item)
	return item, true
}

// Get returns the entry for id.
func (l *NodeRankList) Get(id rag.NodeID) (NodeRank, bool) {
	item, ok := l.byID[id]
	return item, ok
}

// Len returns the number of entries.
func (l *NodeRankList) Len() int { return l.items.Len() }

// Empty reports whether the list has no entries.
func (l *NodeRankList) Empty() bool { return l.items.Len() == 0 }

// Items returns the entries in priority order.
func (l *NodeRankList) Items() []NodeRank {
	out := make([]NodeRank, 0, l.items.Len())
	l.items.Scan(func(item NodeRank) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Clear drops every entry and every checkpoint.
func (l *NodeRankList) Clear() {
	l.items.Clear()
	clear(l.byID)
	l.frames.Clear()
	l.recording = false
}

// StartCheckpoint opens a new frame and starts recording into it.
func (l *NodeRankList) StartCheckpoint() {
	l.frames.PushBack(nil)
	l.recording = true
}

// StopCheckpoint stops recording. The frame stays undoable.
func (l *NodeRankList) StopCheckpoint() {
	l.recording = false
}

// Checkpoints returns the number of undoable frames.
func (l *NodeRankList) Checkpoints() int { return l.frames.Len() }

// UndoLastCheckpoint reverts every mutation of the most recent frame, newest
// first, and discards the frame. It reports false when there is no frame.
func (l *NodeRankList) UndoLastCheckpoint() bool {
	if l.frames.Len() == 0 {
		return false
	}
	l.recording = false
	frame := l.frames.PopBack()
	for i := len(frame) - 1; i >= 0; i-- {
		change := frame[i]
		if change.inserted {
			l.remove(change.item)
		} else {
			l.insert(change.item)
		}
	}
	return true
}

func (l *NodeRankList) insert(item NodeRank) {
	l.items.Set(item)
	l.byID[item.ID] = item
	l.record(item, true)
}

func (l *NodeRankList) remove(item NodeRank) {
	l.items.Delete(item)
	delete(l.byID, item.ID)
	l.record(item, false)
}

func (l *NodeRankList) record(item NodeRank, inserted bool) {
	if !l.recording || l.frames.Len() == 0 {
		return
	}
	last := l.frames.Len() - 1
	l.frames.Set(last, append(l.frames.At(last), rankChange{item: item, inserted: inserted}))
}
