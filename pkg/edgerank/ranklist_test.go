package edgerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRankList_Order(t *testing.T) {
	l := NewNodeRankList()
	l.Insert(NodeRank{ID: 5, Size: 10})
	l.Insert(NodeRank{ID: 2, Size: 30})
	l.Insert(NodeRank{ID: 9, Size: 30})
	l.Insert(NodeRank{ID: 1, Size: 1})

	first, ok := l.First()
	require.True(t, ok)
	assert.Equal(t, NodeRank{ID: 2, Size: 30}, first)

	var got []NodeRank
	for !l.Empty() {
		item, _ := l.Pop()
		got = append(got, item)
	}
	assert.Equal(t, []NodeRank{{2, 30}, {9, 30}, {5, 10}, {1, 1}}, got)

	_, ok = l.Pop()
	assert.False(t, ok)
}

func TestNodeRankList_InsertReplacesSameID(t *testing.T) {
	l := NewNodeRankList()
	l.Insert(NodeRank{ID: 3, Size: 10})
	l.Insert(NodeRank{ID: 3, Size: 50})

	assert.Equal(t, 1, l.Len())
	item, _ := l.Get(3)
	assert.Equal(t, uint64(50), item.Size)

	l.RemoveItem(NodeRank{ID: 3, Size: 10})
	assert.Equal(t, 1, l.Len(), "stale item must not remove the live entry")
	l.RemoveItem(NodeRank{ID: 3, Size: 50})
	assert.True(t, l.Empty())
}

func TestNodeRankList_CheckpointAtomicity(t *testing.T) {
	tests := []struct {
		name string
		ops  func(l *NodeRankList)
	}{
		{"empty frame", func(l *NodeRankList) {}},
		{"inserts", func(l *NodeRankList) {
			l.Insert(NodeRank{ID: 10, Size: 7})
			l.Insert(NodeRank{ID: 11, Size: 700})
		}},
		{"removes including absent", func(l *NodeRankList) {
			l.Remove(1)
			l.Remove(1)
			l.Remove(42)
			l.RemoveItem(NodeRank{ID: 2, Size: 999})
		}},
		{"pops and resizes", func(l *NodeRankList) {
			l.Pop()
			l.Pop()
			l.Insert(NodeRank{ID: 3, Size: 1})
			l.Insert(NodeRank{ID: 1, Size: 5})
		}},
		{"drain and refill", func(l *NodeRankList) {
			for !l.Empty() {
				l.Pop()
			}
			l.Insert(NodeRank{ID: 1, Size: 100})
			l.Insert(NodeRank{ID: 1, Size: 100})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewNodeRankList()
			l.Insert(NodeRank{ID: 1, Size: 100})
			l.Insert(NodeRank{ID: 2, Size: 50})
			l.Insert(NodeRank{ID: 3, Size: 50})
			before := l.Items()

			l.StartCheckpoint()
			tt.ops(l)
			l.StopCheckpoint()

			require.True(t, l.UndoLastCheckpoint())
			assert.Equal(t, before, l.Items())
			assert.Equal(t, len(before), l.Len())
			for _, item := range before {
				got, ok := l.Get(item.ID)
				require.True(t, ok)
				assert.Equal(t, item, got)
			}
		})
	}
}

func TestNodeRankList_StackedCheckpoints(t *testing.T) {
	l := NewNodeRankList()
	l.Insert(NodeRank{ID: 1, Size: 10})

	l.StartCheckpoint()
	l.Insert(NodeRank{ID: 2, Size: 20})
	l.StopCheckpoint()
	afterFirst := l.Items()

	l.StartCheckpoint()
	l.Remove(1)
	l.StopCheckpoint()

	// not recorded
	l.Insert(NodeRank{ID: 7, Size: 1})
	l.Remove(7)

	assert.Equal(t, 2, l.Checkpoints())
	require.True(t, l.UndoLastCheckpoint())
	assert.Equal(t, afterFirst, l.Items())

	require.True(t, l.UndoLastCheckpoint())
	assert.Equal(t, []NodeRank{{1, 10}}, l.Items())

	assert.False(t, l.UndoLastCheckpoint())
}

func TestNodeRankList_ClearDropsHistory(t *testing.T) {
	l := NewNodeRankList()
	l.StartCheckpoint()
	l.Insert(NodeRank{ID: 1, Size: 1})
	l.Clear()

	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.Checkpoints())

	// recording is off after Clear
	l.Insert(NodeRank{ID: 2, Size: 2})
	assert.False(t, l.UndoLastCheckpoint())
	assert.Equal(t, 1, l.Len())
}
