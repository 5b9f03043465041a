package canvas

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(i int) []byte { return []byte(strconv.Itoa(i)) }

func TestHistory_RingEviction(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(snap(i))
	}
	assert.Equal(t, 3, h.Len())

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, snap(3), s)
	s, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, snap(2), s)
	_, ok = h.Undo()
	assert.False(t, ok)

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, snap(3), s)
}

func TestHistory_PushTruncatesRedo(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)
	h.Reset(snap(0))
	h.Push(snap(1))
	h.Push(snap(2))

	h.Undo()
	h.Undo()
	h.Push(snap(9))

	assert.False(t, h.CanRedo())
	assert.Equal(t, 2, h.Len())
	s, _ := h.Undo()
	assert.Equal(t, snap(0), s)
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Cap())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	h.Push(snap(1))
	h.Push(snap(2))
	assert.Equal(t, 1, h.Len())
	assert.False(t, h.CanUndo())
}
