package canvas

// DefaultHistoryCapacity bounds the number of snapshots kept for undo
const DefaultHistoryCapacity = 50

// History is a bounded undo/redo buffer of serialized snapshots. When full,
// pushing evicts the oldest snapshot. Pushing after an undo drops the redo tail.
type History struct {
	buf    [][]byte
	start  int // ring index of the oldest snapshot
	size   int
	cursor int // logical index of the current snapshot
}

// NewHistory creates a history holding at most capacity snapshots
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([][]byte, capacity), cursor: -1}
}

// Reset discards everything and starts from snapshot
func (h *History) Reset(snapshot []byte) {
	clear(h.buf)
	h.start, h.size, h.cursor = 0, 0, -1
	h.Push(snapshot)
}

// Push records snapshot as the current state
func (h *History) Push(snapshot []byte) {
	for i := h.cursor + 1; i < h.size; i++ {
		h.buf[h.slot(i)] = nil
	}
	h.size = h.cursor + 1
	if h.size == len(h.buf) {
		h.buf[h.start] = nil
		h.start = (h.start + 1) % len(h.buf)
		h.size--
	}
	h.buf[h.slot(h.size)] = snapshot
	h.size++
	h.cursor = h.size - 1
}

// Undo steps back and returns the now-current snapshot
func (h *History) Undo() ([]byte, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return h.buf[h.slot(h.cursor)], true
}

// Redo steps forward and returns the now-current snapshot
func (h *History) Redo() ([]byte, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return h.buf[h.slot(h.cursor)], true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor >= 0 && h.cursor < h.size-1 }

// Len returns the number of snapshots held
func (h *History) Len() int { return h.size }

// Cap returns the capacity
func (h *History) Cap() int { return len(h.buf) }

func (h *History) slot(logical int) int {
	return (h.start + logical) % len(h.buf)
}
