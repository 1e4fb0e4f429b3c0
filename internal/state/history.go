package state

// DefaultHistoryLimit is the number of snapshots kept for undo/redo.
const DefaultHistoryLimit = 20

// History is a bounded, linear undo/redo stack. A commit made while the
// cursor is behind the end abandons the redo branch.
type History[S any] struct {
	entries []S
	cursor  int
	limit   int
}

// NewHistory creates an empty history. A non-positive limit falls back to
// DefaultHistoryLimit.
func NewHistory[S any](limit int) *History[S] {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History[S]{
		entries: make([]S, 0, limit),
		cursor:  -1,
		limit:   limit,
	}
}

// Commit drops everything after the cursor, appends s and moves the cursor
// onto it, evicting the oldest entry when the limit is exceeded.
func (h *History[S]) Commit(s S) {
	var zero S
	for i := h.cursor + 1; i < len(h.entries); i++ {
		h.entries[i] = zero
	}
	h.entries = append(h.entries[:h.cursor+1], s)
	h.cursor++

	if len(h.entries) > h.limit {
		h.entries[0] = zero
		h.entries = append(h.entries[:0], h.entries[1:]...)
		h.cursor--
	}
}

// Undo steps back one entry. It is a no-op at the oldest entry.
func (h *History[S]) Undo() (S, bool) {
	if h.cursor <= 0 {
		var zero S
		return zero, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo steps forward one entry. It is a no-op at the newest entry.
func (h *History[S]) Redo() (S, bool) {
	if h.cursor >= len(h.entries)-1 {
		var zero S
		return zero, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

func (h *History[S]) Current() (S, bool) {
	if h.cursor < 0 {
		var zero S
		return zero, false
	}
	return h.entries[h.cursor], true
}

func (h *History[S]) Len() int      { return len(h.entries) }
func (h *History[S]) Cursor() int   { return h.cursor }
func (h *History[S]) Limit() int    { return h.limit }
func (h *History[S]) CanUndo() bool { return h.cursor > 0 }
func (h *History[S]) CanRedo() bool { return h.cursor < len(h.entries)-1 }
