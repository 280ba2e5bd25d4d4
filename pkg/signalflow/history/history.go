// Package history provides a linear undo/redo log of forward/inverse patch
// pairs.
//
// The log keeps two sequences indexed identically, forward[i] and inverse[i],
// and a cursor marking the last applied forward patch. The cursor ranges over
// [-1, Len()-1]: -1 means every recorded change has been undone.
//
// History is strictly linear. Adding a pair after one or more Undo calls
// discards the redo tail for good.
//
// History is not safe for concurrent use. The store that owns it mutates it
// only inside its reduce critical section.
package history

// History is an undo/redo log of patch pairs of type P.
// The zero value is not usable; create one with New.
type History[P any] struct {
	forward []P
	inverse []P
	cursor  int
}

// New creates an empty history.
func New[P any]() *History[P] {
	return &History[P]{cursor: -1}
}

// AddPatches records a forward/inverse pair. Any entries after the cursor
// are dropped first, then the pair is appended and becomes the cursor.
func (h *History[P]) AddPatches(forward, inverse P) {
	h.forward = append(h.forward[:h.cursor+1], forward)
	h.inverse = append(h.inverse[:h.cursor+1], inverse)
	h.cursor++
}

// CanUndo reports whether there is an applied change to undo.
func (h *History[P]) CanUndo() bool {
	return h.cursor >= 0
}

// CanRedo reports whether there is an undone change to redo.
func (h *History[P]) CanRedo() bool {
	return h.cursor < len(h.forward)-1
}

// Undo moves the cursor back and returns the inverse patch of the change
// that was at the cursor. Without anything to undo it returns the zero P and
// leaves the history untouched.
func (h *History[P]) Undo() P {
	if !h.CanUndo() {
		var empty P
		return empty
	}
	p := h.inverse[h.cursor]
	h.cursor--
	return p
}

// Redo moves the cursor forward and returns the forward patch now at the
// cursor. Without anything to redo it returns the zero P and leaves the
// history untouched.
func (h *History[P]) Redo() P {
	if !h.CanRedo() {
		var empty P
		return empty
	}
	h.cursor++
	return h.forward[h.cursor]
}

// Len returns the number of recorded pairs, including the redo tail.
func (h *History[P]) Len() int {
	return len(h.forward)
}

// Cursor returns the index of the last applied forward patch, or -1.
func (h *History[P]) Cursor() int {
	return h.cursor
}

// Reset discards every recorded pair.
func (h *History[P]) Reset() {
	h.forward = nil
	h.inverse = nil
	h.cursor = -1
}
