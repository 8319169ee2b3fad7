package crdt

import "fmt"

// Assoc says which side of its element a cursor sits on.
type Assoc uint8

const (
	// AssocBefore cursors sit in front of their element.
	AssocBefore Assoc = iota
	// AssocAfter cursors sit behind their element.
	AssocAfter
)

// String returns "before" or "after".
func (a Assoc) String() string {
	if a == AssocAfter {
		return "after"
	}
	return "before"
}

// Cursor is a stable reference to a position in a Text.
// Cursors are values; they are never mutated by edits.
type Cursor struct {
	Elem  ID    `json:"elem" yaml:"elem"`
	Assoc Assoc `json:"assoc" yaml:"assoc"`
}

// String returns a debugging representation.
func (c Cursor) String() string {
	return fmt.Sprintf("%s(%s)", c.Assoc, c.Elem)
}

// CursorAt creates a cursor bound to offset.
//
// AssocBefore binds to the character at offset, falling back to behind the
// last character when offset is the end of the text. AssocAfter binds to
// the character at offset-1, falling back to the head when offset is 0.
// Offsets are clamped to [0, Len()].
func (t *Text) CursorAt(offset int, assoc Assoc) Cursor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset > t.visible {
		offset = t.visible
	}

	switch assoc {
	case AssocAfter:
		if offset == 0 {
			return Cursor{Elem: Head, Assoc: AssocAfter}
		}
		return Cursor{Elem: t.elems[t.rawIndexLocked(offset-1)].id, Assoc: AssocAfter}
	default:
		if offset < t.visible {
			return Cursor{Elem: t.elems[t.rawIndexLocked(offset)].id, Assoc: AssocBefore}
		}
		if t.visible == 0 {
			return Cursor{Elem: Head, Assoc: AssocAfter}
		}
		return Cursor{Elem: t.elems[t.rawIndexLocked(t.visible-1)].id, Assoc: AssocAfter}
	}
}

// Resolve returns the cursor's current offset. ok is false when the cursor
// names an element this replica has never seen.
//
// A before-cursor on a deleted element resolves to where the element was,
// counting text inserted in front of it since. An after-cursor on a deleted
// element stays behind the live text that preceded the element when it was
// deleted, so text typed at that point lands after the cursor.
func (t *Text) Resolve(c Cursor) (offset int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c.Elem.IsHead() {
		return 0, true
	}

	idx := t.indexOfLocked(c.Elem)
	if idx < 0 {
		return 0, false
	}

	switch {
	case !t.elems[idx].deleted:
		offset = t.visibleBeforeLocked(idx)
		if c.Assoc == AssocAfter {
			offset++
		}
	case c.Assoc == AssocAfter:
		offset = t.afterTombstoneLocked(idx)
	default:
		offset = t.visibleBeforeLocked(idx)
	}
	return offset, true
}
