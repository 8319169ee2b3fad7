package crdt

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// element is one character slot in the sequence.
type element struct {
	id      ID
	value   rune
	deleted bool
	// deletedAt is the counter of the op that deleted the element.
	deletedAt uint64
}

// Option configures a Text.
type Option func(*Text)

// WithActor sets the replica's actor ID. Defaults to a random UUID.
func WithActor(actor string) Option {
	return func(t *Text) {
		if actor != "" {
			t.actor = actor
		}
	}
}

// Text is a replicated character sequence.
// Offsets are measured in runes. All methods are thread-safe.
type Text struct {
	mu      sync.RWMutex
	actor   string
	clock   uint64
	elems   []element
	visible int
	log     []Op
}

// New creates an empty text.
func New(opts ...Option) *Text {
	t := &Text{actor: uuid.NewString()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromString creates a text holding s, authored by the text's actor.
func NewFromString(s string, opts ...Option) *Text {
	t := New(opts...)
	if s != "" {
		_, _ = t.InsertAt(0, s)
	}
	return t
}

// Actor returns the replica's actor ID.
func (t *Text) Actor() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.actor
}

// Len returns the number of visible characters.
func (t *Text) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visible
}

// String returns the visible content.
func (t *Text) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var sb strings.Builder
	sb.Grow(t.visible)
	for _, e := range t.elems {
		if !e.deleted {
			sb.WriteRune(e.value)
		}
	}
	return sb.String()
}

// Slice returns the visible characters in [start, end).
// Out-of-range bounds are clamped.
func (t *Text) Slice(start, end int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if start < 0 {
		start = 0
	}
	if end > t.visible {
		end = t.visible
	}
	if start >= end {
		return ""
	}

	var sb strings.Builder
	pos := 0
	for _, e := range t.elems {
		if e.deleted {
			continue
		}
		if pos >= end {
			break
		}
		if pos >= start {
			sb.WriteRune(e.value)
		}
		pos++
	}
	return sb.String()
}

// InsertAt inserts s so that its first character lands at offset.
// Returns the ops describing the insertion.
func (t *Text) InsertAt(offset int, s string) ([]Op, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if offset < 0 || offset > t.visible {
		return nil, ErrOffsetOutOfRange
	}
	if s == "" {
		return nil, nil
	}

	origin := Head
	if offset > 0 {
		origin = t.elems[t.rawIndexLocked(offset-1)].id
	}

	ops := make([]Op, 0, len(s))
	for _, r := range s {
		t.clock++
		op := Op{Kind: OpInsert, ID: ID{Counter: t.clock, Actor: t.actor}, Origin: origin, Value: r}
		if err := t.integrateLocked(op); err != nil {
			return ops, err
		}
		ops = append(ops, op)
		origin = op.ID
	}
	return ops, nil
}

// DeleteAt removes length characters starting at offset.
// Returns the ops describing the deletion.
func (t *Text) DeleteAt(offset, length int) ([]Op, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if length < 0 || offset < 0 || offset+length > t.visible {
		return nil, ErrRangeInvalid
	}
	if length == 0 {
		return nil, nil
	}

	targets := make([]ID, 0, length)
	pos := 0
	for _, e := range t.elems {
		if e.deleted {
			continue
		}
		if pos >= offset+length {
			break
		}
		if pos >= offset {
			targets = append(targets, e.id)
		}
		pos++
	}

	ops := make([]Op, 0, len(targets))
	for _, target := range targets {
		t.clock++
		op := Op{Kind: OpDelete, ID: ID{Counter: t.clock, Actor: t.actor}, Target: target}
		if err := t.integrateLocked(op); err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Apply merges ops produced by another replica (or replays this replica's
// own ops). Ops already applied are skipped.
func (t *Text) Apply(ops []Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, op := range ops {
		if err := op.validate(); err != nil {
			return err
		}
		if err := t.integrateLocked(op); err != nil {
			return err
		}
	}
	return nil
}

// Ops returns every op this replica has integrated, in integration order.
func (t *Text) Ops() []Op {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Op, len(t.log))
	copy(out, t.log)
	return out
}

// Clone returns an independent copy with the same actor.
func (t *Text) Clone() *Text {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cloneLocked(t.actor)
}

// Fork returns an independent copy that authors new ops as actor.
func (t *Text) Fork(actor string) *Text {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cloneLocked(actor)
}

func (t *Text) cloneLocked(actor string) *Text {
	c := &Text{
		actor:   actor,
		clock:   t.clock,
		elems:   make([]element, len(t.elems)),
		visible: t.visible,
		log:     make([]Op, len(t.log)),
	}
	copy(c.elems, t.elems)
	copy(c.log, t.log)
	return c
}

// integrateLocked applies a single op (must hold lock).
func (t *Text) integrateLocked(op Op) error {
	if op.ID.Counter > t.clock {
		t.clock = op.ID.Counter
	}

	switch op.Kind {
	case OpInsert:
		if t.indexOfLocked(op.ID) >= 0 {
			return nil
		}
		originIdx := -1
		if !op.Origin.IsHead() {
			originIdx = t.indexOfLocked(op.Origin)
			if originIdx < 0 {
				return ErrMissingOrigin
			}
		}

		// Concurrent inserts at the same origin are ordered by descending ID.
		// Elements inserted after a larger ID always carry a larger counter,
		// so skipping larger IDs also skips their descendants.
		pos := originIdx + 1
		for pos < len(t.elems) && op.ID.Less(t.elems[pos].id) {
			pos++
		}

		t.elems = append(t.elems, element{})
		copy(t.elems[pos+1:], t.elems[pos:])
		t.elems[pos] = element{id: op.ID, value: op.Value}
		t.visible++

	case OpDelete:
		idx := t.indexOfLocked(op.Target)
		if idx < 0 {
			return ErrMissingOrigin
		}
		if t.elems[idx].deleted {
			return nil
		}
		t.elems[idx].deleted = true
		t.elems[idx].deletedAt = op.ID.Counter
		t.visible--
	}

	t.log = append(t.log, op)
	return nil
}

// indexOfLocked returns the raw index of id, or -1.
func (t *Text) indexOfLocked(id ID) int {
	for i := range t.elems {
		if t.elems[i].id == id {
			return i
		}
	}
	return -1
}

// rawIndexLocked maps a visible offset to its raw index.
// offset must be in [0, visible).
func (t *Text) rawIndexLocked(offset int) int {
	pos := 0
	for i, e := range t.elems {
		if e.deleted {
			continue
		}
		if pos == offset {
			return i
		}
		pos++
	}
	return -1
}

// afterTombstoneLocked resolves an after-cursor whose element at raw index
// idx is deleted. The cursor stays behind the nearest live element that
// existed when the deletion happened, so characters inserted into the gap
// later are not counted as before it.
func (t *Text) afterTombstoneLocked(idx int) int {
	at := t.elems[idx].deletedAt
	for j := idx - 1; j >= 0; j-- {
		e := t.elems[j]
		if !e.deleted && e.id.Counter <= at {
			return t.visibleBeforeLocked(j) + 1
		}
	}
	return 0
}

// visibleBeforeLocked counts visible elements before raw index idx.
func (t *Text) visibleBeforeLocked(idx int) int {
	n := 0
	for i := 0; i < idx; i++ {
		if !t.elems[i].deleted {
			n++
		}
	}
	return n
}
