package effect

import (
	"fmt"

	"github.com/dshills/potluck/internal/document"
)

// Kind is the kind of a lifecycle event.
type Kind uint8

// Lifecycle event kinds.
const (
	KindInsert Kind = iota + 1
	KindChange
	KindRemove
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindChange:
		return "change"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one annotation lifecycle transition derived from a diff.
type Event struct {
	Kind  Kind
	ID    string
	Index int
}

// String returns a compact representation.
func (e Event) String() string {
	return fmt.Sprintf("%s %s@%d", e.Kind, e.ID, e.Index)
}

// Classify turns the annotation patches of a diff into lifecycle events:
// removals first, then insertions, then in-place changes. An index that is
// both inserted and changed is reported only as an insertion, and each
// index is reported at most once per kind.
func Classify(diff document.Diff) []Event {
	var removed, inserted, changed []Event
	insertedAt := map[int]bool{}
	changedAt := map[int]bool{}
	removedAt := map[int]bool{}

	for _, p := range diff.Patches {
		if p.Field != document.FieldAnnotations {
			continue
		}
		switch {
		case p.Action == document.ActionInsert:
			if !insertedAt[p.Index] {
				insertedAt[p.Index] = true
				inserted = append(inserted, Event{Kind: KindInsert, ID: p.ID, Index: p.Index})
			}
		case p.Action == document.ActionDelete && p.Key == "":
			if !removedAt[p.Index] {
				removedAt[p.Index] = true
				removed = append(removed, Event{Kind: KindRemove, ID: p.ID, Index: p.Index})
			}
		case p.Action == document.ActionPut || p.Action == document.ActionDelete:
			if !changedAt[p.Index] {
				changedAt[p.Index] = true
				changed = append(changed, Event{Kind: KindChange, ID: p.ID, Index: p.Index})
			}
		}
	}

	events := append(removed, inserted...)
	for _, ev := range changed {
		if !insertedAt[ev.Index] {
			events = append(events, ev)
		}
	}
	return events
}
