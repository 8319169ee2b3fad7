package document

import (
	"fmt"
	"slices"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
)

// Tx is the mutable view handed to a change function.
// A Tx is only valid for the duration of the change function.
type Tx struct {
	text    *crdt.Text
	store   *annotation.Store
	formats []annotation.FormatSpan
	ops     []crdt.Op
}

func newTx(s *State) *Tx {
	return &Tx{
		text:    s.text.Clone(),
		store:   s.store.Clone(),
		formats: slices.Clone(s.formats),
	}
}

func (tx *Tx) state() *State {
	return &State{text: tx.text, store: tx.store, formats: tx.formats}
}

// Len returns the current number of characters.
func (tx *Tx) Len() int {
	return tx.text.Len()
}

// Content returns the current text.
func (tx *Tx) Content() string {
	return tx.text.String()
}

// Buffer returns the text being edited, for creating and resolving spans.
func (tx *Tx) Buffer() annotation.Buffer {
	return tx.text
}

// Span creates a span over [start, end) of the current text.
func (tx *Tx) Span(start, end int) annotation.Span {
	return annotation.SpanFromRange(tx.text, start, end)
}

// InsertText inserts s at offset.
func (tx *Tx) InsertText(offset int, s string) error {
	ops, err := tx.text.InsertAt(offset, s)
	tx.ops = append(tx.ops, ops...)
	if err != nil {
		return fmt.Errorf("insert at %d: %w", offset, err)
	}
	return nil
}

// DeleteText removes length characters at offset.
func (tx *Tx) DeleteText(offset, length int) error {
	ops, err := tx.text.DeleteAt(offset, length)
	tx.ops = append(tx.ops, ops...)
	if err != nil {
		return fmt.Errorf("delete %d at %d: %w", length, offset, err)
	}
	return nil
}

// ApplyOps merges text ops authored by another replica.
func (tx *Tx) ApplyOps(ops []crdt.Op) error {
	if err := tx.text.Apply(ops); err != nil {
		return fmt.Errorf("apply remote ops: %w", err)
	}
	tx.ops = append(tx.ops, ops...)
	return nil
}

// Store returns the annotation list being edited.
func (tx *Tx) Store() *annotation.Store {
	return tx.store
}

// Formats returns the current format span list.
func (tx *Tx) Formats() []annotation.FormatSpan {
	return slices.Clone(tx.formats)
}

// AddFormat appends a format span.
func (tx *Tx) AddFormat(fs annotation.FormatSpan) {
	tx.formats = append(tx.formats, fs)
}

// ReplaceFormats swaps the entire format list.
func (tx *Tx) ReplaceFormats(spans []annotation.FormatSpan) {
	tx.formats = slices.Clone(spans)
}
