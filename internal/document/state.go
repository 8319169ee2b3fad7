package document

import (
	"slices"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/crdt"
)

// State is an immutable snapshot of a document.
type State struct {
	text    *crdt.Text
	store   *annotation.Store
	formats []annotation.FormatSpan
}

// Content returns the text content.
func (s *State) Content() string {
	return s.text.String()
}

// Len returns the number of characters.
func (s *State) Len() int {
	return s.text.Len()
}

// Buffer returns the snapshot's text for span resolution.
// The buffer must not be mutated.
func (s *State) Buffer() annotation.Buffer {
	return s.text
}

// Resolve returns the current interval of span.
func (s *State) Resolve(span annotation.Span) annotation.Range {
	return span.Resolve(s.text)
}

// Annotations returns copies of all annotations in list order.
func (s *State) Annotations() []annotation.Annotation {
	return s.store.All()
}

// NumAnnotations returns the length of the annotation list.
func (s *State) NumAnnotations() int {
	return s.store.Len()
}

// AnnotationAt returns the annotation at list index i.
func (s *State) AnnotationAt(i int) (annotation.Annotation, bool) {
	if i < 0 || i >= s.store.Len() {
		return annotation.Annotation{}, false
	}
	return s.store.At(i), true
}

// Annotation returns the annotation with id.
func (s *State) Annotation(id string) (annotation.Annotation, bool) {
	return s.store.Get(id)
}

// FindActive returns the first annotation intersecting sel.
func (s *State) FindActive(sel annotation.Range) (annotation.Annotation, bool) {
	return s.store.FindActive(s.text, sel)
}

// AllOfType returns the annotations of typ sorted by start offset.
func (s *State) AllOfType(typ string) []annotation.Annotation {
	return s.store.AllOfType(s.text, typ)
}

// Formats returns the format span list.
func (s *State) Formats() []annotation.FormatSpan {
	return slices.Clone(s.formats)
}

// FormatSets returns the effective formats of every character.
func (s *State) FormatSets() []annotation.FormatSet {
	return annotation.Flatten(s.text, s.formats)
}
