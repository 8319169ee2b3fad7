package annotation

import (
	"fmt"
	"slices"
	"sort"
)

// Store is the ordered collection of annotations owned by a document.
// Store is not safe for concurrent use; the document serializes access.
type Store struct {
	items []Annotation
}

// NewStore creates a store holding copies of the given annotations.
func NewStore(items ...Annotation) *Store {
	s := &Store{items: make([]Annotation, 0, len(items))}
	for _, a := range items {
		s.items = append(s.items, a.Clone())
	}
	return s
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	return len(s.items)
}

// Add appends a new annotation and returns it.
func (s *Store) Add(typ string, span Span, data Data) Annotation {
	a := New(typ, span, data)
	s.items = append(s.items, a)
	return a.Clone()
}

// Insert appends an existing annotation, keeping its id.
// Returns an error if the id is already present.
func (s *Store) Insert(a Annotation) error {
	if s.Index(a.ID) >= 0 {
		return fmt.Errorf("annotation %q already exists", a.ID)
	}
	s.items = append(s.items, a.Clone())
	return nil
}

// Remove deletes the annotation with id. Removing an absent id is a no-op;
// the result reports whether anything was removed.
func (s *Store) Remove(id string) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Index returns the position of id in store order, or -1.
func (s *Store) Index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the annotation with id.
func (s *Store) Get(id string) (Annotation, bool) {
	i := s.Index(id)
	if i < 0 {
		return Annotation{}, false
	}
	return s.items[i].Clone(), true
}

// At returns a copy of the annotation at position i.
func (s *Store) At(i int) Annotation {
	return s.items[i].Clone()
}

// All returns copies of every annotation in store order.
func (s *Store) All() []Annotation {
	out := make([]Annotation, len(s.items))
	for i, a := range s.items {
		out[i] = a.Clone()
	}
	return out
}

// SetField assigns one data field on the annotation with id.
func (s *Store) SetField(id, field string, value any) error {
	i := s.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.items[i].Data == nil {
		s.items[i].Data = Data{}
	}
	s.items[i].Data[field] = cloneValue(value)
	return nil
}

// SetData replaces the whole data record of the annotation with id.
func (s *Store) SetData(id string, data Data) error {
	i := s.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.items[i].Data = data.Clone()
	return nil
}

// FindActive returns the first annotation, in store order, whose resolved
// span intersects sel. Degenerate spans are never active.
func (s *Store) FindActive(buf Buffer, sel Range) (Annotation, bool) {
	for _, a := range s.items {
		r := a.Span.Resolve(buf)
		if r.IsEmpty() {
			continue
		}
		if r.Intersects(sel) {
			return a.Clone(), true
		}
	}
	return Annotation{}, false
}

// AllOfType returns the annotations of typ ordered by resolved start
// offset; ties keep store order.
func (s *Store) AllOfType(buf Buffer, typ string) []Annotation {
	type entry struct {
		a     Annotation
		start int
	}

	var entries []entry
	for _, a := range s.items {
		if a.Type == typ {
			entries = append(entries, entry{a: a.Clone(), start: a.Span.Resolve(buf).Start})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].start < entries[j].start
	})

	out := make([]Annotation, len(entries))
	for i, e := range entries {
		out[i] = e.a
	}
	return out
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	return NewStore(s.items...)
}
