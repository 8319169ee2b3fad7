// Package annotation models typed, data-bearing spans anchored to the text
// buffer: semantic annotations, comments and inline formatting marks.
package annotation

import (
	"errors"
	"maps"
	"reflect"
	"slices"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no annotation has the requested id.
var ErrNotFound = errors.New("annotation not found")

// Well-known annotation types.
const (
	TypeIngredient         = "Ingredient"
	TypeIngredientQuantity = "Ingredient Quantity"
	TypeIngredientName     = "Ingredient Name"
	TypeDuration           = "Duration"
	TypeStep               = "Step"
	TypeScaleFactor        = "Scale Factor"
	TypeTag                = "Tag"
	TypeComment            = "Comment"
)

// Data is the open key-value record attached to an annotation.
type Data map[string]any

// Clone returns a deep copy of d. Nested maps and slices are copied so the
// clone can be mutated without affecting d.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether two records hold the same fields.
func (d Data) Equal(other Data) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Data:
		return val.Clone()
	case map[string]any:
		return map[string]any(Data(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// EqualValues reports whether two data values are deeply equal.
func EqualValues(a, b any) bool {
	return valuesEqual(a, b)
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case Data:
		bv, ok := asData(b)
		return ok && av.Equal(bv)
	case map[string]any:
		bv, ok := asData(b)
		return ok && Data(av).Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func asData(v any) (Data, bool) {
	switch val := v.(type) {
	case Data:
		return val, true
	case map[string]any:
		return Data(val), true
	default:
		return nil, false
	}
}

// Annotation is a typed span with attached data.
type Annotation struct {
	ID   string
	Span Span
	Type string
	Data Data
}

// New creates an annotation with a fresh unique id.
func New(typ string, span Span, data Data) Annotation {
	return Annotation{
		ID:   uuid.NewString(),
		Span: span,
		Type: typ,
		Data: data.Clone(),
	}
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	a.Data = a.Data.Clone()
	return a
}

// Equal reports whether two annotations are identical, including data.
func (a Annotation) Equal(other Annotation) bool {
	return a.ID == other.ID && a.Type == other.Type && a.Span == other.Span && a.Data.Equal(other.Data)
}

// Record is the persisted shape of an annotation: cursors resolved to
// plain offsets.
type Record struct {
	ID    string `json:"id" yaml:"id"`
	Range Range  `json:"range" yaml:"range"`
	Type  string `json:"type" yaml:"type"`
	Data  Data   `json:"data" yaml:"data"`
}

// Record resolves the annotation against buf.
func (a Annotation) Record(buf Buffer) Record {
	return Record{
		ID:    a.ID,
		Range: a.Span.Resolve(buf),
		Type:  a.Type,
		Data:  a.Data.Clone(),
	}
}

// FromRecord re-hydrates a record by creating cursors at its offsets in buf.
// A record without an id receives a fresh one.
func FromRecord(buf Buffer, r Record) Annotation {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Annotation{
		ID:   id,
		Span: SpanFromRange(buf, r.Range.Start, r.Range.End),
		Type: r.Type,
		Data: r.Data.Clone(),
	}
}

// Keys returns the data field names in sorted order.
func (d Data) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}
