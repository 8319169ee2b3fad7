package plugin

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dshills/potluck/internal/annotation"
)

// ErrReadOnly is returned when writing through a read-only view.
var ErrReadOnly = errors.New("view is read-only")

// View is a read-only projection over an annotation's data. Reading a field
// returns, in order: the raw data value, the computed value, the default
// value, or nothing.
type View interface {
	ID() string
	Type() string
	// Text is the annotated text at the time the view was built.
	Text() string
	Get(name string) (any, bool)
}

// MutableView is a View whose writes land on the live annotation.
type MutableView interface {
	View
	Set(name string, value any) error
	// Update calls fn with the live view and writes the fields it returns,
	// all in one document change. A nil result writes nothing.
	Update(fn func(View) annotation.Data) error
}

// computedView layers computed and default fields over raw data.
type computedView struct {
	id   string
	typ  string
	text string
	data annotation.Data
	ext  Extension

	// resolving guards against computed fields that reference themselves.
	resolving map[string]bool
}

// NewView builds the projection of a over ext. text is the annotated text.
func NewView(a annotation.Annotation, text string, ext Extension) View {
	return newComputedView(a.ID, a.Type, text, a.Data, ext)
}

func newComputedView(id, typ, text string, data annotation.Data, ext Extension) *computedView {
	return &computedView{
		id:        id,
		typ:       typ,
		text:      text,
		data:      data,
		ext:       ext,
		resolving: make(map[string]bool),
	}
}

func (v *computedView) ID() string   { return v.id }
func (v *computedView) Type() string { return v.typ }
func (v *computedView) Text() string { return v.text }

func (v *computedView) Get(name string) (any, bool) {
	if val, ok := v.data[name]; ok {
		return val, true
	}
	if fn, ok := v.ext.Computed[name]; ok {
		return v.eval(name, fn)
	}
	if fn, ok := v.ext.Defaults[name]; ok {
		return v.eval(name, fn)
	}
	return nil, false
}

func (v *computedView) eval(name string, fn Func) (any, bool) {
	if v.resolving[name] {
		return nil, false
	}
	v.resolving[name] = true
	defer delete(v.resolving, name)
	return fn(v), true
}

// Int reads name as an integer. Float values with no fractional part and
// numeric strings are accepted.
func Int(v View, name string) (int, bool) {
	val, ok := v.Get(name)
	if !ok {
		return 0, false
	}
	return ToInt(val)
}

// Float reads name as a float.
func Float(v View, name string) (float64, bool) {
	val, ok := v.Get(name)
	if !ok {
		return 0, false
	}
	return ToFloat(val)
}

// String reads name as a string.
func String(v View, name string) (string, bool) {
	val, ok := v.Get(name)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Bool reads name as a bool.
func Bool(v View, name string) (bool, bool) {
	val, ok := v.Get(name)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// ToInt converts the numeric representations found in annotation data.
func ToInt(val any) (int, bool) {
	switch n := val.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return int(n), true
		}
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// ToFloat converts the numeric representations found in annotation data.
func ToFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Fields lists the names a view over data can answer: raw data keys, then
// computed and default names not shadowed by data.
func Fields(data annotation.Data, ext Extension) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, k := range data.Keys() {
		add(k)
	}
	for _, k := range sortedKeys(ext.Computed) {
		add(k)
	}
	for _, k := range sortedKeys(ext.Defaults) {
		add(k)
	}
	return out
}

// Describe renders a field value for listings.
func Describe(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
