package annotation

import (
	"fmt"
	"strings"
)

// Format is an inline text format.
type Format string

// Supported inline formats.
const (
	FormatBold      Format = "bold"
	FormatItalic    Format = "italic"
	FormatUnderline Format = "underline"
	FormatCode      Format = "code"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatBold, FormatItalic, FormatUnderline, FormatCode:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

func (f Format) bit() FormatSet {
	switch f {
	case FormatBold:
		return 1 << 0
	case FormatItalic:
		return 1 << 1
	case FormatUnderline:
		return 1 << 2
	case FormatCode:
		return 1 << 3
	default:
		return 0
	}
}

// FormatSet is the set of formats applied to one character.
type FormatSet uint8

// Has reports whether f is in the set.
func (s FormatSet) Has(f Format) bool {
	return s&f.bit() != 0
}

// With returns the set with f added.
func (s FormatSet) With(f Format) FormatSet {
	return s | f.bit()
}

// Without returns the set with f removed.
func (s FormatSet) Without(f Format) FormatSet {
	return s &^ f.bit()
}

// FormatSpan records one formatting toggle. Spans are append-only; a later
// span with Remove set cancels the format over its range.
type FormatSpan struct {
	Format Format `json:"format" yaml:"format"`
	Span   Span   `json:"span" yaml:"span"`
	Remove bool   `json:"remove,omitempty" yaml:"remove,omitempty"`
}

// Flatten replays spans in order and returns the effective format set of
// every character in buf.
func Flatten(buf Buffer, spans []FormatSpan) []FormatSet {
	sets := make([]FormatSet, buf.Len())
	for _, fs := range spans {
		r := fs.Span.Resolve(buf)
		for i := max(r.Start, 0); i < r.End && i < len(sets); i++ {
			if fs.Remove {
				sets[i] = sets[i].Without(fs.Format)
			} else {
				sets[i] = sets[i].With(fs.Format)
			}
		}
	}
	return sets
}

// IsFormatActive reports whether every character of r carries f.
// An empty range is never formatted.
func IsFormatActive(buf Buffer, spans []FormatSpan, f Format, r Range) bool {
	if r.IsEmpty() {
		return false
	}
	sets := Flatten(buf, spans)
	for i := r.Start; i < r.End; i++ {
		if i < 0 || i >= len(sets) || !sets[i].Has(f) {
			return false
		}
	}
	return true
}

// ToggleFormat returns the span that toggles f over r: an additive span when
// f is not fully active over r, a removal span otherwise.
func ToggleFormat(buf Buffer, spans []FormatSpan, f Format, r Range) FormatSpan {
	return FormatSpan{
		Format: f,
		Span:   SpanFromRange(buf, r.Start, r.End),
		Remove: IsFormatActive(buf, spans, f, r),
	}
}
