package annotation

import (
	"fmt"

	"github.com/dshills/potluck/internal/crdt"
)

// Buffer is the slice of the text buffer contract spans need.
// *crdt.Text implements it.
type Buffer interface {
	Len() int
	Slice(start, end int) string
	CursorAt(offset int, assoc crdt.Assoc) crdt.Cursor
	Resolve(c crdt.Cursor) (int, bool)
}

// Range is a half-open interval of character offsets.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewRange returns the range between two offsets, normalized so that
// Start <= End regardless of argument order.
func NewRange(anchor, focus int) Range {
	if anchor <= focus {
		return Range{Start: anchor, End: focus}
	}
	return Range{Start: focus, End: anchor}
}

// Len returns the number of characters covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty returns true if the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Contains returns true if offset lies in [Start, End).
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Intersects reports whether the two ranges overlap or touch. A collapsed
// selection sitting on either boundary of r intersects it.
func (r Range) Intersects(other Range) bool {
	return max(r.Start, other.Start) <= min(r.End, other.End)
}

// String returns "[start,end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Span anchors a half-open text interval with two stable cursors.
type Span struct {
	Start crdt.Cursor `json:"start" yaml:"start"`
	End   crdt.Cursor `json:"end" yaml:"end"`
}

// SpanFromRange creates a span over [start, end) of buf. The offsets may be
// given in either order; the smaller one always becomes Start.
func SpanFromRange(buf Buffer, start, end int) Span {
	r := NewRange(start, end)
	return Span{
		Start: buf.CursorAt(r.Start, crdt.AssocBefore),
		End:   buf.CursorAt(r.End, crdt.AssocAfter),
	}
}

// Resolve re-reads both cursors and returns the current interval.
// A cursor the buffer cannot resolve collapses the span onto the other
// bound, so unresolvable spans surface as degenerate.
func (s Span) Resolve(buf Buffer) Range {
	start, okStart := buf.Resolve(s.Start)
	end, okEnd := buf.Resolve(s.End)

	switch {
	case !okStart && !okEnd:
		return Range{}
	case !okStart:
		start = end
	case !okEnd:
		end = start
	}
	// Text typed where a deleted span collapsed lands before its start but
	// after its end; the span stays collapsed at the start.
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

// IsDegenerate reports whether the annotated text has been entirely deleted.
func (s Span) IsDegenerate(buf Buffer) bool {
	return s.Resolve(buf).IsEmpty()
}

// Text returns the characters currently covered by the span.
func (s Span) Text(buf Buffer) string {
	r := s.Resolve(buf)
	return buf.Slice(r.Start, r.End)
}
