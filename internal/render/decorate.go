// Package render turns a document into decorated lines and draws them on a
// terminal screen.
//
// Decoration is a pure function of the document: the paragraph view is
// re-derived from the content on every frame and nothing is cached between
// frames.
package render

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/config"
	"github.com/dshills/potluck/internal/editor"
	"github.com/dshills/potluck/internal/plugins"
	"github.com/dshills/potluck/internal/translate"
)

// Options control highlight colors.
type Options struct {
	// ActiveOpacity is the blend weight of the annotation under the
	// selection; IdleOpacity is used for every other annotation.
	ActiveOpacity float64
	IdleOpacity   float64
	// Background is blended under every highlight.
	Background colorful.Color
}

// DefaultOptions matches the default render settings.
func DefaultOptions() Options {
	return OptionsFrom(config.Default().Render)
}

// OptionsFrom converts the render settings.
func OptionsFrom(cfg config.RenderConfig) Options {
	return Options{
		ActiveOpacity: cfg.ActiveOpacity,
		IdleOpacity:   cfg.IdleOpacity,
		Background:    colorful.Color{R: 0.1, G: 0.1, B: 0.1},
	}
}

// Highlight is one annotation as the decorator sees it.
type Highlight struct {
	ID    string
	Type  string
	Range annotation.Range
	Icon  string
	Color plugins.RGB
	// Note is the presentation text shown after the annotation, if any.
	Note string
}

// Source is everything a frame is derived from.
type Source struct {
	Content    string
	Delimiter  rune
	Highlights []Highlight
	// Formats holds the effective formats of every character.
	Formats []annotation.FormatSet
	Active  string
}

// SourceFrom captures the current state of ed.
func SourceFrom(ed *editor.Editor) Source {
	src := Source{
		Content:   ed.Content(),
		Delimiter: ed.Delimiter(),
		Formats:   ed.State().FormatSets(),
	}
	for _, e := range ed.Entries() {
		src.Highlights = append(src.Highlights, Highlight{
			ID:    e.Record.ID,
			Type:  e.Record.Type,
			Range: e.Record.Range,
			Icon:  e.Info.Icon,
			Color: e.Info.Color,
			Note:  e.Presentation,
		})
		if e.Active {
			src.Active = e.Record.ID
		}
	}
	return src
}

// Style is the decoration of one cell.
type Style struct {
	Background    colorful.Color
	HasBackground bool
	Formats       annotation.FormatSet
}

// Cell is one grapheme cluster on screen.
type Cell struct {
	Text   string
	Width  int
	Offset int
	Style  Style
	// Annotations holds the ids covering the cell, in document order.
	Annotations []string
}

// Note is a presentation drawn after a line.
type Note struct {
	ID    string
	Icon  string
	Text  string
	Color colorful.Color
}

// Line is one decorated paragraph.
type Line struct {
	Paragraph translate.Paragraph
	Cells     []Cell
	Notes     []Note
}

// Width returns the number of screen columns the line's text occupies.
func (l Line) Width() int {
	w := 0
	for _, c := range l.Cells {
		w += c.Width
	}
	return w
}

// Decorate derives the decorated lines of src.
func Decorate(src Source, opts Options) []Line {
	paragraphs := translate.Paragraphs(src.Content, src.Delimiter)
	lines := make([]Line, len(paragraphs))

	for i, p := range paragraphs {
		line := Line{Paragraph: p}

		offset := p.Start
		g := uniseg.NewGraphemes(p.Text)
		for g.Next() {
			runes := g.Runes()
			cell := Cell{
				Text:   g.Str(),
				Width:  g.Width(),
				Offset: offset,
			}
			cell.Style, cell.Annotations = styleAt(src, opts, offset)
			line.Cells = append(line.Cells, cell)
			offset += len(runes)
		}
		lines[i] = line
	}

	for _, h := range src.Highlights {
		if h.Note == "" {
			continue
		}
		i := lineOf(paragraphs, h.Range)
		lines[i].Notes = append(lines[i].Notes, Note{
			ID:    h.ID,
			Icon:  h.Icon,
			Text:  h.Note,
			Color: toColorful(h.Color),
		})
	}
	return lines
}

func styleAt(src Source, opts Options, offset int) (Style, []string) {
	var st Style
	if offset < len(src.Formats) {
		st.Formats = src.Formats[offset]
	}

	var ids []string
	bg := opts.Background
	for _, h := range src.Highlights {
		if !h.Range.Contains(offset) {
			continue
		}
		alpha := opts.IdleOpacity
		if h.ID == src.Active {
			alpha = opts.ActiveOpacity
		}
		bg = bg.BlendRgb(toColorful(h.Color), alpha)
		ids = append(ids, h.ID)
	}
	if len(ids) > 0 {
		st.Background = bg.Clamped()
		st.HasBackground = true
	}
	return st, ids
}

// lineOf returns the paragraph holding the last character of r.
func lineOf(paragraphs []translate.Paragraph, r annotation.Range) int {
	last := r.End - 1
	if r.IsEmpty() {
		last = r.Start
	}
	for i, p := range paragraphs {
		if last <= p.End {
			return i
		}
	}
	return len(paragraphs) - 1
}

func toColorful(c plugins.RGB) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}
