package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"

	"github.com/dshills/potluck/internal/annotation"
)

// Renderer draws frames on a tcell screen.
type Renderer struct {
	screen tcell.Screen
	base   tcell.Style
}

// New creates a renderer for an initialized screen.
func New(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen, base: tcell.StyleDefault}
}

// Draw clears the screen, draws lines from the top and status on the last
// row, then shows the result. Lines that do not fit are clipped.
func (r *Renderer) Draw(lines []Line, status string) {
	s := r.screen
	width, height := s.Size()
	s.Clear()

	body := height - 1
	for y, line := range lines {
		if y >= body {
			break
		}
		x := 0
		for _, c := range line.Cells {
			if c.Width == 0 {
				continue
			}
			if x+c.Width > width {
				break
			}
			runes := []rune(c.Text)
			s.SetContent(x, y, runes[0], runes[1:], r.cellStyle(c.Style))
			x += c.Width
		}
		for _, n := range line.Notes {
			x = r.drawText(x+1, y, width, n.Icon+" "+n.Text, r.base.Foreground(tcellColor(n.Color)).Italic(true))
		}
	}

	if height > 0 {
		r.drawText(0, height-1, width, status, r.base.Reverse(true))
	}
	s.Show()
}

// ShowCursor places the terminal cursor on the cell at offset. An offset at
// the end of a paragraph sits just after its last cell.
func (r *Renderer) ShowCursor(lines []Line, offset int) {
	x, y, ok := CursorPosition(lines, offset)
	if !ok {
		r.screen.HideCursor()
		return
	}
	r.screen.ShowCursor(x, y)
	r.screen.Show()
}

// CursorPosition returns the screen column and row of offset.
func CursorPosition(lines []Line, offset int) (x, y int, ok bool) {
	for row, line := range lines {
		p := line.Paragraph
		if offset < p.Start || offset > p.End {
			continue
		}
		col := 0
		for _, c := range line.Cells {
			if c.Offset >= offset {
				break
			}
			col += c.Width
		}
		return col, row, true
	}
	return 0, 0, false
}

// drawText draws s from column x and returns the column after it.
func (r *Renderer) drawText(x, y, width int, s string, style tcell.Style) int {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if w == 0 {
			continue
		}
		if x+w > width {
			return x
		}
		runes := g.Runes()
		r.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += w
	}
	return x
}

func (r *Renderer) cellStyle(st Style) tcell.Style {
	out := r.base
	if st.HasBackground {
		out = out.Background(tcellColor(st.Background)).Foreground(tcell.ColorBlack)
	}
	if st.Formats.Has(annotation.FormatBold) {
		out = out.Bold(true)
	}
	if st.Formats.Has(annotation.FormatItalic) {
		out = out.Italic(true)
	}
	if st.Formats.Has(annotation.FormatUnderline) {
		out = out.Underline(true)
	}
	if st.Formats.Has(annotation.FormatCode) {
		out = out.Dim(true)
	}
	return out
}

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
