package render

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/editor"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugins"
)

var (
	red  = plugins.RGB{R: 255}
	blue = plugins.RGB{B: 255}
)

func TestDecorateBlendsOverlaps(t *testing.T) {
	opts := DefaultOptions()
	src := Source{
		Content:   "2 cups flour\nbake",
		Delimiter: '\n',
		Highlights: []Highlight{
			{ID: "a", Range: annotation.Range{Start: 0, End: 6}, Color: red},
			{ID: "b", Range: annotation.Range{Start: 2, End: 12}, Color: blue},
		},
		Active: "a",
	}

	lines := Decorate(src, opts)
	require.Len(t, lines, 2)
	assert.Equal(t, 13, lines[1].Paragraph.Start)
	require.Len(t, lines[0].Cells, 12)

	onlyA := opts.Background.BlendRgb(toColorful(red), opts.ActiveOpacity).Clamped()
	both := opts.Background.BlendRgb(toColorful(red), opts.ActiveOpacity).BlendRgb(toColorful(blue), opts.IdleOpacity).Clamped()
	onlyB := opts.Background.BlendRgb(toColorful(blue), opts.IdleOpacity).Clamped()

	assert.Equal(t, onlyA.Hex(), lines[0].Cells[0].Style.Background.Hex())
	assert.Equal(t, []string{"a"}, lines[0].Cells[0].Annotations)
	assert.Equal(t, both.Hex(), lines[0].Cells[3].Style.Background.Hex())
	assert.Equal(t, []string{"a", "b"}, lines[0].Cells[3].Annotations)
	assert.Equal(t, onlyB.Hex(), lines[0].Cells[7].Style.Background.Hex())

	for _, c := range lines[1].Cells {
		assert.False(t, c.Style.HasBackground)
	}
}

func TestDecorateGraphemeCells(t *testing.T) {
	src := Source{Content: "e\u0301 🥕x", Delimiter: '\n'}
	lines := Decorate(src, DefaultOptions())
	require.Len(t, lines, 1)

	cells := lines[0].Cells
	require.Len(t, cells, 4)
	assert.Equal(t, "e\u0301", cells[0].Text)
	assert.Equal(t, 1, cells[0].Width)
	assert.Equal(t, 2, cells[1].Offset)
	assert.Equal(t, 2, cells[2].Width)
	assert.Equal(t, 4, cells[3].Offset)
	assert.Equal(t, 5, lines[0].Width())
}

func TestDecorateNotesAndFormats(t *testing.T) {
	formats := make([]annotation.FormatSet, 9)
	formats[1] = formats[1].With(annotation.FormatBold)

	src := Source{
		Content:   "ab\nserves",
		Delimiter: '\n',
		Formats:   formats,
		Highlights: []Highlight{
			{ID: "n", Range: annotation.Range{Start: 3, End: 9}, Icon: "🍴", Color: blue, Note: "x2"},
			{ID: "quiet", Range: annotation.Range{Start: 0, End: 1}, Color: red},
		},
	}
	lines := Decorate(src, DefaultOptions())
	require.Len(t, lines, 2)

	assert.Empty(t, lines[0].Notes)
	require.Len(t, lines[1].Notes, 1)
	assert.Equal(t, "x2", lines[1].Notes[0].Text)
	assert.Equal(t, "🍴", lines[1].Notes[0].Icon)

	assert.True(t, lines[0].Cells[1].Style.Formats.Has(annotation.FormatBold))
	assert.False(t, lines[0].Cells[0].Style.Formats.Has(annotation.FormatBold))
}

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestDrawOnScreen(t *testing.T) {
	s := newScreen(t, 12, 3)
	opts := DefaultOptions()
	lines := Decorate(Source{
		Content:   "2 cups flour and salt\nbake",
		Delimiter: '\n',
		Highlights: []Highlight{
			{ID: "a", Range: annotation.Range{Start: 0, End: 1}, Color: red},
		},
	}, opts)

	New(s).Draw(lines, "ready")

	mainc, _, style, _ := s.GetContent(0, 0)
	assert.Equal(t, '2', mainc)
	_, bg, _ := style.Decompose()
	want := opts.Background.BlendRgb(toColorful(red), opts.IdleOpacity)
	assert.Equal(t, tcellColor(want), bg)

	mainc, _, _, _ = s.GetContent(11, 0)
	assert.Equal(t, 'r', mainc, "long lines are clipped at the screen edge")

	mainc, _, _, _ = s.GetContent(0, 1)
	assert.Equal(t, 'b', mainc)

	mainc, _, style, _ = s.GetContent(0, 2)
	assert.Equal(t, 'r', mainc)
	_, _, attrs := style.Decompose()
	assert.NotZero(t, attrs&tcell.AttrReverse)
}

func TestCursorPosition(t *testing.T) {
	lines := Decorate(Source{Content: "a🥕b\ncd", Delimiter: '\n'}, DefaultOptions())

	tests := []struct {
		offset int
		x, y   int
	}{
		{0, 0, 0},
		{2, 3, 0},
		{3, 4, 0},
		{4, 0, 1},
		{6, 2, 1},
	}
	for _, tt := range tests {
		x, y, ok := CursorPosition(lines, tt.offset)
		require.True(t, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.x, x, "offset %d", tt.offset)
		assert.Equal(t, tt.y, y, "offset %d", tt.offset)
	}

	_, _, ok := CursorPosition(lines, 7)
	assert.False(t, ok)
}

func TestTcellColor(t *testing.T) {
	c := tcellColor(colorful.Color{R: 1, G: 0.5, B: 0})
	r, g, b := c.RGB()
	assert.Equal(t, int32(255), r)
	assert.Equal(t, int32(128), g)
	assert.Equal(t, int32(0), b)
}

func TestSourceFromEditor(t *testing.T) {
	ed, err := editor.New(nil, editor.WithContent("Serves 2x\n1 1/2 cups flour"), editor.WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer ed.Close()

	assert.Equal(t, "2 paragraphs, 0 annotations", Status(ed))

	_, err = ed.AddAnnotation(annotation.TypeScaleFactor, annotation.Range{Start: 7, End: 9}, nil)
	require.NoError(t, err)
	ing, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 10, End: 26}, nil)
	require.NoError(t, err)
	ed.Select(11, 11)

	src := SourceFrom(ed)
	assert.Equal(t, ing.ID, src.Active)
	require.Len(t, src.Highlights, 2)
	assert.Equal(t, "→ 3 cups", src.Highlights[1].Note)

	lines := Decorate(src, DefaultOptions())
	require.Len(t, lines, 2)
	require.Len(t, lines[1].Notes, 1)

	status := Status(ed)
	assert.Contains(t, status, "Ingredient")
	assert.Contains(t, status, "quantity=1.5")
	assert.Contains(t, status, "unit=cups")
}
