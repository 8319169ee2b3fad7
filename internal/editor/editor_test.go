package editor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/config"
	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/logging"
	"github.com/dshills/potluck/internal/plugin"
	"github.com/dshills/potluck/internal/plugins/ingredient"
	"github.com/dshills/potluck/internal/plugins/scaler"
	"github.com/dshills/potluck/internal/plugins/timer"
	"github.com/dshills/potluck/internal/translate"
)

type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

type manualClock struct {
	started chan *manualTicker
}

func (m *manualClock) NewTicker(time.Duration) timer.Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	m.started <- t
	return t
}

func newEditor(t *testing.T, content string, opts ...Option) *Editor {
	t.Helper()
	opts = append([]Option{WithContent(content), WithLogger(logging.Nop())}, opts...)
	ed, err := New(nil, opts...)
	require.NoError(t, err)
	t.Cleanup(ed.Close)
	return ed
}

func TestNewLoadsBuiltins(t *testing.T) {
	ed := newEditor(t, "")
	var names []string
	for _, p := range ed.Plugins() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"ingredient", "scaler", "timer"}, names)
	assert.Equal(t, []string{"ingredient", "scaler", "timer"}, ed.Registry().Plugins())
}

func TestNewRejectsUnknownPlugin(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins.Enabled = []string{"ingredient", "sous-vide"}
	_, err := New(cfg, WithLogger(logging.Nop()))
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "plugins", ie.Component)
}

func TestNewLoadsLuaPlugins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tags.lua"), []byte(`
return {
  name = "tags",
  types = { "Tag" },
  transform = function(annotations)
    for _, a in ipairs(annotations) do
      if a.type == "Tag" then a.data.tag = string.lower(a.text) end
    end
  end,
}`), 0o644))

	cfg := config.Default()
	cfg.Plugins.Enabled = []string{}
	cfg.Plugins.LuaDir = dir
	ed, err := New(cfg, WithContent("Quick VEGAN soup"), WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer ed.Close()

	a, err := ed.AddAnnotation(annotation.TypeTag, annotation.Range{Start: 6, End: 11}, nil)
	require.NoError(t, err)
	assert.Equal(t, "vegan", a.Data["tag"])
}

// Scenario A.
func TestToggleFormatTwice(t *testing.T) {
	ed := newEditor(t, "abcd")
	r := annotation.Range{Start: 0, End: 2}

	require.NoError(t, ed.ToggleFormat(annotation.FormatBold, r))
	require.NoError(t, ed.ToggleFormat(annotation.FormatBold, r))

	formats := ed.State().Formats()
	require.Len(t, formats, 2)
	assert.False(t, formats[0].Remove)
	assert.True(t, formats[1].Remove)

	sets := ed.State().FormatSets()
	assert.False(t, sets[0].Has(annotation.FormatBold))
	assert.False(t, sets[1].Has(annotation.FormatBold))

	err := ed.ToggleFormat(annotation.FormatBold, annotation.Range{Start: 1, End: 1})
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Len(t, ed.State().Formats(), 2)
}

// Scenario B.
func TestAddIngredientAnnotation(t *testing.T) {
	ed := newEditor(t, "Mix 2 cups flour and salt")

	a, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 4, End: 16}, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 2, a.Data[ingredient.FieldQuantity])
	assert.Equal(t, "cups", a.Data[ingredient.FieldUnit])
	assert.Equal(t, "flour", a.Data[ingredient.FieldIngredient])

	stored, ok := ed.State().Annotation(a.ID)
	require.True(t, ok)
	assert.True(t, stored.Data.Equal(a.Data))
}

func TestEmptySelectionCreatesNothing(t *testing.T) {
	ed := newEditor(t, "2 cups flour")
	ed.Select(3, 3)

	_, err := ed.AnnotateSelection(annotation.TypeIngredient, nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Zero(t, ed.State().NumAnnotations())

	_, err = ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 0, End: 99}, nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Zero(t, ed.State().NumAnnotations())
}

func TestReversedRangeIsNormalized(t *testing.T) {
	ed := newEditor(t, "2 cups flour")
	a, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 12, End: 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, annotation.Range{Start: 0, End: 12}, ed.State().Resolve(a.Span))
	assert.Equal(t, "flour", a.Data["ingredient"])
}

func TestAddKeepsOtherAnnotationsData(t *testing.T) {
	ed := newEditor(t, "2 cups flour")
	first, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 0, End: 12}, nil)
	require.NoError(t, err)
	require.NoError(t, ed.SetField(first.ID, ingredient.FieldUnit, "mugs"))

	_, err = ed.AddAnnotation(annotation.TypeStep, annotation.Range{Start: 0, End: 1}, nil)
	require.NoError(t, err)

	got, _ := ed.State().Annotation(first.ID)
	assert.Equal(t, "mugs", got.Data[ingredient.FieldUnit])
}

// Scenario C.
func TestDurationCountdown(t *testing.T) {
	clock := &manualClock{started: make(chan *manualTicker, 4)}
	ed := newEditor(t, "simmer 10 minutes",
		WithPlugins(ingredient.Plugin(), scaler.Plugin(), timer.Plugin(timer.WithClock(clock), timer.WithLogger(logging.Nop()))),
	)

	a, err := ed.AddAnnotation(annotation.TypeDuration, annotation.Range{Start: 7, End: 17}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 600, a.Data[timer.FieldTotalSeconds])

	v, ok := ed.View(a.ID)
	require.True(t, ok)
	remaining, _ := plugin.Int(v, timer.FieldRemainingSeconds)
	assert.Equal(t, 600, remaining)

	require.NoError(t, ed.SetField(a.ID, timer.FieldIsRunning, true))

	var tk *manualTicker
	select {
	case tk = <-clock.started:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not start")
	}
	for range 3 {
		tk.c <- time.Now()
	}

	require.Eventually(t, func() bool {
		v, _ := ed.View(a.ID)
		n, _ := plugin.Int(v, timer.FieldRemainingSeconds)
		return n == 597
	}, 2*time.Second, 5*time.Millisecond)
}

// Scenario D.
func TestDeletedTextLeavesDegenerateAnnotation(t *testing.T) {
	ed := newEditor(t, "add a pinch of salt")
	a, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 6, End: 19}, nil)
	require.NoError(t, err)

	require.NoError(t, ed.Apply(translate.RemoveText{Path: translate.Path{0, 0}, Offset: 6, Length: 13}))
	assert.Equal(t, "add a ", ed.Content())

	got, ok := ed.State().Annotation(a.ID)
	require.True(t, ok)
	assert.True(t, got.Span.IsDegenerate(ed.State().Buffer()))

	for start := 0; start <= 6; start++ {
		for end := start; end <= 6; end++ {
			ed.Select(start, end)
			_, active := ed.Active()
			assert.False(t, active, "selection [%d,%d)", start, end)
		}
	}
}

func TestDegenerateCommentsHidden(t *testing.T) {
	ed := newEditor(t, "whisk well")
	c, err := ed.AddAnnotation(annotation.TypeComment, annotation.Range{Start: 6, End: 10}, annotation.Data{"text": "really well"})
	require.NoError(t, err)
	_, err = ed.AddAnnotation(annotation.TypeStep, annotation.Range{Start: 6, End: 10}, nil)
	require.NoError(t, err)

	require.Len(t, ed.Entries(), 2)
	assert.Equal(t, []Field{{Name: "text", Value: "really well"}}, ed.Entries()[0].Fields)

	require.NoError(t, ed.Apply(translate.RemoveText{Path: translate.Path{0, 0}, Offset: 5, Length: 5}))
	entries := ed.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, annotation.TypeStep, entries[0].Record.Type)
	assert.True(t, entries[0].Degenerate)

	_, stillStored := ed.State().Annotation(c.ID)
	assert.True(t, stillStored)
}

// Scenario E.
func TestSplitNodeInsertsOneDelimiter(t *testing.T) {
	ed := newEditor(t, "helloworld")
	require.NoError(t, ed.Apply(translate.SplitNode{Path: translate.Path{1, 0}, Position: 3}))

	got := ed.Content()
	assert.Equal(t, 1, strings.Count(got, "\n"))
	assert.Equal(t, "helloworld", strings.ReplaceAll(got, "\n", ""))
	assert.Equal(t, got, translate.Join(ed.Paragraphs(), ed.Delimiter()))
}

func TestInconsistentMergeIsNoop(t *testing.T) {
	ed := newEditor(t, "one\ntwo")
	err := ed.Apply(translate.MergeNode{Path: translate.Path{5}})
	assert.ErrorIs(t, err, translate.ErrInconsistentMerge)
	assert.Equal(t, "one\ntwo", ed.Content())
}

func TestApplyJSON(t *testing.T) {
	ed := newEditor(t, "ab")
	err := ed.ApplyJSON([]byte(`[
		{"type":"insert_text","path":[0,0],"offset":2,"text":"c"},
		{"type":"set_selection"},
		{"type":"split_node","path":[0,0],"position":1}
	]`))
	require.NoError(t, err)
	assert.Equal(t, "a\nbc", ed.Content())
}

func TestPresentations(t *testing.T) {
	ed := newEditor(t, "Serves 2x\n1 1/2 cups flour")
	_, err := ed.AddAnnotation(annotation.TypeScaleFactor, annotation.Range{Start: 7, End: 9}, nil)
	require.NoError(t, err)
	ing, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 10, End: 26}, nil)
	require.NoError(t, err)

	ed.Select(12, 12)
	var found bool
	for _, e := range ed.Entries() {
		if e.Record.ID != ing.ID {
			continue
		}
		found = true
		assert.True(t, e.Active)
		assert.True(t, e.HasPresentation)
		assert.Equal(t, "→ 3 cups", e.Presentation)
		assert.Equal(t, "🥕", e.Info.Icon)
	}
	assert.True(t, found)
}

func TestRerunOnEdit(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.RerunOnEdit = true
	ed, err := New(cfg, WithContent("2 cups flour"), WithLogger(logging.Nop()))
	require.NoError(t, err)
	defer ed.Close()

	a, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 0, End: 12}, nil)
	require.NoError(t, err)

	require.NoError(t, ed.Apply(translate.InsertText{Path: translate.Path{0, 0}, Offset: 1, Text: "0"}))
	assert.Equal(t, "20 cups flour", ed.Content())

	got, _ := ed.State().Annotation(a.ID)
	assert.EqualValues(t, 20, got.Data[ingredient.FieldQuantity])
}

func TestFailFastRejectsAnnotation(t *testing.T) {
	boom := plugin.Plugin{
		Name:  "boom",
		Types: []string{annotation.TypeTag},
		Transform: func([]annotation.Annotation, annotation.Buffer) error {
			return errors.New("boom")
		},
	}

	ed := newEditor(t, "spicy", WithPlugins(boom))
	a, err := ed.AddAnnotation(annotation.TypeTag, annotation.Range{Start: 0, End: 5}, nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Data[plugin.ErrorField])

	cfg := config.Default()
	cfg.Pipeline.FailFast = true
	require.NoError(t, ed.ApplyConfig(cfg))

	_, err = ed.AddAnnotation(annotation.TypeTag, annotation.Range{Start: 0, End: 5}, nil)
	var te *plugin.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "boom", te.Plugin)
	assert.Equal(t, 1, ed.State().NumAnnotations())
}

func TestDeleteAndSetField(t *testing.T) {
	ed := newEditor(t, "stir")
	a, err := ed.AddAnnotation(annotation.TypeStep, annotation.Range{Start: 0, End: 4}, nil)
	require.NoError(t, err)

	require.NoError(t, ed.SetField(a.ID, "n", 1))
	got, _ := ed.State().Annotation(a.ID)
	assert.Equal(t, 1, got.Data["n"])

	require.NoError(t, ed.Delete(a.ID))
	assert.Zero(t, ed.State().NumAnnotations())

	content := ed.Content()
	assert.NoError(t, ed.Delete(a.ID), "removing an absent id is a no-op")
	assert.NoError(t, ed.Delete("missing"))
	assert.Equal(t, content, ed.Content())
	assert.Zero(t, ed.State().NumAnnotations())
	assert.ErrorIs(t, ed.SetField(a.ID, "n", 2), annotation.ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ed := newEditor(t, "2 cups flour\nbake 20 minutes")
	ing, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 0, End: 12}, nil)
	require.NoError(t, err)
	_, err = ed.AddAnnotation(annotation.TypeDuration, annotation.Range{Start: 18, End: 28}, nil)
	require.NoError(t, err)
	require.NoError(t, ed.ToggleFormat(annotation.FormatItalic, annotation.Range{Start: 13, End: 17}))

	snap := ed.Snapshot()
	require.Len(t, snap.Annotations, 2)
	assert.Equal(t, annotation.Range{Start: 0, End: 12}, snap.Annotations[0].Range)

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			data, err := snap.Encode(format)
			require.NoError(t, err)
			decoded, err := DecodeSnapshot(data, format)
			require.NoError(t, err)

			other := newEditor(t, "something else entirely")
			require.NoError(t, other.Restore(decoded))

			assert.Equal(t, snap.Content, other.Content())
			restored := other.Snapshot()
			require.Len(t, restored.Annotations, 2)
			assert.Equal(t, ing.ID, restored.Annotations[0].ID)
			assert.Equal(t, snap.Annotations[1].Range, restored.Annotations[1].Range)
			assert.Equal(t, "flour", restored.Annotations[0].Data[ingredient.FieldIngredient])
			assert.True(t, other.State().FormatSets()[14].Has(annotation.FormatItalic))
		})
	}

	_, err = snap.Encode("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRestoreRejectsBadRanges(t *testing.T) {
	ed := newEditor(t, "keep me")
	err := ed.Restore(Snapshot{
		Content:     "abc",
		Annotations: []annotation.Record{{ID: "x", Type: annotation.TypeStep, Range: annotation.Range{Start: 1, End: 9}}},
	})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Equal(t, "keep me", ed.Content())
}

func TestMergeFromPeer(t *testing.T) {
	ed := newEditor(t, "salt")
	a, err := ed.AddAnnotation(annotation.TypeIngredient, annotation.Range{Start: 0, End: 4}, nil)
	require.NoError(t, err)

	peer := ed.Document().Fork("peer")
	_, err = peer.Change(func(tx *document.Tx) error {
		if err := tx.InsertText(0, "sea "); err != nil {
			return err
		}
		return tx.InsertText(tx.Len(), "y")
	})
	require.NoError(t, err)

	require.NoError(t, ed.Merge(peer.Ops()))
	assert.Equal(t, "sea salty", ed.Content())

	got, _ := ed.State().Annotation(a.ID)
	assert.Equal(t, annotation.Range{Start: 4, End: 8}, ed.State().Resolve(got.Span))
}
