package document

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/logging"
)

func newDoc(content string) *Document {
	return New(WithContent(content), WithActor("local"), WithLogger(logging.Nop()))
}

func TestChangeCommits(t *testing.T) {
	d := newDoc("")

	diff, err := d.Change(func(tx *Tx) error {
		return tx.InsertText(0, "2 cups flour")
	})
	require.NoError(t, err)
	assert.Equal(t, "2 cups flour", d.Content())
	require.Len(t, diff.Patches, 1)
	assert.Equal(t, Patch{Field: FieldText, Action: ActionSplice, Index: 0, Value: "2 cups flour"}, diff.Patches[0])
}

func TestChangeFailClosed(t *testing.T) {
	d := newDoc("abc")
	var calls int
	d.Observe(func(Diff, *State, *State) { calls++ })

	boom := errors.New("boom")
	_, err := d.Change(func(tx *Tx) error {
		require.NoError(t, tx.InsertText(0, "zzz"))
		tx.Store().Add(annotation.TypeTag, tx.Span(0, 3), nil)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = d.Change(func(tx *Tx) error {
		require.NoError(t, tx.DeleteText(0, 3))
		panic("kaboom")
	})
	require.ErrorIs(t, err, ErrChangePanicked)

	assert.Equal(t, "abc", d.Content())
	assert.Equal(t, 0, d.State().NumAnnotations())
	assert.Zero(t, calls, "failed changes must not be observed")
}

func TestEmptyChangeNotObserved(t *testing.T) {
	d := newDoc("abc")
	var calls int
	d.Observe(func(Diff, *State, *State) { calls++ })

	diff, err := d.Change(func(*Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
	assert.Zero(t, calls)
}

func TestAnnotationPatches(t *testing.T) {
	d := newDoc("10 minutes")

	var id string
	diff, err := d.Change(func(tx *Tx) error {
		a := tx.Store().Add(annotation.TypeDuration, tx.Span(0, 10), annotation.Data{"totalSeconds": 600})
		id = a.ID
		return nil
	})
	require.NoError(t, err)
	require.Len(t, diff.Patches, 2)
	assert.Equal(t, ActionInsert, diff.Patches[0].Action)
	assert.Equal(t, id, diff.Patches[0].ID)
	assert.Equal(t, ActionPut, diff.Patches[1].Action)
	assert.Equal(t, "totalSeconds", diff.Patches[1].Key)

	diff, err = d.Change(func(tx *Tx) error {
		if err := tx.Store().SetField(id, "remainingSeconds", 599); err != nil {
			return err
		}
		return tx.Store().SetField(id, "totalSeconds", 600)
	})
	require.NoError(t, err)
	require.Len(t, diff.Patches, 1, diff.String())
	assert.Equal(t, Patch{Field: FieldAnnotations, Action: ActionPut, Index: 0, ID: id, Key: "remainingSeconds", Value: 599}, diff.Patches[0])

	diff, err = d.Change(func(tx *Tx) error {
		tx.Store().Remove(id)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, diff.Patches, 1)
	assert.Equal(t, Patch{Field: FieldAnnotations, Action: ActionDelete, Index: 0, ID: id}, diff.Patches[0])
}

func TestDiffListsAlignsByID(t *testing.T) {
	ops := diffLists([]string{"a", "b", "c"}, []string{"a", "x", "c", "d"})

	counts := map[editKind]int{}
	var equal [][2]int
	for _, op := range ops {
		counts[op.kind]++
		if op.kind == editEqual {
			equal = append(equal, [2]int{op.oldIndex, op.newIndex})
		}
	}
	assert.Equal(t, map[editKind]int{editEqual: 2, editDelete: 1, editInsert: 2}, counts)
	assert.Equal(t, [][2]int{{0, 0}, {2, 2}}, equal)
}

func TestObserverSeesBeforeAndAfter(t *testing.T) {
	d := newDoc("abc")

	var got []string
	d.Observe(func(_ Diff, before, after *State) {
		got = append(got, before.Content()+"->"+after.Content())
	})

	_, err := d.Change(func(tx *Tx) error { return tx.InsertText(3, "d") })
	require.NoError(t, err)
	_, err = d.Change(func(tx *Tx) error { return tx.DeleteText(0, 1) })
	require.NoError(t, err)

	assert.Equal(t, []string{"abc->abcd", "abcd->bcd"}, got)
}

func TestNestedChangeDeliveredInOrder(t *testing.T) {
	d := newDoc("")

	var seen []string
	d.Observe(func(_ Diff, _, after *State) {
		seen = append(seen, after.Content())
		if after.Content() == "a" {
			_, err := d.Change(func(tx *Tx) error { return tx.InsertText(1, "b") })
			assert.NoError(t, err)
			seen = append(seen, "nested returned")
		}
	})

	_, err := d.Change(func(tx *Tx) error { return tx.InsertText(0, "a") })
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "nested returned", "ab"}, seen)
}

func TestPanickingObserverIsolated(t *testing.T) {
	d := newDoc("")
	var calls int
	d.Observe(func(Diff, *State, *State) { panic("observer") })
	d.Observe(func(Diff, *State, *State) { calls++ })

	_, err := d.Change(func(tx *Tx) error { return tx.InsertText(0, "x") })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUnsubscribe(t *testing.T) {
	d := newDoc("")
	var calls int
	stop := d.Observe(func(Diff, *State, *State) { calls++ })

	_, _ = d.Change(func(tx *Tx) error { return tx.InsertText(0, "x") })
	stop()
	_, _ = d.Change(func(tx *Tx) error { return tx.InsertText(0, "y") })

	assert.Equal(t, 1, calls)
}

func TestMergeKeepsSpansStable(t *testing.T) {
	local := newDoc("2 cups flour")
	var id string
	_, err := local.Change(func(tx *Tx) error {
		id = tx.Store().Add(annotation.TypeIngredient, tx.Span(2, 6), nil).ID
		return nil
	})
	require.NoError(t, err)

	remote := local.Fork("remote")
	_, err = remote.Change(func(tx *Tx) error { return tx.InsertText(0, "Add ") })
	require.NoError(t, err)

	diff, err := local.Merge(remote.Ops())
	require.NoError(t, err)
	assert.True(t, diff.Touches(FieldText))

	s := local.State()
	a, ok := s.Annotation(id)
	require.True(t, ok)
	assert.Equal(t, "Add 2 cups flour", s.Content())
	assert.Equal(t, "cups", a.Span.Text(s.Buffer()))
}

func TestStatesAreImmutable(t *testing.T) {
	d := newDoc("abc")
	before := d.State()

	_, err := d.Change(func(tx *Tx) error { return tx.InsertText(0, "x") })
	require.NoError(t, err)

	assert.Equal(t, "abc", before.Content())
	assert.Equal(t, "xabc", d.Content())
}

func TestConcurrentChanges(t *testing.T) {
	d := newDoc("")
	var mu sync.Mutex
	var delivered int
	d.Observe(func(Diff, *State, *State) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Change(func(tx *Tx) error { return tx.InsertText(0, "x") })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, d.State().Len())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, delivered)
}

func TestFormatPatches(t *testing.T) {
	d := newDoc("abcd")
	diff, err := d.Change(func(tx *Tx) error {
		tx.AddFormat(annotation.ToggleFormat(tx.Buffer(), tx.Formats(), annotation.FormatBold, annotation.Range{Start: 0, End: 2}))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, diff.Patches, 1)
	assert.Equal(t, FieldFormats, diff.Patches[0].Field)
	assert.Equal(t, ActionInsert, diff.Patches[0].Action)

	sets := d.State().FormatSets()
	assert.True(t, sets[0].Has(annotation.FormatBold))
	assert.False(t, sets[2].Has(annotation.FormatBold))
}
