package document

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/potluck/internal/annotation"
)

// Field names a top-level document field.
type Field string

// Document fields.
const (
	FieldText        Field = "text"
	FieldAnnotations Field = "annotations"
	FieldFormats     Field = "formats"
)

// Action is the kind of a patch.
type Action uint8

const (
	// ActionInsert adds an element to a list field.
	ActionInsert Action = iota + 1
	// ActionDelete removes a list element, or a data key when Key is set.
	ActionDelete
	// ActionPut assigns a data key on an annotation.
	ActionPut
	// ActionSplice replaces a run of characters in the text.
	ActionSplice
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionPut:
		return "put"
	case ActionSplice:
		return "splice"
	default:
		return "unknown"
	}
}

// Patch describes one structural edit.
//
// For list fields, Index of an insert or put is the element's index in the
// after state; Index of a delete is its index in the before state. For the
// text field, Index is the character offset, Deleted the number of
// characters removed and Value the inserted string.
type Patch struct {
	Field   Field
	Action  Action
	Index   int
	ID      string
	Key     string
	Value   any
	Deleted int
}

// String returns a compact representation for logs and test failures.
func (p Patch) String() string {
	switch {
	case p.Field == FieldText:
		return fmt.Sprintf("text %s @%d -%d +%q", p.Action, p.Index, p.Deleted, p.Value)
	case p.Key != "":
		return fmt.Sprintf("%s[%d].data.%s %s", p.Field, p.Index, p.Key, p.Action)
	default:
		return fmt.Sprintf("%s[%d] %s", p.Field, p.Index, p.Action)
	}
}

// Diff is the ordered patch list produced by one change.
type Diff struct {
	Patches []Patch
}

// IsEmpty reports whether the change altered nothing.
func (d Diff) IsEmpty() bool {
	return len(d.Patches) == 0
}

// Touches reports whether any patch targets field.
func (d Diff) Touches(field Field) bool {
	for _, p := range d.Patches {
		if p.Field == field {
			return true
		}
	}
	return false
}

// String joins the patches one per line.
func (d Diff) String() string {
	parts := make([]string, len(d.Patches))
	for i, p := range d.Patches {
		parts[i] = p.String()
	}
	return strings.Join(parts, "\n")
}

// computeDiff compares two states field by field.
func computeDiff(before, after *State) Diff {
	var patches []Patch
	patches = append(patches, diffText(before.Content(), after.Content())...)
	patches = append(patches, diffAnnotations(before.store.All(), after.store.All())...)
	patches = append(patches, diffFormats(before.formats, after.formats)...)
	return Diff{Patches: patches}
}

// diffText reports the changed region between the common prefix and suffix.
func diffText(before, after string) []Patch {
	if before == after {
		return nil
	}
	a, b := []rune(before), []rune(after)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	return []Patch{{
		Field:   FieldText,
		Action:  ActionSplice,
		Index:   prefix,
		Deleted: len(a) - prefix - suffix,
		Value:   string(b[prefix : len(b)-suffix]),
	}}
}

// diffAnnotations matches annotations by id. Inserted annotations are
// reported with an insert patch followed by a put for each data key.
// Annotations present in both lists report puts and key deletes for
// changed data.
func diffAnnotations(before, after []annotation.Annotation) []Patch {
	oldIDs := make([]string, len(before))
	for i, a := range before {
		oldIDs[i] = a.ID
	}
	newIDs := make([]string, len(after))
	for i, a := range after {
		newIDs[i] = a.ID
	}

	var patches []Patch
	for _, op := range diffLists(oldIDs, newIDs) {
		switch op.kind {
		case editDelete:
			patches = append(patches, Patch{
				Field:  FieldAnnotations,
				Action: ActionDelete,
				Index:  op.oldIndex,
				ID:     before[op.oldIndex].ID,
			})
		case editInsert:
			a := after[op.newIndex]
			patches = append(patches, Patch{
				Field:  FieldAnnotations,
				Action: ActionInsert,
				Index:  op.newIndex,
				ID:     a.ID,
			})
			for _, k := range a.Data.Keys() {
				patches = append(patches, putPatch(op.newIndex, a.ID, k, a.Data[k]))
			}
		case editEqual:
			patches = append(patches, diffData(op.newIndex, before[op.oldIndex], after[op.newIndex])...)
		}
	}
	return patches
}

func diffData(index int, before, after annotation.Annotation) []Patch {
	if before.Data.Equal(after.Data) {
		return nil
	}

	var patches []Patch
	for _, k := range after.Data.Keys() {
		old, ok := before.Data[k]
		if ok && annotation.EqualValues(old, after.Data[k]) {
			continue
		}
		patches = append(patches, putPatch(index, after.ID, k, after.Data[k]))
	}
	for _, k := range before.Data.Keys() {
		if _, ok := after.Data[k]; !ok {
			patches = append(patches, Patch{
				Field:  FieldAnnotations,
				Action: ActionDelete,
				Index:  index,
				ID:     after.ID,
				Key:    k,
			})
		}
	}
	return patches
}

func putPatch(index int, id, key string, value any) Patch {
	return Patch{
		Field:  FieldAnnotations,
		Action: ActionPut,
		Index:  index,
		ID:     id,
		Key:    key,
		Value:  value,
	}
}

// diffFormats compares format lists element-wise; the list is append-only
// in normal editing, so only the tail differs.
func diffFormats(before, after []annotation.FormatSpan) []Patch {
	common := 0
	for common < len(before) && common < len(after) && before[common] == after[common] {
		common++
	}

	var patches []Patch
	for i := common; i < len(before); i++ {
		patches = append(patches, Patch{Field: FieldFormats, Action: ActionDelete, Index: i})
	}
	for i := common; i < len(after); i++ {
		patches = append(patches, Patch{Field: FieldFormats, Action: ActionInsert, Index: i, Value: after[i]})
	}
	return patches
}

// editKind is the kind of one step in an edit script.
type editKind uint8

const (
	editEqual editKind = iota
	editInsert
	editDelete
)

// editOp is a single step of an edit script. oldIndex is valid for equal
// and delete steps, newIndex for equal and insert steps.
type editOp struct {
	kind     editKind
	oldIndex int
	newIndex int
}

// diffLists computes an edit script turning a into b. Replaced runs are
// reported as deletes followed by inserts.
func diffLists(a, b []string) []editOp {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)

	var ops []editOp
	for _, c := range m.GetOpCodes() {
		switch c.Tag {
		case 'e':
			for i := 0; i < c.I2-c.I1; i++ {
				ops = append(ops, editOp{kind: editEqual, oldIndex: c.I1 + i, newIndex: c.J1 + i})
			}
		case 'd', 'r', 'i':
			for i := c.I1; i < c.I2; i++ {
				ops = append(ops, editOp{kind: editDelete, oldIndex: i})
			}
			for j := c.J1; j < c.J2; j++ {
				ops = append(ops, editOp{kind: editInsert, newIndex: j})
			}
		}
	}
	return ops
}
