package translate

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Path addresses a node in the tree view: [paragraph] or [paragraph, text].
type Path []int

// Paragraph returns the paragraph index the path points into.
func (p Path) Paragraph() int {
	if len(p) == 0 {
		return 0
	}
	return p[0]
}

// Op is an editing-surface operation.
type Op interface {
	Type() string
}

// InsertText inserts Text at Offset within the addressed text node.
type InsertText struct {
	Path   Path   `json:"path"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// Type returns "insert_text".
func (InsertText) Type() string { return "insert_text" }

// RemoveText removes Length characters at Offset within the addressed text
// node. Text, when present, is the removed content as the surface saw it.
type RemoveText struct {
	Path   Path   `json:"path"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Text   string `json:"text,omitempty"`
}

// Type returns "remove_text".
func (RemoveText) Type() string { return "remove_text" }

// SplitNode splits the addressed node at Position.
type SplitNode struct {
	Path     Path `json:"path"`
	Position int  `json:"position"`
}

// Type returns "split_node".
func (SplitNode) Type() string { return "split_node" }

// MergeNode joins the addressed node onto its previous sibling.
type MergeNode struct {
	Path Path `json:"path"`
}

// Type returns "merge_node".
func (MergeNode) Type() string { return "merge_node" }

// Other is any operation kind the translator does not consume.
type Other struct {
	Kind string
}

// Type returns the operation kind.
func (o Other) Type() string { return o.Kind }

// Decode parses one operation from its JSON form, dispatching on the
// "type" field. Unknown kinds decode to Other.
func Decode(data []byte) (Op, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadOp)
	}
	kind := gjson.GetBytes(data, "type").String()

	var (
		op  Op
		err error
	)
	switch kind {
	case "insert_text":
		var v InsertText
		err = json.Unmarshal(data, &v)
		op = v
	case "remove_text":
		var v RemoveText
		err = json.Unmarshal(data, &v)
		op = v
	case "split_node":
		var v SplitNode
		err = json.Unmarshal(data, &v)
		op = v
	case "merge_node":
		var v MergeNode
		err = json.Unmarshal(data, &v)
		op = v
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrBadOp)
	default:
		return Other{Kind: kind}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadOp, kind, err)
	}
	return op, nil
}

// DecodeAll parses a JSON array of operations.
func DecodeAll(data []byte) ([]Op, error) {
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of operations", ErrBadOp)
	}

	var ops []Op
	var decodeErr error
	res.ForEach(func(_, value gjson.Result) bool {
		op, err := Decode([]byte(value.Raw))
		if err != nil {
			decodeErr = fmt.Errorf("operation %d: %w", len(ops), err)
			return false
		}
		ops = append(ops, op)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return ops, nil
}
