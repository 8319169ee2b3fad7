package crdt

import (
	"errors"
	"fmt"
)

// Errors returned by text operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrMissingOrigin    = errors.New("op references an unknown element")
	ErrInvalidOp        = errors.New("invalid op")
)

// ID uniquely identifies an element across all replicas.
// The zero ID denotes the head of the sequence.
type ID struct {
	Counter uint64 `json:"counter" yaml:"counter"`
	Actor   string `json:"actor" yaml:"actor"`
}

// Head is the virtual element to the left of the first character.
var Head = ID{}

// IsHead reports whether id is the head sentinel.
func (id ID) IsHead() bool {
	return id.Counter == 0 && id.Actor == ""
}

// Less orders IDs by counter, then actor.
func (id ID) Less(other ID) bool {
	if id.Counter != other.Counter {
		return id.Counter < other.Counter
	}
	return id.Actor < other.Actor
}

// String returns "counter@actor".
func (id ID) String() string {
	if id.IsHead() {
		return "head"
	}
	return fmt.Sprintf("%d@%s", id.Counter, id.Actor)
}

// OpKind distinguishes insert and delete ops.
type OpKind uint8

const (
	// OpInsert inserts one character to the right of Origin.
	OpInsert OpKind = iota + 1
	// OpDelete tombstones the element named by Target.
	OpDelete
)

// String returns a human-readable representation of the op kind.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is a single replicated edit.
type Op struct {
	Kind   OpKind `json:"kind" yaml:"kind"`
	ID     ID     `json:"id" yaml:"id"`
	Origin ID     `json:"origin,omitempty" yaml:"origin,omitempty"`
	Value  rune   `json:"value,omitempty" yaml:"value,omitempty"`
	Target ID     `json:"target,omitempty" yaml:"target,omitempty"`
}

// String returns a short description of the op.
func (op Op) String() string {
	switch op.Kind {
	case OpInsert:
		return fmt.Sprintf("insert %q after %s as %s", op.Value, op.Origin, op.ID)
	case OpDelete:
		return fmt.Sprintf("delete %s", op.Target)
	default:
		return "unknown op"
	}
}

func (op Op) validate() error {
	switch op.Kind {
	case OpInsert:
		if op.ID.IsHead() {
			return fmt.Errorf("%w: insert without id", ErrInvalidOp)
		}
	case OpDelete:
		if op.Target.IsHead() {
			return fmt.Errorf("%w: delete without target", ErrInvalidOp)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidOp, op.Kind)
	}
	return nil
}
