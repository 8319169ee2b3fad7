// Package translate maps tree-shaped editing-surface operations onto the
// flat document buffer.
//
// The tree view is never stored: every operation re-derives the paragraph
// view from the current buffer content, translates its tree address into a
// flat offset, and applies the resulting edit inside one document change.
package translate

import (
	"errors"
	"fmt"

	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/logging"
)

// Translation errors. All of them leave the buffer untouched.
var (
	ErrOutOfRange        = errors.New("operation out of range")
	ErrInconsistentMerge = errors.New("no delimiter at merge point")
	ErrBadOp             = errors.New("malformed operation")
)

// Option configures a Translator.
type Option func(*Translator)

// WithDelimiter sets the paragraph delimiter.
func WithDelimiter(delim rune) Option {
	return func(t *Translator) {
		t.delim = delim
	}
}

// WithLogger sets the logger used for dropped operations.
func WithLogger(l *logging.Logger) Option {
	return func(t *Translator) {
		t.log = l
	}
}

// Translator applies editing-surface operations to a document.
type Translator struct {
	doc   *document.Document
	delim rune
	log   *logging.Logger
}

// New creates a translator for doc.
func New(doc *document.Document, opts ...Option) *Translator {
	t := &Translator{doc: doc, delim: DefaultDelimiter}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logging.OrDefault(t.log).WithComponent("translate")
	return t
}

// Delimiter returns the paragraph delimiter.
func (t *Translator) Delimiter() rune {
	return t.delim
}

// Paragraphs returns the current tree view.
func (t *Translator) Paragraphs() []Paragraph {
	return Paragraphs(t.doc.Content(), t.delim)
}

// Apply translates op and applies it in a single document change.
// Rejected operations are logged and return an error; the buffer is left
// unchanged. Operation kinds the translator does not consume are ignored.
func (t *Translator) Apply(op Op) error {
	_, err := t.doc.Change(func(tx *document.Tx) error {
		return t.apply(tx, op)
	})
	if err != nil {
		t.log.Warn("operation dropped", "op", op.Type(), "error", err)
	}
	return err
}

// ApplyAll applies ops in order. Rejected operations do not stop the
// sequence; their errors are joined.
func (t *Translator) ApplyAll(ops []Op) error {
	var errs []error
	for i, op := range ops {
		if err := t.Apply(op); err != nil {
			errs = append(errs, fmt.Errorf("operation %d (%s): %w", i, op.Type(), err))
		}
	}
	return errors.Join(errs...)
}

func (t *Translator) apply(tx *document.Tx, op Op) error {
	switch o := op.(type) {
	case InsertText:
		flat, err := t.flatOffset(tx, o.Path, o.Offset)
		if err != nil {
			return err
		}
		return tx.InsertText(flat, o.Text)

	case RemoveText:
		if o.Length < 0 {
			return fmt.Errorf("%w: negative length %d", ErrOutOfRange, o.Length)
		}
		flat, err := t.flatOffset(tx, o.Path, o.Offset)
		if err != nil {
			return err
		}
		p, _ := paragraphAt(Paragraphs(tx.Content(), t.delim), o.Path.Paragraph())
		if flat+o.Length > p.End {
			return fmt.Errorf("%w: remove %d at %d crosses paragraph end %d", ErrOutOfRange, o.Length, flat, p.End)
		}
		return tx.DeleteText(flat, o.Length)

	case SplitNode:
		// Splitting a text node and splitting its paragraph describe the
		// same edit; only the text-level split writes the delimiter.
		if len(o.Path) < 2 {
			return nil
		}
		flat, err := t.flatOffset(tx, o.Path, o.Position)
		if err != nil {
			return err
		}
		return tx.InsertText(flat, string(t.delim))

	case MergeNode:
		return t.merge(tx, o)

	default:
		t.log.Debug("operation ignored", "op", op.Type())
		return nil
	}
}

// merge removes the delimiter in front of the addressed paragraph.
// Merging text nodes inside one paragraph does not touch the buffer.
func (t *Translator) merge(tx *document.Tx, o MergeNode) error {
	if len(o.Path) != 1 {
		return nil
	}

	paragraphs := Paragraphs(tx.Content(), t.delim)
	idx := o.Path[0]
	if idx <= 0 || idx >= len(paragraphs) {
		return fmt.Errorf("%w: paragraph %d of %d", ErrInconsistentMerge, idx, len(paragraphs))
	}

	join := paragraphs[idx].Start
	if []rune(tx.Content())[join-1] != t.delim {
		return fmt.Errorf("%w: offset %d", ErrInconsistentMerge, join-1)
	}
	return tx.DeleteText(join-1, 1)
}

// flatOffset translates a position inside the addressed paragraph into a
// buffer offset. A paragraph index past the end addresses the last
// paragraph.
func (t *Translator) flatOffset(tx *document.Tx, path Path, offset int) (int, error) {
	p, clamped := paragraphAt(Paragraphs(tx.Content(), t.delim), path.Paragraph())
	if clamped {
		t.log.Debug("paragraph index clamped", "path", []int(path), "paragraph", p.Index)
	}
	if offset < 0 || offset > p.Len() {
		return 0, fmt.Errorf("%w: offset %d in paragraph %d of length %d", ErrOutOfRange, offset, p.Index, p.Len())
	}
	return p.Start + offset, nil
}
