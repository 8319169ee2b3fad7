package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/document"
)

// FormatRecord is the persisted shape of a format span.
type FormatRecord struct {
	Format annotation.Format `json:"format" yaml:"format"`
	Range  annotation.Range  `json:"range" yaml:"range"`
	Remove bool              `json:"remove,omitempty" yaml:"remove,omitempty"`
}

// Snapshot is the document with every cursor resolved to plain offsets.
type Snapshot struct {
	Content     string              `json:"content" yaml:"content"`
	Annotations []annotation.Record `json:"annotations" yaml:"annotations"`
	Formats     []FormatRecord      `json:"formats,omitempty" yaml:"formats,omitempty"`
}

// Snapshot captures the current document.
func (e *Editor) Snapshot() Snapshot {
	st := e.doc.State()
	buf := st.Buffer()

	s := Snapshot{Content: st.Content(), Annotations: []annotation.Record{}}
	for _, a := range st.Annotations() {
		s.Annotations = append(s.Annotations, a.Record(buf))
	}
	for _, f := range st.Formats() {
		s.Formats = append(s.Formats, FormatRecord{
			Format: f.Format,
			Range:  f.Span.Resolve(buf),
			Remove: f.Remove,
		})
	}
	return s
}

// Validate checks that every range lies within the content.
func (s Snapshot) Validate() error {
	n := utf8.RuneCountInString(s.Content)
	check := func(what string, r annotation.Range) error {
		if r.Start < 0 || r.End < r.Start || r.End > n {
			return fmt.Errorf("%w: %s range %s outside text of length %d", ErrInvalidSnapshot, what, r, n)
		}
		return nil
	}
	for _, rec := range s.Annotations {
		if err := check("annotation "+rec.ID, rec.Range); err != nil {
			return err
		}
	}
	for _, f := range s.Formats {
		if _, err := annotation.ParseFormat(string(f.Format)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if err := check("format "+string(f.Format), f.Range); err != nil {
			return err
		}
	}
	return nil
}

// Restore replaces the document with s in one change, re-creating cursors
// at the recorded offsets.
func (e *Editor) Restore(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := e.doc.Change(func(tx *document.Tx) error {
		if err := tx.DeleteText(0, tx.Len()); err != nil {
			return err
		}
		if err := tx.InsertText(0, s.Content); err != nil {
			return err
		}

		store := tx.Store()
		for _, a := range store.All() {
			store.Remove(a.ID)
		}
		for _, rec := range s.Annotations {
			if err := store.Insert(annotation.FromRecord(tx.Buffer(), rec)); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			}
		}

		spans := make([]annotation.FormatSpan, 0, len(s.Formats))
		for _, f := range s.Formats {
			spans = append(spans, annotation.FormatSpan{
				Format: f.Format,
				Span:   tx.Span(f.Range.Start, f.Range.End),
				Remove: f.Remove,
			})
		}
		tx.ReplaceFormats(spans)
		return nil
	})
	return err
}

// Encode renders the snapshot as "json" or "yaml".
func (s Snapshot) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(s, "", "  ")
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeSnapshot parses a snapshot encoded as "json" or "yaml".
func DecodeSnapshot(data []byte, format string) (Snapshot, error) {
	var s Snapshot
	var err error
	switch strings.ToLower(format) {
	case "json":
		err = json.Unmarshal(data, &s)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
