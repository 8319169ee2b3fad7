package effect

import (
	"fmt"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/document"
	"github.com/dshills/potluck/internal/plugin"
)

// handle is the mutable view given to effects. It holds only the
// annotation id and looks the annotation up on every access, so it never
// reads stale data after the list shifts.
type handle struct {
	id       string
	typ      string
	doc      *document.Document
	registry *plugin.Registry
}

var _ plugin.MutableView = (*handle)(nil)

func (h *handle) ID() string   { return h.id }
func (h *handle) Type() string { return h.typ }

func (h *handle) view() (plugin.View, bool) {
	s := h.doc.State()
	a, ok := s.Annotation(h.id)
	if !ok {
		return nil, false
	}
	return h.registry.View(a, s.Buffer()), true
}

func (h *handle) Text() string {
	v, ok := h.view()
	if !ok {
		return ""
	}
	return v.Text()
}

func (h *handle) Get(name string) (any, bool) {
	v, ok := h.view()
	if !ok {
		return nil, false
	}
	return v.Get(name)
}

// Set writes name on the live annotation in its own document change.
func (h *handle) Set(name string, value any) error {
	_, err := h.doc.Change(func(tx *document.Tx) error {
		return tx.Store().SetField(h.id, name, value)
	})
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", name, h.id, err)
	}
	return nil
}

func (h *handle) Update(fn func(plugin.View) annotation.Data) error {
	_, err := h.doc.Change(func(tx *document.Tx) error {
		a, ok := tx.Store().Get(h.id)
		if !ok {
			return annotation.ErrNotFound
		}
		for k, v := range fn(h.registry.View(a, tx.Buffer())) {
			if err := tx.Store().SetField(h.id, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", h.id, err)
	}
	return nil
}
