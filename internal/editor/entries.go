package editor

import (
	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/plugin"
	"github.com/dshills/potluck/internal/plugins"
)

// Field is one displayed field of an entry.
type Field struct {
	Name  string
	Value string
}

// Entry is one annotation as shown in a listing.
type Entry struct {
	Record annotation.Record
	Text   string
	Info   plugins.TypeInfo
	Fields []Field
	// Presentation is the text contributed by the type's view, if any.
	Presentation    string
	HasPresentation bool
	Active          bool
	Degenerate      bool
}

// Entries lists every annotation in document order with its catalog
// information, visible fields and presentation. Comments whose text has
// been deleted are left out.
func (e *Editor) Entries() []Entry {
	st := e.doc.State()
	buf := st.Buffer()
	all := st.Annotations()

	views := make([]plugin.View, len(all))
	for i, a := range all {
		views[i] = e.reg.View(a, buf)
	}
	active, hasActive := st.FindActive(e.Selection())

	out := make([]Entry, 0, len(all))
	for i, a := range all {
		degenerate := a.Span.IsDegenerate(buf)
		if degenerate && a.Type == annotation.TypeComment {
			continue
		}

		info, _ := plugins.Lookup(a.Type)
		v := views[i]
		entry := Entry{
			Record:     a.Record(buf),
			Text:       v.Text(),
			Info:       info,
			Fields:     fields(v, a, info, e.reg.Extension(a.Type)),
			Active:     hasActive && active.ID == a.ID,
			Degenerate: degenerate,
		}
		if p, ok := e.reg.Present(v, views); ok {
			entry.Presentation = p.Text
			entry.HasPresentation = true
		}
		out = append(out, entry)
	}
	return out
}

// fields lists the catalog's visible fields for the type, or every field
// the view answers when the catalog names none.
func fields(v plugin.View, a annotation.Annotation, info plugins.TypeInfo, ext plugin.Extension) []Field {
	names := info.VisibleFields
	if len(names) == 0 {
		names = plugin.Fields(a.Data, ext)
	}

	out := make([]Field, 0, len(names))
	for _, name := range names {
		val, ok := v.Get(name)
		if !ok && name == "text" {
			val, ok = v.Text(), true
		}
		if !ok {
			continue
		}
		out = append(out, Field{Name: name, Value: plugin.Describe(val)})
	}
	return out
}
