package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/dshills/potluck/internal/editor"
)

// Status summarizes the active annotation, or the document when nothing is
// under the selection.
func Status(ed *editor.Editor) string {
	entries := ed.Entries()
	for _, e := range entries {
		if !e.Active {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s %q", e.Info.Icon, e.Record.Type, e.Text)
		for _, f := range e.Fields {
			if f.Name == "text" {
				continue
			}
			fmt.Fprintf(&b, " %s=%s", f.Name, f.Value)
		}
		return b.String()
	}

	paragraphs := len(ed.Paragraphs())
	return fmt.Sprintf("%s, %s",
		english.Plural(paragraphs, "paragraph", ""),
		english.Plural(len(entries), "annotation", ""),
	)
}
