package translate

import "strings"

// DefaultDelimiter separates paragraphs in the flat buffer.
const DefaultDelimiter = '\n'

// Paragraph is one node of the derived tree view.
// Start and End are rune offsets into the flat buffer; End excludes the
// trailing delimiter.
type Paragraph struct {
	Index int
	Start int
	End   int
	Text  string
}

// Len returns the paragraph length in runes.
func (p Paragraph) Len() int {
	return p.End - p.Start
}

// Paragraphs derives the tree view of content. There is always at least one
// paragraph; n delimiters yield n+1 paragraphs.
func Paragraphs(content string, delim rune) []Paragraph {
	runes := []rune(content)
	var out []Paragraph

	start := 0
	for i, r := range runes {
		if r == delim {
			out = append(out, Paragraph{Index: len(out), Start: start, End: i, Text: string(runes[start:i])})
			start = i + 1
		}
	}
	out = append(out, Paragraph{Index: len(out), Start: start, End: len(runes), Text: string(runes[start:])})
	return out
}

// Join rebuilds flat content from a paragraph view.
func Join(paragraphs []Paragraph, delim rune) string {
	parts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		parts[i] = p.Text
	}
	return strings.Join(parts, string(delim))
}

// paragraphAt returns the paragraph addressed by index, clamped to the last
// paragraph. clamped reports whether index was out of range.
func paragraphAt(paragraphs []Paragraph, index int) (p Paragraph, clamped bool) {
	switch {
	case index < 0:
		return paragraphs[0], true
	case index >= len(paragraphs):
		return paragraphs[len(paragraphs)-1], true
	default:
		return paragraphs[index], false
	}
}
