package srcfiles

import (
	"strings"
	"unicode/utf8"
)

// Mark identifies the slice [Start, End) of a query text.  Marks are
// created by the scanner and combined with Union as nodes are built from
// smaller nodes.  The zero Mark is the empty mark used by nodes that do
// not correspond to any source text.
type Mark struct {
	Text  string
	Start int
	End   int
}

func NewMark(text string, start, end int) Mark {
	return Mark{Text: text, Start: start, End: end}
}

func (m Mark) IsEmpty() bool {
	return m == Mark{}
}

// Fragment returns the marked text.
func (m Mark) Fragment() string {
	if m.Start < 0 || m.End > len(m.Text) || m.Start > m.End {
		return ""
	}
	return m.Text[m.Start:m.End]
}

// Union returns the smallest mark covering every non-empty mark.  Marks
// over a text other than that of the first non-empty mark are ignored.
func Union(marks ...Mark) Mark {
	var out Mark
	for _, m := range marks {
		if m.IsEmpty() {
			continue
		}
		if out.IsEmpty() {
			out = m
			continue
		}
		if m.Text != out.Text {
			continue
		}
		out.Start = min(out.Start, m.Start)
		out.End = max(out.End, m.End)
	}
	return out
}

// Excerpt returns the line of the query containing the start of the mark
// followed by a line of carets underlining the marked span.  A span that
// runs past the end of its first line is underlined to the end of that line.
func (m Mark) Excerpt() []string {
	if m.IsEmpty() {
		return nil
	}
	file := NewFile(m.Text)
	start := file.Position(m.Start)
	line := file.LineOfPos(m.Start)
	width := utf8.RuneCountInString(m.Fragment())
	if end := file.Position(m.End); end.Line != start.Line {
		width = utf8.RuneCountInString(line) - start.Column + 1
	}
	width = max(width, 1)
	underline := strings.Repeat(" ", start.Column-1) + strings.Repeat("^", width)
	return []string{line, underline}
}
