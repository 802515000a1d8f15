package srcfiles

import (
	"sort"
)

// File holds the line offsets of a source text.
type File struct {
	text  string
	lines []int
}

func NewFile(text string) File {
	lines := []int{0}
	for offset := 0; offset < len(text); offset++ {
		if text[offset] == '\n' {
			lines = append(lines, offset+1)
		}
	}
	return File{text: text, lines: lines}
}

func (f File) Position(pos int) Position {
	if pos < 0 {
		return Position{-1, -1, -1}
	}
	i := searchLine(f.lines, pos)
	return Position{
		Offset: pos,
		Line:   i + 1,
		Column: columnOf(f.text[f.lines[i]:min(pos, len(f.text))]) + 1,
	}
}

// LineOfPos returns the text of the line containing pos without its
// line terminator.
func (f File) LineOfPos(pos int) string {
	i := searchLine(f.lines, pos)
	start := f.lines[i]
	end := len(f.text)
	if i+1 < len(f.lines) {
		end = f.lines[i+1] - 1
	}
	line := f.text[start:end]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

func searchLine(lines []int, offset int) int {
	return sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
}

// columnOf counts the characters of a line prefix.  Invalid bytes count
// as one column each.
func columnOf(prefix string) int {
	var n int
	for range prefix {
		n++
	}
	return n
}

type Position struct {
	Offset int `json:"offset"` // Byte offset in the source text.
	Line   int `json:"line"`   // 1-based line number.
	Column int `json:"column"` // 1-based column number, in characters.
}

func (p Position) IsValid() bool { return p.Offset >= 0 }
