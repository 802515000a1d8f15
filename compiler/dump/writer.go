package dump

import (
	"strings"
	"unicode/utf8"
)

// writer tracks the current column so that nested clauses line up under
// the position where they started.
type writer struct {
	b      strings.Builder
	column int
	stack  []int
}

func (w *writer) write(s string) {
	w.b.WriteString(s)
	if k := strings.LastIndexByte(s, '\n'); k >= 0 {
		w.column = utf8.RuneCountInString(s[k+1:])
	} else {
		w.column += utf8.RuneCountInString(s)
	}
}

// push makes the current column the indentation of following lines.
func (w *writer) push() {
	w.stack = append(w.stack, w.column)
}

func (w *writer) pop() {
	w.stack = w.stack[:len(w.stack)-1]
}

func (w *writer) newline() {
	indent := 0
	if len(w.stack) > 0 {
		indent = w.stack[len(w.stack)-1]
	}
	w.b.WriteByte('\n')
	w.b.WriteString(strings.Repeat(" ", indent))
	w.column = indent
}

func (w *writer) String() string {
	return w.b.String()
}
