package sfmt

import (
	"fmt"
	"strings"
)

type formatter struct {
	strings.Builder
	indent int
	tab    int
}

func (f *formatter) write(format string, args ...any) {
	if len(args) == 0 {
		f.WriteString(format)
		return
	}
	fmt.Fprintf(&f.Builder, format, args...)
}

func (f *formatter) open(args ...any) {
	if len(args) > 0 {
		f.write(args[0].(string), args[1:]...)
	}
	f.indent += f.tab
}

func (f *formatter) close() {
	f.indent -= f.tab
}

func (f *formatter) ret() {
	f.WriteByte('\n')
	f.WriteString(strings.Repeat(" ", f.indent))
}
