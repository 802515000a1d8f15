package srcfiles

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the pipeline stage that produced an error.
type Kind string

const (
	ScanError      Kind = "scan error"
	ParseError     Kind = "parse error"
	BindError      Kind = "bind error"
	EncodeError    Kind = "encode error"
	CompileError   Kind = "compile error"
	AssembleError  Kind = "assemble error"
	SerializeError Kind = "serialize error"
)

// Error is a translation error pointing at the offending fragment of the
// query.  Hint carries an optional suggestion for fixing the query.
type Error struct {
	Kind Kind
	Msg  string
	Mark Mark
	Hint string
}

func New(kind Kind, mark Mark, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Mark: mark}
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	if excerpt := e.Mark.Excerpt(); excerpt != nil {
		pos := NewFile(e.Mark.Text).Position(e.Mark.Start)
		fmt.Fprintf(&b, " at line %d, column %d:", pos.Line, pos.Column)
		for _, line := range excerpt {
			b.WriteString("\n    ")
			b.WriteString(line)
		}
	}
	return b.String()
}

// As returns the translation error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is a translation error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
