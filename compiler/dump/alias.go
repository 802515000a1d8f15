package dump

import (
	"fmt"
	"unicode/utf8"

	"github.com/brimdata/htsql/compiler/frame"
)

// names allocates unique aliases within one scope.  The first frame or
// column asking for a name gets it; later ones get name_2, name_3 and so
// on.  Names are cut to the identifier limit of the backend.
type names struct {
	taken map[string]bool
	max   int
}

func newNames(max int) *names {
	return &names{taken: make(map[string]bool), max: max}
}

func (n *names) alloc(preform string) string {
	name := truncate(preform, n.max)
	for k := 2; n.taken[name]; k++ {
		suffix := fmt.Sprintf("_%d", k)
		name = truncate(preform, n.max-len(suffix)) + suffix
	}
	n.taken[name] = true
	return name
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// aliases holds the names assigned to anchored frames and to the outputs
// of nested selects.
type aliases struct {
	frames  map[frame.Tag]string
	columns map[frame.Tag][]string
	max     int
}

func assignAliases(top *frame.Select, max int) *aliases {
	a := &aliases{
		frames:  make(map[frame.Tag]string),
		columns: make(map[frame.Tag][]string),
		max:     max,
	}
	a.scope(top)
	return a
}

// scope names the anchors of s.  Each select is a scope of its own since
// a derived table cannot see the aliases of the query around it.
func (a *aliases) scope(s *frame.Select) {
	taken := newNames(a.max)
	for _, anchor := range s.Include {
		switch f := anchor.Frame.(type) {
		case *frame.Table:
			a.frames[f.Tag] = taken.alloc(f.Table.Name)
		case *frame.Select:
			a.frames[f.Tag] = taken.alloc(framePreform(f))
			a.scope(f)
			a.outputs(f)
		}
	}
}

func (a *aliases) outputs(s *frame.Select) {
	taken := newNames(a.max)
	cols := make([]string, len(s.Select))
	for k, p := range s.Select {
		cols[k] = taken.alloc(a.preform(p))
	}
	a.columns[s.Tag] = cols
}

func (a *aliases) preform(p frame.Phrase) string {
	switch p := p.(type) {
	case *frame.Column:
		return p.Column.Name
	case *frame.Reference:
		if cols := a.columns[p.Tag]; p.Index < len(cols) {
			return cols[p.Index]
		}
	case *frame.Formula:
		if len(p.Args) == 1 && !p.Sig.Aggregate {
			return a.preform(p.Args[0])
		}
		return p.Sig.Name
	case *frame.Cast:
		return a.preform(p.Base)
	case *frame.RowNumber:
		return "row_number"
	}
	return "value"
}

func framePreform(s *frame.Select) string {
	for _, anchor := range s.Include {
		switch f := anchor.Frame.(type) {
		case *frame.Table:
			return f.Table.Name
		case *frame.Select:
			return framePreform(f)
		}
	}
	return "scalar"
}
