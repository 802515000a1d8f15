package frame

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/sig"
)

// Phrase is a scalar SQL expression.
type Phrase interface {
	Domain() htsql.Domain
	IsNullable() bool
}

type (
	Literal struct {
		Value any          `json:"value"`
		Dom   htsql.Domain `json:"domain"`
	}
	Cast struct {
		Base Phrase       `json:"base"`
		Dom  htsql.Domain `json:"domain"`
	}
	Formula struct {
		Sig      *sig.Sig     `json:"sig"`
		Args     []Phrase     `json:"args"`
		Dom      htsql.Domain `json:"domain"`
		Nullable bool         `json:"nullable"`
	}
	// Column is a column of the table anchored under Tag.
	Column struct {
		Tag      Tag             `json:"tag"`
		Column   *catalog.Column `json:"column"`
		Nullable bool            `json:"nullable"`
	}
	// Reference is the Index-th output of the nested select anchored
	// under Tag.
	Reference struct {
		Tag      Tag          `json:"tag"`
		Index    int          `json:"index"`
		Dom      htsql.Domain `json:"domain"`
		Nullable bool         `json:"nullable"`
	}
	// RowNumber is the position of a row in the result of its frame, for
	// backends that paginate by row numbers.
	RowNumber struct{}
)

func (l *Literal) Domain() htsql.Domain   { return l.Dom }
func (c *Cast) Domain() htsql.Domain      { return c.Dom }
func (f *Formula) Domain() htsql.Domain   { return f.Dom }
func (c *Column) Domain() htsql.Domain    { return c.Column.Domain }
func (r *Reference) Domain() htsql.Domain { return r.Dom }
func (*RowNumber) Domain() htsql.Domain   { return htsql.Integer }

func (l *Literal) IsNullable() bool   { return l.Value == nil }
func (c *Cast) IsNullable() bool      { return c.Base.IsNullable() }
func (f *Formula) IsNullable() bool   { return f.Nullable }
func (c *Column) IsNullable() bool    { return c.Nullable }
func (r *Reference) IsNullable() bool { return r.Nullable }
func (*RowNumber) IsNullable() bool   { return false }

var (
	True  = &Literal{Value: true, Dom: htsql.Boolean}
	False = &Literal{Value: false, Dom: htsql.Boolean}
)

// NewFormula builds a formula phrase and derives its nullability from the
// signature and the arguments.
func NewFormula(s *sig.Sig, dom htsql.Domain, args ...Phrase) *Formula {
	return &Formula{Sig: s, Args: args, Dom: dom, Nullable: nullable(s, args)}
}

func nullable(s *sig.Sig, args []Phrase) bool {
	switch s {
	case sig.IsNull, sig.Same, sig.NotSame, sig.Count, sig.Today, sig.Now:
		return false
	case sig.IfNull:
		for _, arg := range args {
			if !arg.IsNullable() {
				return false
			}
		}
		return true
	case sig.NullIf, sig.Divide, sig.Min, sig.Max, sig.Sum, sig.Avg, sig.Exists, sig.Every:
		return true
	case sig.If:
		if len(args)%2 == 0 {
			return true
		}
		for k := 1; k < len(args); k += 2 {
			if args[k].IsNullable() {
				return true
			}
		}
		return args[len(args)-1].IsNullable()
	}
	for _, arg := range args {
		if arg.IsNullable() {
			return true
		}
	}
	return false
}

// Equal reports whether two phrases are structurally equal.
func Equal(a, b Phrase) bool {
	switch a := a.(type) {
	case *Literal:
		b, ok := b.(*Literal)
		return ok && htsql.EqualDomains(a.Dom, b.Dom) && htsql.EqualValues(a.Value, b.Value)
	case *Cast:
		b, ok := b.(*Cast)
		return ok && htsql.EqualDomains(a.Dom, b.Dom) && Equal(a.Base, b.Base)
	case *Formula:
		b, ok := b.(*Formula)
		if !ok || a.Sig != b.Sig || len(a.Args) != len(b.Args) || !htsql.EqualDomains(a.Dom, b.Dom) {
			return false
		}
		for k := range a.Args {
			if !Equal(a.Args[k], b.Args[k]) {
				return false
			}
		}
		return true
	case *Column:
		b, ok := b.(*Column)
		return ok && a.Tag == b.Tag && a.Column == b.Column
	case *Reference:
		b, ok := b.(*Reference)
		return ok && a.Tag == b.Tag && a.Index == b.Index
	case *RowNumber:
		_, ok := b.(*RowNumber)
		return ok
	}
	return false
}

// And combines predicates, skipping nil ones.  It returns nil when there
// is nothing to combine.
func And(preds ...Phrase) Phrase {
	var ops []Phrase
	for _, p := range preds {
		if p == nil {
			continue
		}
		if f, ok := p.(*Formula); ok && f.Sig == sig.And {
			ops = append(ops, f.Args...)
			continue
		}
		ops = append(ops, p)
	}
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return NewFormula(sig.And, htsql.Boolean, ops...)
}
