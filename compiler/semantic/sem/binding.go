// Package sem declares the binding tree produced by the binder.  A
// binding is a syntax node with its names resolved against the catalog:
// every binding knows its scope (the binding it is evaluated in), its
// domain and the syntax node it came from.  Bindings are never modified
// once built.  Decorations such as a sort direction wrap a binding in a
// new one.
package sem

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
)

type Binding interface {
	// Base returns the scope of the binding or nil for the root.
	Base() Binding
	Domain() htsql.Domain
	// Node returns the syntax the binding was built from.  It is nil for
	// synthetic bindings.
	Node() ast.Node
}

// Loc holds the fields shared by all bindings.
type Loc struct {
	Scope Binding
	AST   ast.Node
}

func (l Loc) Base() Binding  { return l.Scope }
func (l Loc) Node() ast.Node { return l.AST }

func Mark(b Binding) srcfiles.Mark {
	if n := b.Node(); n != nil {
		return n.Where()
	}
	return srcfiles.Mark{}
}

type (
	Root struct {
		Loc
	}
	// Table is a table reached from the root scope.
	Table struct {
		Loc
		Table *catalog.Table
	}
	// Attached is a table reached from its scope through a link.
	Attached struct {
		Loc
		Join *catalog.Join
	}
	// Moniker is a table attached to its scope with "@" and therefore
	// unrelated to it: every row of the scope sees every row of the seed.
	Moniker struct {
		Loc
		Seed Binding
	}
	Sieve struct {
		Loc
		Filter Binding
	}
	// Sort orders its scope and optionally slices it.  Order holds
	// expressions, possibly wrapped in Direction.
	Sort struct {
		Loc
		Order  []Binding
		Limit  *int64
		Offset *int64
	}
	// Quotient is the flow of distinct values of the kernel expressions
	// over the seed flow.
	Quotient struct {
		Loc
		Seed    Binding
		Kernels []Binding
		Titles  []string
	}
	// Complement is the plural flow of seed rows that share the kernel
	// values of a quotient row.  Its scope is the quotient.
	Complement struct {
		Loc
		Quotient *Quotient
	}
	Kernel struct {
		Loc
		Quotient *Quotient
		Index    int
	}
	// Selection attaches an ordered list of titled fields to its scope.
	Selection struct {
		Loc
		Elems  []Binding
		Titles []string
	}
	Column struct {
		Loc
		Column *catalog.Column
	}
	Literal struct {
		Loc
		Value any
		Dom   htsql.Domain
	}
	Cast struct {
		Loc
		Operand  Binding
		Dom      htsql.Domain
		Implicit bool
	}
	// Formula applies a signature to arguments.  Aggregates are formulas
	// of sig.Aggregate whose single argument is a formula of one of the
	// aggregate signatures.  Plural, when set, is the flow the aggregate
	// is computed over.
	Formula struct {
		Loc
		Sig    *sig.Sig
		Args   []Binding
		Dom    htsql.Domain
		Plural Binding
	}
	// Direction decorates its scope with a sort direction.
	Direction struct {
		Loc
		Dir int
	}
	// Definition adds a name to its scope.  Reference definitions are
	// reached with "$name" from any nested scope.
	Definition struct {
		Loc
		Name        string
		Arity       int
		IsReference bool
		Recipe      Recipe
	}
	// Segment is a complete query: a flow and the fields selected from
	// each of its rows.
	Segment struct {
		Loc
		Seed   Binding
		Elems  []Binding
		Titles []string
	}
)

func (*Root) Domain() htsql.Domain { return htsql.Void }

func (t *Table) Domain() htsql.Domain {
	return &htsql.EntityDomain{Table: t.Table.Name}
}

func (a *Attached) Domain() htsql.Domain {
	return &htsql.EntityDomain{Table: a.Join.Target.Name}
}

func (m *Moniker) Domain() htsql.Domain    { return m.Seed.Domain() }
func (s *Sieve) Domain() htsql.Domain      { return s.Scope.Domain() }
func (s *Sort) Domain() htsql.Domain       { return s.Scope.Domain() }
func (c *Complement) Domain() htsql.Domain { return c.Quotient.Seed.Domain() }
func (k *Kernel) Domain() htsql.Domain     { return k.Quotient.Kernels[k.Index].Domain() }
func (c *Column) Domain() htsql.Domain     { return c.Column.Domain }
func (l *Literal) Domain() htsql.Domain    { return l.Dom }
func (c *Cast) Domain() htsql.Domain       { return c.Dom }
func (f *Formula) Domain() htsql.Domain    { return f.Dom }
func (d *Direction) Domain() htsql.Domain  { return d.Scope.Domain() }
func (d *Definition) Domain() htsql.Domain { return d.Scope.Domain() }

func (q *Quotient) Domain() htsql.Domain {
	return record(q.Titles, q.Kernels)
}

func (s *Selection) Domain() htsql.Domain {
	return record(s.Titles, s.Elems)
}

func (s *Segment) Domain() htsql.Domain {
	return &htsql.ListDomain{Item: record(s.Titles, s.Elems)}
}

func record(titles []string, elems []Binding) htsql.Domain {
	fields := make([]htsql.Field, 0, len(elems))
	for k, e := range elems {
		fields = append(fields, htsql.Field{Name: titles[k], Domain: e.Domain()})
	}
	return &htsql.RecordDomain{Fields: fields}
}

// IsFlow reports whether b denotes rows rather than a value.
func IsFlow(b Binding) bool {
	switch b := b.(type) {
	case *Root, *Table, *Attached, *Moniker, *Sieve, *Sort, *Quotient, *Complement, *Selection:
		return true
	case *Definition:
		return IsFlow(b.Scope)
	}
	return false
}

// Unwrap strips direction decorations.
func Unwrap(b Binding) Binding {
	for {
		d, ok := b.(*Direction)
		if !ok {
			return b
		}
		b = d.Scope
	}
}

// TableOf returns the table whose rows a flow enumerates or nil if the
// flow is not a table flow.
func TableOf(b Binding) *catalog.Table {
	switch b := b.(type) {
	case *Table:
		return b.Table
	case *Attached:
		return b.Join.Target
	case *Moniker:
		return TableOf(b.Seed)
	case *Complement:
		return TableOf(b.Quotient.Seed)
	case *Sieve, *Sort, *Definition, *Selection:
		return TableOf(b.Base())
	}
	return nil
}
