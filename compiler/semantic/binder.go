// Package semantic binds parsed queries: it resolves the names of a
// syntax tree against the catalog and the scopes introduced by the query
// itself, dispatches functions and operators by the domains of their
// arguments and produces a typed binding tree.
package semantic

import (
	"math/big"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sfmt"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
)

type Binder struct {
	catalog *catalog.Catalog
	coerce  *coerce.Engine
	root    *sem.Root
}

func NewBinder(cat *catalog.Catalog, engine *coerce.Engine) *Binder {
	if engine == nil {
		engine = coerce.NewEngine()
	}
	return &Binder{catalog: cat, coerce: engine, root: &sem.Root{}}
}

// Bind resolves a segment.  The result is nil for the empty query "/".
func (b *Binder) Bind(seg *ast.Segment) (*sem.Segment, error) {
	if seg.Branch == nil {
		return nil, nil
	}
	x, err := b.bind(seg.Branch, b.root)
	if err != nil {
		return nil, err
	}
	loc := sem.Loc{Scope: b.root, AST: seg}
	var out *sem.Segment
	switch {
	case isSelection(x):
		sel := x.(*sem.Selection)
		out = &sem.Segment{Loc: loc, Seed: sel.Scope, Elems: sel.Elems, Titles: sel.Titles}
	case sem.IsFlow(x):
		elems, titles, err := b.fields(x, seg.Branch)
		if err != nil {
			return nil, err
		}
		out = &sem.Segment{Loc: loc, Seed: x, Elems: elems, Titles: titles}
	default:
		if err := b.checkElement(x); err != nil {
			return nil, err
		}
		out = &sem.Segment{Loc: loc, Seed: b.root, Elems: []sem.Binding{x}, Titles: []string{title(seg.Branch)}}
	}
	for _, elem := range out.Elems {
		if err := b.checkSingular(out.Seed, elem); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isSelection(b sem.Binding) bool {
	_, ok := b.(*sem.Selection)
	return ok
}

func errorf(node ast.Node, format string, args ...any) *srcfiles.Error {
	var mark srcfiles.Mark
	if node != nil {
		mark = node.Where()
	}
	return srcfiles.New(srcfiles.BindError, mark, format, args...)
}

func (b *Binder) bind(node ast.Node, scope sem.Binding) (sem.Binding, error) {
	switch n := node.(type) {
	case *ast.Group:
		return b.bind(n.Arg, scope)
	case *ast.Identifier:
		return b.bindName(n, scope)
	case *ast.Reference:
		return b.bindReference(n, scope)
	case *ast.Literal:
		return b.bindLiteral(n, scope)
	case *ast.Wildcard:
		return nil, errorf(n, "a wildcard is only allowed in a selector")
	case *ast.Complement:
		for s := scope; s != nil; s = s.Base() {
			if q, ok := s.(*sem.Quotient); ok {
				return &sem.Complement{Loc: sem.Loc{Scope: scope, AST: n}, Quotient: q}, nil
			}
		}
		return nil, errorf(n, "expected a quotient scope")
	case *ast.Attach:
		return b.bindAttach(n, scope)
	case *ast.Selector:
		return b.bindSelector(n, scope)
	case *ast.Call:
		return b.bindCall(n, n.Name, n.Args, scope)
	case *ast.Pipe:
		return b.bindPipe(n, scope)
	case *ast.Unary:
		return b.bindUnary(n, scope)
	case *ast.Binary:
		return b.bindBinary(n, scope)
	case *ast.Sieve:
		base, err := b.bindFlow(n.Base, scope)
		if err != nil {
			return nil, err
		}
		return b.sieve(n, base, n.Filter)
	case *ast.Quotient:
		return b.bindQuotient(n, scope)
	case *ast.Direction:
		base, err := b.bind(n.Base, scope)
		if err != nil {
			return nil, err
		}
		return &sem.Direction{Loc: sem.Loc{Scope: base, AST: n}, Dir: n.Dir}, nil
	case *ast.Compose:
		lhs, err := b.bind(n.Lhs, scope)
		if err != nil {
			return nil, err
		}
		return b.bind(n.Rhs, lhs)
	case *ast.Locate:
		return b.bindLocate(n, scope)
	case *ast.Assign:
		return nil, errorf(n, "unexpected assignment")
	case *ast.Link:
		return b.bindLink(n, scope)
	case *ast.Segment, *ast.Command:
		return nil, errorf(n, "unexpected segment")
	}
	return nil, errorf(node, "unexpected syntax node %T", node)
}

func (b *Binder) bindFlow(node ast.Node, scope sem.Binding) (sem.Binding, error) {
	x, err := b.bind(node, scope)
	if err != nil {
		return nil, err
	}
	if !sem.IsFlow(x) {
		return nil, errorf(node, "expected a flow; got a value of type %s", x.Domain())
	}
	return x, nil
}

func (b *Binder) bindLiteral(n *ast.Literal, scope sem.Binding) (sem.Binding, error) {
	loc := sem.Loc{Scope: scope, AST: n}
	var d htsql.Domain
	switch n.Kind {
	case ast.StringLiteral:
		return &sem.Literal{Loc: loc, Value: n.Text, Dom: htsql.Untyped}, nil
	case ast.IntegerLiteral:
		d = htsql.Integer
	case ast.DecimalLiteral:
		d = htsql.Decimal
	default:
		d = htsql.Float
	}
	v, err := d.Parse(n.Text)
	if err != nil {
		return nil, errorf(n, "%s", err)
	}
	return &sem.Literal{Loc: loc, Value: v, Dom: d}, nil
}

func (b *Binder) bindAttach(n *ast.Attach, scope sem.Binding) (sem.Binding, error) {
	id, ok := n.Arg.(*ast.Identifier)
	if !ok {
		return nil, errorf(n.Arg, "expected a table name")
	}
	t := b.catalog.LookupTable(id.Name)
	if t == nil {
		return nil, errorf(id, "unrecognized table '%s'", id.Name).WithHint(hint(id.Name, b.catalog.TableNames()))
	}
	seed := &sem.Table{Loc: sem.Loc{Scope: scope, AST: id}, Table: t}
	return &sem.Moniker{Loc: sem.Loc{Scope: scope, AST: n}, Seed: seed}, nil
}

func (b *Binder) bindLink(n *ast.Link, scope sem.Binding) (sem.Binding, error) {
	lhs, err := b.bind(n.Lhs, scope)
	if err != nil {
		return nil, err
	}
	col, ok := lhs.(*sem.Column)
	if !ok {
		return nil, errorf(n.Lhs, "expected a column")
	}
	id, ok := n.Rhs.(*ast.Identifier)
	if !ok {
		return nil, errorf(n.Rhs, "expected a table name")
	}
	t := b.catalog.LookupTable(id.Name)
	if t == nil {
		return nil, errorf(id, "unrecognized table '%s'", id.Name).WithHint(hint(id.Name, b.catalog.TableNames()))
	}
	join, err := catalog.LinkColumn(col.Column, t)
	if err != nil {
		return nil, errorf(n, "%s", err)
	}
	if !htsql.EqualDomains(col.Column.Domain, join.TargetColumns[0].Domain) {
		if _, err := b.coerce.Binary(col.Column.Domain, join.TargetColumns[0].Domain); err != nil {
			return nil, errorf(n, "cannot link a value of type %s to %s", col.Column.Domain, t)
		}
	}
	return &sem.Attached{Loc: sem.Loc{Scope: col.Scope, AST: n}, Join: join}, nil
}

func (b *Binder) sieve(node ast.Node, base sem.Binding, filter ast.Node) (sem.Binding, error) {
	scope := base
	if sel, ok := base.(*sem.Selection); ok {
		scope = sel.Scope
	}
	cond, err := b.bind(filter, base)
	if err != nil {
		return nil, err
	}
	if cond, err = b.toBoolean(cond); err != nil {
		return nil, err
	}
	if err := b.checkSingular(scope, cond); err != nil {
		return nil, err
	}
	return reselect(base, &sem.Sieve{Loc: sem.Loc{Scope: scope, AST: node}, Filter: cond}), nil
}

// reselect keeps the fields of a selection when an operation is applied
// to the flow under it.
func reselect(base, flow sem.Binding) sem.Binding {
	if sel, ok := base.(*sem.Selection); ok {
		return &sem.Selection{Loc: sem.Loc{Scope: flow, AST: sel.AST}, Elems: sel.Elems, Titles: sel.Titles}
	}
	return flow
}

func (b *Binder) bindQuotient(n *ast.Quotient, scope sem.Binding) (sem.Binding, error) {
	seed, err := b.bindFlow(n.Base, scope)
	if err != nil {
		return nil, err
	}
	if sel, ok := seed.(*sem.Selection); ok {
		seed = sel.Scope
	}
	if sem.TableOf(seed) == nil {
		return nil, errorf(n.Base, "expected a table flow")
	}
	nodes := []ast.Node{n.Kernel}
	if sel, ok := n.Kernel.(*ast.Selector); ok && sel.Base == nil {
		nodes = sel.Elems
	}
	if len(nodes) == 0 {
		return nil, errorf(n.Kernel, "expected at least one kernel expression")
	}
	q := &sem.Quotient{Loc: sem.Loc{Scope: scope, AST: n}, Seed: seed}
	for _, node := range nodes {
		k, err := b.bind(node, seed)
		if err != nil {
			return nil, err
		}
		if err := b.checkElement(k); err != nil {
			return nil, err
		}
		if err := b.checkSingular(seed, k); err != nil {
			return nil, err
		}
		if d := b.coerce.Unary(k.Domain()); !htsql.EqualDomains(d, k.Domain()) {
			k = b.castTo(k, d)
		}
		q.Kernels = append(q.Kernels, k)
		q.Titles = append(q.Titles, title(node))
	}
	return q, nil
}

func (b *Binder) bindLocate(n *ast.Locate, scope sem.Binding) (sem.Binding, error) {
	base, err := b.bindFlow(n.Base, scope)
	if err != nil {
		return nil, err
	}
	t := sem.TableOf(base)
	if t == nil {
		return nil, errorf(n.Base, "expected a table flow")
	}
	identity := t.Identity()
	if len(identity) == 0 {
		return nil, errorf(n.Base, "table %s has no identity", t)
	}
	labels := flattenLabels(n.Identity)
	if len(labels) != len(identity) {
		return nil, errorf(n.Identity, "expected %d labels; got %d", len(identity), len(labels))
	}
	var conds []sem.Binding
	for k, label := range labels {
		col := identity[k]
		var text string
		switch l := label.(type) {
		case *ast.Label:
			text = l.Text
		case *ast.Literal:
			text = l.Text
		}
		v, err := col.Domain.Parse(text)
		if err != nil {
			return nil, errorf(label, "invalid label for %s: %s", col.Name, err)
		}
		lhs := &sem.Column{Loc: sem.Loc{Scope: base, AST: label}, Column: col}
		rhs := &sem.Literal{Loc: sem.Loc{Scope: base, AST: label}, Value: v, Dom: col.Domain}
		conds = append(conds, &sem.Formula{
			Loc:  sem.Loc{Scope: base, AST: label},
			Sig:  sig.Equal,
			Args: []sem.Binding{lhs, rhs},
			Dom:  htsql.Boolean,
		})
	}
	filter := conds[0]
	if len(conds) > 1 {
		filter = &sem.Formula{Loc: sem.Loc{Scope: base, AST: n.Identity}, Sig: sig.And, Args: conds, Dom: htsql.Boolean}
	}
	return &sem.Sieve{Loc: sem.Loc{Scope: base, AST: n}, Filter: filter}, nil
}

func flattenLabels(n *ast.Identity) []ast.Node {
	var out []ast.Node
	for _, label := range n.Labels {
		if nested, ok := label.(*ast.Identity); ok {
			out = append(out, flattenLabels(nested)...)
		} else {
			out = append(out, label)
		}
	}
	return out
}

// checkElement rejects values that cannot be a field of an output row.
func (b *Binder) checkElement(x sem.Binding) error {
	switch {
	case isSelection(sem.Unwrap(x)):
		return errorf(x.Node(), "nested selections are not supported")
	case sem.IsFlow(sem.Unwrap(x)):
		return errorf(x.Node(), "expected a scalar expression; got a flow")
	case !htsql.IsScalar(x.Domain()):
		return errorf(x.Node(), "expected a scalar expression; got a value of type %s", x.Domain())
	}
	return nil
}

// title derives the default title of a selected expression from its
// syntax.
func title(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.Direction:
		return title(n.Base)
	case *ast.Group:
		return title(n.Arg)
	case *ast.Assign:
		return title(n.Lhs)
	case *ast.Call:
		if len(n.Args) == 0 {
			return n.Name
		}
	}
	return sfmt.Syntax(n)
}

func integerValue(v any) (int64, bool) {
	n, ok := v.(*big.Int)
	if !ok || !n.IsInt64() {
		return 0, false
	}
	return n.Int64(), true
}
