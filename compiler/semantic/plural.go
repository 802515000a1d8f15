package semantic

import (
	"fmt"

	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
)

// parent returns the flow a flow is built on: the root for a table, the
// quotient for a complement, the scope for anything else.  Decorations
// such as selections and definitions are their own layers.
func (b *Binder) parent(x sem.Binding) sem.Binding {
	switch x := x.(type) {
	case *sem.Root:
		return nil
	case *sem.Table:
		return b.root
	case *sem.Complement:
		return x.Quotient
	}
	return x.Base()
}

// axis is a layer of a flow that may change the number of rows: the
// root, a table, a link, an attachment, a quotient or a complement.
// Filters, sorts and decorations belong to the axis under them.
type axis struct {
	key      string
	singular bool
}

// axes lists the axes of a flow from its own to the root.  Axes that
// denote the same rows have the same key.
func (b *Binder) axes(x sem.Binding) []axis {
	var step string
	var singular bool
	switch x := x.(type) {
	case nil, *sem.Root:
		return []axis{{singular: true}}
	case *sem.Table:
		step = "/" + x.Table.Name
	case *sem.Attached:
		step, singular = fmt.Sprintf(".%p", x.Join), x.Join.IsSingular
	case *sem.Moniker:
		step = fmt.Sprintf("@%p", x)
	case *sem.Quotient:
		step = fmt.Sprintf("^%p", x)
	case *sem.Complement:
		step = "^"
	default:
		return b.axes(b.parent(x))
	}
	below := b.axes(b.parent(x))
	return append([]axis{{key: below[0].key + step, singular: singular}}, below...)
}

// spans reports whether every row of flow s determines at most one row
// of flow u.
func (b *Binder) spans(s, u sem.Binding) bool {
	keys := make(map[string]bool)
	for _, a := range b.axes(s) {
		keys[a.key] = true
	}
	for _, a := range b.axes(u) {
		if keys[a.key] {
			return true
		}
		if !a.singular {
			return false
		}
	}
	return false
}

// unitFlows collects the flows the values of x are drawn from.  The
// operand of an aggregate is not visited since the aggregate has a single
// value in its own scope.
func unitFlows(x sem.Binding, out []sem.Binding) []sem.Binding {
	switch x := x.(type) {
	case *sem.Column:
		return append(out, x.Scope)
	case *sem.Kernel:
		return append(out, x.Quotient)
	case *sem.Formula:
		if x.Sig == sig.Aggregate {
			return append(out, x.Scope)
		}
		for _, arg := range x.Args {
			out = unitFlows(arg, out)
		}
	case *sem.Cast:
		return unitFlows(x.Operand, out)
	case *sem.Direction:
		return unitFlows(x.Scope, out)
	}
	return out
}

// checkSingular rejects a value that may have more than one value for a
// row of flow.
func (b *Binder) checkSingular(flow, x sem.Binding) error {
	for _, u := range unitFlows(x, nil) {
		if !b.spans(flow, u) {
			return errorf(x.Node(), "expected a singular expression")
		}
	}
	return nil
}

// checkNestedLimit rejects a limit or an offset applied to the rows of a
// plural flow that are related to a row of scope: the slice would have to
// be taken separately for every row of scope.
func (b *Binder) checkNestedLimit(scope, plural sem.Binding, node ast.Node) error {
	ground := make(map[sem.Binding]bool)
	for s := scope; s != nil; s = b.parent(s) {
		ground[s] = true
	}
	var sliced bool
	for s := plural; s != nil; s = b.parent(s) {
		if ground[s] {
			if sliced && s != sem.Binding(b.root) {
				return errorf(node, "a limit is not supported in a nested flow")
			}
			return nil
		}
		if sort, ok := s.(*sem.Sort); ok && (sort.Limit != nil || sort.Offset != nil) {
			sliced = true
		}
	}
	return nil
}

// checkAggregate verifies the operand of an aggregate.  Without an
// explicit plural flow, the aggregate ranges over the deepest flow of its
// operand and the other flows must be singular in it.
func (b *Binder) checkAggregate(scope, plural, op sem.Binding, node ast.Node) error {
	flows := unitFlows(op, nil)
	if plural != nil {
		flows = append(flows, plural)
	}
	for _, f := range flows {
		if err := b.checkNestedLimit(scope, f, node); err != nil {
			return err
		}
	}
	if plural == nil {
		for _, f := range flows {
			if plural == nil || len(b.axes(f)) > len(b.axes(plural)) {
				plural = f
			}
		}
		if plural == nil {
			return nil
		}
	}
	return b.checkSingular(plural, op)
}
