package semantic

import (
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/semantic/sem"
)

func (b *Binder) bindSelector(n *ast.Selector, scope sem.Binding) (sem.Binding, error) {
	base := scope
	if n.Base != nil {
		var err error
		if base, err = b.bind(n.Base, scope); err != nil {
			return nil, err
		}
	}
	base = sem.Unwrap(base)
	if !sem.IsFlow(base) {
		return nil, errorf(n, "expected a flow; got a value of type %s", base.Domain())
	}
	sel := &sem.Selection{Loc: sem.Loc{Scope: flowOf(base), AST: n}}
	for _, elem := range n.Elems {
		if w, ok := elem.(*ast.Wildcard); ok {
			elems, titles, err := b.fields(base, w)
			if err != nil {
				return nil, err
			}
			if w.Index > 0 {
				if w.Index > len(elems) {
					return nil, errorf(w, "wildcard index %d is out of range; the flow has %d fields", w.Index, len(elems))
				}
				elems, titles = elems[w.Index-1:w.Index], titles[w.Index-1:w.Index]
			}
			sel.Elems = append(sel.Elems, elems...)
			sel.Titles = append(sel.Titles, titles...)
			continue
		}
		node := elem
		if a, ok := elem.(*ast.Assign); ok {
			if _, ok := a.Lhs.(*ast.Identifier); !ok {
				return nil, errorf(a.Lhs, "expected a field name")
			}
			node = a.Rhs
		}
		x, err := b.bind(node, base)
		if err != nil {
			return nil, err
		}
		if err := b.checkElement(x); err != nil {
			return nil, err
		}
		sel.Elems = append(sel.Elems, x)
		sel.Titles = append(sel.Titles, title(elem))
	}
	return sel, nil
}

// fields returns the public fields of a flow: the fields of a selection,
// the kernels of a quotient or the columns of a table.
func (b *Binder) fields(flow sem.Binding, node ast.Node) ([]sem.Binding, []string, error) {
	switch f := flow.(type) {
	case *sem.Selection:
		return f.Elems, f.Titles, nil
	case *sem.Quotient:
		elems := make([]sem.Binding, len(f.Kernels))
		for k := range f.Kernels {
			elems[k] = &sem.Kernel{Loc: sem.Loc{Scope: f, AST: node}, Quotient: f, Index: k}
		}
		return elems, f.Titles, nil
	case *sem.Sieve, *sem.Sort, *sem.Definition:
		if q := quotientOf(f); q != nil {
			elems, titles, _ := b.fields(q, node)
			for k := range elems {
				elems[k] = &sem.Kernel{Loc: sem.Loc{Scope: f, AST: node}, Quotient: q, Index: k}
			}
			return elems, titles, nil
		}
	}
	t := sem.TableOf(flow)
	if t == nil {
		return nil, nil, errorf(node, "expected a flow with fields")
	}
	var elems []sem.Binding
	var titles []string
	for _, c := range t.Columns {
		elems = append(elems, &sem.Column{Loc: sem.Loc{Scope: flow, AST: node}, Column: c})
		titles = append(titles, c.Name)
	}
	return elems, titles, nil
}

// quotientOf finds the quotient under filters, sorts and definitions.
func quotientOf(x sem.Binding) *sem.Quotient {
	for {
		switch f := x.(type) {
		case *sem.Quotient:
			return f
		case *sem.Sieve, *sem.Sort, *sem.Definition:
			x = f.Base()
		default:
			return nil
		}
	}
}
