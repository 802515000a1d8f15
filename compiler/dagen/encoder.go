// Package dagen lowers a binding tree to the relational graph of package
// dag.  Flows become spaces and values become codes over those spaces.
package dagen

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/dag"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
)

// Segment is an encoded query: the space of output rows, one code per
// output column and the row order.
type Segment struct {
	Space  dag.ID
	Elems  []dag.ID
	Titles []string
	Order  []dag.Key
}

type Encoder struct {
	graph *dag.Graph
	// limit, when positive, caps the number of rows of a segment.
	limit int64
}

func NewEncoder(limit int64) *Encoder {
	return &Encoder{graph: dag.NewGraph(), limit: limit}
}

func (e *Encoder) Graph() *dag.Graph { return e.graph }

// Encode lowers a bound segment into a new graph.
func Encode(seg *sem.Segment, limit int64) (*dag.Graph, *Segment, error) {
	e := NewEncoder(limit)
	s, err := e.Segment(seg)
	if err != nil {
		return nil, nil, err
	}
	return e.graph, s, nil
}

func errorf(b sem.Binding, format string, args ...any) error {
	var mark srcfiles.Mark
	if b != nil {
		mark = sem.Mark(b)
	}
	return srcfiles.New(srcfiles.EncodeError, mark, format, args...)
}

func (e *Encoder) Segment(seg *sem.Segment) (*Segment, error) {
	space, err := e.Relate(seg.Seed)
	if err != nil {
		return nil, err
	}
	out := &Segment{Titles: seg.Titles}
	var keys []dag.Key
	for _, elem := range seg.Elems {
		code, err := e.Encode(elem)
		if err != nil {
			return nil, err
		}
		if err := e.checkSingular(space, code, elem); err != nil {
			return nil, err
		}
		out.Elems = append(out.Elems, code)
		if d, ok := elem.(*sem.Direction); ok {
			keys = append(keys, dag.Key{Code: code, Dir: d.Dir})
		}
	}
	if e.limit > 0 && !e.limited(space) {
		limit := e.limit
		space = e.graph.Add(&dag.Ordered{Base: space, Order: keys, Limit: &limit})
		keys = nil
	}
	out.Space = space
	out.Order = dedup(append(keys, e.graph.Ordering(space)...))
	return out, nil
}

// limited reports whether the outermost ordering of a space already has
// a limit within the ceiling.
func (e *Encoder) limited(space dag.ID) bool {
	for id := space; id != dag.None; id = e.graph.Base(id) {
		switch s := e.graph.Space(id).(type) {
		case *dag.Ordered:
			if s.Limit != nil && *s.Limit <= e.limit {
				return true
			}
		case *dag.Filtered:
		default:
			return e.graph.IsSingular(id) && e.limited(e.graph.Base(id))
		}
	}
	return false
}

func dedup(keys []dag.Key) []dag.Key {
	seen := make(map[dag.ID]bool)
	var out []dag.Key
	for _, k := range keys {
		if !seen[k.Code] {
			seen[k.Code] = true
			out = append(out, k)
		}
	}
	return out
}

// Relate lowers a flow to a space.
func (e *Encoder) Relate(b sem.Binding) (dag.ID, error) {
	g := e.graph
	switch b := b.(type) {
	case *sem.Root:
		return g.Root(), nil
	case *sem.Table:
		return g.Add(&dag.DirectTable{Base: g.Root(), Table: b.Table}), nil
	case *sem.Attached:
		base, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		return g.Add(&dag.FiberTable{Base: base, Join: b.Join}), nil
	case *sem.Moniker:
		base, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		seed, err := e.Relate(b.Seed)
		if err != nil {
			return dag.None, err
		}
		return g.Add(&dag.Moniker{Base: base, Seed: seed}), nil
	case *sem.Sieve:
		base, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		filter, err := e.Encode(b.Filter)
		if err != nil {
			return dag.None, err
		}
		if err := e.checkSingular(base, filter, b.Filter); err != nil {
			return dag.None, err
		}
		return g.Add(&dag.Filtered{Base: base, Filter: filter}), nil
	case *sem.Sort:
		base, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		var keys []dag.Key
		for _, o := range b.Order {
			dir := 1
			if d, ok := o.(*sem.Direction); ok {
				dir = d.Dir
			}
			code, err := e.Encode(o)
			if err != nil {
				return dag.None, err
			}
			if err := e.checkSingular(base, code, o); err != nil {
				return dag.None, err
			}
			keys = append(keys, dag.Key{Code: code, Dir: dir})
		}
		if len(keys) == 0 && b.Limit == nil && b.Offset == nil {
			return base, nil
		}
		return g.Add(&dag.Ordered{Base: base, Order: keys, Limit: b.Limit, Offset: b.Offset}), nil
	case *sem.Quotient:
		base, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		seed, err := e.Relate(b.Seed)
		if err != nil {
			return dag.None, err
		}
		if g.Spans(base, seed) {
			return dag.None, errorf(b.Seed, "expected a plural flow")
		}
		var kernels []dag.ID
		for _, k := range b.Kernels {
			code, err := e.Encode(k)
			if err != nil {
				return dag.None, err
			}
			if err := e.checkSingular(seed, code, k); err != nil {
				return dag.None, err
			}
			kernels = append(kernels, code)
		}
		return g.Add(&dag.Quotient{Base: base, Seed: seed, Kernels: kernels}), nil
	case *sem.Complement:
		q, err := e.Relate(b.Quotient)
		if err != nil {
			return dag.None, err
		}
		return g.Add(&dag.Complement{Base: q}), nil
	case *sem.Definition, *sem.Selection, *sem.Direction:
		return e.Relate(b.Base())
	}
	return dag.None, errorf(b, "expected a flow")
}

// Encode lowers a value to a code.
func (e *Encoder) Encode(b sem.Binding) (dag.ID, error) {
	g := e.graph
	switch b := b.(type) {
	case *sem.Literal:
		dom := b.Dom
		if dom.Kind() == htsql.KindUntyped && b.Value != nil {
			dom = htsql.Text
		}
		return g.Add(&dag.Literal{Value: b.Value, Dom: dom}), nil
	case *sem.Cast:
		base, err := e.Encode(b.Operand)
		if err != nil {
			return dag.None, err
		}
		if htsql.EqualDomains(g.Code(base).Domain(), b.Dom) {
			return base, nil
		}
		return g.Add(&dag.Cast{Base: base, Dom: b.Dom}), nil
	case *sem.Column:
		space, err := e.Relate(b.Scope)
		if err != nil {
			return dag.None, err
		}
		return g.Add(&dag.ColumnUnit{Column: b.Column, Space: space}), nil
	case *sem.Kernel:
		q, err := e.Relate(b.Quotient)
		if err != nil {
			return dag.None, err
		}
		return g.Kernel(q, b.Index), nil
	case *sem.Formula:
		if b.Sig == sig.Aggregate {
			return e.aggregate(b)
		}
		args := make([]dag.ID, 0, len(b.Args))
		for _, arg := range b.Args {
			code, err := e.Encode(arg)
			if err != nil {
				return dag.None, err
			}
			args = append(args, code)
		}
		return g.Add(&dag.Formula{Sig: b.Sig, Args: args, Dom: b.Dom}), nil
	case *sem.Direction:
		return e.Encode(b.Scope)
	}
	return dag.None, errorf(b, "expected a scalar expression")
}

func (e *Encoder) aggregate(f *sem.Formula) (dag.ID, error) {
	g := e.graph
	space, err := e.Relate(f.Scope)
	if err != nil {
		return dag.None, err
	}
	inner := f.Args[0].(*sem.Formula)
	op, err := e.Encode(inner.Args[0])
	if err != nil {
		return dag.None, err
	}
	var plural dag.ID
	if f.Plural != nil {
		if plural, err = e.Relate(f.Plural); err != nil {
			return dag.None, err
		}
	} else {
		// Without an explicit flow the aggregate ranges over the deepest
		// space its operand refers to.
		plural = dag.None
		for _, u := range g.Units(op) {
			s := g.UnitSpace(u)
			if plural == dag.None || len(g.Chain(s)) > len(g.Chain(plural)) {
				plural = s
			}
		}
		if plural == dag.None {
			return dag.None, errorf(f, "expected a plural operand")
		}
	}
	if !contains(g.Chain(plural), space) && !contains(g.Axes(plural), g.Axis(space)) {
		plural = g.Add(&dag.Moniker{Base: space, Seed: plural})
	}
	if g.Spans(space, plural) {
		return dag.None, errorf(f, "expected a plural operand")
	}
	if err := e.checkSingular(plural, op, inner.Args[0]); err != nil {
		return dag.None, err
	}
	code := g.Add(&dag.Formula{Sig: inner.Sig, Args: []dag.ID{op}, Dom: inner.Dom})
	return g.Add(&dag.AggregateUnit{Code: code, Plural: plural, Space: space, Dom: f.Dom}), nil
}

func contains(ids []dag.ID, id dag.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// checkSingular verifies that every unit of a code has at most one value
// for each row of space.  The binder rejects such expressions with the
// same bind error; this covers binding trees built without it.
func (e *Encoder) checkSingular(space, code dag.ID, b sem.Binding) error {
	for _, u := range e.graph.Units(code) {
		if !e.graph.Spans(space, e.graph.UnitSpace(u)) {
			return srcfiles.New(srcfiles.BindError, sem.Mark(b), "expected a singular expression")
		}
	}
	return nil
}
