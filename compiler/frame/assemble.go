package frame

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/dag"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/brimdata/htsql/compiler/term"
)

// Paginator rewrites a frame with a limit or an offset for backends that
// cannot express them directly.  The replacement must keep the tag and
// the outputs of the original frame.  New frames get tags from next.
type Paginator interface {
	Paginate(s *Select, next func() Tag) *Select
}

type Assembler struct {
	graph     *dag.Graph
	paginator Paginator
	tag       Tag
}

func NewAssembler(g *dag.Graph, p Paginator) *Assembler {
	return &Assembler{graph: g, paginator: p}
}

// Assemble turns a term tree into a frame tree.  A nil paginator leaves
// limits and offsets on the frames.
func Assemble(g *dag.Graph, seg *term.Segment, p Paginator) (*Segment, error) {
	return NewAssembler(g, p).Segment(seg)
}

func errorf(format string, args ...any) error {
	return srcfiles.New(srcfiles.AssembleError, srcfiles.Mark{}, format, args...)
}

func (a *Assembler) next() Tag {
	a.tag++
	return a.tag
}

// owner tells a builder where the values of a leaf term come from: a
// table anchored in the frame, a nested frame, or the projection computed
// by the frame itself.
type owner struct {
	table  *Table
	nested *builder
	anchor *Anchor
	self   bool
}

// builder accumulates one select frame.
type builder struct {
	asm    *Assembler
	frame  *Select
	routes term.Routes
	owners map[term.Tag]*owner
	// values of the units a projection computes
	values map[dag.ID]Phrase
	// outputs maps codes exported through the select list of a nested
	// frame to their positions.
	outputs map[dag.ID]int
}

func (a *Assembler) newBuilder(routes term.Routes) *builder {
	return &builder{
		asm:     a,
		frame:   &Select{Tag: a.next()},
		routes:  routes,
		owners:  make(map[term.Tag]*owner),
		outputs: make(map[dag.ID]int),
	}
}

// closed reports whether anything added to the frame would change the
// meaning of its grouping or pagination.
func (b *builder) closed() bool {
	return b.frame.Grouped || b.frame.Limit != nil || b.frame.Offset != nil
}

func (b *builder) include(f Frame, kind term.JoinKind) *Anchor {
	if len(b.frame.Include) == 0 {
		kind = term.Cross
	}
	anchor := &Anchor{Frame: f, Kind: kind}
	b.frame.Include = append(b.frame.Include, anchor)
	return anchor
}

func (b *builder) includeTable(tag term.Tag, table *catalog.Table, kind term.JoinKind) *Anchor {
	t := &Table{Tag: b.asm.next(), Table: table}
	anchor := b.include(t, kind)
	b.owners[tag] = &owner{table: t, anchor: anchor}
	return anchor
}

func (b *builder) includeNested(nested *builder, kind term.JoinKind) *Anchor {
	anchor := b.include(nested.frame, kind)
	for tag := range nested.owners {
		b.owners[tag] = &owner{nested: nested, anchor: anchor}
	}
	return anchor
}

// wrap makes the frame of b a nested frame of a new builder.
func (a *Assembler) wrap(b *builder) *builder {
	outer := a.newBuilder(b.routes)
	outer.includeNested(b, term.Cross)
	return outer
}

// open builds t and wraps the result when it cannot be extended.
func (a *Assembler) open(t term.Term, routes term.Routes) (*builder, error) {
	b, err := a.build(t)
	if err != nil {
		return nil, err
	}
	if b.closed() {
		b = a.wrap(b)
	}
	b.routes = routes
	return b, nil
}

func (a *Assembler) build(t term.Term) (*builder, error) {
	switch t := t.(type) {
	case *term.Scalar:
		return a.newBuilder(t.Routes), nil
	case *term.Table:
		b := a.newBuilder(t.Routes)
		b.includeTable(t.Tag, t.Table, term.Cross)
		return b, nil
	case *term.Filter:
		b, err := a.open(t.Kid, t.Routes)
		if err != nil {
			return nil, err
		}
		cond, err := b.phrase(t.Filter, b.routes)
		if err != nil {
			return nil, err
		}
		b.frame.Where = And(b.frame.Where, cond)
		return b, nil
	case *term.Order:
		b, err := a.open(t.Kid, t.Routes)
		if err != nil {
			return nil, err
		}
		if b.frame.Order, err = b.order(t.Order); err != nil {
			return nil, err
		}
		b.frame.Limit, b.frame.Offset = t.Limit, t.Offset
		return b, nil
	case *term.Join:
		return a.join(t)
	case *term.Projection:
		return a.projection(t)
	}
	return nil, errorf("unexpected term %T", t)
}

func (a *Assembler) join(t *term.Join) (*builder, error) {
	b, err := a.open(t.Lhs, t.Routes)
	if err != nil {
		return nil, err
	}
	first := len(b.frame.Include) == 0
	var anchor *Anchor
	if table, ok := t.Rhs.(*term.Table); ok {
		anchor = b.includeTable(table.Tag, table.Table, t.Kind)
	} else {
		nested, err := a.build(t.Rhs)
		if err != nil {
			return nil, err
		}
		anchor = b.includeNested(nested, t.Kind)
	}
	var conds []Phrase
	for _, tie := range t.Ties {
		lhs, err := b.phrase(tie.Lhs, t.Lhs.Head().Routes)
		if err != nil {
			return nil, err
		}
		rhs, err := b.phrase(tie.Rhs, t.Rhs.Head().Routes)
		if err != nil {
			return nil, err
		}
		conds = append(conds, NewFormula(sig.Equal, htsql.Boolean, lhs, rhs))
	}
	on := And(conds...)
	switch {
	case first:
		b.frame.Where = And(b.frame.Where, on)
	case on != nil:
		anchor.On = on
	case anchor.Kind != term.Cross:
		anchor.On = True
	}
	return b, nil
}

func (a *Assembler) projection(t *term.Projection) (*builder, error) {
	b, err := a.open(t.Kid, t.Kid.Head().Routes)
	if err != nil {
		return nil, err
	}
	for _, key := range t.Keys {
		p, err := b.phrase(key, b.routes)
		if err != nil {
			return nil, err
		}
		b.frame.Group = append(b.frame.Group, p)
	}
	b.values = make(map[dag.ID]Phrase)
	for _, e := range t.Exports {
		p, err := b.phrase(e.Value, b.routes)
		if err != nil {
			return nil, err
		}
		b.values[e.Unit] = p
	}
	b.frame.Grouped = true
	b.owners[t.Tag] = &owner{self: true}
	b.routes = t.Routes
	return b, nil
}

func (b *builder) order(keys []dag.Key) ([]Order, error) {
	var out []Order
	for _, k := range keys {
		p, err := b.phrase(k.Code, b.routes)
		if err != nil {
			return nil, err
		}
		out = append(out, Order{Phrase: p, Dir: k.Dir})
	}
	return out, nil
}

// phrase translates a code using routes to find the leaf terms of its
// units.
func (b *builder) phrase(code dag.ID, routes term.Routes) (Phrase, error) {
	if tag, ok := routes[code]; ok {
		return b.unit(code, tag)
	}
	switch c := b.asm.graph.Code(code).(type) {
	case *dag.Literal:
		return &Literal{Value: c.Value, Dom: c.Dom}, nil
	case *dag.Cast:
		base, err := b.phrase(c.Base, routes)
		if err != nil {
			return nil, err
		}
		return &Cast{Base: base, Dom: c.Dom}, nil
	case *dag.Formula:
		args := make([]Phrase, 0, len(c.Args))
		for _, arg := range c.Args {
			p, err := b.phrase(arg, routes)
			if err != nil {
				return nil, err
			}
			args = append(args, p)
		}
		return NewFormula(c.Sig, c.Dom, args...), nil
	case *dag.ColumnUnit:
		if tag, ok := b.columnRoute(c.Space, routes); ok {
			return b.unit(code, tag)
		}
	}
	return nil, errorf("cannot find a frame for code %d", code)
}

// columnRoute finds the leaf term of a column over space.  A filtered or
// ordered space has the columns of its base, so when space itself is not
// routed the search continues down to the base.
func (b *builder) columnRoute(space dag.ID, routes term.Routes) (term.Tag, bool) {
	for {
		if tag, ok := routes[space]; ok {
			return tag, true
		}
		switch b.asm.graph.Space(space).(type) {
		case *dag.Filtered, *dag.Ordered:
			space = b.asm.graph.Base(space)
		default:
			return 0, false
		}
	}
}

func (b *builder) unit(code dag.ID, tag term.Tag) (Phrase, error) {
	o, ok := b.owners[tag]
	if !ok {
		return nil, errorf("term %d is not in the frame", tag)
	}
	switch {
	case o.self:
		if p, ok := b.values[code]; ok {
			return p, nil
		}
	case o.nested != nil:
		k, p, err := o.nested.export(code)
		if err != nil {
			return nil, err
		}
		return &Reference{
			Tag:      o.nested.frame.Tag,
			Index:    k,
			Dom:      p.Domain(),
			Nullable: p.IsNullable() || o.anchor.Kind == term.Left,
		}, nil
	case o.table != nil:
		if c, ok := b.asm.graph.Code(code).(*dag.ColumnUnit); ok {
			return &Column{
				Tag:      o.table.Tag,
				Column:   c.Column,
				Nullable: c.Column.Nullable || o.anchor.Kind == term.Left,
			}, nil
		}
	}
	return nil, errorf("term %d does not evaluate code %d", tag, code)
}

// export adds a code to the outputs of a nested frame.
func (b *builder) export(code dag.ID) (int, Phrase, error) {
	if k, ok := b.outputs[code]; ok {
		return k, b.frame.Select[k], nil
	}
	p, err := b.phrase(code, b.routes)
	if err != nil {
		return 0, nil, err
	}
	// Distinct codes may evaluate to the same phrase, such as a column
	// over a table and over an ordered copy of it.
	for k, q := range b.frame.Select {
		if Equal(p, q) {
			b.outputs[code] = k
			return k, q, nil
		}
	}
	k := len(b.frame.Select)
	b.frame.Select = append(b.frame.Select, p)
	b.outputs[code] = k
	return k, p, nil
}

func (a *Assembler) Segment(t *term.Segment) (*Segment, error) {
	b, err := a.build(t.Kid)
	if err != nil {
		return nil, err
	}
	b.routes = t.Routes
	order, err := b.order(t.Order)
	if err != nil {
		return nil, err
	}
	if (b.frame.Limit != nil || b.frame.Offset != nil) && !sameOrder(b.frame.Order, order) {
		b = a.wrap(b)
		if order, err = b.order(t.Order); err != nil {
			return nil, err
		}
	}
	for _, elem := range t.Elems {
		p, err := b.phrase(elem, b.routes)
		if err != nil {
			return nil, err
		}
		b.frame.Select = append(b.frame.Select, p)
	}
	b.frame.Order = order
	top := b.frame
	a.finish(top)
	if a.paginator != nil {
		top = a.paginate(top)
	}
	return &Segment{Select: top, Titles: t.Titles}, nil
}

func sameOrder(a, b []Order) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k].Dir != b[k].Dir || !Equal(a[k].Phrase, b[k].Phrase) {
			return false
		}
	}
	return true
}

// finish gives an output to nested frames nobody refers to.
func (a *Assembler) finish(top *Select) {
	Walk(top, func(s *Select) {
		if s != top && len(s.Select) == 0 {
			s.Select = []Phrase{True}
		}
	})
}

func (a *Assembler) paginate(s *Select) *Select {
	for _, anchor := range s.Include {
		if nested, ok := anchor.Frame.(*Select); ok {
			anchor.Frame = a.paginate(nested)
		}
	}
	if s.Limit == nil && s.Offset == nil {
		return s
	}
	return a.paginator.Paginate(s, a.next)
}
