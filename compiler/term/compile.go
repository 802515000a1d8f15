package term

import (
	"errors"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/dag"
	"github.com/brimdata/htsql/compiler/dagen"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
)

// errCorrelated signals that a space compiled relative to a ground space
// refers to values of the ground itself and has to be compiled together
// with a copy of the ground.
var errCorrelated = errors.New("correlated reference")

type Compiler struct {
	graph *dag.Graph
	tag   Tag
}

func NewCompiler(g *dag.Graph) *Compiler {
	return &Compiler{graph: g}
}

// Compile translates an encoded segment into a term tree.
func Compile(g *dag.Graph, seg *dagen.Segment) (*Segment, error) {
	return NewCompiler(g).Segment(seg)
}

func errorf(format string, args ...any) error {
	return srcfiles.New(srcfiles.CompileError, srcfiles.Mark{}, format, args...)
}

func (c *Compiler) Segment(seg *dagen.Segment) (*Segment, error) {
	t, err := c.on(seg.Space, c.scalar(), dag.None)
	if err != nil {
		return nil, err
	}
	codes := append([]dag.ID{}, seg.Elems...)
	for _, k := range seg.Order {
		codes = append(codes, k.Code)
	}
	if t, err = c.inject(t, c.graph.Units(codes...), dag.None); err != nil {
		return nil, err
	}
	return &Segment{
		Header: c.header(copyRoutes(t)),
		Kid:    t,
		Space:  seg.Space,
		Elems:  seg.Elems,
		Titles: seg.Titles,
		Order:  seg.Order,
	}, nil
}

func (c *Compiler) header(routes Routes) Header {
	c.tag++
	if routes == nil {
		routes = make(Routes)
	}
	return Header{Tag: c.tag, Routes: routes}
}

func copyRoutes(t Term) Routes {
	routes := make(Routes)
	for id, tag := range t.Head().Routes {
		routes[id] = tag
	}
	return routes
}

func (c *Compiler) routed(t Term, id dag.ID) bool {
	if id == c.graph.Root() {
		return true
	}
	_, ok := t.Head().Routes[id]
	return ok
}

// route makes space s evaluate wherever from does.
func route(t Term, s, from dag.ID) {
	routes := t.Head().Routes
	if tag, ok := routes[from]; ok {
		routes[s] = tag
	}
}

func (c *Compiler) scalar() *Scalar {
	return &Scalar{Header: c.header(nil)}
}

func (c *Compiler) table(table *catalog.Table, space dag.ID) *Table {
	t := &Table{Header: c.header(nil), Table: table, Space: space}
	t.Routes[space] = t.Tag
	return t
}

func (c *Compiler) filter(t Term, filter dag.ID) *Filter {
	return &Filter{Header: c.header(copyRoutes(t)), Kid: t, Filter: filter}
}

func (c *Compiler) projection(t Term, keys []dag.ID, exports []Export) *Projection {
	p := &Projection{Header: c.header(nil), Kid: t, Keys: keys, Exports: exports}
	for _, e := range exports {
		p.Routes[e.Unit] = p.Tag
	}
	return p
}

// join combines two terms.  Routes of the left side take priority.
func (c *Compiler) join(lhs, rhs Term, kind JoinKind, ties []Tie) Term {
	if _, ok := lhs.(*Scalar); ok && len(ties) == 0 {
		if kind != Left || keyless(rhs) {
			return rhs
		}
	}
	if kind == Inner && len(ties) == 0 {
		kind = Cross
	}
	routes := copyRoutes(rhs)
	for id, tag := range lhs.Head().Routes {
		routes[id] = tag
	}
	return &Join{Header: c.header(routes), Lhs: lhs, Rhs: rhs, Kind: kind, Ties: ties}
}

func keyless(t Term) bool {
	p, ok := t.(*Projection)
	return ok && len(p.Keys) == 0
}

func (c *Compiler) joinTies(base, space dag.ID, j *catalog.Join) []Tie {
	ties := make([]Tie, len(j.OriginColumns))
	for k := range j.OriginColumns {
		ties[k] = Tie{
			Lhs: c.graph.Add(&dag.ColumnUnit{Column: j.OriginColumns[k], Space: base}),
			Rhs: c.graph.Add(&dag.ColumnUnit{Column: j.TargetColumns[k], Space: space}),
		}
	}
	return ties
}

// nested reports whether an ordered space depends on the rows of ground,
// in which case its limit cannot be applied to the term as a whole.
func (c *Compiler) nested(s, ground dag.ID) bool {
	if ground == dag.None {
		return false
	}
	root := c.graph.Root()
	below := c.graph.Chain(ground)
	if contains(below, s) {
		return false
	}
	for _, x := range c.graph.Chain(s) {
		if x != root && contains(below, x) {
			return true
		}
	}
	return false
}

func contains(ids []dag.ID, id dag.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// on extends term t, which evaluates some ancestor of space s, so that it
// evaluates s itself.
func (c *Compiler) on(s dag.ID, t Term, ground dag.ID) (Term, error) {
	if c.routed(t, s) {
		return t, nil
	}
	g := c.graph
	var err error
	switch sp := g.Space(s).(type) {
	case *dag.DirectTable:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		return c.join(t, c.table(sp.Table, s), Cross, nil), nil
	case *dag.FiberTable:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		return c.join(t, c.table(sp.Join.Target, s), Inner, c.joinTies(sp.Base, s, sp.Join)), nil
	case *dag.Filtered:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		if t, err = c.inject(t, g.Units(sp.Filter), ground); err != nil {
			return nil, err
		}
		f := c.filter(t, sp.Filter)
		route(f, s, sp.Base)
		return f, nil
	case *dag.Ordered:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		return c.order(t, s, ground)
	case *dag.Moniker:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		if !c.routed(t, sp.Seed) {
			if t, err = c.on(sp.Seed, t, ground); err != nil {
				return nil, err
			}
			route(t, s, sp.Seed)
			return t, nil
		}
		seed, err := c.on(sp.Seed, c.scalar(), ground)
		if err != nil {
			return nil, err
		}
		tag := seed.Head().Routes[sp.Seed]
		t = c.join(t, seed, Cross, nil)
		t.Head().Routes[s] = tag
		return t, nil
	case *dag.Quotient:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		p, ties, err := c.quotient(s)
		if err != nil {
			return nil, err
		}
		return c.join(t, p, Inner, ties), nil
	case *dag.Complement:
		if t, err = c.on(sp.Base, t, ground); err != nil {
			return nil, err
		}
		seed, ties, err := c.complement(s)
		if err != nil {
			return nil, err
		}
		tag := seed.Head().Routes[s]
		t = c.join(t, seed, Inner, ties)
		t.Head().Routes[s] = tag
		return t, nil
	}
	return nil, errorf("cannot compile a space of type %T", g.Space(s))
}

// order applies an ordered space to t.  Only limited spaces need a term
// of their own; otherwise the ordering is left to the segment.
func (c *Compiler) order(t Term, s, ground dag.ID) (Term, error) {
	sp := c.graph.Space(s).(*dag.Ordered)
	if sp.Limit == nil && sp.Offset == nil {
		route(t, s, sp.Base)
		return t, nil
	}
	if c.nested(s, ground) {
		return nil, errorf("a limit is not supported in a nested flow")
	}
	keys := c.graph.Ordering(s)
	codes := make([]dag.ID, len(keys))
	for k, key := range keys {
		codes[k] = key.Code
	}
	t, err := c.inject(t, c.graph.Units(codes...), ground)
	if err != nil {
		return nil, err
	}
	o := &Order{Header: c.header(copyRoutes(t)), Kid: t, Order: keys, Limit: sp.Limit, Offset: sp.Offset}
	route(o, s, sp.Base)
	return o, nil
}

// relate compiles space s relative to its ancestor ground.  The result
// evaluates s and the given units; the ties connect ground codes, which
// the caller evaluates, to codes of the result.  When s refers to ground
// values, the result contains its own copy of the ground and is tied to
// it by identity.
func (c *Compiler) relate(s, ground dag.ID, units []dag.ID) (Term, []Tie, error) {
	t, ties, err := c.rel(s, ground)
	if err == nil {
		if t == nil {
			return nil, nil, errorf("expected a plural space")
		}
		t, err = c.inject(t, units, ground)
	}
	if !errors.Is(err, errCorrelated) {
		return t, ties, err
	}
	if t, err = c.on(s, c.scalar(), ground); err != nil {
		return nil, nil, err
	}
	if t, err = c.inject(t, units, ground); err != nil {
		return nil, nil, err
	}
	ties = nil
	for _, id := range c.graph.Identity(ground) {
		ties = append(ties, Tie{Lhs: id, Rhs: id})
	}
	return t, ties, nil
}

// rel builds the layers of s above ground without the ground itself.  It
// returns a nil term when s is the ground.
func (c *Compiler) rel(s, ground dag.ID) (Term, []Tie, error) {
	if s == ground {
		return nil, nil, nil
	}
	g := c.graph
	switch sp := g.Space(s).(type) {
	case *dag.DirectTable:
		if sp.Base != ground {
			return nil, nil, errCorrelated
		}
		return c.table(sp.Table, s), nil, nil
	case *dag.FiberTable:
		t, ties, err := c.rel(sp.Base, ground)
		if err != nil {
			return nil, nil, err
		}
		table := c.table(sp.Join.Target, s)
		jt := c.joinTies(sp.Base, s, sp.Join)
		if t == nil {
			return table, jt, nil
		}
		return c.join(t, table, Inner, jt), ties, nil
	case *dag.Filtered:
		t, ties, err := c.rel(sp.Base, ground)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			return nil, nil, errCorrelated
		}
		if t, err = c.inject(t, g.Units(sp.Filter), ground); err != nil {
			return nil, nil, err
		}
		f := c.filter(t, sp.Filter)
		route(f, s, sp.Base)
		return f, ties, nil
	case *dag.Ordered:
		if (sp.Limit != nil || sp.Offset != nil) && ground != g.Root() {
			return nil, nil, errorf("a limit is not supported in a nested flow")
		}
		t, ties, err := c.rel(sp.Base, ground)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			return nil, nil, errCorrelated
		}
		t, err = c.order(t, s, ground)
		return t, ties, err
	case *dag.Moniker:
		t, ties, err := c.rel(sp.Base, ground)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			t, err = c.on(s, t, ground)
			return t, ties, err
		}
		seed, err := c.on(sp.Seed, c.scalar(), ground)
		if err != nil {
			return nil, nil, err
		}
		route(seed, s, sp.Seed)
		return seed, nil, nil
	case *dag.Complement:
		if sp.Base != ground {
			return nil, nil, errCorrelated
		}
		return c.complement(s)
	}
	return nil, nil, errCorrelated
}

// quotient builds the projection of distinct kernel values of a quotient
// space.
func (c *Compiler) quotient(s dag.ID) (*Projection, []Tie, error) {
	g := c.graph
	q := g.Space(s).(*dag.Quotient)
	t, ties, err := c.relate(q.Seed, q.Base, q.Kernels)
	if err != nil {
		return nil, nil, err
	}
	var checks []dag.ID
	for _, k := range q.Kernels {
		isNull := g.Add(&dag.Formula{Sig: sig.IsNull, Args: []dag.ID{k}, Dom: htsql.Boolean})
		checks = append(checks, g.Add(&dag.Formula{Sig: sig.Not, Args: []dag.ID{isNull}, Dom: htsql.Boolean}))
	}
	cond := checks[0]
	if len(checks) > 1 {
		cond = g.Add(&dag.Formula{Sig: sig.And, Args: checks, Dom: htsql.Boolean})
	}
	t = c.filter(t, cond)
	keys := append([]dag.ID{}, q.Kernels...)
	var exports []Export
	for k, kernel := range q.Kernels {
		exports = append(exports, Export{Unit: g.Kernel(s, k), Value: kernel})
	}
	keys, exports = tieExports(keys, exports, ties)
	p := c.projection(t, keys, exports)
	p.Routes[s] = p.Tag
	return p, ties, nil
}

// tieExports adds the inner side of ties to the keys and the exports of
// a projection.
func tieExports(keys []dag.ID, exports []Export, ties []Tie) ([]dag.ID, []Export) {
	for _, tie := range ties {
		if contains(keys, tie.Rhs) {
			continue
		}
		keys = append(keys, tie.Rhs)
		exports = append(exports, Export{Unit: tie.Rhs, Value: tie.Rhs})
	}
	return keys, exports
}

// complement builds the seed rows of a quotient tied to the quotient
// rows by the kernel values.
func (c *Compiler) complement(s dag.ID) (Term, []Tie, error) {
	g := c.graph
	cp := g.Space(s).(*dag.Complement)
	q := g.Space(cp.Base).(*dag.Quotient)
	t, ties, err := c.relate(q.Seed, q.Base, q.Kernels)
	if err != nil {
		return nil, nil, err
	}
	for k, kernel := range q.Kernels {
		ties = append(ties, Tie{Lhs: g.Kernel(cp.Base, k), Rhs: kernel})
	}
	route(t, s, q.Seed)
	return t, ties, nil
}

// inject extends t so that it evaluates the given units.  Columns and
// kernels pull in their spaces with left joins.  Aggregates over the same
// plural space are computed by one projection.
func (c *Compiler) inject(t Term, units []dag.ID, ground dag.ID) (Term, error) {
	g := c.graph
	type group struct {
		plural, space dag.ID
		units         []dag.ID
	}
	var groups []*group
	var err error
	for _, u := range units {
		if _, ok := t.Head().Routes[u]; ok {
			continue
		}
		switch unit := g.Code(u).(type) {
		case *dag.ColumnUnit:
			t, err = c.ensure(t, unit.Space, ground)
		case *dag.KernelUnit:
			t, err = c.ensure(t, unit.Quotient, ground)
		case *dag.AggregateUnit:
			var grp *group
			for _, x := range groups {
				if x.plural == unit.Plural && x.space == unit.Space {
					grp = x
				}
			}
			if grp == nil {
				grp = &group{plural: unit.Plural, space: unit.Space}
				groups = append(groups, grp)
			}
			if !contains(grp.units, u) {
				grp.units = append(grp.units, u)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	for _, grp := range groups {
		if t, err = c.ensure(t, grp.space, ground); err != nil {
			return nil, err
		}
		if t, err = c.aggregate(t, grp.plural, grp.space, grp.units); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c *Compiler) aggregate(t Term, plural, space dag.ID, units []dag.ID) (Term, error) {
	g := c.graph
	ground := space
	if !contains(g.Chain(plural), space) {
		ground = g.Axis(space)
	}
	var operands []dag.ID
	for _, u := range units {
		operands = append(operands, g.Units(g.Code(u).(*dag.AggregateUnit).Code)...)
	}
	inner, ties, err := c.relate(plural, ground, operands)
	if err != nil {
		return nil, err
	}
	var exports []Export
	for _, u := range units {
		exports = append(exports, Export{Unit: u, Value: g.Code(u).(*dag.AggregateUnit).Code})
	}
	keys, exports := tieExports(nil, exports, ties)
	kind := Left
	if len(ties) == 0 {
		kind = Cross
	}
	return c.join(t, c.projection(inner, keys, exports), kind, ties), nil
}

// ensure extends t so that it evaluates space u, which must be singular
// in the space of t.
func (c *Compiler) ensure(t Term, u, ground dag.ID) (Term, error) {
	if c.routed(t, u) {
		return t, nil
	}
	g := c.graph
	var path []dag.ID
	a := u
	for !c.routed(t, a) {
		if ground != dag.None && contains(g.Chain(ground), a) {
			return nil, errCorrelated
		}
		path = append(path, a)
		a = g.Base(a)
	}
	if c.fibers(path) {
		for k := len(path) - 1; k >= 0; k-- {
			fiber := g.Space(path[k]).(*dag.FiberTable)
			t = c.join(t, c.table(fiber.Join.Target, path[k]), Left, c.joinTies(fiber.Base, path[k], fiber.Join))
		}
		return t, nil
	}
	inner, ties, err := c.relate(u, a, nil)
	if err != nil {
		return nil, err
	}
	return c.join(t, inner, Left, ties), nil
}

func (c *Compiler) fibers(path []dag.ID) bool {
	for _, id := range path {
		if !c.graph.IsSingular(id) {
			return false
		}
	}
	return true
}
