package dag

import (
	"fmt"

	"github.com/brimdata/htsql/catalog"
)

// Graph is an arena of interned spaces and codes.  The root space always
// has ID 0.
type Graph struct {
	nodes []Node
	index map[string]ID
}

func NewGraph() *Graph {
	g := &Graph{index: make(map[string]ID)}
	g.Add(&Root{})
	return g
}

func (g *Graph) Root() ID { return 0 }

// Add interns n and returns its ID.  Adding a node equal to one already
// in the graph returns the existing ID.
func (g *Graph) Add(n Node) ID {
	k := n.key()
	if id, ok := g.index[k]; ok {
		return id
	}
	id := ID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.index[k] = id
	return id
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Node(id ID) Node { return g.nodes[id] }

func (g *Graph) Space(id ID) Space {
	s, ok := g.nodes[id].(Space)
	if !ok {
		panic(fmt.Sprintf("dag: node %d is not a space", id))
	}
	return s
}

func (g *Graph) Code(id ID) Code {
	c, ok := g.nodes[id].(Code)
	if !ok {
		panic(fmt.Sprintf("dag: node %d is not a code", id))
	}
	return c
}

func (g *Graph) IsSpace(id ID) bool {
	_, ok := g.nodes[id].(Space)
	return ok
}

// Base returns the parent of a space or None for the root.
func (g *Graph) Base(id ID) ID {
	switch s := g.Space(id).(type) {
	case *DirectTable:
		return s.Base
	case *FiberTable:
		return s.Base
	case *Quotient:
		return s.Base
	case *Complement:
		return s.Base
	case *Moniker:
		return s.Base
	case *Filtered:
		return s.Base
	case *Ordered:
		return s.Base
	}
	return None
}

// Axis strips filters and orderings from a space.  Axes are the spaces
// that change the shape of a row set: the root, tables, quotients,
// complements and monikers.
func (g *Graph) Axis(id ID) ID {
	for {
		switch s := g.Space(id).(type) {
		case *Filtered:
			id = s.Base
		case *Ordered:
			id = s.Base
		default:
			return id
		}
	}
}

// Chain lists the layers of a space from the space itself to the root.
func (g *Graph) Chain(id ID) []ID {
	var out []ID
	for ; id != None; id = g.Base(id) {
		out = append(out, id)
	}
	return out
}

// Axes lists the axes of a space from its own axis to the root.
func (g *Graph) Axes(id ID) []ID {
	var out []ID
	for id != None {
		id = g.Axis(id)
		out = append(out, id)
		id = g.Base(id)
	}
	return out
}

// IsSingular reports whether an axis has at most one row for each row of
// its base.
func (g *Graph) IsSingular(id ID) bool {
	f, ok := g.Space(id).(*FiberTable)
	return ok && f.Join.IsSingular
}

// Spans reports whether every row of space s determines at most one row
// of space u, that is, whether a value over u is singular in s.
func (g *Graph) Spans(s, u ID) bool {
	axes := make(map[ID]bool)
	for _, a := range g.Axes(s) {
		axes[a] = true
	}
	for x := u; x != None; x = g.Base(x) {
		x = g.Axis(x)
		if axes[x] {
			return true
		}
		if !g.IsSingular(x) {
			return false
		}
	}
	return false
}

// Ordering returns the default ordering of a space: explicit sort keys
// first and then the identity of every table axis, outermost first.
func (g *Graph) Ordering(id ID) []Key {
	var keys []Key
	switch s := g.Space(id).(type) {
	case *Root:
		return nil
	case *DirectTable:
		keys = append(g.Ordering(s.Base), g.ascending(g.tableIdentity(s.Table.Identity(), s.Table.Columns, id))...)
	case *FiberTable:
		keys = g.Ordering(s.Base)
		if !s.Join.IsSingular {
			keys = append(keys, g.ascending(g.tableIdentity(s.Join.Target.Identity(), s.Join.Target.Columns, id))...)
		}
	case *Quotient:
		keys = g.Ordering(s.Base)
		for k := range s.Kernels {
			keys = append(keys, Key{Code: g.Kernel(id, k), Dir: 1})
		}
	case *Complement:
		q := g.Space(s.Base).(*Quotient)
		keys = append(g.Ordering(s.Base), g.Ordering(q.Seed)...)
	case *Moniker:
		keys = append(g.Ordering(s.Base), g.Ordering(s.Seed)...)
	case *Filtered:
		keys = g.Ordering(s.Base)
	case *Ordered:
		keys = append(append([]Key{}, s.Order...), g.Ordering(s.Base)...)
	}
	return dedupKeys(keys)
}

func (g *Graph) ascending(codes []ID) []Key {
	keys := make([]Key, len(codes))
	for k, c := range codes {
		keys[k] = Key{Code: c, Dir: 1}
	}
	return keys
}

func dedupKeys(keys []Key) []Key {
	seen := make(map[ID]bool)
	out := keys[:0:0]
	for _, k := range keys {
		if !seen[k.Code] {
			seen[k.Code] = true
			out = append(out, k)
		}
	}
	return out
}

// Identity returns codes that together identify a row of a space.  A
// table without a primary key or a usable unique key is identified by all
// of its columns.
func (g *Graph) Identity(id ID) []ID {
	switch s := g.Space(id).(type) {
	case *DirectTable:
		return append(g.Identity(s.Base), g.tableIdentity(s.Table.Identity(), s.Table.Columns, id)...)
	case *FiberTable:
		ids := g.Identity(s.Base)
		if !s.Join.IsSingular {
			ids = append(ids, g.tableIdentity(s.Join.Target.Identity(), s.Join.Target.Columns, id)...)
		}
		return ids
	case *Quotient:
		ids := g.Identity(s.Base)
		for k := range s.Kernels {
			ids = append(ids, g.Kernel(id, k))
		}
		return ids
	case *Complement:
		q := g.Space(s.Base).(*Quotient)
		return append(g.Identity(s.Base), g.Identity(q.Seed)...)
	case *Moniker:
		return append(g.Identity(s.Base), g.Identity(s.Seed)...)
	case *Filtered:
		return g.Identity(s.Base)
	case *Ordered:
		return g.Identity(s.Base)
	}
	return nil
}

func (g *Graph) tableIdentity(identity, columns []*catalog.Column, space ID) []ID {
	if len(identity) == 0 {
		identity = columns
	}
	out := make([]ID, len(identity))
	for k, c := range identity {
		out[k] = g.Add(&ColumnUnit{Column: c, Space: space})
	}
	return out
}

// Kernel returns the unit of the k-th kernel of a quotient.
func (g *Graph) Kernel(quotient ID, k int) ID {
	q := g.Space(quotient).(*Quotient)
	return g.Add(&KernelUnit{Quotient: quotient, Index: k, Dom: g.Code(q.Kernels[k]).Domain()})
}

// Units lists the units a code depends on in order of first appearance.
// The operands of an aggregate are not units of the enclosing code.
func (g *Graph) Units(codes ...ID) []ID {
	var out []ID
	seen := make(map[ID]bool)
	var walk func(ID)
	walk = func(id ID) {
		switch c := g.Code(id).(type) {
		case *ColumnUnit, *AggregateUnit, *KernelUnit:
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		case *Cast:
			walk(c.Base)
		case *Formula:
			for _, arg := range c.Args {
				walk(arg)
			}
		}
	}
	for _, id := range codes {
		walk(id)
	}
	return out
}

// UnitSpace returns the space a unit is evaluated in.
func (g *Graph) UnitSpace(unit ID) ID {
	switch u := g.Code(unit).(type) {
	case *ColumnUnit:
		return u.Space
	case *AggregateUnit:
		return u.Space
	case *KernelUnit:
		return u.Quotient
	}
	return None
}
