// Package dag declares the relational graph produced by the encoder.
// Spaces describe sets of rows (a table, a filtered or ordered flow, the
// distinct kernel values of a quotient) and codes describe scalar
// expressions evaluated over the rows of a space.  Nodes live in a Graph
// and refer to each other by ID.  The graph interns nodes by structure so
// two equal expressions always share one ID.
package dag

import (
	"fmt"
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/sig"
)

type ID int

const None ID = -1

type Node interface {
	key() string
}

type (
	Space interface {
		Node
		spaceNode()
	}
	Code interface {
		Node
		Domain() htsql.Domain
	}
)

// Spaces

type (
	Root struct{}
	// DirectTable is the rows of a table for every row of Base.
	DirectTable struct {
		Base  ID             `json:"base"`
		Table *catalog.Table `json:"table"`
	}
	// FiberTable is the rows of the join target matching each row of
	// Base.
	FiberTable struct {
		Base ID            `json:"base"`
		Join *catalog.Join `json:"join"`
	}
	// Quotient is the distinct non-NULL kernel values of the seed for
	// every row of Base.
	Quotient struct {
		Base    ID   `json:"base"`
		Seed    ID   `json:"seed"`
		Kernels []ID `json:"kernels"`
	}
	// Complement is the seed rows that produced each row of the quotient
	// Base.
	Complement struct {
		Base ID `json:"base"`
	}
	// Moniker is every row of Seed for each row of Base.
	Moniker struct {
		Base ID `json:"base"`
		Seed ID `json:"seed"`
	}
	Filtered struct {
		Base   ID `json:"base"`
		Filter ID `json:"filter"`
	}
	Ordered struct {
		Base   ID     `json:"base"`
		Order  []Key  `json:"order"`
		Limit  *int64 `json:"limit,omitempty"`
		Offset *int64 `json:"offset,omitempty"`
	}
)

// Key is a sort key: a code and a direction, +1 or -1.
type Key struct {
	Code ID  `json:"code"`
	Dir  int `json:"dir"`
}

// Codes

type (
	Literal struct {
		Value any          `json:"value"`
		Dom   htsql.Domain `json:"domain"`
	}
	Cast struct {
		Base ID           `json:"base"`
		Dom  htsql.Domain `json:"domain"`
	}
	Formula struct {
		Sig  *sig.Sig     `json:"sig"`
		Args []ID         `json:"args"`
		Dom  htsql.Domain `json:"domain"`
	}
	// ColumnUnit is the value of a column in a row of Space.
	ColumnUnit struct {
		Column *catalog.Column `json:"column"`
		Space  ID              `json:"space"`
	}
	// AggregateUnit is an aggregate Code computed over the rows of Plural
	// that belong to each row of Space.
	AggregateUnit struct {
		Code   ID           `json:"code"`
		Plural ID           `json:"plural"`
		Space  ID           `json:"space"`
		Dom    htsql.Domain `json:"domain"`
	}
	// KernelUnit is a kernel value of a quotient row.
	KernelUnit struct {
		Quotient ID           `json:"quotient"`
		Index    int          `json:"index"`
		Dom      htsql.Domain `json:"domain"`
	}
)

func (*Root) spaceNode()        {}
func (*DirectTable) spaceNode() {}
func (*FiberTable) spaceNode()  {}
func (*Quotient) spaceNode()    {}
func (*Complement) spaceNode()  {}
func (*Moniker) spaceNode()     {}
func (*Filtered) spaceNode()    {}
func (*Ordered) spaceNode()     {}

func (l *Literal) Domain() htsql.Domain { return l.Dom }
func (c *Cast) Domain() htsql.Domain    { return c.Dom }
func (f *Formula) Domain() htsql.Domain { return f.Dom }

func (c *ColumnUnit) Domain() htsql.Domain    { return c.Column.Domain }
func (a *AggregateUnit) Domain() htsql.Domain { return a.Dom }
func (k *KernelUnit) Domain() htsql.Domain    { return k.Dom }

func (*Root) key() string { return "root" }

func (d *DirectTable) key() string {
	return fmt.Sprintf("table(%d,%p)", d.Base, d.Table)
}

func (f *FiberTable) key() string {
	return fmt.Sprintf("fiber(%d,%s)", f.Base, f.Join.Key())
}

func (q *Quotient) key() string {
	return fmt.Sprintf("quotient(%d,%d,%s)", q.Base, q.Seed, ids(q.Kernels))
}

func (c *Complement) key() string { return fmt.Sprintf("complement(%d)", c.Base) }
func (m *Moniker) key() string    { return fmt.Sprintf("moniker(%d,%d)", m.Base, m.Seed) }
func (f *Filtered) key() string   { return fmt.Sprintf("filtered(%d,%d)", f.Base, f.Filter) }

func (o *Ordered) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ordered(%d,[", o.Base)
	for k, key := range o.Order {
		if k > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d%+d", key.Code, key.Dir)
	}
	b.WriteString("]")
	if o.Limit != nil {
		fmt.Fprintf(&b, ",limit=%d", *o.Limit)
	}
	if o.Offset != nil {
		fmt.Fprintf(&b, ",offset=%d", *o.Offset)
	}
	b.WriteString(")")
	return b.String()
}

func (l *Literal) key() string {
	return fmt.Sprintf("literal(%s,%T:%v)", l.Dom, l.Value, l.Value)
}

func (c *Cast) key() string { return fmt.Sprintf("cast(%d,%s)", c.Base, c.Dom) }

func (f *Formula) key() string {
	return fmt.Sprintf("formula(%s,%s,%s)", f.Sig.Name, ids(f.Args), f.Dom)
}

func (c *ColumnUnit) key() string {
	return fmt.Sprintf("column(%p,%d)", c.Column, c.Space)
}

func (a *AggregateUnit) key() string {
	return fmt.Sprintf("aggregate(%d,%d,%d)", a.Code, a.Plural, a.Space)
}

func (k *KernelUnit) key() string {
	return fmt.Sprintf("kernel(%d,%d)", k.Quotient, k.Index)
}

func ids(list []ID) string {
	parts := make([]string, len(list))
	for k, id := range list {
		parts[k] = fmt.Sprint(int(id))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
