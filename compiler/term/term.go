// Package term compiles the spaces of an encoded segment into a tree of
// relational terms: tables joined on ties, filters, orderings and grouped
// projections.  Every term carries routes that tell, for each space and
// unit it can evaluate, which leaf term supplies the value.
package term

import (
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/dag"
)

type Tag int

// Routes maps a space or a unit to the tag of the leaf term (a table or
// a projection) that evaluates it.
type Routes map[dag.ID]Tag

type Term interface {
	Head() *Header
}

type Header struct {
	Tag    Tag    `json:"tag"`
	Routes Routes `json:"routes"`
}

func (h *Header) Head() *Header { return h }

type JoinKind int

const (
	Inner JoinKind = iota
	Left
	Cross
)

func (k JoinKind) String() string {
	switch k {
	case Left:
		return "left"
	case Cross:
		return "cross"
	}
	return "inner"
}

// Tie equates a code evaluated on the left of a join with a code
// evaluated on the right.
type Tie struct {
	Lhs dag.ID `json:"lhs"`
	Rhs dag.ID `json:"rhs"`
}

// Export is a value computed inside a projection and visible outside of
// it as Unit.
type Export struct {
	Unit  dag.ID `json:"unit"`
	Value dag.ID `json:"value"`
}

type (
	// Scalar is a single row with no columns.
	Scalar struct {
		Header
	}
	Table struct {
		Header
		Table *catalog.Table `json:"table"`
		Space dag.ID         `json:"space"`
	}
	Filter struct {
		Header
		Kid    Term   `json:"kid"`
		Filter dag.ID `json:"filter"`
	}
	Order struct {
		Header
		Kid    Term      `json:"kid"`
		Order  []dag.Key `json:"order"`
		Limit  *int64    `json:"limit,omitempty"`
		Offset *int64    `json:"offset,omitempty"`
	}
	Join struct {
		Header
		Lhs  Term     `json:"lhs"`
		Rhs  Term     `json:"rhs"`
		Kind JoinKind `json:"kind"`
		Ties []Tie    `json:"ties"`
	}
	// Projection groups the rows of Kid by Keys.  Only the exports are
	// visible outside.
	Projection struct {
		Header
		Kid     Term     `json:"kid"`
		Keys    []dag.ID `json:"keys"`
		Exports []Export `json:"exports"`
	}
	Segment struct {
		Header
		Kid    Term      `json:"kid"`
		Space  dag.ID    `json:"space"`
		Elems  []dag.ID  `json:"elems"`
		Titles []string  `json:"titles"`
		Order  []dag.Key `json:"order"`
	}
)

// Walk visits t and its descendants in pre-order.
func Walk(t Term, visit func(Term)) {
	visit(t)
	switch t := t.(type) {
	case *Filter:
		Walk(t.Kid, visit)
	case *Order:
		Walk(t.Kid, visit)
	case *Join:
		Walk(t.Lhs, visit)
		Walk(t.Rhs, visit)
	case *Projection:
		Walk(t.Kid, visit)
	case *Segment:
		Walk(t.Kid, visit)
	}
}
