// Package frame declares the SQL-shaped tree produced by the assembler.
// A Select frame has a list of output phrases, FROM anchors that are
// tables or nested selects, and the usual WHERE, GROUP BY, ORDER BY and
// pagination clauses.  Phrases refer to anchors by frame tag and to the
// outputs of nested selects by position.
package frame

import (
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/term"
)

type Tag int

type Frame interface {
	FrameTag() Tag
}

type (
	Table struct {
		Tag   Tag            `json:"tag"`
		Table *catalog.Table `json:"table"`
	}
	Select struct {
		Tag     Tag       `json:"tag"`
		Select  []Phrase  `json:"select"`
		Include []*Anchor `json:"include"`
		Where   Phrase    `json:"where"`
		Group   []Phrase  `json:"group"`
		// Grouped is set for aggregating frames, with or without
		// GROUP BY phrases.
		Grouped bool    `json:"grouped"`
		Order   []Order `json:"order"`
		Limit   *int64  `json:"limit,omitempty"`
		Offset  *int64  `json:"offset,omitempty"`
	}
	// Anchor is an item of a FROM clause.  The first anchor of a frame
	// has no join condition.
	Anchor struct {
		Frame Frame         `json:"frame"`
		Kind  term.JoinKind `json:"kind"`
		On    Phrase        `json:"on"`
	}
	Order struct {
		Phrase Phrase `json:"phrase"`
		Dir    int    `json:"dir"`
	}
)

func (t *Table) FrameTag() Tag  { return t.Tag }
func (s *Select) FrameTag() Tag { return s.Tag }

// Segment is the top frame of a query together with the titles of its
// output columns.
type Segment struct {
	Select *Select  `json:"select"`
	Titles []string `json:"titles"`
}

// Walk visits s and every nested select in pre-order.
func Walk(s *Select, visit func(*Select)) {
	visit(s)
	for _, a := range s.Include {
		if nested, ok := a.Frame.(*Select); ok {
			Walk(nested, visit)
		}
	}
}
