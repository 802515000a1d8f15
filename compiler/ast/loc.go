// Package ast declares the types used to represent syntax trees for HTSQL
// queries.
package ast

import "github.com/brimdata/htsql/compiler/srcfiles"

// Node is a syntax node.  Nodes are created by the parser and never
// modified afterward.
type Node interface {
	Where() srcfiles.Mark
}

type Loc struct {
	Mark srcfiles.Mark `json:"-"`
}

func NewLoc(mark srcfiles.Mark) Loc {
	return Loc{mark}
}

func (l Loc) Where() srcfiles.Mark { return l.Mark }

// Span returns the union of the marks of the given nodes, skipping nils.
func Span(nodes ...Node) srcfiles.Mark {
	var marks []srcfiles.Mark
	for _, n := range nodes {
		if n != nil {
			marks = append(marks, n.Where())
		}
	}
	return srcfiles.Union(marks...)
}
