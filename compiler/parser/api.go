package parser

import (
	"github.com/brimdata/htsql/compiler/ast"
)

// ParseQuery scans and parses a query.  The result is an *ast.Segment or,
// when the query ends in format commands, an *ast.Command.  Errors are
// *srcfiles.Error values of kind ScanError or ParseError.
func ParseQuery(query string) (ast.Node, error) {
	tokens, err := Scan(query)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseInput()
}
