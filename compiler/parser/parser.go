package parser

import (
	"strconv"
	"strings"

	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/srcfiles"
)

// The grammar, from the lowest to the highest precedence:
//
//	input       ::= segment command* END
//	segment     ::= '/' top?
//	command     ::= '/' ':' NAME call?
//	top         ::= flow ( direction | mapping )*
//	direction   ::= '+' | '-'
//	mapping     ::= ':' NAME call?
//	flow        ::= disjunction ( sieve | quotient | selector )*
//	sieve       ::= '?' disjunction
//	quotient    ::= '^' disjunction
//	disjunction ::= conjunction ( '|' conjunction )*
//	conjunction ::= negation ( '&' negation )*
//	negation    ::= '!' negation | comparison
//	comparison  ::= expression ( ( '~' | '!~' | '<=' | '<' | '>=' | '>' |
//	                               '==' | '=' | '!==' | '!=' ) expression )?
//	expression  ::= term ( ( '+' | '-' ) term )*
//	term        ::= factor ( ( '*' | '/' ) factor )*
//	factor      ::= ( '+' | '-' ) factor | pointer
//	pointer     ::= assignment ( '->' assignment )?
//	assignment  ::= specifier ( ':=' top )?
//	specifier   ::= locator ( '.' locator )*
//	locator     ::= atom ( '[' identity ']' )?
//	atom        ::= '@' atom | '*' NUMBER? | '^' | selector | group |
//	                NAME call? | '$' NAME | STRING | NUMBER
//	selector    ::= '{' ( top ( ',' top )* ','? )? '}'
//	group       ::= '(' top ')'
//	call        ::= '(' ( top ( ',' top )* ','? )? ')'
//	identity    ::= label ( '.' label )*
//	label       ::= LABEL | STRING | '(' identity ')' | '[' identity ']'
//
// A '+' or '-' followed by a run of '+' and '-' and then by one of
// ':', ',', ')', '}', '/' or the end of input is a direction decorator,
// not an arithmetic operator.  A '/' followed by ':' and a name starts a
// command, not a division.
type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) pop() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != EndToken {
		p.pos++
	}
	return tok
}

func (p *parser) isSymbol(tok Token, values ...string) bool {
	if tok.Kind != SymbolToken {
		return false
	}
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if tok.Value == v {
			return true
		}
	}
	return false
}

func (p *parser) at(values ...string) bool {
	return p.isSymbol(p.peek(), values...)
}

func (p *parser) expectSymbol(values ...string) (Token, error) {
	if p.at(values...) {
		return p.pop(), nil
	}
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return Token{}, p.unexpected(strings.Join(quoted, " or "))
}

func (p *parser) expectKind(kind TokenKind) (Token, error) {
	if p.peek().Kind == kind {
		return p.pop(), nil
	}
	return Token{}, p.unexpected(kind.String())
}

func (p *parser) unexpected(expected string) error {
	tok := p.peek()
	return srcfiles.New(srcfiles.ParseError, tok.Mark, "expected %s; got %s", expected, tok)
}

func (p *parser) parseInput() (ast.Node, error) {
	segment, err := p.parseSegment()
	if err != nil {
		return nil, err
	}
	var node ast.Node = segment
	for p.isCommand() {
		node, err = p.parseCommand(node)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectKind(EndToken); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *parser) isCommand() bool {
	return p.at("/") && p.isSymbol(p.peekAt(1), ":") && p.peekAt(2).Kind == NameToken
}

func (p *parser) parseSegment() (*ast.Segment, error) {
	head, err := p.expectSymbol("/")
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == EndToken || p.isCommand() {
		return &ast.Segment{Loc: ast.NewLoc(head.Mark)}, nil
	}
	branch, err := p.parseTop()
	if err != nil {
		return nil, err
	}
	return &ast.Segment{Branch: branch, Loc: ast.NewLoc(srcfiles.Union(head.Mark, branch.Where()))}, nil
}

func (p *parser) parseCommand(base ast.Node) (*ast.Command, error) {
	head := p.pop()
	if _, err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	name, err := p.expectKind(NameToken)
	if err != nil {
		return nil, err
	}
	end := name.Mark
	var args []ast.Node
	if p.at("(") {
		args, end, err = p.parseArgs("(", ")")
		if err != nil {
			return nil, err
		}
	}
	return &ast.Command{
		Base: base,
		Name: name.Value,
		Args: args,
		Loc:  ast.NewLoc(srcfiles.Union(base.Where(), head.Mark, end)),
	}, nil
}

func (p *parser) parseTop() (ast.Node, error) {
	node, err := p.parseFlow()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at("+", "-"):
			tok := p.pop()
			dir := +1
			if tok.Value == "-" {
				dir = -1
			}
			node = &ast.Direction{Base: node, Dir: dir, Loc: ast.NewLoc(srcfiles.Union(node.Where(), tok.Mark))}
		case p.at(":"):
			p.pop()
			name, err := p.expectKind(NameToken)
			if err != nil {
				return nil, err
			}
			end := name.Mark
			var args []ast.Node
			if p.at("(") {
				args, end, err = p.parseArgs("(", ")")
				if err != nil {
					return nil, err
				}
			}
			node = &ast.Pipe{Lhs: node, Name: name.Value, Args: args, Loc: ast.NewLoc(srcfiles.Union(node.Where(), end))}
		default:
			return node, nil
		}
	}
}

func (p *parser) parseFlow() (ast.Node, error) {
	node, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at("?"):
			p.pop()
			filter, err := p.parseDisjunction()
			if err != nil {
				return nil, err
			}
			node = &ast.Sieve{Base: node, Filter: filter, Loc: ast.NewLoc(ast.Span(node, filter))}
		case p.at("^"):
			p.pop()
			kernel, err := p.parseDisjunction()
			if err != nil {
				return nil, err
			}
			node = &ast.Quotient{Base: node, Kernel: kernel, Loc: ast.NewLoc(ast.Span(node, kernel))}
		case p.at("{"):
			elems, end, err := p.parseArgs("{", "}")
			if err != nil {
				return nil, err
			}
			node = &ast.Selector{Base: node, Elems: elems, Loc: ast.NewLoc(srcfiles.Union(node.Where(), end))}
		default:
			return node, nil
		}
	}
}

func (p *parser) parseDisjunction() (ast.Node, error) {
	return p.parseChain(p.parseConjunction, "|")
}

func (p *parser) parseConjunction() (ast.Node, error) {
	return p.parseChain(p.parseNegation, "&")
}

func (p *parser) parseChain(next func() (ast.Node, error), ops ...string) (ast.Node, error) {
	node, err := next()
	if err != nil {
		return nil, err
	}
	for p.at(ops...) {
		op := p.pop()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Op: op.Value, Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseNegation() (ast.Node, error) {
	if p.at("!") {
		op := p.pop()
		operand, err := p.parseNegation()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "!", Operand: operand, Loc: ast.NewLoc(srcfiles.Union(op.Mark, operand.Where()))}, nil
	}
	return p.parseComparison()
}

var comparisons = []string{"~", "!~", "<=", "<", ">=", ">", "==", "=", "!==", "!="}

func (p *parser) parseComparison() (ast.Node, error) {
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.at(comparisons...) {
		op := p.pop()
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Op: op.Value, Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

// isDirection reports whether the '+' or '-' at the current position is
// a direction decorator.
func (p *parser) isDirection() bool {
	n := 0
	for p.isSymbol(p.peekAt(n), "+", "-") {
		n++
	}
	tok := p.peekAt(n)
	return tok.Kind == EndToken || p.isSymbol(tok, ":", ",", ")", "}", "/")
}

func (p *parser) parseExpression() (ast.Node, error) {
	node, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at("+", "-") && !p.isDirection() {
		op := p.pop()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Op: op.Value, Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseTerm() (ast.Node, error) {
	node, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.at("*", "/") && !p.isCommand() {
		op := p.pop()
		rhs, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node = &ast.Binary{Op: op.Value, Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseFactor() (ast.Node, error) {
	if p.at("+", "-") {
		op := p.pop()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op.Value, Operand: operand, Loc: ast.NewLoc(srcfiles.Union(op.Mark, operand.Where()))}, nil
	}
	return p.parsePointer()
}

func (p *parser) parsePointer() (ast.Node, error) {
	node, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if p.at("->") {
		p.pop()
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		node = &ast.Link{Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseAssignment() (ast.Node, error) {
	node, err := p.parseSpecifier()
	if err != nil {
		return nil, err
	}
	if p.at(":=") {
		p.pop()
		rhs, err := p.parseTop()
		if err != nil {
			return nil, err
		}
		node = &ast.Assign{Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseSpecifier() (ast.Node, error) {
	node, err := p.parseLocator()
	if err != nil {
		return nil, err
	}
	for p.at(".") {
		p.pop()
		rhs, err := p.parseLocator()
		if err != nil {
			return nil, err
		}
		node = &ast.Compose{Lhs: node, Rhs: rhs, Loc: ast.NewLoc(ast.Span(node, rhs))}
	}
	return node, nil
}

func (p *parser) parseLocator() (ast.Node, error) {
	node, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.at("[") {
		identity, err := p.parseIdentity("[", "]")
		if err != nil {
			return nil, err
		}
		node = &ast.Locate{Base: node, Identity: identity, Loc: ast.NewLoc(ast.Span(node, identity))}
	}
	return node, nil
}

func (p *parser) parseIdentity(open, close string) (*ast.Identity, error) {
	head, err := p.expectSymbol(open)
	if err != nil {
		return nil, err
	}
	var labels []ast.Node
	for {
		label, err := p.parseLabel()
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
		if !p.at(".") {
			break
		}
		p.pop()
	}
	tail, err := p.expectSymbol(close)
	if err != nil {
		return nil, err
	}
	return &ast.Identity{Labels: labels, Loc: ast.NewLoc(srcfiles.Union(head.Mark, tail.Mark))}, nil
}

func (p *parser) parseLabel() (ast.Node, error) {
	switch tok := p.peek(); {
	case tok.Kind == LabelToken:
		p.pop()
		return &ast.Label{Text: tok.Value, Loc: ast.NewLoc(tok.Mark)}, nil
	case tok.Kind == StringToken:
		p.pop()
		return &ast.Literal{Kind: ast.StringLiteral, Text: tok.Value, Loc: ast.NewLoc(tok.Mark)}, nil
	case p.isSymbol(tok, "("):
		return p.parseIdentity("(", ")")
	case p.isSymbol(tok, "["):
		return p.parseIdentity("[", "]")
	}
	return nil, p.unexpected("a label")
}

func (p *parser) parseAtom() (ast.Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case NameToken:
		p.pop()
		if p.at("(") {
			args, end, err := p.parseArgs("(", ")")
			if err != nil {
				return nil, err
			}
			return &ast.Call{Name: tok.Value, Args: args, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, end))}, nil
		}
		return &ast.Identifier{Name: tok.Value, Loc: ast.NewLoc(tok.Mark)}, nil
	case StringToken:
		p.pop()
		return &ast.Literal{Kind: ast.StringLiteral, Text: tok.Value, Loc: ast.NewLoc(tok.Mark)}, nil
	case NumberToken:
		p.pop()
		kind := ast.IntegerLiteral
		if strings.ContainsAny(tok.Value, "eE") {
			kind = ast.FloatLiteral
		} else if strings.Contains(tok.Value, ".") {
			kind = ast.DecimalLiteral
		}
		return &ast.Literal{Kind: kind, Text: tok.Value, Loc: ast.NewLoc(tok.Mark)}, nil
	case SymbolToken:
		switch tok.Value {
		case "@":
			p.pop()
			arg, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			return &ast.Attach{Arg: arg, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, arg.Where()))}, nil
		case "*":
			p.pop()
			if p.peek().Kind == NumberToken {
				num := p.pop()
				index, err := strconv.Atoi(num.Value)
				if err != nil || index <= 0 {
					return nil, srcfiles.New(srcfiles.ParseError, num.Mark, "expected a positive integer; got %s", num)
				}
				return &ast.Wildcard{Index: index, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, num.Mark))}, nil
			}
			return &ast.Wildcard{Loc: ast.NewLoc(tok.Mark)}, nil
		case "^":
			p.pop()
			return &ast.Complement{Loc: ast.NewLoc(tok.Mark)}, nil
		case "{":
			elems, end, err := p.parseArgs("{", "}")
			if err != nil {
				return nil, err
			}
			return &ast.Selector{Elems: elems, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, end))}, nil
		case "(":
			p.pop()
			arg, err := p.parseTop()
			if err != nil {
				return nil, err
			}
			end, err := p.expectSymbol(")")
			if err != nil {
				return nil, err
			}
			return &ast.Group{Arg: arg, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, end.Mark))}, nil
		case "$":
			p.pop()
			name, err := p.expectKind(NameToken)
			if err != nil {
				return nil, err
			}
			return &ast.Reference{Name: name.Value, Loc: ast.NewLoc(srcfiles.Union(tok.Mark, name.Mark))}, nil
		}
	}
	return nil, p.unexpected("an expression")
}

// parseArgs parses a comma-separated, possibly empty list of top
// expressions between the given brackets and returns the mark of the
// closing bracket.
func (p *parser) parseArgs(open, close string) ([]ast.Node, srcfiles.Mark, error) {
	if _, err := p.expectSymbol(open); err != nil {
		return nil, srcfiles.Mark{}, err
	}
	var args []ast.Node
	for !p.at(close) {
		arg, err := p.parseTop()
		if err != nil {
			return nil, srcfiles.Mark{}, err
		}
		args = append(args, arg)
		if !p.at(",") {
			break
		}
		p.pop()
	}
	end, err := p.expectSymbol(close)
	if err != nil {
		return nil, srcfiles.Mark{}, err
	}
	return args, end.Mark, nil
}
