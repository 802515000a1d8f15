// Package sfmt formats syntax trees as canonical query text.  The output
// of Syntax parses back into an equivalent tree and serves as the default
// title of a selected expression.
package sfmt

import (
	"strings"

	"github.com/brimdata/htsql/compiler/ast"
)

func Syntax(n ast.Node) string {
	c := &canon{}
	c.node(n)
	return c.String()
}

// Tree renders a syntax tree as an indented outline, one node per line,
// for debugging output.
func Tree(n ast.Node) string {
	o := &outline{formatter: formatter{tab: 2}}
	o.node(n)
	return o.String()
}

type canon struct {
	formatter
}

func (c *canon) nodes(nodes []ast.Node) {
	for k, n := range nodes {
		if k > 0 {
			c.write(",")
		}
		c.node(n)
	}
}

func (c *canon) node(n ast.Node) {
	switch n := n.(type) {
	case nil:
	case *ast.Segment:
		c.write("/")
		c.node(n.Branch)
	case *ast.Command:
		c.node(n.Base)
		c.write("/:%s", n.Name)
		if n.Args != nil {
			c.write("(")
			c.nodes(n.Args)
			c.write(")")
		}
	case *ast.Identifier:
		c.write(n.Name)
	case *ast.Reference:
		c.write("$%s", n.Name)
	case *ast.Literal:
		if n.Kind == ast.StringLiteral {
			c.write(quote(n.Text))
		} else {
			c.write(n.Text)
		}
	case *ast.Wildcard:
		c.write("*")
		if n.Index > 0 {
			c.write("%d", n.Index)
		}
	case *ast.Complement:
		c.write("^")
	case *ast.Attach:
		c.write("@")
		c.node(n.Arg)
	case *ast.Group:
		c.write("(")
		c.node(n.Arg)
		c.write(")")
	case *ast.Selector:
		c.node(n.Base)
		c.write("{")
		c.nodes(n.Elems)
		c.write("}")
	case *ast.Call:
		c.write("%s(", n.Name)
		c.nodes(n.Args)
		c.write(")")
	case *ast.Pipe:
		c.node(n.Lhs)
		c.write(" :%s", n.Name)
		if n.Args != nil {
			c.write("(")
			c.nodes(n.Args)
			c.write(")")
		}
	case *ast.Unary:
		c.write(n.Op)
		c.node(n.Operand)
	case *ast.Binary:
		c.node(n.Lhs)
		c.write(n.Op)
		c.node(n.Rhs)
	case *ast.Sieve:
		c.node(n.Base)
		c.write("?")
		c.node(n.Filter)
	case *ast.Quotient:
		c.node(n.Base)
		c.write("^")
		c.node(n.Kernel)
	case *ast.Direction:
		c.node(n.Base)
		if n.Dir < 0 {
			c.write("-")
		} else {
			c.write("+")
		}
	case *ast.Compose:
		c.node(n.Lhs)
		c.write(".")
		c.node(n.Rhs)
	case *ast.Locate:
		c.node(n.Base)
		c.identity(n.Identity, "[", "]")
	case *ast.Identity:
		c.identity(n, "(", ")")
	case *ast.Label:
		c.write(n.Text)
	case *ast.Assign:
		c.node(n.Lhs)
		c.write(":=")
		c.node(n.Rhs)
	case *ast.Link:
		c.node(n.Lhs)
		c.write("->")
		c.node(n.Rhs)
	default:
		c.write("<unknown %T>", n)
	}
}

func (c *canon) identity(n *ast.Identity, open, close string) {
	c.write(open)
	for k, label := range n.Labels {
		if k > 0 {
			c.write(".")
		}
		c.node(label)
	}
	c.write(close)
}

// quote renders a string literal.  Percent signs are escaped since the
// scanner decodes percent-escapes before tokenizing.
func quote(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
