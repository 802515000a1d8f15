package sfmt

import (
	"github.com/brimdata/htsql/compiler/ast"
)

type outline struct {
	formatter
}

func (o *outline) node(n ast.Node) {
	switch n := n.(type) {
	case nil:
		o.write("<nil>")
		return
	case *ast.Identifier:
		o.write("Identifier %s", n.Name)
		return
	case *ast.Reference:
		o.write("Reference $%s", n.Name)
		return
	case *ast.Literal:
		o.write("Literal %s", Syntax(n))
		return
	case *ast.Label:
		o.write("Label %s", n.Text)
		return
	case *ast.Wildcard, *ast.Complement:
		o.write("%s", Syntax(n))
		return
	}
	var kids []ast.Node
	switch n := n.(type) {
	case *ast.Segment:
		o.write("Segment")
		kids = []ast.Node{n.Branch}
	case *ast.Command:
		o.write("Command %s", n.Name)
		kids = append([]ast.Node{n.Base}, n.Args...)
	case *ast.Attach:
		o.write("Attach")
		kids = []ast.Node{n.Arg}
	case *ast.Group:
		o.write("Group")
		kids = []ast.Node{n.Arg}
	case *ast.Selector:
		o.write("Selector")
		if n.Base != nil {
			kids = append(kids, n.Base)
		}
		kids = append(kids, n.Elems...)
	case *ast.Call:
		o.write("Call %s", n.Name)
		kids = n.Args
	case *ast.Pipe:
		o.write("Pipe %s", n.Name)
		kids = append([]ast.Node{n.Lhs}, n.Args...)
	case *ast.Unary:
		o.write("Unary %s", n.Op)
		kids = []ast.Node{n.Operand}
	case *ast.Binary:
		o.write("Binary %s", n.Op)
		kids = []ast.Node{n.Lhs, n.Rhs}
	case *ast.Sieve:
		o.write("Sieve")
		kids = []ast.Node{n.Base, n.Filter}
	case *ast.Quotient:
		o.write("Quotient")
		kids = []ast.Node{n.Base, n.Kernel}
	case *ast.Direction:
		o.write("Direction %+d", n.Dir)
		kids = []ast.Node{n.Base}
	case *ast.Compose:
		o.write("Compose")
		kids = []ast.Node{n.Lhs, n.Rhs}
	case *ast.Locate:
		o.write("Locate")
		kids = []ast.Node{n.Base, n.Identity}
	case *ast.Identity:
		o.write("Identity")
		kids = n.Labels
	case *ast.Assign:
		o.write("Assign")
		kids = []ast.Node{n.Lhs, n.Rhs}
	case *ast.Link:
		o.write("Link")
		kids = []ast.Node{n.Lhs, n.Rhs}
	default:
		o.write("<unknown %T>", n)
		return
	}
	o.open()
	for _, kid := range kids {
		o.ret()
		o.node(kid)
	}
	o.close()
}
