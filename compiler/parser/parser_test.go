package parser_test

import (
	"bufio"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/sfmt"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readQueries(t *testing.T, path string) []string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	require.NoError(t, scanner.Err())
	return queries
}

func TestValid(t *testing.T) {
	for _, q := range readQueries(t, "testdata/valid.htsql") {
		t.Run(q, func(t *testing.T) {
			node, err := parser.ParseQuery(q)
			require.NoError(t, err)
			text := sfmt.Syntax(node)
			again, err := parser.ParseQuery(text)
			require.NoError(t, err, "reparsing %q", text)
			assert.Equal(t, text, sfmt.Syntax(again))
			assert.Equal(t, sfmt.Tree(node), sfmt.Tree(again))
		})
	}
}

// children lists the nodes held by the fields of n.
func children(n ast.Node) []ast.Node {
	var out []ast.Node
	nodeType := reflect.TypeOf((*ast.Node)(nil)).Elem()
	v := reflect.ValueOf(n).Elem()
	for k := 0; k < v.NumField(); k++ {
		f := v.Field(k)
		switch {
		case f.Kind() == reflect.Slice && f.Type().Elem() == nodeType:
			for j := 0; j < f.Len(); j++ {
				if c, ok := f.Index(j).Interface().(ast.Node); ok && c != nil {
					out = append(out, c)
				}
			}
		case f.Type().Implements(nodeType) && f.Type() != reflect.TypeOf(ast.Loc{}):
			if f.IsNil() {
				continue
			}
			if c, ok := f.Interface().(ast.Node); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func TestMarks(t *testing.T) {
	for _, q := range readQueries(t, "testdata/valid.htsql") {
		t.Run(q, func(t *testing.T) {
			node, err := parser.ParseQuery(q)
			require.NoError(t, err)
			root := node.Where()
			require.False(t, root.IsEmpty())
			assert.Equal(t, 0, root.Start)
			var visit func(n ast.Node, parent srcfiles.Mark)
			visit = func(n ast.Node, parent srcfiles.Mark) {
				m := n.Where()
				require.False(t, m.IsEmpty(), "%T has no mark", n)
				assert.Equal(t, root.Text, m.Text)
				assert.LessOrEqual(t, m.Start, m.End, "%T", n)
				assert.LessOrEqual(t, m.End, len(m.Text), "%T", n)
				assert.GreaterOrEqual(t, m.Start, parent.Start, "%T %q outside %q", n, m.Fragment(), parent.Fragment())
				assert.LessOrEqual(t, m.End, parent.End, "%T %q outside %q", n, m.Fragment(), parent.Fragment())
				for _, c := range children(n) {
					visit(c, m)
				}
			}
			visit(node, root)
		})
	}
}

func TestPrecedence(t *testing.T) {
	cases := []struct {
		query string
		tree  string
	}{
		{
			query: "/1+2*3",
			tree: `Segment
  Binary +
    Literal 1
    Binary *
      Literal 2
      Literal 3`,
		},
		{
			query: "/school{name-}",
			tree: `Segment
  Selector
    Identifier school
    Direction -1
      Identifier name`,
		},
		{
			query: "/school?count(department)>3",
			tree: `Segment
  Sieve
    Identifier school
    Binary >
      Call count
        Identifier department
      Literal 3`,
		},
		{
			query: "/!a&b|c",
			tree: `Segment
  Binary |
    Binary &
      Unary !
        Identifier a
      Identifier b
    Identifier c`,
		},
		{
			query: "/school :sort(name)",
			tree: `Segment
  Pipe sort
    Identifier school
    Identifier name`,
		},
		{
			query: "/school/:json",
			tree: `Command json
  Segment
    Identifier school`,
		},
		{
			query: "/a.b[x.'y']",
			tree: `Segment
  Compose
    Identifier a
    Locate
      Identifier b
      Identity
        Label x
        Literal 'y'`,
		},
		{
			query: "/a-b",
			tree: `Segment
  Binary -
    Identifier a
    Identifier b`,
		},
	}
	for _, c := range cases {
		t.Run(c.query, func(t *testing.T) {
			node, err := parser.ParseQuery(c.query)
			require.NoError(t, err)
			assert.Equal(t, c.tree, sfmt.Tree(node))
		})
	}
}

func TestLiteralKinds(t *testing.T) {
	node, err := parser.ParseQuery("/{1,1.5,1e5,'x'}")
	require.NoError(t, err)
	sel := node.(*ast.Segment).Branch.(*ast.Selector)
	var kinds []ast.LiteralKind
	for _, e := range sel.Elems {
		kinds = append(kinds, e.(*ast.Literal).Kind)
	}
	assert.Equal(t, []ast.LiteralKind{ast.IntegerLiteral, ast.DecimalLiteral, ast.FloatLiteral, ast.StringLiteral}, kinds)
}

func TestPercentDecoding(t *testing.T) {
	node, err := parser.ParseQuery("/school?name=%27Art%20School%27")
	require.NoError(t, err)
	assert.Equal(t, "/school?name='Art School'", sfmt.Syntax(node))
}

func TestInvalid(t *testing.T) {
	cases := []struct {
		query    string
		kind     srcfiles.Kind
		msg      string
		fragment string
	}{
		{"school", srcfiles.ParseError, "expected '/'; got 'school'", "school"},
		{"/school{", srcfiles.ParseError, "expected an expression; got end of input", ""},
		{"/1 2", srcfiles.ParseError, "expected end of input; got '2'", "2"},
		{"/school]", srcfiles.ParseError, "expected end of input; got ']'", "]"},
		{"/'abc", srcfiles.ScanError, "unterminated string", "'abc"},
		{"/school#", srcfiles.ScanError, "unexpected character '#'", "#"},
		{"/%zz", srcfiles.ScanError, "symbol '%' must be followed by two hexdecimal digits", "%zz"},
		{"/%ff", srcfiles.ScanError, "cannot decode an UTF-8 character", "%ff"},
		{"/school[x", srcfiles.ScanError, "unexpected end of input: expected ']'", ""},
		{"/*0", srcfiles.ParseError, "expected a positive integer; got '0'", "0"},
	}
	for _, c := range cases {
		t.Run(c.query, func(t *testing.T) {
			_, err := parser.ParseQuery(c.query)
			require.Error(t, err)
			e, ok := srcfiles.As(err)
			require.True(t, ok)
			assert.Equal(t, c.kind, e.Kind)
			assert.Equal(t, c.msg, e.Msg)
			assert.Equal(t, c.fragment, e.Mark.Fragment())
		})
	}
}

func TestErrorExcerpt(t *testing.T) {
	_, err := parser.ParseQuery("/school{name,}}")
	require.Error(t, err)
	assert.Equal(t, "parse error: expected end of input; got '}' at line 1, column 15:\n    /school{name,}}\n                  ^", err.Error())
}
