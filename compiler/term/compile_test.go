package term_test

import (
	"testing"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/dagen"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/semantic"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/brimdata/htsql/compiler/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, query string) (*term.Segment, error) {
	t.Helper()
	node, err := parser.ParseQuery(query)
	require.NoError(t, err)
	seg, err := semantic.NewBinder(demo.Catalog(), coerce.NewEngine()).Bind(node.(*ast.Segment))
	require.NoError(t, err)
	g, encoded, err := dagen.Encode(seg, 0)
	require.NoError(t, err)
	return term.Compile(g, encoded)
}

func mustCompile(t *testing.T, query string) *term.Segment {
	t.Helper()
	seg, err := compile(t, query)
	require.NoError(t, err)
	return seg
}

func tables(t term.Term) []string {
	var names []string
	term.Walk(t, func(t term.Term) {
		if table, ok := t.(*term.Table); ok {
			names = append(names, table.Table.Name)
		}
	})
	return names
}

func TestTable(t *testing.T) {
	seg := mustCompile(t, "/school")
	table, ok := seg.Kid.(*term.Table)
	require.True(t, ok)
	assert.Equal(t, "school", table.Table.Name)
}

func TestScalar(t *testing.T) {
	seg := mustCompile(t, "/{1+1}")
	assert.IsType(t, &term.Scalar{}, seg.Kid)
}

func TestSingularLink(t *testing.T) {
	seg := mustCompile(t, "/course{department.name}")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	assert.Equal(t, term.Left, join.Kind)
	assert.Equal(t, []string{"course", "department"}, tables(join))
	require.Len(t, join.Ties, 1)
}

func TestPluralLink(t *testing.T) {
	seg := mustCompile(t, "/school.department")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	assert.Equal(t, term.Inner, join.Kind)
	assert.Equal(t, []string{"school", "department"}, tables(join))
}

func TestAggregate(t *testing.T) {
	seg := mustCompile(t, "/school{name, count(department)}")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	assert.Equal(t, term.Left, join.Kind)
	p, ok := join.Rhs.(*term.Projection)
	require.True(t, ok)
	require.Len(t, p.Keys, 1)
	// The plural space is compiled without a copy of school.
	assert.Equal(t, []string{"department"}, tables(p))
}

func TestScalarAggregate(t *testing.T) {
	seg := mustCompile(t, "/{count(school)}")
	p, ok := seg.Kid.(*term.Projection)
	require.True(t, ok)
	assert.Empty(t, p.Keys)
}

func TestAggregatesShareProjection(t *testing.T) {
	seg := mustCompile(t, "/school{count(department), exists(department)}")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	p, ok := join.Rhs.(*term.Projection)
	require.True(t, ok)
	assert.Len(t, p.Exports, 3)
}

func TestFilterByAggregate(t *testing.T) {
	seg := mustCompile(t, "/school?count(department)>3")
	f, ok := seg.Kid.(*term.Filter)
	require.True(t, ok)
	join, ok := f.Kid.(*term.Join)
	require.True(t, ok)
	assert.IsType(t, &term.Projection{}, join.Rhs)
}

func TestQuotient(t *testing.T) {
	seg := mustCompile(t, "/(program^degree){degree, count(^)}")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	assert.Equal(t, term.Left, join.Kind)
	lhs, ok := join.Lhs.(*term.Projection)
	require.True(t, ok)
	assert.Len(t, lhs.Keys, 1)
	assert.IsType(t, &term.Filter{}, lhs.Kid)
	assert.IsType(t, &term.Projection{}, join.Rhs)
	require.Len(t, join.Ties, 1)
}

func TestCorrelatedReference(t *testing.T) {
	seg := mustCompile(t, "/school.define($c := code){name, count(@department?school_code=$c)}")
	join, ok := seg.Kid.(*term.Join)
	require.True(t, ok)
	p, ok := join.Rhs.(*term.Projection)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"school", "department"}, tables(p))
	require.Len(t, join.Ties, 1)
	assert.Equal(t, join.Ties[0].Lhs, join.Ties[0].Rhs)
}

func TestLimit(t *testing.T) {
	seg := mustCompile(t, "/school.limit(2)")
	o, ok := seg.Kid.(*term.Order)
	require.True(t, ok)
	assert.EqualValues(t, 2, *o.Limit)
	assert.Len(t, o.Order, 1)
}

func TestNestedLimit(t *testing.T) {
	// The binder rejects this tree, so it is built by hand.
	cat := demo.Catalog()
	school := &sem.Table{Loc: sem.Loc{Scope: &sem.Root{}}, Table: cat.LookupTable("school")}
	link, err := school.Table.LookupLink("department")
	require.NoError(t, err)
	department := &sem.Attached{Loc: sem.Loc{Scope: school}, Join: link}
	limit := int64(2)
	sorted := &sem.Sort{Loc: sem.Loc{Scope: department}, Limit: &limit}
	count := &sem.Formula{
		Sig:  sig.Count,
		Args: []sem.Binding{&sem.Literal{Loc: sem.Loc{Scope: sorted}, Value: true, Dom: htsql.Boolean}},
		Dom:  htsql.Integer,
	}
	agg := &sem.Formula{Loc: sem.Loc{Scope: school}, Sig: sig.Aggregate, Args: []sem.Binding{count}, Dom: htsql.Integer, Plural: sorted}
	g, encoded, err := dagen.Encode(&sem.Segment{Seed: school, Elems: []sem.Binding{agg}, Titles: []string{"count"}}, 0)
	require.NoError(t, err)
	_, err = term.Compile(g, encoded)
	require.Error(t, err)
	e, ok := srcfiles.As(err)
	require.True(t, ok)
	assert.Equal(t, srcfiles.CompileError, e.Kind)
}
