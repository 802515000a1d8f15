package dagen_test

import (
	"testing"

	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/dag"
	"github.com/brimdata/htsql/compiler/dagen"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/semantic"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, query string, limit int64) (*dag.Graph, *dagen.Segment, error) {
	t.Helper()
	node, err := parser.ParseQuery(query)
	require.NoError(t, err)
	seg, err := semantic.NewBinder(demo.Catalog(), coerce.NewEngine()).Bind(node.(*ast.Segment))
	require.NoError(t, err)
	return dagen.Encode(seg, limit)
}

func mustEncode(t *testing.T, query string) (*dag.Graph, *dagen.Segment) {
	t.Helper()
	g, seg, err := encode(t, query, 0)
	require.NoError(t, err)
	return g, seg
}

func TestTable(t *testing.T) {
	g, seg := mustEncode(t, "/school")
	table, ok := g.Space(seg.Space).(*dag.DirectTable)
	require.True(t, ok)
	assert.Equal(t, "school", table.Table.Name)
	require.Len(t, seg.Elems, 3)
	assert.Equal(t, []string{"code", "name", "campus"}, seg.Titles)
	require.Len(t, seg.Order, 1)
	unit := g.Code(seg.Order[0].Code).(*dag.ColumnUnit)
	assert.Equal(t, "code", unit.Column.Name)
	assert.Equal(t, seg.Elems[0], seg.Order[0].Code)
}

func TestInterning(t *testing.T) {
	_, seg := mustEncode(t, "/school{code, code}")
	require.Len(t, seg.Elems, 2)
	assert.Equal(t, seg.Elems[0], seg.Elems[1])
}

func TestFilter(t *testing.T) {
	g, seg := mustEncode(t, "/school?campus='old'")
	f, ok := g.Space(seg.Space).(*dag.Filtered)
	require.True(t, ok)
	formula := g.Code(f.Filter).(*dag.Formula)
	assert.Same(t, sig.Equal, formula.Sig)
	assert.IsType(t, &dag.DirectTable{}, g.Space(f.Base))
}

func TestAggregate(t *testing.T) {
	g, seg := mustEncode(t, "/school{code, count(department)}")
	units := g.Units(seg.Elems[1])
	require.Len(t, units, 1)
	agg, ok := g.Code(units[0]).(*dag.AggregateUnit)
	require.True(t, ok)
	assert.Equal(t, g.Axis(seg.Space), g.Axis(agg.Space))
	fiber, ok := g.Space(agg.Plural).(*dag.FiberTable)
	require.True(t, ok)
	assert.Equal(t, "department", fiber.Join.Target.Name)
	assert.Same(t, sig.Count, g.Code(agg.Code).(*dag.Formula).Sig)
}

func TestScalarAggregate(t *testing.T) {
	g, seg := mustEncode(t, "/{count(school)}")
	assert.Equal(t, g.Root(), seg.Space)
	assert.Empty(t, seg.Order)
}

func TestQuotient(t *testing.T) {
	g, seg := mustEncode(t, "/(program^degree){degree, count(^)}")
	q, ok := g.Space(seg.Space).(*dag.Quotient)
	require.True(t, ok)
	require.Len(t, q.Kernels, 1)
	assert.IsType(t, &dag.KernelUnit{}, g.Code(seg.Elems[0]))
	require.Len(t, seg.Order, 1)
	assert.Equal(t, seg.Elems[0], seg.Order[0].Code)
}

func TestSort(t *testing.T) {
	g, seg := mustEncode(t, "/course.sort(credits-)")
	o, ok := g.Space(seg.Space).(*dag.Ordered)
	require.True(t, ok)
	require.Len(t, o.Order, 1)
	assert.Equal(t, -1, o.Order[0].Dir)
	require.Len(t, seg.Order, 3)
	assert.Equal(t, -1, seg.Order[0].Dir)
}

func TestDirectionInSelection(t *testing.T) {
	g, seg := mustEncode(t, "/school{name-}")
	require.Len(t, seg.Order, 2)
	assert.Equal(t, dag.Key{Code: seg.Elems[0], Dir: -1}, seg.Order[0])
	assert.Equal(t, "code", g.Code(seg.Order[1].Code).(*dag.ColumnUnit).Column.Name)
}

func TestLimitCeiling(t *testing.T) {
	g, seg, err := encode(t, "/school", 10)
	require.NoError(t, err)
	o, ok := g.Space(seg.Space).(*dag.Ordered)
	require.True(t, ok)
	require.NotNil(t, o.Limit)
	assert.EqualValues(t, 10, *o.Limit)

	g, seg, err = encode(t, "/school.limit(3)", 10)
	require.NoError(t, err)
	o = g.Space(seg.Space).(*dag.Ordered)
	assert.EqualValues(t, 3, *o.Limit)
}

func TestPluralElement(t *testing.T) {
	cat := demo.Catalog()
	school := &sem.Table{Loc: sem.Loc{Scope: &sem.Root{}}, Table: cat.LookupTable("school")}
	link, err := school.Table.LookupLink("department")
	require.NoError(t, err)
	department := &sem.Attached{Loc: sem.Loc{Scope: school}, Join: link}
	name := &sem.Column{Loc: sem.Loc{Scope: department}, Column: link.Target.LookupColumn("name")}
	_, _, err = dagen.Encode(&sem.Segment{Seed: school, Elems: []sem.Binding{name}, Titles: []string{"name"}}, 0)
	require.Error(t, err)
	e, ok := srcfiles.As(err)
	require.True(t, ok)
	assert.Equal(t, srcfiles.BindError, e.Kind)
	assert.Equal(t, "expected a singular expression", e.Msg)
}
