package frame_test

import (
	"testing"

	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/dagen"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/semantic"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/term"
	"github.com/brimdata/htsql/dialect/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, query string, p frame.Paginator) *frame.Segment {
	t.Helper()
	node, err := parser.ParseQuery(query)
	require.NoError(t, err)
	bound, err := semantic.NewBinder(demo.Catalog(), coerce.NewEngine()).Bind(node.(*ast.Segment))
	require.NoError(t, err)
	g, encoded, err := dagen.Encode(bound, 0)
	require.NoError(t, err)
	compiled, err := term.Compile(g, encoded)
	require.NoError(t, err)
	seg, err := frame.Assemble(g, compiled, p)
	require.NoError(t, err)
	return seg
}

func TestTable(t *testing.T) {
	seg := assemble(t, "/school", nil)
	s := seg.Select
	require.Len(t, s.Include, 1)
	table, ok := s.Include[0].Frame.(*frame.Table)
	require.True(t, ok)
	assert.Equal(t, "school", table.Table.Name)
	require.Len(t, s.Select, 3)
	assert.False(t, s.Select[0].IsNullable())
	assert.True(t, s.Select[2].IsNullable())
	assert.Len(t, s.Order, 1)
	assert.Equal(t, []string{"code", "name", "campus"}, seg.Titles)
}

func TestLeftJoinNullable(t *testing.T) {
	s := assemble(t, "/course{department.name}", nil).Select
	require.Len(t, s.Include, 2)
	anchor := s.Include[1]
	assert.Equal(t, term.Left, anchor.Kind)
	assert.NotNil(t, anchor.On)
	_, ok := anchor.Frame.(*frame.Table)
	assert.True(t, ok)
	require.Len(t, s.Select, 1)
	col, ok := s.Select[0].(*frame.Column)
	require.True(t, ok)
	assert.Equal(t, "name", col.Column.Name)
	assert.True(t, col.IsNullable())
}

func TestAggregateFrame(t *testing.T) {
	s := assemble(t, "/school{name, count(department)}", nil).Select
	require.Len(t, s.Include, 2)
	nested, ok := s.Include[1].Frame.(*frame.Select)
	require.True(t, ok)
	assert.True(t, nested.Grouped)
	assert.Len(t, nested.Group, 1)
	assert.Equal(t, term.Left, s.Include[1].Kind)
	require.Len(t, s.Select, 2)
	// A count over no rows is zero, so the reference to the aggregate
	// is wrapped in if_null.
	count, ok := s.Select[1].(*frame.Formula)
	require.True(t, ok)
	assert.Equal(t, sig.IfNull, count.Sig)
	assert.False(t, count.IsNullable())
	require.Len(t, count.Args, 2)
	ref, ok := count.Args[0].(*frame.Reference)
	require.True(t, ok)
	assert.Equal(t, nested.Tag, ref.Tag)
	assert.True(t, ref.IsNullable())
}

func TestChainedLimit(t *testing.T) {
	for _, query := range []string{"/school.limit(2).limit(5,1)", "/school.limit(5).limit(2)"} {
		s := assemble(t, query, nil).Select
		require.NotNil(t, s.Limit, query)
		require.Len(t, s.Include, 1, query)
		inner, ok := s.Include[0].Frame.(*frame.Select)
		require.True(t, ok, query)
		require.NotNil(t, inner.Limit, query)
		assert.Len(t, inner.Select, 3, query)
		assert.Len(t, s.Select, 3, query)
	}
}

func TestLimitThenSort(t *testing.T) {
	s := assemble(t, "/school.limit(2).sort(name)", nil).Select
	assert.Nil(t, s.Limit)
	require.Len(t, s.Order, 2)
	require.Len(t, s.Include, 1)
	inner, ok := s.Include[0].Frame.(*frame.Select)
	require.True(t, ok)
	require.NotNil(t, inner.Limit)
	assert.Equal(t, int64(2), *inner.Limit)
	// code, name and campus, each once.
	assert.Len(t, inner.Select, 3)
}

func TestDistinctOutputs(t *testing.T) {
	s := assemble(t, "/course.limit(3){department.school.name}", nil).Select
	frame.Walk(s, func(s *frame.Select) {
		for i := range s.Select {
			for j := i + 1; j < len(s.Select); j++ {
				assert.False(t, frame.Equal(s.Select[i], s.Select[j]), "frame %d outputs %d and %d", s.Tag, i, j)
			}
		}
	})
}

func TestScalarAggregate(t *testing.T) {
	s := assemble(t, "/{count(school)}", nil).Select
	require.Len(t, s.Select, 1)
	var grouped []*frame.Select
	frame.Walk(s, func(s *frame.Select) {
		if s.Grouped {
			grouped = append(grouped, s)
		}
	})
	require.NotEmpty(t, grouped)
	assert.Empty(t, grouped[0].Group)
}

func TestLimit(t *testing.T) {
	s := assemble(t, "/school.limit(2)", nil).Select
	require.NotNil(t, s.Limit)
	assert.Equal(t, int64(2), *s.Limit)
	assert.Nil(t, s.Offset)
}

func TestPaginator(t *testing.T) {
	plain := assemble(t, "/school.limit(2)", nil).Select
	s := assemble(t, "/school.limit(2)", oracle.New()).Select
	assert.Equal(t, plain.Tag, s.Tag)
	assert.Nil(t, s.Limit)
	require.Len(t, s.Include, 1)
	inner, ok := s.Include[0].Frame.(*frame.Select)
	require.True(t, ok)
	assert.Nil(t, inner.Limit)
	assert.Len(t, s.Select, len(plain.Select))
	frame.Walk(s, func(s *frame.Select) {
		assert.Nil(t, s.Limit)
	})
}
