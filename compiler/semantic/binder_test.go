package semantic_test

import (
	"testing"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/semantic"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bind(t *testing.T, query string) (*sem.Segment, error) {
	t.Helper()
	node, err := parser.ParseQuery(query)
	require.NoError(t, err)
	seg, ok := node.(*ast.Segment)
	require.True(t, ok, "query has format commands")
	return semantic.NewBinder(demo.Catalog(), coerce.NewEngine()).Bind(seg)
}

func mustBind(t *testing.T, query string) *sem.Segment {
	t.Helper()
	seg, err := bind(t, query)
	require.NoError(t, err)
	return seg
}

func bindError(t *testing.T, query string) *srcfiles.Error {
	t.Helper()
	_, err := bind(t, query)
	require.Error(t, err)
	e, ok := srcfiles.As(err)
	require.True(t, ok, "unexpected error %v", err)
	assert.Equal(t, srcfiles.BindError, e.Kind)
	return e
}

func formula(t *testing.T, b sem.Binding) *sem.Formula {
	t.Helper()
	f, ok := b.(*sem.Formula)
	require.True(t, ok, "expected a formula; got %T", b)
	return f
}

func TestEmptyQuery(t *testing.T) {
	assert.Nil(t, mustBind(t, "/"))
}

func TestAddition(t *testing.T) {
	seg := mustBind(t, "/{1+1}")
	require.Len(t, seg.Elems, 1)
	f := formula(t, seg.Elems[0])
	assert.Same(t, sig.Add, f.Sig)
	assert.Equal(t, htsql.KindInteger, f.Dom.Kind())
	assert.Equal(t, []string{"1+1"}, seg.Titles)
	_, ok := seg.Seed.(*sem.Root)
	assert.True(t, ok)
}

func TestConcatenate(t *testing.T) {
	f := formula(t, mustBind(t, "/{'a'+'b'}").Elems[0])
	assert.Same(t, sig.Concatenate, f.Sig)
	assert.Equal(t, htsql.KindText, f.Dom.Kind())
	for _, arg := range f.Args {
		lit, ok := arg.(*sem.Literal)
		require.True(t, ok)
		assert.Equal(t, htsql.KindText, lit.Dom.Kind())
	}
}

func TestPromotion(t *testing.T) {
	f := formula(t, mustBind(t, "/{1+2.5}").Elems[0])
	assert.Same(t, sig.Add, f.Sig)
	assert.Equal(t, htsql.KindDecimal, f.Dom.Kind())
	c, ok := f.Args[0].(*sem.Cast)
	require.True(t, ok)
	assert.True(t, c.Implicit)
	assert.Equal(t, htsql.KindInteger, c.Operand.Domain().Kind())

	f = formula(t, mustBind(t, "/course{credits/2}").Elems[0])
	assert.Same(t, sig.Divide, f.Sig)
	assert.Equal(t, htsql.KindDecimal, f.Dom.Kind())
	c, ok = f.Args[0].(*sem.Cast)
	require.True(t, ok)
	assert.True(t, c.Implicit)
}

func TestUntypedLiteral(t *testing.T) {
	f := formula(t, mustBind(t, "/course?credits='3'").Seed.(*sem.Sieve).Filter)
	assert.Same(t, sig.Equal, f.Sig)
	lit, ok := f.Args[1].(*sem.Literal)
	require.True(t, ok)
	assert.Equal(t, htsql.KindInteger, lit.Dom.Kind())
	e := bindError(t, "/course?credits='three'")
	assert.Contains(t, e.Msg, "'three'")
}

func TestAggregate(t *testing.T) {
	seg := mustBind(t, "/school{name, count(department)}")
	require.Len(t, seg.Elems, 2)
	wrap := formula(t, seg.Elems[1])
	assert.Same(t, sig.IfNull, wrap.Sig)
	agg := formula(t, wrap.Args[0])
	assert.Same(t, sig.Aggregate, agg.Sig)
	assert.NotNil(t, agg.Plural)
	count := formula(t, agg.Args[0])
	assert.Same(t, sig.Count, count.Sig)
	assert.Equal(t, []string{"name", "count(department)"}, seg.Titles)
}

func TestAggregateOfValue(t *testing.T) {
	f := formula(t, mustBind(t, "/school{max(department.name)}").Elems[0])
	assert.Same(t, sig.Aggregate, f.Sig)
	assert.Nil(t, f.Plural)
	assert.Same(t, sig.Max, formula(t, f.Args[0]).Sig)
	e := bindError(t, "/school{sum(department)}")
	assert.Contains(t, e.Msg, "expects a value")
}

func TestUnknownAttribute(t *testing.T) {
	e := bindError(t, "/{nosuchcolumn}")
	assert.Equal(t, "nosuchcolumn", e.Mark.Fragment())
	assert.Contains(t, e.Msg, "unrecognized attribute 'nosuchcolumn'")

	e = bindError(t, "/school{nmae}")
	assert.Equal(t, "nmae", e.Mark.Fragment())
	assert.Contains(t, e.Hint, "name")
}

func TestIncompatibleTypes(t *testing.T) {
	e := bindError(t, "/{1 + 'text'}")
	assert.Contains(t, e.Msg, "integer")
	assert.Contains(t, e.Msg, "text")
	e = bindError(t, "/school{name = 1}")
	assert.Contains(t, e.Msg, "cannot coerce")
}

func TestLinks(t *testing.T) {
	seg := mustBind(t, "/department{name, school.name}")
	col, ok := seg.Elems[1].(*sem.Column)
	require.True(t, ok)
	assert.Equal(t, "name", col.Column.Name)
	attached, ok := col.Scope.(*sem.Attached)
	require.True(t, ok)
	assert.Equal(t, "school", attached.Join.Target.Name)
	assert.True(t, attached.Join.IsSingular)
}

func TestWildcard(t *testing.T) {
	seg := mustBind(t, "/school")
	assert.Equal(t, []string{"code", "name", "campus"}, seg.Titles)
	seg = mustBind(t, "/school{*2, code}")
	assert.Equal(t, []string{"name", "code"}, seg.Titles)
	e := bindError(t, "/school{*9}")
	assert.Contains(t, e.Msg, "out of range")
}

func TestSelectionFilter(t *testing.T) {
	seg := mustBind(t, "/school{code, n := count(department)}?n>3")
	assert.Equal(t, []string{"code", "n"}, seg.Titles)
	sieve, ok := seg.Seed.(*sem.Sieve)
	require.True(t, ok)
	_, ok = sieve.Scope.(*sem.Table)
	assert.True(t, ok)
	cmp := formula(t, sieve.Filter)
	assert.Same(t, sig.Greater, cmp.Sig)
	assert.Same(t, seg.Elems[1], cmp.Args[0])
}

func TestQuotient(t *testing.T) {
	seg := mustBind(t, "/(program^degree){degree, count(^)}")
	assert.Equal(t, []string{"degree", "count(^)"}, seg.Titles)
	_, ok := seg.Seed.(*sem.Quotient)
	require.True(t, ok)
	_, ok = seg.Elems[0].(*sem.Kernel)
	assert.True(t, ok)
	agg := formula(t, formula(t, seg.Elems[1]).Args[0])
	_, ok = agg.Plural.(*sem.Complement)
	assert.True(t, ok)

	seg = mustBind(t, "/(program^degree){degree, count(program)}")
	agg = formula(t, formula(t, seg.Elems[1]).Args[0])
	_, ok = agg.Plural.(*sem.Complement)
	assert.True(t, ok)

	e := bindError(t, "/school{count(^)}")
	assert.Contains(t, e.Msg, "quotient")
}

func TestLocate(t *testing.T) {
	seg := mustBind(t, "/course[comp.102]{title}")
	sieve, ok := seg.Seed.(*sem.Sieve)
	require.True(t, ok)
	and := formula(t, sieve.Filter)
	assert.Same(t, sig.And, and.Sig)
	require.Len(t, and.Args, 2)
	e := bindError(t, "/course[comp]")
	assert.Contains(t, e.Msg, "expected 2 labels")
	e = bindError(t, "/course[comp.x]")
	assert.Contains(t, e.Msg, "invalid label")
}

func TestDefinitions(t *testing.T) {
	seg := mustBind(t, "/define(old := school?campus='old').old{name}")
	assert.Equal(t, []string{"name"}, seg.Titles)
	_, ok := seg.Seed.(*sem.Sieve)
	assert.True(t, ok)

	seg = mustBind(t, "/school.define(big($n) := count(department)>$n){name, big(3)}")
	f := formula(t, seg.Elems[1])
	assert.Same(t, sig.Greater, f.Sig)

	seg = mustBind(t, "/school{name, $c} :where($c := 5)")
	require.Len(t, seg.Elems, 2)
	assert.Equal(t, htsql.KindInteger, seg.Elems[1].Domain().Kind())

	e := bindError(t, "/school{$missing}")
	assert.Contains(t, e.Msg, "unrecognized reference")
}

func TestPipes(t *testing.T) {
	seg := mustBind(t, "/school :sort(name-) :limit(2, 1)")
	s, ok := seg.Seed.(*sem.Sort)
	require.True(t, ok)
	require.NotNil(t, s.Limit)
	assert.EqualValues(t, 2, *s.Limit)
	assert.EqualValues(t, 1, *s.Offset)
	inner, ok := s.Scope.(*sem.Sort)
	require.True(t, ok)
	d, ok := inner.Order[0].(*sem.Direction)
	require.True(t, ok)
	assert.Equal(t, -1, d.Dir)

	e := bindError(t, "/school :limit(-1)")
	assert.Contains(t, e.Msg, "non-negative")

	f := formula(t, mustBind(t, "/{'abc' :length}").Elems[0])
	assert.Same(t, sig.Length, f.Sig)
}

func TestAttach(t *testing.T) {
	seg := mustBind(t, "/school.define($c := code){name, count(@department?school_code=$c)}")
	agg := formula(t, formula(t, seg.Elems[1]).Args[0])
	sieve, ok := agg.Plural.(*sem.Sieve)
	require.True(t, ok)
	_, ok = sieve.Scope.(*sem.Moniker)
	assert.True(t, ok)
}

func TestLinkColumn(t *testing.T) {
	seg := mustBind(t, "/department{name, (school_code -> school).name}")
	col, ok := seg.Elems[1].(*sem.Column)
	require.True(t, ok)
	_, ok = col.Scope.(*sem.Attached)
	assert.True(t, ok)
}

func TestBooleanConversion(t *testing.T) {
	seg := mustBind(t, "/school?campus")
	f := formula(t, seg.Seed.(*sem.Sieve).Filter)
	assert.Same(t, sig.And, f.Sig)
	seg = mustBind(t, "/school?campus='old'&name~'art'&!is_null(code)")
	f = formula(t, seg.Seed.(*sem.Sieve).Filter)
	assert.Same(t, sig.And, f.Sig)
	assert.Len(t, f.Args, 3)
}

func TestNestedSelection(t *testing.T) {
	e := bindError(t, "/school{name, department{name}}")
	assert.Contains(t, e.Msg, "nested selections")
	e = bindError(t, "/school{department}")
	assert.Contains(t, e.Msg, "scalar")
}

func TestFunctionErrors(t *testing.T) {
	e := bindError(t, "/{lenght('x')}")
	assert.Contains(t, e.Msg, "unrecognized function")
	assert.Contains(t, e.Hint, "length")
	e = bindError(t, "/{upper('a', 'b')}")
	assert.Contains(t, e.Msg, "expects 1 arguments")
	e = bindError(t, "/{integer(today())}")
	assert.Contains(t, e.Msg, "cannot convert")
}

func TestSingular(t *testing.T) {
	for _, tc := range []struct {
		query    string
		fragment string
	}{
		{"/school{department.name}", "name"},
		{"/school?department.name='Accounting'", "department.name='Accounting'"},
		{"/school.sort(department.name)", "name"},
		{"/{school.name}", "name"},
	} {
		e := bindError(t, tc.query)
		assert.Equal(t, "expected a singular expression", e.Msg, tc.query)
		assert.Equal(t, tc.fragment, e.Mark.Fragment(), tc.query)
	}
	mustBind(t, "/department{school.name}")
	mustBind(t, "/school?exists(department)")
	mustBind(t, "/(program^degree){degree, count(program)}")
}

func TestNestedLimit(t *testing.T) {
	e := bindError(t, "/school{code, count(department.limit(1))}")
	assert.Equal(t, "a limit is not supported in a nested flow", e.Msg)
	assert.Equal(t, "department.limit(1)", e.Mark.Fragment())
	e = bindError(t, "/school?exists(department.limit(2,1))")
	assert.Equal(t, "department.limit(2,1)", e.Mark.Fragment())
	mustBind(t, "/{count(school.limit(2))}")
	mustBind(t, "/school.limit(2){count(department)}")
}

func TestSubstitutionScope(t *testing.T) {
	// The body of a definition sees the names of the scope it was
	// defined in, not the ones added after it.
	seg := mustBind(t, "/school.define(c := campus).define(campus := 'x'){c}")
	col, ok := seg.Elems[0].(*sem.Column)
	require.True(t, ok, "got %T", seg.Elems[0])
	assert.Equal(t, "campus", col.Column.Name)
	seg = mustBind(t, "/school.define(code := code){code}")
	col, ok = seg.Elems[0].(*sem.Column)
	require.True(t, ok, "got %T", seg.Elems[0])
	assert.Equal(t, "code", col.Column.Name)
}
