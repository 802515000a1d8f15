package optimizer_test

import (
	"math/big"
	"testing"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/optimizer"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/term"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integer(n int64) *frame.Literal {
	return &frame.Literal{Value: big.NewInt(n), Dom: htsql.Integer}
}

func text(s string) *frame.Literal {
	return &frame.Literal{Value: s, Dom: htsql.Text}
}

func campus(t *testing.T) *frame.Column {
	school := demo.Catalog().LookupTable("school")
	require.NotNil(t, school)
	return &frame.Column{Tag: 1, Column: school.LookupColumn("campus"), Nullable: true}
}

func literal(t *testing.T, p frame.Phrase) any {
	t.Helper()
	l, ok := p.(*frame.Literal)
	require.True(t, ok, "expected a literal, got %T", p)
	return l.Value
}

func TestFoldArithmetic(t *testing.T) {
	p := optimizer.ReducePhrase(frame.NewFormula(sig.Add, htsql.Integer, integer(1), integer(1)))
	assert.Equal(t, 0, big.NewInt(2).Cmp(literal(t, p).(*big.Int)))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Multiply, htsql.Integer,
		frame.NewFormula(sig.Subtract, htsql.Integer, integer(7), integer(2)), integer(3)))
	assert.Equal(t, 0, big.NewInt(15).Cmp(literal(t, p).(*big.Int)))
}

func TestFoldDecimal(t *testing.T) {
	a := &frame.Literal{Value: decimal.RequireFromString("1.5"), Dom: htsql.Decimal}
	b := &frame.Literal{Value: decimal.RequireFromString("2.25"), Dom: htsql.Decimal}
	p := optimizer.ReducePhrase(frame.NewFormula(sig.Add, htsql.Decimal, a, b))
	assert.True(t, decimal.RequireFromString("3.75").Equal(literal(t, p).(decimal.Decimal)))
}

func TestFoldComparison(t *testing.T) {
	p := optimizer.ReducePhrase(frame.NewFormula(sig.Less, htsql.Boolean, integer(1), integer(2)))
	assert.Equal(t, true, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Equal, htsql.Boolean, text("a"), text("b")))
	assert.Equal(t, false, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.NotEqual, htsql.Boolean, text("a"), text("b")))
	assert.Equal(t, true, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Equal, htsql.Boolean, text("a"), &frame.Literal{Dom: htsql.Text}))
	assert.Nil(t, literal(t, p))
	// Equal under a case-insensitive or padding collation.
	for _, other := range []string{"A", "a  "} {
		p = optimizer.ReducePhrase(frame.NewFormula(sig.Equal, htsql.Boolean, text("a"), text(other)))
		_, ok := p.(*frame.Formula)
		assert.True(t, ok, "%q", other)
	}
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Less, htsql.Boolean, text("a"), text("b")))
	_, ok := p.(*frame.Formula)
	assert.True(t, ok)
}

func TestFoldConcatenate(t *testing.T) {
	p := optimizer.ReducePhrase(frame.NewFormula(sig.Concatenate, htsql.Text, text("a"), text("b")))
	assert.Equal(t, "ab", literal(t, p))
}

func TestFoldContains(t *testing.T) {
	p := optimizer.ReducePhrase(frame.NewFormula(sig.Contains, htsql.Boolean, text("Graduate School"), text("SCHOOL")))
	assert.Equal(t, true, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Excludes, htsql.Boolean, text("a_b"), text("%")))
	assert.Equal(t, true, literal(t, p))
}

func TestLogic(t *testing.T) {
	c := campus(t)
	isNull := frame.NewFormula(sig.IsNull, htsql.Boolean, c)
	p := optimizer.ReducePhrase(frame.NewFormula(sig.And, htsql.Boolean, frame.True, isNull))
	assert.Same(t, isNull, p)
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Or, htsql.Boolean, isNull, frame.True))
	assert.Equal(t, true, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.Not, htsql.Boolean, frame.NewFormula(sig.Not, htsql.Boolean, isNull)))
	assert.Same(t, isNull, p)
}

func TestIsNull(t *testing.T) {
	p := optimizer.ReducePhrase(frame.NewFormula(sig.IsNull, htsql.Boolean, text("x")))
	assert.Equal(t, false, literal(t, p))
	p = optimizer.ReducePhrase(frame.NewFormula(sig.IsNull, htsql.Boolean, &frame.Literal{Dom: htsql.Text}))
	assert.Equal(t, true, literal(t, p))
	c := campus(t)
	p = optimizer.ReducePhrase(frame.NewFormula(sig.IsNull, htsql.Boolean, c))
	_, ok := p.(*frame.Formula)
	assert.True(t, ok)
}

func TestIfNull(t *testing.T) {
	c := campus(t)
	p := optimizer.ReducePhrase(frame.NewFormula(sig.IfNull, htsql.Text, c, text("none"), text("other")))
	f, ok := p.(*frame.Formula)
	require.True(t, ok)
	assert.Len(t, f.Args, 2)
	assert.False(t, f.IsNullable())
	p = optimizer.ReducePhrase(frame.NewFormula(sig.IfNull, htsql.Text, &frame.Literal{Dom: htsql.Text}, c))
	assert.Same(t, c, p)
}

func TestCast(t *testing.T) {
	p := optimizer.ReducePhrase(&frame.Cast{Base: integer(3), Dom: htsql.Float})
	assert.Equal(t, 3.0, literal(t, p))
	c := campus(t)
	assert.Same(t, c, optimizer.ReducePhrase(&frame.Cast{Base: c, Dom: c.Domain()}))
}

func TestIntegerWidth(t *testing.T) {
	course := demo.Catalog().LookupTable("course")
	require.NotNil(t, course)
	credits := &frame.Column{Tag: 1, Column: course.LookupColumn("credits"), Nullable: true}
	assert.Same(t, credits, optimizer.ReducePhrase(&frame.Cast{Base: credits, Dom: htsql.Integer}))
	assert.Same(t, credits, optimizer.ReducePhrase(&frame.Cast{Base: credits, Dom: &htsql.IntegerDomain{Size: 64}}))
	narrow := &frame.Cast{Base: credits, Dom: &htsql.IntegerDomain{Size: 16}}
	assert.Same(t, narrow, optimizer.ReducePhrase(narrow))
}

func TestUnchangedPhrase(t *testing.T) {
	c := campus(t)
	p := frame.NewFormula(sig.Equal, htsql.Boolean, c, text("old"))
	assert.Same(t, p, optimizer.ReducePhrase(p))
}

func TestReduceSegment(t *testing.T) {
	c := campus(t)
	s := &frame.Select{
		Tag:    2,
		Select: []frame.Phrase{frame.NewFormula(sig.Add, htsql.Integer, integer(1), integer(1))},
		Where:  frame.NewFormula(sig.And, htsql.Boolean, frame.True, frame.True),
		Order: []frame.Order{
			{Phrase: integer(1), Dir: 1},
			{Phrase: c, Dir: -1},
		},
	}
	nested := &frame.Select{Tag: 3, Select: []frame.Phrase{frame.NewFormula(sig.Not, htsql.Boolean, frame.False)}}
	s.Include = []*frame.Anchor{{Frame: nested, Kind: term.Cross}}
	in := &frame.Segment{Select: s, Titles: []string{"x"}}
	seg := optimizer.Reduce(in)
	assert.NotSame(t, in, seg)
	assert.NotSame(t, s, seg.Select)
	assert.Equal(t, []string{"x"}, seg.Titles)
	// The input is left as it was.
	assert.NotNil(t, s.Where)
	assert.Len(t, s.Order, 2)
	_, ok := s.Select[0].(*frame.Formula)
	assert.True(t, ok)
	_, ok = nested.Select[0].(*frame.Formula)
	assert.True(t, ok)
	require.Len(t, seg.Select.Include, 1)
	reduced, ok := seg.Select.Include[0].Frame.(*frame.Select)
	require.True(t, ok)
	assert.NotSame(t, nested, reduced)
	assert.Equal(t, true, literal(t, reduced.Select[0]))
	assert.Nil(t, seg.Select.Where)
	require.Len(t, seg.Select.Order, 1)
	assert.Same(t, c, seg.Select.Order[0].Phrase)
	_, ok = seg.Select.Select[0].(*frame.Literal)
	assert.True(t, ok)
}

func TestIdempotent(t *testing.T) {
	c := campus(t)
	phrases := []frame.Phrase{
		frame.NewFormula(sig.IfNull, htsql.Text, c, text("x")),
		frame.NewFormula(sig.And, htsql.Boolean,
			frame.NewFormula(sig.IsNull, htsql.Boolean, c),
			frame.NewFormula(sig.Or, htsql.Boolean, frame.False, frame.NewFormula(sig.Equal, htsql.Boolean, c, text("old")))),
		frame.NewFormula(sig.Concatenate, htsql.Text, c, frame.NewFormula(sig.Concatenate, htsql.Text, text("a"), text("b"))),
	}
	for _, p := range phrases {
		once := optimizer.ReducePhrase(p)
		twice := optimizer.ReducePhrase(once)
		assert.True(t, frame.Equal(once, twice))
	}
}
