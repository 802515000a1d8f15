package frame_test

import (
	"testing"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	null = &frame.Literal{Dom: htsql.Integer}
	one  = &frame.Literal{Value: 1.0, Dom: htsql.Float}
)

func TestNullability(t *testing.T) {
	assert.True(t, frame.NewFormula(sig.Add, htsql.Float, one, null).IsNullable())
	assert.False(t, frame.NewFormula(sig.Add, htsql.Float, one, one).IsNullable())
	assert.False(t, frame.NewFormula(sig.IsNull, htsql.Boolean, null).IsNullable())
	assert.False(t, frame.NewFormula(sig.IfNull, htsql.Float, null, one).IsNullable())
	assert.True(t, frame.NewFormula(sig.Divide, htsql.Float, one, one).IsNullable())
	assert.False(t, frame.NewFormula(sig.Count, htsql.Integer, one).IsNullable())
	assert.True(t, frame.NewFormula(sig.Max, htsql.Float, one).IsNullable())
}

func TestAnd(t *testing.T) {
	assert.Nil(t, frame.And())
	assert.Nil(t, frame.And(nil, nil))
	assert.Same(t, frame.True, frame.And(nil, frame.True))
	p := frame.And(frame.True, frame.And(frame.False, frame.True))
	f, ok := p.(*frame.Formula)
	require.True(t, ok)
	assert.Equal(t, sig.And, f.Sig)
	assert.Len(t, f.Args, 3)
}

func TestEqual(t *testing.T) {
	a := frame.NewFormula(sig.Add, htsql.Float, one, one)
	b := frame.NewFormula(sig.Add, htsql.Float, one, &frame.Literal{Value: 1.0, Dom: htsql.Float})
	assert.True(t, frame.Equal(a, b))
	assert.False(t, frame.Equal(a, frame.NewFormula(sig.Subtract, htsql.Float, one, one)))
	assert.False(t, frame.Equal(one, null))
}
