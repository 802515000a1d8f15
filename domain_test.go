package htsql

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, d Domain, in, out string) {
	t.Helper()
	v, err := d.Parse(in)
	require.NoError(t, err)
	s, err := d.Dump(v)
	require.NoError(t, err)
	assert.Equal(t, out, s)
}

func TestLiteralRoundTrip(t *testing.T) {
	roundTrip(t, Boolean, "TRUE", "true")
	roundTrip(t, Integer, "+42", "42")
	roundTrip(t, Integer, "-170141183460469231731687303715884105728", "-170141183460469231731687303715884105728")
	roundTrip(t, Decimal, "1.50", "1.5")
	roundTrip(t, Float, "1.5", "1.5")
	roundTrip(t, Float, "3", "3e0")
	roundTrip(t, Float, "1e10", "1e+10")
	roundTrip(t, Text, "école", "école")
	roundTrip(t, Date, "2010-04-15", "2010-04-15")
	roundTrip(t, Time, "20:13:05.25", "20:13:05.25")
	roundTrip(t, Time, "7:05", "07:05:00")
	roundTrip(t, DateTime, "2010-04-15 20:13:05", "2010-04-15 20:13:05")
	roundTrip(t, DateTime, "2010-04-15", "2010-04-15 00:00:00")
}

func TestInvalidLiterals(t *testing.T) {
	for _, c := range []struct {
		d Domain
		s string
	}{
		{Boolean, "yes"},
		{Integer, "1.0"},
		{&IntegerDomain{Size: 8}, "128"},
		{Decimal, "x"},
		{Float, "NaN"},
		{&TextDomain{Length: 2}, "abc"},
		{&EnumDomain{Labels: []string{"a", "b"}}, "c"},
		{Date, "2010-13-01"},
		{Time, "24:00"},
		{DateTime, "tomorrow"},
	} {
		_, err := c.d.Parse(c.s)
		assert.Error(t, err, "%s %q", c.d, c.s)
	}
	_, err := Void.Parse("")
	assert.ErrorIs(t, err, ErrNotLiteral)
	_, err = (&RecordDomain{}).Dump(nil)
	assert.ErrorIs(t, err, ErrNotLiteral)
}

func TestIntegerFits(t *testing.T) {
	d := &IntegerDomain{Size: 8}
	assert.True(t, d.Fits(big.NewInt(127)))
	assert.False(t, d.Fits(big.NewInt(128)))
	assert.True(t, d.Fits(big.NewInt(-128)))
	assert.False(t, d.Fits(big.NewInt(-129)))
	assert.True(t, Integer.Fits(new(big.Int).Lsh(big.NewInt(1), 100)))
}

func TestFloatRound(t *testing.T) {
	half := &FloatDomain{Size: 16}
	assert.Equal(t, 0.5, half.Round(0.5))
	assert.NotEqual(t, 0.1, half.Round(0.1))
	assert.InDelta(t, 0.1, half.Round(0.1), 1e-3)
	_, err := half.Parse("1e6")
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	d := &IdentityDomain{Fields: []Domain{Text, Integer}}
	v, err := d.Parse("astro.105")
	require.NoError(t, err)
	assert.True(t, EqualValues([]any{"astro", big.NewInt(105)}, v))
	s, err := d.Dump([]any{"a.b", big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "'a.b'.1", s)
	v, err = d.Parse(s)
	require.NoError(t, err)
	assert.True(t, EqualValues([]any{"a.b", big.NewInt(1)}, v))
	_, err = d.Parse("astro")
	assert.Error(t, err)
}

func TestEqualDomains(t *testing.T) {
	assert.True(t, EqualDomains(Float, &FloatDomain{Size: 64}))
	assert.False(t, EqualDomains(Float, &FloatDomain{Size: 32}))
	assert.True(t, EqualDomains(&RecordDomain{Fields: []Field{{"a", Text}}}, &RecordDomain{Fields: []Field{{"a", Text}}}))
	assert.False(t, EqualDomains(&RecordDomain{Fields: []Field{{"a", Text}}}, &RecordDomain{Fields: []Field{{"b", Text}}}))
	assert.False(t, EqualDomains(&OpaqueDomain{"pgsql", "xml"}, &OpaqueDomain{"mysql", "xml"}))
	assert.False(t, EqualDomains(Integer, Decimal))
}

func TestEqualValues(t *testing.T) {
	assert.True(t, EqualValues(decimal.RequireFromString("1.50"), decimal.RequireFromString("1.5")))
	assert.True(t, EqualValues(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, EqualValues(big.NewInt(1), nil))
	assert.True(t, EqualValues(nil, nil))
}

func TestLookupDomain(t *testing.T) {
	assert.Equal(t, "integer(64)", LookupDomain("sqlite", "INTEGER").String())
	assert.Equal(t, "integer(32)", LookupDomain("pgsql", "integer").String())
	assert.Equal(t, "varchar(20)", LookupDomain("sqlite", "VARCHAR(20)").String())
	assert.Equal(t, "char(3)", LookupDomain("pgsql", "char(3)").String())
	assert.Equal(t, "decimal(5,2)", LookupDomain("pgsql", "NUMERIC(5, 2)").String())
	assert.Equal(t, "enum(a,b)", LookupDomain("mysql", "enum('a','b')").String())
	assert.Equal(t, KindDateTime, LookupDomain("pgsql", "timestamp").Kind())
	assert.Equal(t, "sqlite:BLOB", LookupDomain("sqlite", "BLOB").String())
}
