package coerce

import (
	"testing"

	"github.com/brimdata/htsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samples = []htsql.Domain{
	htsql.Void,
	htsql.Untyped,
	htsql.Boolean,
	htsql.Integer,
	&htsql.IntegerDomain{Size: 16},
	&htsql.IntegerDomain{Size: 64},
	htsql.Decimal,
	&htsql.DecimalDomain{Precision: 5, Scale: 2},
	htsql.Float,
	&htsql.FloatDomain{Size: 32},
	htsql.Text,
	&htsql.TextDomain{Length: 16, IsVarying: true},
	&htsql.EnumDomain{Labels: []string{"a", "b"}},
	&htsql.EnumDomain{Labels: []string{"c"}},
	htsql.Date,
	htsql.Time,
	htsql.DateTime,
	&htsql.RecordDomain{Fields: []htsql.Field{{Name: "x", Domain: htsql.Integer}}},
	&htsql.ListDomain{Item: htsql.Integer},
	&htsql.EntityDomain{Table: "school"},
	&htsql.OpaqueDomain{Backend: "pgsql", Name: "xml"},
	&htsql.OpaqueDomain{Backend: "mysql", Name: "xml"},
}

func TestSymmetry(t *testing.T) {
	e := NewEngine()
	for _, a := range samples {
		for _, b := range samples {
			ab, err := e.Binary(a, b)
			if err != nil {
				continue
			}
			ba, err := e.Binary(b, a)
			require.NoError(t, err, "%s, %s", b, a)
			assert.True(t, htsql.EqualDomains(ab, ba), "%s, %s: %s != %s", a, b, ab, ba)
		}
	}
}

func TestStructuralNeverCoerce(t *testing.T) {
	e := NewEngine()
	for _, a := range samples {
		switch a.Kind() {
		case htsql.KindVoid, htsql.KindRecord, htsql.KindList, htsql.KindEntity:
		default:
			continue
		}
		for _, b := range samples {
			_, err := e.Binary(a, b)
			assert.ErrorIs(t, err, ErrIncompatibleTypes, "%s, %s", a, b)
		}
	}
}

func TestCoerce(t *testing.T) {
	e := NewEngine()
	d, err := e.Coerce(htsql.Untyped, htsql.Untyped)
	require.NoError(t, err)
	assert.Equal(t, htsql.Text, d)

	d, err = e.Coerce(htsql.Integer, htsql.Decimal, htsql.Untyped)
	require.NoError(t, err)
	assert.Equal(t, htsql.Decimal, d)

	d, err = e.Coerce(&htsql.IntegerDomain{Size: 16}, &htsql.IntegerDomain{Size: 64})
	require.NoError(t, err)
	assert.Equal(t, "integer(64)", d.String())

	d, err = e.Coerce(htsql.Date, htsql.DateTime)
	require.NoError(t, err)
	assert.Equal(t, htsql.DateTime, d)

	_, err = e.Coerce(htsql.Integer, htsql.Text)
	assert.ErrorIs(t, err, ErrIncompatibleTypes)

	d, err = e.Common(htsql.Untyped, htsql.Untyped)
	require.NoError(t, err)
	assert.Equal(t, htsql.Untyped, d)
}

func TestOverride(t *testing.T) {
	e := NewEngine().Clone()
	e.RegisterSymmetric(htsql.KindBoolean, htsql.KindInteger, func(_, b htsql.Domain) (htsql.Domain, bool) {
		return b, true
	})
	d, err := e.Binary(htsql.Integer, htsql.Boolean)
	require.NoError(t, err)
	assert.Equal(t, htsql.Integer, d)
	_, err = NewEngine().Binary(htsql.Integer, htsql.Boolean)
	assert.Error(t, err)
}

func TestCanCast(t *testing.T) {
	assert.True(t, CanCast(htsql.Integer, htsql.Text))
	assert.True(t, CanCast(htsql.Text, htsql.Date))
	assert.True(t, CanCast(htsql.Untyped, htsql.DateTime))
	assert.False(t, CanCast(htsql.Date, htsql.Integer))
	assert.False(t, CanCast(htsql.Integer, &htsql.EntityDomain{Table: "t"}))
	assert.True(t, Promotes(htsql.KindInteger, htsql.KindFloat))
	assert.False(t, Promotes(htsql.KindFloat, htsql.KindInteger))
}
