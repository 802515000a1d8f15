package oracle_test

import (
	"strings"
	"testing"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler/dump"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/dialect/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limited(t *testing.T, limit, offset *int64) *frame.Select {
	school := demo.Catalog().LookupTable("school")
	require.NotNil(t, school)
	code := &frame.Column{Tag: 2, Column: school.LookupColumn("code")}
	return &frame.Select{
		Tag: 1,
		Select: []frame.Phrase{
			code,
			&frame.Column{Tag: 2, Column: school.LookupColumn("name")},
		},
		Include: []*frame.Anchor{{Frame: &frame.Table{Tag: 2, Table: school}}},
		Where:   frame.NewFormula(sig.Equal, htsql.Boolean, code, &frame.Literal{Value: "x", Dom: htsql.Text}),
		Order:   []frame.Order{{Phrase: code, Dir: 1}},
		Limit:   limit,
		Offset:  offset,
	}
}

func counter(start frame.Tag) func() frame.Tag {
	return func() frame.Tag {
		start++
		return start
	}
}

func ptr(n int64) *int64 {
	return &n
}

func TestPaginateLimitOffset(t *testing.T) {
	d := oracle.New()
	s := d.Paginate(limited(t, ptr(10), ptr(20)), counter(9))
	assert.Equal(t, frame.Tag(1), s.Tag)
	assert.Len(t, s.Select, 2)
	sql, err := dump.Serialize(&frame.Segment{Select: s}, d)
	require.NoError(t, err)
	expected := strings.Join([]string{
		`SELECT "school"."code",`,
		`       "school"."name"`,
		`FROM (SELECT "school"."code",`,
		`             "school"."name",`,
		`             ROWNUM AS "row_number"`,
		`      FROM (SELECT "school"."code",`,
		`                   "school"."name"`,
		`            FROM "school"`,
		`            WHERE ("school"."code" = 'x')`,
		`            ORDER BY 1 ASC) "school"`,
		`      WHERE (ROWNUM <= 30)) "school"`,
		`WHERE ("school"."row_number" > 20)`,
		`ORDER BY "school"."row_number" ASC`,
	}, "\n")
	assert.Equal(t, expected, sql)
}

func TestPaginateLimit(t *testing.T) {
	d := oracle.New()
	s := d.Paginate(limited(t, ptr(5), nil), counter(9))
	assert.Equal(t, frame.Tag(1), s.Tag)
	require.Len(t, s.Include, 1)
	inner, ok := s.Include[0].Frame.(*frame.Select)
	require.True(t, ok)
	assert.Nil(t, inner.Limit)
	assert.NotEqual(t, frame.Tag(1), inner.Tag)
	sql, err := dump.Serialize(&frame.Segment{Select: s}, d)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE (ROWNUM <= 5)")
	assert.NotContains(t, sql, "row_number")
}

func TestPaginateUnlimited(t *testing.T) {
	s := limited(t, nil, nil)
	assert.Same(t, s, oracle.New().Paginate(s, counter(9)))
}

func TestTextCast(t *testing.T) {
	d := oracle.New()
	assert.Equal(t, "TO_CHAR({0})", d.Cast(htsql.Integer, htsql.Text))
	assert.Equal(t, "", d.Cast(htsql.Boolean, htsql.Text))
	assert.Equal(t, "BINARY_DOUBLE", d.TypeName(htsql.Float))
}
