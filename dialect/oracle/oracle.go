// Package oracle renders queries for Oracle.  Oracle has no boolean
// values and no LIMIT clause: predicates in value positions become CASE
// expressions and pagination is expressed with ROWNUM.
package oracle

import (
	"math/big"
	"time"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/dialect"
)

type Dialect struct {
	dialect.Base
}

func New() *Dialect {
	return &Dialect{}
}

func (*Dialect) Name() string          { return "oracle" }
func (*Dialect) MaxIdentifier() int    { return 30 }
func (*Dialect) Booleans() bool        { return false }
func (*Dialect) GroupByPosition() bool { return false }
func (*Dialect) Dual() string          { return "DUAL" }
func (*Dialect) TableAlias() string    { return " " }
func (*Dialect) RowNumber() string     { return "ROWNUM" }

// Limit is empty since Paginate removes every limit and offset before
// serialization.
func (*Dialect) Limit(*int64, *int64) string { return "" }

func (d *Dialect) Literal(v any, dom htsql.Domain) (string, bool) {
	if _, ok := v.(time.Time); !ok || dom.Kind() != htsql.KindTime {
		return "", false
	}
	text, err := dom.Dump(v)
	if err != nil {
		return "", false
	}
	return "INTERVAL " + d.QuoteString(text) + " HOUR TO SECOND", true
}

func (*Dialect) TypeName(dom htsql.Domain) string {
	switch dom.Kind() {
	case htsql.KindBoolean:
		return "NUMBER(1)"
	case htsql.KindInteger:
		return "INTEGER"
	case htsql.KindDecimal:
		return "NUMBER"
	case htsql.KindFloat:
		return "BINARY_DOUBLE"
	case htsql.KindDate:
		return "DATE"
	case htsql.KindTime:
		return "INTERVAL DAY TO SECOND"
	case htsql.KindDateTime:
		return "TIMESTAMP"
	}
	return "VARCHAR2(4000)"
}

func (*Dialect) Cast(from, to htsql.Domain) string {
	switch to.Kind() {
	case htsql.KindText, htsql.KindEnum:
		if from.Kind() != htsql.KindBoolean {
			return "TO_CHAR({0})"
		}
	}
	return ""
}

var templates = map[*sig.Sig]string{
	sig.Same:    "(DECODE({0}, {1}, 1, 0) = 1)",
	sig.NotSame: "(DECODE({0}, {1}, 1, 0) = 0)",
	sig.Length:  "LENGTH({0})",
	sig.Today:   "TRUNC(CURRENT_DATE)",
}

func (*Dialect) Template(s *sig.Sig, arity int) string {
	return templates[s]
}

func (*Dialect) Contains(lhs, pattern string, literal bool) string {
	if literal {
		return "(UPPER(" + lhs + ") LIKE UPPER(" + pattern + ") ESCAPE '!')"
	}
	return "(INSTR(UPPER(" + lhs + "), UPPER(" + pattern + ")) > 0)"
}

// Paginate rewrites a frame with a limit or an offset into frames
// filtered by ROWNUM.  ROWNUM is assigned to a row as it passes the WHERE
// clause of the frame that selects it, before any later filter, so
// "ROWNUM > m" never holds.  The upper bound is therefore applied in the
// frame around the original one and the lower bound one frame further
// out, on the row number exported by the middle frame:
//
//	SELECT ... FROM (SELECT ..., ROWNUM AS rn
//	                 FROM (original) WHERE ROWNUM <= m + n)
//	WHERE rn > m
//	ORDER BY rn
//
// The outermost frame keeps the tag of the original one and exports the
// same outputs.
func (*Dialect) Paginate(s *frame.Select, next func() frame.Tag) *frame.Select {
	if s.Limit == nil && s.Offset == nil {
		return s
	}
	var offset int64
	if s.Offset != nil {
		offset = *s.Offset
	}
	inner := *s
	inner.Tag = next()
	inner.Limit, inner.Offset = nil, nil
	mid := &frame.Select{
		Tag:     next(),
		Select:  references(&inner, inner.Select),
		Include: []*frame.Anchor{{Frame: &inner}},
	}
	if s.Limit != nil {
		mid.Where = frame.NewFormula(sig.LessEq, htsql.Boolean, &frame.RowNumber{}, integer(offset+*s.Limit))
	}
	if offset == 0 {
		mid.Tag = s.Tag
		return mid
	}
	mid.Select = append(mid.Select, &frame.RowNumber{})
	rn := &frame.Reference{Tag: mid.Tag, Index: len(mid.Select) - 1, Dom: htsql.Integer}
	outer := &frame.Select{
		Tag:     s.Tag,
		Select:  references(mid, mid.Select[:len(mid.Select)-1]),
		Include: []*frame.Anchor{{Frame: mid}},
		Where:   frame.NewFormula(sig.Greater, htsql.Boolean, rn, integer(offset)),
	}
	if len(inner.Order) > 0 {
		outer.Order = []frame.Order{{Phrase: rn, Dir: 1}}
	}
	return outer
}

func references(s *frame.Select, items []frame.Phrase) []frame.Phrase {
	refs := make([]frame.Phrase, 0, len(items))
	for k, p := range items {
		refs = append(refs, &frame.Reference{Tag: s.Tag, Index: k, Dom: p.Domain(), Nullable: p.IsNullable()})
	}
	return refs
}

func integer(n int64) *frame.Literal {
	return &frame.Literal{Value: big.NewInt(n), Dom: htsql.Integer}
}
