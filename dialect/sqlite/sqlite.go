// Package sqlite renders queries for SQLite.  SQLite stores dates as
// text, so date literals are plain strings and date arithmetic goes
// through the DATE and JULIANDAY functions.
package sqlite

import (
	"time"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/dump"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/dialect"
)

type Dialect struct {
	dialect.Base
}

func New() *Dialect {
	return &Dialect{}
}

func (*Dialect) Name() string       { return "sqlite" }
func (*Dialect) MaxIdentifier() int { return 64 }

func (d *Dialect) Literal(v any, dom htsql.Domain) (string, bool) {
	if _, ok := v.(time.Time); !ok {
		return "", false
	}
	text, err := dom.Dump(v)
	if err != nil {
		return "", false
	}
	return d.QuoteString(text), true
}

func (*Dialect) TypeName(dom htsql.Domain) string {
	switch dom.Kind() {
	case htsql.KindBoolean, htsql.KindInteger:
		return "INTEGER"
	case htsql.KindDecimal, htsql.KindFloat:
		return "REAL"
	}
	return "TEXT"
}

func (*Dialect) Cast(from, to htsql.Domain) string {
	switch to.Kind() {
	case htsql.KindDate:
		return "DATE({0})"
	case htsql.KindTime:
		return "TIME({0})"
	case htsql.KindDateTime:
		return "DATETIME({0})"
	}
	return ""
}

var templates = map[*sig.Sig]string{
	sig.Same:     "({0} IS {1})",
	sig.NotSame:  "({0} IS NOT {1})",
	sig.Length:   "LENGTH({0})",
	sig.Trunc:    "CAST({0} AS INTEGER)",
	sig.TruncTo:  dump.Unsupported,
	sig.Today:    "DATE('now')",
	sig.Now:      "DATETIME('now')",
	sig.Year:     "CAST(STRFTIME('%Y', {0}) AS INTEGER)",
	sig.Month:    "CAST(STRFTIME('%m', {0}) AS INTEGER)",
	sig.Day:      "CAST(STRFTIME('%d', {0}) AS INTEGER)",
	sig.Hour:     "CAST(STRFTIME('%H', {0}) AS INTEGER)",
	sig.Minute:   "CAST(STRFTIME('%M', {0}) AS INTEGER)",
	sig.Second:   "CAST(STRFTIME('%f', {0}) AS REAL)",
	sig.DateAdd:  "DATE({0}, {1} || ' days')",
	sig.DateSub:  "DATE({0}, (- {1}) || ' days')",
	sig.DateDiff: "CAST((JULIANDAY({0}) - JULIANDAY({1})) AS INTEGER)",
}

func (*Dialect) Template(s *sig.Sig, arity int) string {
	return templates[s]
}

func (*Dialect) Contains(lhs, pattern string, literal bool) string {
	if literal {
		return "(" + lhs + " LIKE " + pattern + " ESCAPE '!')"
	}
	return "(INSTR(LOWER(" + lhs + "), LOWER(" + pattern + ")) > 0)"
}

func (*Dialect) Limit(limit, offset *int64) string {
	return dialect.LimitOffset(limit, offset, "-1")
}
