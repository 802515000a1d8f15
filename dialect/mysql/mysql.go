// Package mysql renders queries for MySQL.  The connection must run with
// the ANSI_QUOTES SQL mode so that double quotes delimit identifiers.
package mysql

import (
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/dialect"
)

// maxRows is the documented way to ask MySQL for an offset without a
// limit.
const maxRows = "18446744073709551615"

type Dialect struct {
	dialect.Base
}

func New() *Dialect {
	return &Dialect{}
}

func (*Dialect) Name() string       { return "mysql" }
func (*Dialect) MaxIdentifier() int { return 64 }

var quoter = strings.NewReplacer(`\`, `\\`, "'", "''")

func (*Dialect) QuoteString(s string) string {
	return "'" + quoter.Replace(s) + "'"
}

func (*Dialect) TypeName(dom htsql.Domain) string {
	switch dom.Kind() {
	case htsql.KindBoolean, htsql.KindInteger:
		return "SIGNED INTEGER"
	case htsql.KindDecimal:
		return "DECIMAL(65,30)"
	case htsql.KindFloat:
		return "DOUBLE"
	case htsql.KindDate:
		return "DATE"
	case htsql.KindTime:
		return "TIME"
	case htsql.KindDateTime:
		return "DATETIME"
	}
	return "CHAR"
}

var templates = map[*sig.Sig]string{
	sig.Concatenate: "CONCAT(COALESCE({0}, ''), COALESCE({1}, ''))",
	sig.Same:        "({0} <=> {1})",
	sig.NotSame:     "(NOT ({0} <=> {1}))",
	sig.Length:      "CHAR_LENGTH({0})",
	sig.Trunc:       "TRUNCATE({0}, 0)",
	sig.TruncTo:     "TRUNCATE({0}, {1})",
	sig.Today:       "CURDATE()",
	sig.Now:         "NOW()",
	sig.DateAdd:     "({0} + INTERVAL {1} DAY)",
	sig.DateSub:     "({0} - INTERVAL {1} DAY)",
	sig.DateDiff:    "DATEDIFF({0}, {1})",
}

func (*Dialect) Template(s *sig.Sig, arity int) string {
	return templates[s]
}

func (*Dialect) Contains(lhs, pattern string, literal bool) string {
	if literal {
		return "(" + lhs + " LIKE " + pattern + " ESCAPE '!')"
	}
	return "(LOCATE(LOWER(" + pattern + "), LOWER(" + lhs + ")) > 0)"
}

func (*Dialect) Limit(limit, offset *int64) string {
	return dialect.LimitOffset(limit, offset, maxRows)
}
