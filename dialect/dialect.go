// Package dialect holds the ANSI rendering shared by the database
// backends.  A backend embeds Base and overrides what its SQL does
// differently.
package dialect

import (
	"strconv"
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/sig"
)

type Base struct{}

func (Base) Name() string          { return "ansi" }
func (Base) MaxIdentifier() int    { return 128 }
func (Base) Booleans() bool        { return true }
func (Base) GroupByPosition() bool { return true }
func (Base) Dual() string          { return "" }
func (Base) TableAlias() string    { return " AS " }
func (Base) RowNumber() string     { return "ROW_NUMBER() OVER ()" }

func (Base) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Base) Literal(any, htsql.Domain) (string, bool) {
	return "", false
}

func (Base) TypeName(dom htsql.Domain) string {
	switch dom.Kind() {
	case htsql.KindBoolean:
		return "BOOLEAN"
	case htsql.KindInteger:
		return "INTEGER"
	case htsql.KindDecimal:
		return "DECIMAL"
	case htsql.KindFloat:
		return "FLOAT"
	case htsql.KindDate:
		return "DATE"
	case htsql.KindTime:
		return "TIME"
	case htsql.KindDateTime:
		return "TIMESTAMP"
	}
	return "VARCHAR"
}

func (Base) Cast(from, to htsql.Domain) string {
	return ""
}

func (Base) Template(*sig.Sig, int) string {
	return ""
}

func (Base) Contains(lhs, pattern string, literal bool) string {
	if literal {
		return "(LOWER(" + lhs + ") LIKE LOWER(" + pattern + ") ESCAPE '!')"
	}
	return "(POSITION(LOWER(" + pattern + ") IN LOWER(" + lhs + ")) > 0)"
}

func (Base) Limit(limit, offset *int64) string {
	return LimitOffset(limit, offset, "")
}

// LimitOffset renders "LIMIT n OFFSET m".  When only an offset is given,
// unbounded is used as the limit, or the LIMIT clause is left out if
// unbounded is empty.
func LimitOffset(limit, offset *int64, unbounded string) string {
	var parts []string
	switch {
	case limit != nil:
		parts = append(parts, "LIMIT "+strconv.FormatInt(*limit, 10))
	case unbounded != "":
		parts = append(parts, "LIMIT "+unbounded)
	}
	if offset != nil {
		parts = append(parts, "OFFSET "+strconv.FormatInt(*offset, 10))
	}
	return strings.Join(parts, " ")
}
