// Package pgsql renders queries for PostgreSQL.
package pgsql

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/dialect"
)

type Dialect struct {
	dialect.Base
}

func New() *Dialect {
	return &Dialect{}
}

func (*Dialect) Name() string       { return "pgsql" }
func (*Dialect) MaxIdentifier() int { return 63 }

func (d *Dialect) TypeName(dom htsql.Domain) string {
	switch dom.Kind() {
	case htsql.KindDecimal:
		return "NUMERIC"
	case htsql.KindFloat:
		return "DOUBLE PRECISION"
	case htsql.KindText, htsql.KindEnum, htsql.KindUntyped:
		return "TEXT"
	}
	return d.Base.TypeName(dom)
}

var templates = map[*sig.Sig]string{
	sig.Exists: "BOOL_OR({0?})",
	sig.Every:  "BOOL_AND({0?})",
	sig.Year:   "CAST(EXTRACT(YEAR FROM {0}) AS INTEGER)",
	sig.Month:  "CAST(EXTRACT(MONTH FROM {0}) AS INTEGER)",
	sig.Day:    "CAST(EXTRACT(DAY FROM {0}) AS INTEGER)",
	sig.Hour:   "CAST(EXTRACT(HOUR FROM {0}) AS INTEGER)",
	sig.Minute: "CAST(EXTRACT(MINUTE FROM {0}) AS INTEGER)",
	sig.Second: "CAST(EXTRACT(SECOND FROM {0}) AS DOUBLE PRECISION)",
}

func (*Dialect) Template(s *sig.Sig, arity int) string {
	if s == sig.Tail {
		if arity == 1 {
			return "RIGHT({0}, 1)"
		}
		return "RIGHT({0}, {1})"
	}
	return templates[s]
}

func (*Dialect) Contains(lhs, pattern string, literal bool) string {
	if literal {
		return "(" + lhs + " ILIKE " + pattern + " ESCAPE '!')"
	}
	return "(POSITION(LOWER(" + pattern + ") IN LOWER(" + lhs + ")) > 0)"
}
