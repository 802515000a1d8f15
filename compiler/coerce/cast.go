package coerce

import "github.com/brimdata/htsql"

// CanCast reports whether an explicit conversion from one domain to
// another exists.
func CanCast(from, to htsql.Domain) bool {
	if !htsql.IsScalar(to) {
		return false
	}
	fk, tk := from.Kind(), to.Kind()
	if fk == htsql.KindUntyped || fk == tk {
		return true
	}
	switch tk {
	case htsql.KindText:
		return htsql.IsScalar(from)
	case htsql.KindBoolean:
		return fk == htsql.KindText || htsql.IsNumeric(from)
	case htsql.KindInteger, htsql.KindDecimal, htsql.KindFloat:
		return fk == htsql.KindText || htsql.IsNumeric(from)
	case htsql.KindDate, htsql.KindTime:
		return fk == htsql.KindText || fk == htsql.KindDateTime
	case htsql.KindDateTime:
		return fk == htsql.KindText || fk == htsql.KindDate
	case htsql.KindEnum:
		return fk == htsql.KindText
	}
	return false
}

// Promotes reports whether values of kind a may be used where kind b is
// expected without an explicit conversion: integers promote to decimals
// and floats, decimals to floats and dates to datetimes.
func Promotes(a, b htsql.Kind) bool {
	if a == b {
		return true
	}
	switch a {
	case htsql.KindInteger:
		return b == htsql.KindDecimal || b == htsql.KindFloat
	case htsql.KindDecimal:
		return b == htsql.KindFloat
	case htsql.KindDate:
		return b == htsql.KindDateTime
	case htsql.KindEnum:
		return b == htsql.KindText
	}
	return false
}
