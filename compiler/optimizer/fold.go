package optimizer

import (
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/shellyln/go-sql-like-expr/likeexpr"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

func arith(s *sig.Sig, a, b any) (any, bool) {
	switch a := a.(type) {
	case *big.Int:
		b, ok := b.(*big.Int)
		if !ok {
			return nil, false
		}
		switch s {
		case sig.Add:
			return new(big.Int).Add(a, b), true
		case sig.Subtract:
			return new(big.Int).Sub(a, b), true
		}
		return new(big.Int).Mul(a, b), true
	case decimal.Decimal:
		b, ok := b.(decimal.Decimal)
		if !ok {
			return nil, false
		}
		switch s {
		case sig.Add:
			return a.Add(b), true
		case sig.Subtract:
			return a.Sub(b), true
		}
		return a.Mul(b), true
	case float64:
		b, ok := b.(float64)
		if !ok {
			return nil, false
		}
		return floatArith(s, a, b)
	}
	return nil, false
}

func floatArith[T constraints.Float](s *sig.Sig, a, b T) (T, bool) {
	var v T
	switch s {
	case sig.Add:
		v = a + b
	case sig.Subtract:
		v = a - b
	default:
		v = a * b
	}
	f := float64(v)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return v, true
}

func negate(a any) (any, bool) {
	switch a := a.(type) {
	case *big.Int:
		return new(big.Int).Neg(a), true
	case decimal.Decimal:
		return a.Neg(), true
	case float64:
		return -a, true
	}
	return nil, false
}

// compare orders two literal values of the same type.  Text is compared
// only for equality since the ordering of strings depends on the
// collation of the database.  Strings that differ only in case or in
// trailing spaces may be equal under some collations and are left alone.
func compare(a, b any, equality bool) (int, bool) {
	switch a := a.(type) {
	case *big.Int:
		if b, ok := b.(*big.Int); ok {
			return a.Cmp(b), true
		}
	case decimal.Decimal:
		if b, ok := b.(decimal.Decimal); ok {
			return a.Cmp(b), true
		}
	case float64:
		if b, ok := b.(float64); ok {
			return ordered(a, b), true
		}
	case string:
		if b, ok := b.(string); ok && equality {
			if a == b {
				return 0, true
			}
			if !strings.EqualFold(strings.TrimRight(a, " "), strings.TrimRight(b, " ")) {
				return 1, true
			}
		}
	case bool:
		if b, ok := b.(bool); ok && equality {
			if a == b {
				return 0, true
			}
			return 1, true
		}
	}
	return 0, false
}

func ordered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains matches text case-insensitively the way the rendered LIKE
// pattern does.
func contains(a, b any) (bool, bool) {
	s, ok := a.(string)
	if !ok {
		return false, false
	}
	sub, ok := b.(string)
	if !ok {
		return false, false
	}
	pattern := likeexpr.ToRegexp("%"+likeEscaper.Replace(sub)+"%", '\\', false)
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return false, false
	}
	return re.MatchString(s), true
}

// convert changes the type of a literal value for a cast.  Only lossless
// numeric promotions and parses of text are performed.
func convert(v any, to htsql.Domain) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch to.Kind() {
	case htsql.KindDecimal:
		if n, ok := v.(*big.Int); ok {
			return decimal.NewFromBigInt(n, 0), true
		}
	case htsql.KindFloat:
		switch n := v.(type) {
		case *big.Int:
			f, acc := new(big.Float).SetInt(n).Float64()
			return f, acc == big.Exact
		case decimal.Decimal:
			f, exact := n.Float64()
			return f, exact
		}
	case htsql.KindText:
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	if s, ok := v.(string); ok && htsql.IsScalar(to) {
		if parsed, err := to.Parse(s); err == nil {
			return parsed, true
		}
	}
	return nil, false
}
