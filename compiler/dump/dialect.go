package dump

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/sig"
)

// Dialect is the extension point of a database backend.  The serializer
// asks it for the parts of the rendering that differ between backends.
type Dialect interface {
	Name() string
	// MaxIdentifier is the length limit of aliases in bytes.
	MaxIdentifier() int
	// Booleans reports whether boolean values may appear wherever a value
	// is expected.  Backends without a boolean type render predicates in
	// value positions as CASE expressions and values in predicate
	// positions as comparisons.
	Booleans() bool
	// GroupByPosition reports whether GROUP BY accepts output positions.
	GroupByPosition() bool
	// QuoteString renders a string literal.  The text never contains NUL.
	QuoteString(s string) string
	// Literal renders a literal value, or returns false to use the
	// default form.
	Literal(v any, dom htsql.Domain) (string, bool)
	// TypeName is the SQL type of a domain in CAST expressions.
	TypeName(dom htsql.Domain) string
	// Cast returns a template converting a value between two domains, or
	// the empty string to use CAST.
	Cast(from, to htsql.Domain) string
	// Template returns a template overriding the default rendering of a
	// formula with arity arguments, the empty string, or Unsupported.
	// In a template, {N} stands for the N-th argument in a value position
	// and {N?} for the N-th argument in a predicate position.
	Template(s *sig.Sig, arity int) string
	// Contains renders a case-insensitive substring test.  The pattern is
	// either a quoted LIKE pattern escaped with '!' or an expression.
	Contains(lhs, pattern string, literal bool) string
	// Limit renders the pagination clause.
	Limit(limit, offset *int64) string
	// Dual is the table a select without anchors reads from, if the
	// backend requires one.
	Dual() string
	// TableAlias is the text between a FROM item and its alias.
	TableAlias() string
	// RowNumber renders the position of a row in its frame.
	RowNumber() string
}

// Unsupported is returned by Dialect.Template for functions the backend
// cannot express.
const Unsupported = "\x00unsupported"
