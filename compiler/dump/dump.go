// Package dump serializes a frame tree into the text of a SQL query.  The
// rendering is ANSI SQL by default; a Dialect supplies the parts that
// differ between database backends.  Every string literal and every
// identifier passes through a single quoting function, so the output of
// Serialize is safe to send to the backend as is.
package dump

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/sig"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/brimdata/htsql/compiler/term"
	"github.com/shopspring/decimal"
)

// Serialize renders the query of a segment for the backend d.
func Serialize(seg *frame.Segment, d Dialect) (string, error) {
	s := &serializer{
		dialect: d,
		aliases: assignAliases(seg.Select, d.MaxIdentifier()),
	}
	s.selectFrame(seg.Select, true)
	if s.err != nil {
		return "", s.err
	}
	return s.w.String(), nil
}

type serializer struct {
	dialect Dialect
	aliases *aliases
	w       writer
	err     error
}

func (s *serializer) errorf(format string, args ...any) {
	if s.err == nil {
		s.err = srcfiles.New(srcfiles.SerializeError, srcfiles.Mark{}, format, args...)
	}
}

func (s *serializer) quoteString(text string) string {
	if strings.IndexByte(text, 0) >= 0 {
		s.errorf("cannot serialize a string containing a NUL character")
		return "''"
	}
	return s.dialect.QuoteString(text)
}

func (s *serializer) quoteName(name string) string {
	if strings.IndexByte(name, 0) >= 0 {
		s.errorf("cannot serialize a name containing a NUL character")
		return `""`
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *serializer) selectFrame(f *frame.Select, top bool) {
	w := &s.w
	w.push()
	w.write("SELECT ")
	w.push()
	items := f.Select
	if len(items) == 0 {
		items = []frame.Phrase{frame.True}
	}
	for k, p := range items {
		if k > 0 {
			w.write(",")
			w.newline()
		}
		w.write(s.value(p))
		if !top && k < len(s.aliases.columns[f.Tag]) {
			alias := s.aliases.columns[f.Tag][k]
			if s.outputName(p) != alias {
				w.write(" AS " + s.quoteName(alias))
			}
		}
	}
	w.pop()
	s.from(f)
	if f.Where != nil {
		w.newline()
		w.write("WHERE " + s.predicate(f.Where))
	}
	if f.Grouped && len(f.Group) > 0 {
		items := make([]string, 0, len(f.Group))
		for _, p := range f.Group {
			if n := position(f.Select, p); n > 0 && s.dialect.GroupByPosition() {
				items = append(items, strconv.Itoa(n))
			} else {
				items = append(items, s.value(p))
			}
		}
		w.newline()
		w.write("GROUP BY " + strings.Join(items, ", "))
	}
	if len(f.Order) > 0 {
		items := make([]string, 0, len(f.Order))
		for _, o := range f.Order {
			item := s.value(o.Phrase)
			if n := position(f.Select, o.Phrase); n > 0 {
				item = strconv.Itoa(n)
			}
			if o.Dir < 0 {
				item += " DESC"
			} else {
				item += " ASC"
			}
			items = append(items, item)
		}
		w.newline()
		w.write("ORDER BY " + strings.Join(items, ", "))
	}
	if f.Limit != nil || f.Offset != nil {
		if clause := s.dialect.Limit(f.Limit, f.Offset); clause != "" {
			w.newline()
			w.write(clause)
		}
	}
	w.pop()
}

// outputName is the name the backend gives to an unaliased output.
func (s *serializer) outputName(p frame.Phrase) string {
	switch p := p.(type) {
	case *frame.Column:
		return p.Column.Name
	case *frame.Reference:
		if cols := s.aliases.columns[p.Tag]; p.Index < len(cols) {
			return cols[p.Index]
		}
	}
	return ""
}

// position is the 1-based position of p among the outputs, or 0.
func position(items []frame.Phrase, p frame.Phrase) int {
	for k, item := range items {
		if frame.Equal(item, p) {
			return k + 1
		}
	}
	return 0
}

func (s *serializer) from(f *frame.Select) {
	w := &s.w
	if len(f.Include) == 0 {
		if dual := s.dialect.Dual(); dual != "" {
			w.newline()
			w.write("FROM " + dual)
		}
		return
	}
	w.newline()
	w.write("FROM ")
	w.push()
	for k, a := range f.Include {
		if k > 0 {
			w.newline()
			w.write(joinKeyword(a.Kind) + " ")
		}
		w.push()
		s.anchor(a.Frame)
		if k > 0 && a.Kind != term.Cross {
			on := a.On
			if on == nil {
				on = frame.True
			}
			w.newline()
			w.write("ON " + s.predicate(on))
		}
		w.pop()
	}
	w.pop()
}

func joinKeyword(kind term.JoinKind) string {
	switch kind {
	case term.Left:
		return "LEFT OUTER JOIN"
	case term.Cross:
		return "CROSS JOIN"
	}
	return "INNER JOIN"
}

func (s *serializer) anchor(f frame.Frame) {
	alias := s.aliases.frames[f.FrameTag()]
	switch f := f.(type) {
	case *frame.Table:
		name := s.quoteName(f.Table.Name)
		if f.Table.Schema != nil && f.Table.Schema.Name != "" {
			name = s.quoteName(f.Table.Schema.Name) + "." + name
		}
		s.w.write(name)
		if alias != f.Table.Name {
			s.w.write(s.dialect.TableAlias() + s.quoteName(alias))
		}
	case *frame.Select:
		s.w.write("(")
		s.selectFrame(f, false)
		s.w.write(")" + s.dialect.TableAlias() + s.quoteName(alias))
	default:
		s.errorf("unexpected frame %T", f)
	}
}

// value renders p where the grammar expects a value.
func (s *serializer) value(p frame.Phrase) string {
	text := s.phrase(p)
	if !s.dialect.Booleans() && isPredicate(p) {
		return "(CASE WHEN " + text + " THEN 1 WHEN NOT " + text + " THEN 0 END)"
	}
	return text
}

// predicate renders p where the grammar expects a condition.
func (s *serializer) predicate(p frame.Phrase) string {
	if s.dialect.Booleans() || isPredicate(p) {
		return s.phrase(p)
	}
	if l, ok := p.(*frame.Literal); ok {
		switch l.Value {
		case true:
			return "(1 = 1)"
		case false:
			return "(1 = 0)"
		}
	}
	return "(" + s.phrase(p) + " <> 0)"
}

// isPredicate reports whether the natural rendering of p is a condition
// rather than a value.
func isPredicate(p frame.Phrase) bool {
	switch p := p.(type) {
	case *frame.Formula:
		return p.Sig.Predicate && !p.Sig.Aggregate
	case *frame.Cast:
		return p.Dom.Kind() == htsql.KindBoolean && p.Base.Domain().Kind() != htsql.KindBoolean
	}
	return false
}

func (s *serializer) phrase(p frame.Phrase) string {
	switch p := p.(type) {
	case *frame.Literal:
		return s.literal(p)
	case *frame.Column:
		return s.quoteName(s.aliases.frames[p.Tag]) + "." + s.quoteName(p.Column.Name)
	case *frame.Reference:
		cols := s.aliases.columns[p.Tag]
		if p.Index >= len(cols) {
			s.errorf("reference to a missing output")
			return "NULL"
		}
		return s.quoteName(s.aliases.frames[p.Tag]) + "." + s.quoteName(cols[p.Index])
	case *frame.RowNumber:
		return s.dialect.RowNumber()
	case *frame.Cast:
		return s.cast(p)
	case *frame.Formula:
		return s.formula(p)
	}
	s.errorf("unexpected phrase %T", p)
	return "NULL"
}

func (s *serializer) literal(l *frame.Literal) string {
	if l.Value == nil {
		return "NULL"
	}
	if text, ok := s.dialect.Literal(l.Value, l.Dom); ok {
		return text
	}
	switch v := l.Value.(type) {
	case bool:
		switch {
		case s.dialect.Booleans() && v:
			return "TRUE"
		case s.dialect.Booleans():
			return "FALSE"
		case v:
			return "1"
		}
		return "0"
	case *big.Int:
		if !v.IsInt64() {
			s.errorf("integer value %s is out of range", v)
		}
		return v.String()
	case decimal.Decimal:
		text := v.String()
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		return text
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			s.errorf("cannot serialize a non-finite float value")
			return "NULL"
		}
		return strconv.FormatFloat(v, 'E', -1, 64)
	case string:
		return s.quoteString(v)
	case time.Time:
		text, err := l.Dom.Dump(v)
		if err != nil {
			s.errorf("%s", err)
			return "NULL"
		}
		switch l.Dom.Kind() {
		case htsql.KindDate:
			return "DATE " + s.quoteString(text)
		case htsql.KindTime:
			return "TIME " + s.quoteString(text)
		}
		return "TIMESTAMP " + s.quoteString(text)
	}
	s.errorf("cannot serialize a value of type %s", l.Dom)
	return "NULL"
}

func (s *serializer) cast(c *frame.Cast) string {
	from, to := c.Base.Domain(), c.Dom
	if tmpl := s.dialect.Cast(from, to); tmpl != "" {
		return s.expand(tmpl, []frame.Phrase{c.Base})
	}
	args := []frame.Phrase{c.Base}
	switch {
	case to.Kind() == htsql.KindBoolean && htsql.IsNumeric(from):
		return s.expand("({0} <> 0)", args)
	case to.Kind() == htsql.KindBoolean && isText(from):
		return s.expand("({0} <> '')", args)
	case from.Kind() == htsql.KindBoolean && isText(to):
		return s.expand("(CASE WHEN {0?} THEN 'true' WHEN NOT {0?} THEN 'false' END)", args)
	}
	return "CAST(" + s.value(c.Base) + " AS " + s.dialect.TypeName(to) + ")"
}

func isText(d htsql.Domain) bool {
	switch d.Kind() {
	case htsql.KindText, htsql.KindEnum, htsql.KindUntyped:
		return true
	}
	return false
}

func (s *serializer) formula(f *frame.Formula) string {
	if tmpl := s.dialect.Template(f.Sig, len(f.Args)); tmpl != "" {
		if tmpl == Unsupported {
			s.errorf("function %s() is not supported by the %s backend", f.Sig.Name, s.dialect.Name())
			return "NULL"
		}
		return s.expand(tmpl, f.Args)
	}
	switch f.Sig {
	case sig.And, sig.Or:
		return s.logic(f)
	case sig.Not:
		return "(NOT " + s.predicate(f.Args[0]) + ")"
	case sig.If:
		return s.ifThen(f.Args)
	case sig.IfNull:
		if len(f.Args) == 1 {
			return s.value(f.Args[0])
		}
		return "COALESCE(" + s.list(f.Args) + ")"
	case sig.Concatenate:
		parts := make([]string, 0, len(f.Args))
		for _, arg := range f.Args {
			if arg.IsNullable() {
				parts = append(parts, "COALESCE("+s.value(arg)+", '')")
			} else {
				parts = append(parts, s.value(arg))
			}
		}
		return "(" + strings.Join(parts, " || ") + ")"
	case sig.Contains:
		return s.contains(f.Args[0], f.Args[1])
	case sig.Excludes:
		return "(NOT " + s.contains(f.Args[0], f.Args[1]) + ")"
	}
	tmpl := defaultTemplate(f.Sig, len(f.Args))
	if tmpl == "" {
		s.errorf("function %s() has no rendering", f.Sig.Name)
		return "NULL"
	}
	return s.expand(tmpl, f.Args)
}

func (s *serializer) logic(f *frame.Formula) string {
	if len(f.Args) == 0 {
		if f.Sig == sig.And {
			return s.predicate(frame.True)
		}
		return s.predicate(frame.False)
	}
	if len(f.Args) == 1 {
		return s.predicate(f.Args[0])
	}
	op := " AND "
	if f.Sig == sig.Or {
		op = " OR "
	}
	parts := make([]string, 0, len(f.Args))
	for _, arg := range f.Args {
		parts = append(parts, s.predicate(arg))
	}
	return "(" + strings.Join(parts, op) + ")"
}

// ifThen renders if(p1, v1, p2, v2, ..., else).
func (s *serializer) ifThen(args []frame.Phrase) string {
	var b strings.Builder
	b.WriteString("(CASE")
	k := 0
	for ; k+1 < len(args); k += 2 {
		b.WriteString(" WHEN " + s.predicate(args[k]) + " THEN " + s.value(args[k+1]))
	}
	if k < len(args) {
		b.WriteString(" ELSE " + s.value(args[k]))
	}
	b.WriteString(" END)")
	return b.String()
}

func (s *serializer) contains(lhs, rhs frame.Phrase) string {
	if l, ok := rhs.(*frame.Literal); ok {
		if text, ok := l.Value.(string); ok {
			pattern := "%" + escapeLike(text) + "%"
			return s.dialect.Contains(s.value(lhs), s.quoteString(pattern), true)
		}
	}
	return s.dialect.Contains(s.value(lhs), s.value(rhs), false)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *serializer) list(args []frame.Phrase) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, s.value(arg))
	}
	return strings.Join(parts, ", ")
}

// expand substitutes the arguments into a template.
func (s *serializer) expand(tmpl string, args []frame.Phrase) string {
	var b strings.Builder
	for len(tmpl) > 0 {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		ref := tmpl[open+1 : open+end]
		tmpl = tmpl[open+end+1:]
		pred := strings.HasSuffix(ref, "?")
		n, err := strconv.Atoi(strings.TrimSuffix(ref, "?"))
		if err != nil || n < 0 || n >= len(args) {
			s.errorf("malformed template reference {%s}", ref)
			return "NULL"
		}
		if pred {
			b.WriteString(s.predicate(args[n]))
		} else {
			b.WriteString(s.value(args[n]))
		}
	}
	return b.String()
}

var templates = map[*sig.Sig]string{
	sig.IsNull:    "({0} IS NULL)",
	sig.NullIf:    "NULLIF({0}, {1})",
	sig.Equal:     "({0} = {1})",
	sig.NotEqual:  "({0} <> {1})",
	sig.Same:      "({0} IS NOT DISTINCT FROM {1})",
	sig.NotSame:   "({0} IS DISTINCT FROM {1})",
	sig.Less:      "({0} < {1})",
	sig.LessEq:    "({0} <= {1})",
	sig.Greater:   "({0} > {1})",
	sig.GreaterEq: "({0} >= {1})",

	sig.Add:      "({0} + {1})",
	sig.Subtract: "({0} - {1})",
	sig.Multiply: "({0} * {1})",
	sig.Divide:   "({0} / {1})",
	sig.Negate:   "(- {0})",
	sig.DateAdd:  "({0} + {1})",
	sig.DateSub:  "({0} - {1})",
	sig.DateDiff: "({0} - {1})",

	sig.Length:  "CHARACTER_LENGTH({0})",
	sig.Upper:   "UPPER({0})",
	sig.Lower:   "LOWER({0})",
	sig.Trim:    "TRIM({0})",
	sig.Slice:   "SUBSTR({0}, ({1} + 1), ({2} - {1}))",
	sig.Replace: "REPLACE({0}, {1}, {2})",

	sig.Round:   "ROUND({0})",
	sig.RoundTo: "ROUND({0}, {1})",
	sig.Trunc:   "TRUNC({0})",
	sig.TruncTo: "TRUNC({0}, {1})",

	sig.Today:  "CURRENT_DATE",
	sig.Now:    "LOCALTIMESTAMP",
	sig.Year:   "EXTRACT(YEAR FROM {0})",
	sig.Month:  "EXTRACT(MONTH FROM {0})",
	sig.Day:    "EXTRACT(DAY FROM {0})",
	sig.Hour:   "EXTRACT(HOUR FROM {0})",
	sig.Minute: "EXTRACT(MINUTE FROM {0})",
	sig.Second: "EXTRACT(SECOND FROM {0})",

	sig.Count:  "COUNT({0})",
	sig.Min:    "MIN({0})",
	sig.Max:    "MAX({0})",
	sig.Sum:    "SUM({0})",
	sig.Avg:    "AVG({0})",
	sig.Exists: "MAX({0})",
	sig.Every:  "MIN({0})",
}

func defaultTemplate(s *sig.Sig, arity int) string {
	switch s {
	case sig.Head:
		if arity == 1 {
			return "SUBSTR({0}, 1, 1)"
		}
		return "SUBSTR({0}, 1, {1})"
	case sig.Tail:
		if arity == 1 {
			return "SUBSTR({0}, -1)"
		}
		return "SUBSTR({0}, (- {1}))"
	case sig.At:
		if arity == 2 {
			return "SUBSTR({0}, ({1} + 1), 1)"
		}
		return "SUBSTR({0}, ({1} + 1), {2})"
	}
	return templates[s]
}

// DefaultTemplate exposes the ANSI rendering of a signature to dialects
// that wrap it.
func DefaultTemplate(s *sig.Sig, arity int) string {
	return defaultTemplate(s, arity)
}
