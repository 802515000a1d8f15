package semantic

import (
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
)

// overload is one implementation of a polymorphic operator or function.
// A nil result means the common domain of the converted arguments.
type overload struct {
	kinds  []htsql.Kind
	sig    *sig.Sig
	result htsql.Domain
}

const (
	kInt      = htsql.KindInteger
	kDec      = htsql.KindDecimal
	kFloat    = htsql.KindFloat
	kText     = htsql.KindText
	kDate     = htsql.KindDate
	kTime     = htsql.KindTime
	kDateTime = htsql.KindDateTime
)

func kinds(k ...htsql.Kind) []htsql.Kind { return k }

func numeric(s *sig.Sig, arity int) []overload {
	var out []overload
	for _, k := range []htsql.Kind{kInt, kDec, kFloat} {
		args := make([]htsql.Kind, arity)
		for i := range args {
			args[i] = k
		}
		out = append(out, overload{kinds: args, sig: s})
	}
	return out
}

// overloads lists the implementations of each operator and function.  An
// overload comes before every overload its argument kinds promote to, and
// ties between unrelated overloads go to the earlier one.
var overloads = map[string][]overload{
	"+": append(numeric(sig.Add, 2),
		overload{kinds(kText, kText), sig.Concatenate, htsql.Text},
		overload{kinds(kDate, kInt), sig.DateAdd, htsql.Date},
		overload{kinds(kDateTime, kInt), sig.DateAdd, htsql.DateTime},
	),
	"-": append(numeric(sig.Subtract, 2),
		overload{kinds(kDate, kInt), sig.DateSub, htsql.Date},
		overload{kinds(kDateTime, kInt), sig.DateSub, htsql.DateTime},
		overload{kinds(kDate, kDate), sig.DateDiff, htsql.Integer},
	),
	"-/1": numeric(sig.Negate, 1),
	"*":   numeric(sig.Multiply, 2),
	"/": {
		{kinds(kDec, kDec), sig.Divide, htsql.Decimal},
		{kinds(kFloat, kFloat), sig.Divide, htsql.Float},
	},
	"~":  {{kinds(kText, kText), sig.Contains, htsql.Boolean}},
	"!~": {{kinds(kText, kText), sig.Excludes, htsql.Boolean}},

	"length":  {{kinds(kText), sig.Length, htsql.Integer}},
	"upper":   {{kinds(kText), sig.Upper, htsql.Text}},
	"lower":   {{kinds(kText), sig.Lower, htsql.Text}},
	"trim":    {{kinds(kText), sig.Trim, htsql.Text}},
	"head":    {{kinds(kText), sig.Head, htsql.Text}, {kinds(kText, kInt), sig.Head, htsql.Text}},
	"tail":    {{kinds(kText), sig.Tail, htsql.Text}, {kinds(kText, kInt), sig.Tail, htsql.Text}},
	"slice":   {{kinds(kText, kInt, kInt), sig.Slice, htsql.Text}},
	"at":      {{kinds(kText, kInt), sig.At, htsql.Text}, {kinds(kText, kInt, kInt), sig.At, htsql.Text}},
	"replace": {{kinds(kText, kText, kText), sig.Replace, htsql.Text}},

	"round": {
		{kinds(kDec), sig.Round, htsql.Decimal},
		{kinds(kFloat), sig.Round, htsql.Float},
		{kinds(kDec, kInt), sig.RoundTo, htsql.Decimal},
	},
	"trunc": {
		{kinds(kDec), sig.Trunc, htsql.Decimal},
		{kinds(kFloat), sig.Trunc, htsql.Float},
		{kinds(kDec, kInt), sig.TruncTo, htsql.Decimal},
	},

	"today":  {{nil, sig.Today, htsql.Date}},
	"now":    {{nil, sig.Now, htsql.DateTime}},
	"year":   {{kinds(kDate), sig.Year, htsql.Integer}, {kinds(kDateTime), sig.Year, htsql.Integer}},
	"month":  {{kinds(kDate), sig.Month, htsql.Integer}, {kinds(kDateTime), sig.Month, htsql.Integer}},
	"day":    {{kinds(kDate), sig.Day, htsql.Integer}, {kinds(kDateTime), sig.Day, htsql.Integer}},
	"hour":   {{kinds(kTime), sig.Hour, htsql.Integer}, {kinds(kDateTime), sig.Hour, htsql.Integer}},
	"minute": {{kinds(kTime), sig.Minute, htsql.Integer}, {kinds(kDateTime), sig.Minute, htsql.Integer}},
	"second": {{kinds(kTime), sig.Second, htsql.Float}, {kinds(kDateTime), sig.Second, htsql.Float}},

	"sum": {
		{kinds(kInt), sig.Sum, nil},
		{kinds(kDec), sig.Sum, nil},
		{kinds(kFloat), sig.Sum, nil},
	},
	"avg": {
		{kinds(kDec), sig.Avg, htsql.Decimal},
		{kinds(kFloat), sig.Avg, htsql.Float},
	},
}

// defaultDomain is the domain an argument is converted to when an
// overload expects a kind the argument does not have.
func defaultDomain(k htsql.Kind) htsql.Domain {
	switch k {
	case kInt:
		return htsql.Integer
	case kDec:
		return htsql.Decimal
	case kFloat:
		return htsql.Float
	case kDate:
		return htsql.Date
	case kTime:
		return htsql.Time
	case kDateTime:
		return htsql.DateTime
	case htsql.KindBoolean:
		return htsql.Boolean
	}
	return htsql.Text
}

// dispatch selects the overload of the named operator or function that
// matches the argument domains most specifically and converts the
// arguments to it.
func (b *Binder) dispatch(node ast.Node, scope sem.Binding, name, key string, args []sem.Binding) (sem.Binding, error) {
	var candidates []overload
	for _, o := range overloads[key] {
		if len(o.kinds) == len(args) {
			candidates = append(candidates, o)
		}
	}
	actual := b.argumentKinds(args)
	var matches []overload
	for _, o := range candidates {
		if accepts(o.kinds, actual) {
			matches = append(matches, o)
		}
	}
	if len(matches) == 0 {
		return nil, errorf(node, "cannot apply '%s' to %s; valid argument types are: %s", name, kindList(actual), validKinds(candidates))
	}
	// Matches keep the order of the table, so none is more specific than
	// the first.
	o := matches[0]
	converted := make([]sem.Binding, len(args))
	for k, arg := range args {
		if arg.Domain().Kind() == o.kinds[k] {
			converted[k] = arg
		} else {
			var err error
			if converted[k], err = b.convert(arg, defaultDomain(o.kinds[k])); err != nil {
				return nil, err
			}
		}
	}
	dom := o.result
	if dom == nil {
		domains := make([]htsql.Domain, len(converted))
		for k, arg := range converted {
			domains[k] = arg.Domain()
		}
		var err error
		if dom, err = b.coerce.Coerce(domains...); err != nil {
			dom = defaultDomain(o.kinds[0])
		}
	}
	return &sem.Formula{Loc: sem.Loc{Scope: scope, AST: node}, Sig: o.sig, Args: converted, Dom: dom}, nil
}

// argumentKinds assigns a kind to every argument.  An untyped literal
// takes the kind of the first typed argument if it parses as such a
// value and is treated as text otherwise.
func (b *Binder) argumentKinds(args []sem.Binding) []htsql.Kind {
	var concrete htsql.Domain
	for _, arg := range args {
		if arg.Domain().Kind() != htsql.KindUntyped {
			concrete = arg.Domain()
			break
		}
	}
	out := make([]htsql.Kind, len(args))
	for k, arg := range args {
		out[k] = arg.Domain().Kind()
		if out[k] != htsql.KindUntyped {
			continue
		}
		out[k] = kText
		if concrete != nil && parses(arg, concrete) {
			out[k] = concrete.Kind()
		}
	}
	return out
}

func parses(arg sem.Binding, d htsql.Domain) bool {
	lit, ok := arg.(*sem.Literal)
	if !ok {
		return false
	}
	s, ok := lit.Value.(string)
	if !ok {
		return lit.Value == nil
	}
	_, err := d.Parse(s)
	return err == nil
}

func accepts(formal, actual []htsql.Kind) bool {
	for k := range formal {
		if !coerce.Promotes(actual[k], formal[k]) {
			return false
		}
	}
	return true
}

func kindList(ks []htsql.Kind) string {
	names := make([]string, len(ks))
	for k, kind := range ks {
		names[k] = kind.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func validKinds(os []overload) string {
	var out []string
	for _, o := range os {
		out = append(out, kindList(o.kinds))
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

// convert makes a binding of the given domain out of x, parsing untyped
// literals and wrapping everything else in an implicit cast.
func (b *Binder) convert(x sem.Binding, d htsql.Domain) (sem.Binding, error) {
	if htsql.EqualDomains(x.Domain(), d) {
		return x, nil
	}
	if lit, ok := x.(*sem.Literal); ok && lit.Dom.Kind() == htsql.KindUntyped {
		if lit.Value == nil {
			return &sem.Literal{Loc: lit.Loc, Dom: d}, nil
		}
		v, err := d.Parse(lit.Value.(string))
		if err != nil {
			return nil, errorf(lit.AST, "cannot convert %s to %s", quoteValue(lit.Value.(string)), d)
		}
		return &sem.Literal{Loc: lit.Loc, Value: v, Dom: d}, nil
	}
	return &sem.Cast{Loc: sem.Loc{Scope: x.Base(), AST: x.Node()}, Operand: x, Dom: d, Implicit: true}, nil
}

// castTo is convert for values that are known to be convertible.
func (b *Binder) castTo(x sem.Binding, d htsql.Domain) sem.Binding {
	out, err := b.convert(x, d)
	if err != nil {
		return &sem.Cast{Loc: sem.Loc{Scope: x.Base(), AST: x.Node()}, Operand: x, Dom: d, Implicit: true}
	}
	return out
}

func quoteValue(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var comparisons = map[string]*sig.Sig{
	"=":   sig.Equal,
	"!=":  sig.NotEqual,
	"==":  sig.Same,
	"!==": sig.NotSame,
	"<":   sig.Less,
	"<=":  sig.LessEq,
	">":   sig.Greater,
	">=":  sig.GreaterEq,
}

func (b *Binder) compare(n *ast.Binary, scope sem.Binding, s *sig.Sig, lhs, rhs sem.Binding) (sem.Binding, error) {
	d, err := b.coerce.Coerce(lhs.Domain(), rhs.Domain())
	if err != nil {
		return nil, errorf(n, "cannot coerce values of types (%s, %s) to a common type", lhs.Domain(), rhs.Domain())
	}
	switch s {
	case sig.Less, sig.LessEq, sig.Greater, sig.GreaterEq:
		if !htsql.IsOrderable(d) {
			return nil, errorf(n, "cannot compare values of type %s", d)
		}
	}
	if lhs, err = b.convert(lhs, d); err != nil {
		return nil, err
	}
	if rhs, err = b.convert(rhs, d); err != nil {
		return nil, err
	}
	return &sem.Formula{Loc: sem.Loc{Scope: scope, AST: n}, Sig: s, Args: []sem.Binding{lhs, rhs}, Dom: htsql.Boolean}, nil
}

// toBoolean converts a value to a condition: text is true when it is
// neither NULL nor empty and any other value when it is not NULL.
func (b *Binder) toBoolean(x sem.Binding) (sem.Binding, error) {
	d := x.Domain()
	loc := sem.Loc{Scope: x.Base(), AST: x.Node()}
	switch d.Kind() {
	case htsql.KindBoolean:
		return x, nil
	case htsql.KindUntyped:
		return b.convert(x, htsql.Boolean)
	case kText, htsql.KindEnum:
		empty := &sem.Literal{Loc: loc, Value: "", Dom: d}
		return &sem.Formula{Loc: loc, Sig: sig.And, Dom: htsql.Boolean, Args: []sem.Binding{
			notNull(x),
			&sem.Formula{Loc: loc, Sig: sig.NotEqual, Args: []sem.Binding{x, empty}, Dom: htsql.Boolean},
		}}, nil
	}
	if sem.IsFlow(x) || !htsql.IsScalar(d) {
		return nil, errorf(x.Node(), "expected a condition; got a value of type %s", d)
	}
	return notNull(x), nil
}

func notNull(x sem.Binding) sem.Binding {
	loc := sem.Loc{Scope: x.Base(), AST: x.Node()}
	isNull := &sem.Formula{Loc: loc, Sig: sig.IsNull, Args: []sem.Binding{x}, Dom: htsql.Boolean}
	return &sem.Formula{Loc: loc, Sig: sig.Not, Args: []sem.Binding{isNull}, Dom: htsql.Boolean}
}

func (b *Binder) bindUnary(n *ast.Unary, scope sem.Binding) (sem.Binding, error) {
	x, err := b.bind(n.Operand, scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "!":
		cond, err := b.toBoolean(x)
		if err != nil {
			return nil, err
		}
		return &sem.Formula{Loc: sem.Loc{Scope: scope, AST: n}, Sig: sig.Not, Args: []sem.Binding{cond}, Dom: htsql.Boolean}, nil
	case "-":
		return b.dispatch(n, scope, "-", "-/1", []sem.Binding{x})
	case "+":
		if kind := b.argumentKinds([]sem.Binding{x})[0]; kind != kInt && kind != kDec && kind != kFloat {
			return nil, errorf(n, "cannot apply '+' to (%s); valid argument types are: (integer), (decimal), (float)", kind)
		}
		return x, nil
	}
	return nil, errorf(n, "unknown operator '%s'", n.Op)
}

func (b *Binder) bindBinary(n *ast.Binary, scope sem.Binding) (sem.Binding, error) {
	lhs, err := b.bind(n.Lhs, scope)
	if err != nil {
		return nil, err
	}
	rhs, err := b.bind(n.Rhs, scope)
	if err != nil {
		return nil, err
	}
	for _, x := range []sem.Binding{lhs, rhs} {
		if sem.IsFlow(sem.Unwrap(x)) {
			return nil, errorf(x.Node(), "expected a scalar expression; got a flow")
		}
	}
	if s, ok := comparisons[n.Op]; ok {
		return b.compare(n, scope, s, lhs, rhs)
	}
	switch n.Op {
	case "&", "|":
		s := sig.And
		if n.Op == "|" {
			s = sig.Or
		}
		var args []sem.Binding
		for _, x := range []sem.Binding{lhs, rhs} {
			cond, err := b.toBoolean(x)
			if err != nil {
				return nil, err
			}
			// Flatten nested conjunctions and disjunctions.
			if f, ok := cond.(*sem.Formula); ok && f.Sig == s {
				args = append(args, f.Args...)
			} else {
				args = append(args, cond)
			}
		}
		return &sem.Formula{Loc: sem.Loc{Scope: scope, AST: n}, Sig: s, Args: args, Dom: htsql.Boolean}, nil
	case "+", "-", "*", "/", "~", "!~":
		return b.dispatch(n, scope, n.Op, n.Op, []sem.Binding{lhs, rhs})
	}
	return nil, errorf(n, "unknown operator '%s'", n.Op)
}
