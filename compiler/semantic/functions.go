package semantic

import (
	"sort"
	"strings"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/semantic/sem"
	"github.com/brimdata/htsql/compiler/sig"
)

// call is a function application as seen by a builtin.
type call struct {
	node  ast.Node
	name  string
	args  []ast.Node
	scope sem.Binding
}

type function struct {
	min, max int // max < 0 means no upper bound
	// Scoped functions applied with ":f" operate on the flow to the left
	// of the pipe instead of taking it as their first argument.
	scoped bool
	bind   func(*Binder, *call) (sem.Binding, error)
}

var functions map[string]*function

func init() {
	functions = map[string]*function{
		"this":     {0, 0, true, bindThis},
		"root":     {0, 0, false, func(b *Binder, c *call) (sem.Binding, error) { return b.root, nil }},
		"sort":     {1, -1, true, bindSort},
		"limit":    {1, 2, true, bindLimit},
		"filter":   {1, 1, true, bindFilter},
		"define":   {1, -1, true, bindDefine},
		"where":    {1, -1, false, bindWhere},
		"null":     {0, 0, false, constant(nil, htsql.Untyped)},
		"true":     {0, 0, false, constant(true, htsql.Boolean)},
		"false":    {0, 0, false, constant(false, htsql.Boolean)},
		"boolean":  {1, 1, false, cast(htsql.Boolean)},
		"integer":  {1, 1, false, cast(htsql.Integer)},
		"decimal":  {1, 1, false, cast(htsql.Decimal)},
		"float":    {1, 1, false, cast(htsql.Float)},
		"text":     {1, 1, false, cast(htsql.Text)},
		"date":     {1, 1, false, cast(htsql.Date)},
		"time":     {1, 1, false, cast(htsql.Time)},
		"datetime": {1, 1, false, cast(htsql.DateTime)},
		"is_null":  {1, 1, false, bindIsNull},
		"if_null":  {2, 2, false, common(sig.IfNull)},
		"null_if":  {2, 2, false, common(sig.NullIf)},
		"if":       {2, -1, false, bindIf},
		"count":    {1, 1, false, aggregate(sig.Count)},
		"exists":   {1, 1, false, aggregate(sig.Exists)},
		"every":    {1, 1, false, aggregate(sig.Every)},
		"min":      {1, 1, false, aggregate(sig.Min)},
		"max":      {1, 1, false, aggregate(sig.Max)},
		"sum":      {1, 1, false, aggregate(sig.Sum)},
		"avg":      {1, 1, false, aggregate(sig.Avg)},
	}
	for name := range overloads {
		if _, ok := functions[name]; ok || !isName(name) {
			continue
		}
		lo, hi := -1, 0
		for _, o := range overloads[name] {
			if lo < 0 || len(o.kinds) < lo {
				lo = len(o.kinds)
			}
			hi = max(hi, len(o.kinds))
		}
		functions[name] = &function{lo, hi, false, polymorphic(name)}
	}
}

func isName(s string) bool {
	for _, c := range s {
		if !(c == '_' || 'a' <= c && c <= 'z') {
			return false
		}
	}
	return true
}

func functionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Binder) bindCall(node ast.Node, name string, args []ast.Node, scope sem.Binding) (sem.Binding, error) {
	if r := b.lookup(scope, name, len(args)); r != nil {
		bound, err := b.bindArgs(args, scope)
		if err != nil {
			return nil, err
		}
		return b.resolve(r, node, scope, bound)
	}
	fn, ok := functions[catalog.Normalize(name)]
	if !ok {
		return nil, errorf(node, "unrecognized function '%s'", name).WithHint(hint(name, functionNames()))
	}
	return fn.apply(b, &call{node: node, name: name, args: args, scope: scope})
}

func (f *function) apply(b *Binder, c *call) (sem.Binding, error) {
	if n := len(c.args); n < f.min || f.max >= 0 && n > f.max {
		switch {
		case f.min == f.max:
			return nil, errorf(c.node, "function '%s' expects %d arguments; got %d", c.name, f.min, n)
		case f.max < 0:
			return nil, errorf(c.node, "function '%s' expects at least %d arguments; got %d", c.name, f.min, n)
		}
		return nil, errorf(c.node, "function '%s' expects %d to %d arguments; got %d", c.name, f.min, f.max, n)
	}
	return f.bind(b, c)
}

func (b *Binder) bindPipe(n *ast.Pipe, scope sem.Binding) (sem.Binding, error) {
	if fn, ok := functions[catalog.Normalize(n.Name)]; ok && fn.scoped {
		if r := b.lookup(scope, n.Name, len(n.Args)+1); r == nil {
			lhs, err := b.bind(n.Lhs, scope)
			if err != nil {
				return nil, err
			}
			return fn.apply(b, &call{node: n, name: n.Name, args: n.Args, scope: lhs})
		}
	}
	return b.bindCall(n, n.Name, append([]ast.Node{n.Lhs}, n.Args...), scope)
}

func (b *Binder) bindArgs(args []ast.Node, scope sem.Binding) ([]sem.Binding, error) {
	out := make([]sem.Binding, 0, len(args))
	for _, arg := range args {
		x, err := b.bind(arg, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// bindScalars binds arguments that must be values.
func (b *Binder) bindScalars(args []ast.Node, scope sem.Binding) ([]sem.Binding, error) {
	out, err := b.bindArgs(args, scope)
	if err != nil {
		return nil, err
	}
	for _, x := range out {
		if err := b.checkElement(x); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func bindThis(b *Binder, c *call) (sem.Binding, error) {
	return c.scope, nil
}

func flowScope(c *call) (sem.Binding, error) {
	if !sem.IsFlow(c.scope) {
		return nil, errorf(c.node, "function '%s' expects a flow; got a value of type %s", c.name, c.scope.Domain())
	}
	return c.scope, nil
}

func bindSort(b *Binder, c *call) (sem.Binding, error) {
	base, err := flowScope(c)
	if err != nil {
		return nil, err
	}
	keys, err := b.bindScalars(c.args, base)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if d := k.Domain(); !htsql.IsOrderable(d) {
			return nil, errorf(k.Node(), "cannot sort by a value of type %s", d)
		}
		if err := b.checkSingular(flowOf(base), k); err != nil {
			return nil, err
		}
	}
	return reselect(base, &sem.Sort{Loc: sem.Loc{Scope: flowOf(base), AST: c.node}, Order: keys}), nil
}

func bindLimit(b *Binder, c *call) (sem.Binding, error) {
	base, err := flowScope(c)
	if err != nil {
		return nil, err
	}
	var bounds []*int64
	for _, arg := range c.args {
		lit, ok := arg.(*ast.Literal)
		if !ok || lit.Kind != ast.IntegerLiteral {
			return nil, errorf(arg, "expected a non-negative integer")
		}
		v, err := htsql.Integer.Parse(lit.Text)
		if err != nil {
			return nil, errorf(arg, "expected a non-negative integer")
		}
		n, ok := integerValue(v)
		if !ok || n < 0 {
			return nil, errorf(arg, "expected a non-negative integer")
		}
		bounds = append(bounds, &n)
	}
	s := &sem.Sort{Loc: sem.Loc{Scope: flowOf(base), AST: c.node}, Limit: bounds[0]}
	if len(bounds) > 1 {
		s.Offset = bounds[1]
	}
	return reselect(base, s), nil
}

// flowOf strips the selection from a flow.
func flowOf(x sem.Binding) sem.Binding {
	if sel, ok := x.(*sem.Selection); ok {
		return sel.Scope
	}
	return x
}

func bindFilter(b *Binder, c *call) (sem.Binding, error) {
	base, err := flowScope(c)
	if err != nil {
		return nil, err
	}
	return b.sieve(c.node, base, c.args[0])
}

func bindDefine(b *Binder, c *call) (sem.Binding, error) {
	return b.define(c.scope, c.args)
}

// define extends a scope with the given assignments.
func (b *Binder) define(scope sem.Binding, assignments []ast.Node) (sem.Binding, error) {
	for _, arg := range assignments {
		a, ok := arg.(*ast.Assign)
		if !ok {
			return nil, errorf(arg, "expected an assignment")
		}
		d := &sem.Definition{Loc: sem.Loc{Scope: scope, AST: a}, Arity: -1}
		switch lhs := a.Lhs.(type) {
		case *ast.Identifier:
			d.Name = lhs.Name
			d.Recipe = &sem.SubstitutionRecipe{Name: lhs.Name, Body: a.Rhs, Scope: scope}
		case *ast.Reference:
			x, err := b.bind(a.Rhs, scope)
			if err != nil {
				return nil, err
			}
			d.Name = lhs.Name
			d.IsReference = true
			d.Recipe = &sem.BindingRecipe{Binding: x}
		case *ast.Call:
			r := &sem.SubstitutionRecipe{Name: lhs.Name, Body: a.Rhs, Scope: scope}
			for _, p := range lhs.Args {
				ref, ok := p.(*ast.Reference)
				if !ok {
					return nil, errorf(p, "expected a parameter reference")
				}
				r.Params = append(r.Params, ref.Name)
			}
			d.Name = lhs.Name
			d.Arity = len(r.Params)
			d.Recipe = r
		default:
			return nil, errorf(a.Lhs, "expected a name")
		}
		scope = d
	}
	return scope, nil
}

func bindWhere(b *Binder, c *call) (sem.Binding, error) {
	scope, err := b.define(c.scope, c.args[1:])
	if err != nil {
		return nil, err
	}
	return b.bind(c.args[0], scope)
}

func constant(v any, d htsql.Domain) func(*Binder, *call) (sem.Binding, error) {
	return func(b *Binder, c *call) (sem.Binding, error) {
		return &sem.Literal{Loc: sem.Loc{Scope: c.scope, AST: c.node}, Value: v, Dom: d}, nil
	}
}

func cast(to htsql.Domain) func(*Binder, *call) (sem.Binding, error) {
	return func(b *Binder, c *call) (sem.Binding, error) {
		args, err := b.bindScalars(c.args, c.scope)
		if err != nil {
			return nil, err
		}
		x := args[0]
		from := x.Domain()
		if lit, ok := x.(*sem.Literal); ok && from.Kind() == htsql.KindUntyped {
			return b.convert(lit, to)
		}
		if htsql.EqualDomains(from, to) {
			return x, nil
		}
		if !coerce.CanCast(from, to) {
			return nil, errorf(c.node, "cannot convert a value of type %s to %s", from, to)
		}
		return &sem.Cast{Loc: sem.Loc{Scope: c.scope, AST: c.node}, Operand: x, Dom: to}, nil
	}
}

func bindIsNull(b *Binder, c *call) (sem.Binding, error) {
	args, err := b.bindScalars(c.args, c.scope)
	if err != nil {
		return nil, err
	}
	return &sem.Formula{Loc: sem.Loc{Scope: c.scope, AST: c.node}, Sig: sig.IsNull, Args: args, Dom: htsql.Boolean}, nil
}

// common binds a function whose arguments and result share a domain.
func common(s *sig.Sig) func(*Binder, *call) (sem.Binding, error) {
	return func(b *Binder, c *call) (sem.Binding, error) {
		args, err := b.bindScalars(c.args, c.scope)
		if err != nil {
			return nil, err
		}
		d, args, err := b.unify(c.node, args)
		if err != nil {
			return nil, err
		}
		return &sem.Formula{Loc: sem.Loc{Scope: c.scope, AST: c.node}, Sig: s, Args: args, Dom: d}, nil
	}
}

func (b *Binder) unify(node ast.Node, args []sem.Binding) (htsql.Domain, []sem.Binding, error) {
	domains := make([]htsql.Domain, len(args))
	for k, x := range args {
		domains[k] = x.Domain()
	}
	d, err := b.coerce.Coerce(domains...)
	if err != nil {
		names := make([]string, len(domains))
		for k, d := range domains {
			names[k] = d.String()
		}
		return nil, nil, errorf(node, "cannot coerce values of types (%s) to a common type", strings.Join(names, ", "))
	}
	out := make([]sem.Binding, len(args))
	for k, x := range args {
		if out[k], err = b.convert(x, d); err != nil {
			return nil, nil, err
		}
	}
	return d, out, nil
}

// bindIf binds if(c1, v1, c2, v2, ..., else) where the trailing else
// value is optional.
func bindIf(b *Binder, c *call) (sem.Binding, error) {
	args, err := b.bindScalars(c.args, c.scope)
	if err != nil {
		return nil, err
	}
	var values []sem.Binding
	for k := 0; k < len(args); k++ {
		if k%2 == 0 && k+1 < len(args) {
			if args[k], err = b.toBoolean(args[k]); err != nil {
				return nil, err
			}
			continue
		}
		values = append(values, args[k])
	}
	d, values, err := b.unify(c.node, values)
	if err != nil {
		return nil, err
	}
	var j int
	for k := range args {
		if k%2 == 1 || k+1 == len(args) {
			args[k] = values[j]
			j++
		}
	}
	return &sem.Formula{Loc: sem.Loc{Scope: c.scope, AST: c.node}, Sig: sig.If, Args: args, Dom: d}, nil
}

func polymorphic(name string) func(*Binder, *call) (sem.Binding, error) {
	return func(b *Binder, c *call) (sem.Binding, error) {
		args, err := b.bindScalars(c.args, c.scope)
		if err != nil {
			return nil, err
		}
		return b.dispatch(c.node, c.scope, name, name, args)
	}
}

// aggregate binds an aggregate function.  The operand is evaluated over
// a plural flow: either the operand itself when it is a flow or the flow
// its units are drawn from.
func aggregate(s *sig.Sig) func(*Binder, *call) (sem.Binding, error) {
	return func(b *Binder, c *call) (sem.Binding, error) {
		op, err := b.bind(c.args[0], c.scope)
		if err != nil {
			return nil, err
		}
		loc := sem.Loc{Scope: c.scope, AST: c.node}
		var plural sem.Binding
		if sem.IsFlow(op) {
			if s != sig.Count && s != sig.Exists {
				return nil, errorf(c.args[0], "function '%s' expects a value; got a flow", c.name)
			}
			plural = flowOf(op)
			op = &sem.Literal{Loc: sem.Loc{Scope: op, AST: c.args[0]}, Value: true, Dom: htsql.Boolean}
		} else if err := b.checkElement(op); err != nil {
			return nil, err
		}
		if err := b.checkAggregate(c.scope, plural, op, c.args[0]); err != nil {
			return nil, err
		}
		var dom htsql.Domain
		switch s {
		case sig.Count:
			if op.Domain().Kind() == htsql.KindBoolean && plural == nil {
				no := &sem.Literal{Loc: sem.Loc{Scope: op.Base(), AST: op.Node()}, Value: false, Dom: htsql.Boolean}
				op = &sem.Formula{Loc: sem.Loc{Scope: op.Base(), AST: op.Node()}, Sig: sig.NullIf, Args: []sem.Binding{op, no}, Dom: htsql.Boolean}
			}
			dom = htsql.Integer
		case sig.Exists, sig.Every:
			if op, err = b.toBoolean(op); err != nil {
				return nil, err
			}
			dom = htsql.Boolean
		case sig.Min, sig.Max:
			if op.Domain().Kind() == htsql.KindUntyped {
				op = b.castTo(op, htsql.Text)
			}
			if !htsql.IsOrderable(op.Domain()) {
				return nil, errorf(c.args[0], "function '%s' cannot be applied to a value of type %s", c.name, op.Domain())
			}
			dom = op.Domain()
		case sig.Sum, sig.Avg:
			f, err := b.dispatch(c.node, c.scope, c.name, s.Name, []sem.Binding{op})
			if err != nil {
				return nil, err
			}
			formula := f.(*sem.Formula)
			op, dom = formula.Args[0], formula.Dom
		}
		inner := &sem.Formula{Loc: loc, Sig: s, Args: []sem.Binding{op}, Dom: dom}
		var out sem.Binding = &sem.Formula{Loc: loc, Sig: sig.Aggregate, Args: []sem.Binding{inner}, Dom: dom, Plural: plural}
		// An aggregate over no rows is NULL in SQL.
		switch s {
		case sig.Count, sig.Sum:
			zero, _ := dom.Parse("0")
			out = ifNull(loc, out, &sem.Literal{Loc: loc, Value: zero, Dom: dom})
		case sig.Exists:
			out = ifNull(loc, out, &sem.Literal{Loc: loc, Value: false, Dom: htsql.Boolean})
		case sig.Every:
			out = ifNull(loc, out, &sem.Literal{Loc: loc, Value: true, Dom: htsql.Boolean})
		}
		return out, nil
	}
}

func ifNull(loc sem.Loc, x, dflt sem.Binding) sem.Binding {
	return &sem.Formula{Loc: loc, Sig: sig.IfNull, Args: []sem.Binding{x, dflt}, Dom: x.Domain()}
}
