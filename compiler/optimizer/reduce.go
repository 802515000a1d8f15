// Package optimizer implements the reducer: a rewrite of the phrases of a
// frame tree that folds constants, removes IFNULL around values that are
// never NULL and collapses redundant casts.  The input tree is never
// modified.  Reducing a reduced tree leaves it unchanged.
package optimizer

import (
	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/sig"
)

// Reduce returns a copy of a segment with every frame simplified.  Frames
// and anchors are copied; phrases left unchanged are shared with seg.
func Reduce(seg *frame.Segment) *frame.Segment {
	return &frame.Segment{Select: reduceSelect(seg.Select), Titles: seg.Titles}
}

func reduceSelect(s *frame.Select) *frame.Select {
	out := *s
	out.Select = reducePhrases(s.Select)
	out.Include = make([]*frame.Anchor, 0, len(s.Include))
	for _, a := range s.Include {
		anchor := *a
		if nested, ok := a.Frame.(*frame.Select); ok {
			anchor.Frame = reduceSelect(nested)
		}
		if a.On != nil {
			anchor.On = ReducePhrase(a.On)
		}
		out.Include = append(out.Include, &anchor)
	}
	if s.Where != nil {
		out.Where = ReducePhrase(s.Where)
		if isTrue(out.Where) {
			out.Where = nil
		}
	}
	out.Group = reducePhrases(s.Group)
	out.Order = nil
	for _, o := range s.Order {
		o.Phrase = ReducePhrase(o.Phrase)
		if _, ok := o.Phrase.(*frame.Literal); ok {
			continue
		}
		out.Order = append(out.Order, o)
	}
	return &out
}

func reducePhrases(phrases []frame.Phrase) []frame.Phrase {
	if phrases == nil {
		return nil
	}
	out := make([]frame.Phrase, len(phrases))
	for k, p := range phrases {
		out[k] = ReducePhrase(p)
	}
	return out
}

// ReducePhrase returns a simplified equivalent of p.  The operands are
// reduced first.  When nothing simplifies, p itself is returned.
func ReducePhrase(p frame.Phrase) frame.Phrase {
	switch p := p.(type) {
	case *frame.Cast:
		if base := ReducePhrase(p.Base); base != p.Base {
			return reduceCast(&frame.Cast{Base: base, Dom: p.Dom})
		}
		return reduceCast(p)
	case *frame.Formula:
		var args []frame.Phrase
		for k, arg := range p.Args {
			r := ReducePhrase(arg)
			if r != arg && args == nil {
				args = make([]frame.Phrase, len(p.Args))
				copy(args, p.Args)
			}
			if args != nil {
				args[k] = r
			}
		}
		if args == nil {
			return reduceFormula(p)
		}
		return reduceFormula(frame.NewFormula(p.Sig, p.Dom, args...))
	}
	return p
}

func reduceCast(c *frame.Cast) frame.Phrase {
	from := c.Base.Domain()
	if htsql.EqualDomains(from, c.Dom) {
		return c.Base
	}
	if widens(from, c.Dom) {
		return c.Base
	}
	if lit, ok := c.Base.(*frame.Literal); ok {
		if v, ok := convert(lit.Value, c.Dom); ok {
			return &frame.Literal{Value: v, Dom: c.Dom}
		}
	}
	// A chain of promotions is a single promotion.
	if inner, ok := c.Base.(*frame.Cast); ok {
		mid := inner.Base.Domain().Kind()
		if coerce.Promotes(mid, inner.Dom.Kind()) && coerce.Promotes(inner.Dom.Kind(), c.Dom.Kind()) {
			return reduceCast(&frame.Cast{Base: inner.Base, Dom: c.Dom})
		}
	}
	return c
}

// widens reports whether a cast between integer types changes nothing but
// the width the value is declared with.
func widens(from, to htsql.Domain) bool {
	f, ok := from.(*htsql.IntegerDomain)
	if !ok {
		return false
	}
	t, ok := to.(*htsql.IntegerDomain)
	if !ok {
		return false
	}
	return t.Size == 0 || (f.Size != 0 && f.Size <= t.Size)
}

func isTrue(p frame.Phrase) bool {
	l, ok := p.(*frame.Literal)
	return ok && l.Value == true
}

func isFalse(p frame.Phrase) bool {
	l, ok := p.(*frame.Literal)
	return ok && l.Value == false
}

func isNull(p frame.Phrase) bool {
	l, ok := p.(*frame.Literal)
	return ok && l.Value == nil
}

func boolean(v bool) *frame.Literal {
	return &frame.Literal{Value: v, Dom: htsql.Boolean}
}

func literals(args []frame.Phrase) ([]any, bool) {
	values := make([]any, len(args))
	for k, arg := range args {
		l, ok := arg.(*frame.Literal)
		if !ok {
			return nil, false
		}
		values[k] = l.Value
	}
	return values, true
}

func reduceFormula(f *frame.Formula) frame.Phrase {
	switch f.Sig {
	case sig.Not:
		switch arg := f.Args[0].(type) {
		case *frame.Literal:
			if v, ok := arg.Value.(bool); ok {
				return boolean(!v)
			}
		case *frame.Formula:
			if arg.Sig == sig.Not {
				return arg.Args[0]
			}
		}
	case sig.And, sig.Or:
		return reduceLogic(f)
	case sig.IsNull:
		if isNull(f.Args[0]) {
			return boolean(true)
		}
		if !f.Args[0].IsNullable() {
			return boolean(false)
		}
	case sig.IfNull:
		var args []frame.Phrase
		for _, arg := range f.Args {
			if isNull(arg) {
				continue
			}
			args = append(args, arg)
			if !arg.IsNullable() {
				break
			}
		}
		switch len(args) {
		case 0:
			return &frame.Literal{Dom: f.Dom}
		case 1:
			return args[0]
		}
		if len(args) < len(f.Args) {
			return frame.NewFormula(sig.IfNull, f.Dom, args...)
		}
	case sig.Add, sig.Subtract, sig.Multiply:
		if values, ok := literals(f.Args); ok {
			if v, ok := arith(f.Sig, values[0], values[1]); ok {
				return &frame.Literal{Value: v, Dom: f.Dom}
			}
		}
	case sig.Negate:
		if values, ok := literals(f.Args); ok {
			if v, ok := negate(values[0]); ok {
				return &frame.Literal{Value: v, Dom: f.Dom}
			}
		}
	case sig.Equal, sig.NotEqual, sig.Less, sig.LessEq, sig.Greater, sig.GreaterEq:
		if values, ok := literals(f.Args); ok {
			if values[0] == nil || values[1] == nil {
				return &frame.Literal{Dom: htsql.Boolean}
			}
			if c, ok := compare(values[0], values[1], f.Sig == sig.Equal || f.Sig == sig.NotEqual); ok {
				return boolean(holds(f.Sig, c))
			}
		}
	case sig.Concatenate:
		if values, ok := literals(f.Args); ok {
			a, _ := values[0].(string)
			b, _ := values[1].(string)
			return &frame.Literal{Value: a + b, Dom: f.Dom}
		}
	case sig.Contains, sig.Excludes:
		if values, ok := literals(f.Args); ok {
			if v, ok := contains(values[0], values[1]); ok {
				if f.Sig == sig.Excludes {
					v = !v
				}
				return boolean(v)
			}
		}
	}
	return f
}

// reduceLogic flattens nested conjunctions or disjunctions and drops the
// neutral constant.  The absorbing constant replaces the whole formula.
func reduceLogic(f *frame.Formula) frame.Phrase {
	neutral, absorbing := isTrue, isFalse
	if f.Sig == sig.Or {
		neutral, absorbing = isFalse, isTrue
	}
	var args []frame.Phrase
	for _, arg := range f.Args {
		if nested, ok := arg.(*frame.Formula); ok && nested.Sig == f.Sig {
			args = append(args, nested.Args...)
			continue
		}
		args = append(args, arg)
	}
	var ops []frame.Phrase
	for _, arg := range args {
		switch {
		case absorbing(arg):
			return arg
		case neutral(arg):
			continue
		}
		ops = append(ops, arg)
	}
	switch len(ops) {
	case 0:
		return boolean(f.Sig == sig.And)
	case 1:
		return ops[0]
	}
	if len(ops) == len(f.Args) && len(args) == len(f.Args) {
		return f
	}
	return frame.NewFormula(f.Sig, f.Dom, ops...)
}

func holds(s *sig.Sig, c int) bool {
	switch s {
	case sig.Equal:
		return c == 0
	case sig.NotEqual:
		return c != 0
	case sig.Less:
		return c < 0
	case sig.LessEq:
		return c <= 0
	case sig.Greater:
		return c > 0
	}
	return c >= 0
}
