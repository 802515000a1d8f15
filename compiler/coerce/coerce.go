// Package coerce computes common domains.  When two values must share a
// domain, as the operands of a comparison do, the binder asks the coercion
// engine for a domain both can be converted to.
package coerce

import (
	"errors"

	"github.com/brimdata/htsql"
)

var ErrIncompatibleTypes = errors.New("incompatible types")

// Rule computes the common domain of an ordered pair of domains of the
// kinds it was registered for.
type Rule func(a, b htsql.Domain) (htsql.Domain, bool)

type pair struct {
	a, b htsql.Kind
}

// Engine holds the binary coercion rules.  Every ordered pair of kinds
// is registered on its own, so a backend may add or override rules for
// its opaque types without touching the others.
type Engine struct {
	rules map[pair]Rule
}

func NewEngine() *Engine {
	e := &Engine{rules: make(map[pair]Rule)}
	e.registerDefaults()
	return e
}

// Clone returns an engine with the same rules that can be extended
// independently.
func (e *Engine) Clone() *Engine {
	rules := make(map[pair]Rule, len(e.rules))
	for k, v := range e.rules {
		rules[k] = v
	}
	return &Engine{rules: rules}
}

func (e *Engine) Register(a, b htsql.Kind, rule Rule) {
	e.rules[pair{a, b}] = rule
}

// RegisterSymmetric registers rule for both orders of the pair.
func (e *Engine) RegisterSymmetric(a, b htsql.Kind, rule Rule) {
	e.Register(a, b, rule)
	e.Register(b, a, func(x, y htsql.Domain) (htsql.Domain, bool) {
		return rule(y, x)
	})
}

// Binary returns the common domain of a and b.
func (e *Engine) Binary(a, b htsql.Domain) (htsql.Domain, error) {
	rule, ok := e.rules[pair{a.Kind(), b.Kind()}]
	if !ok {
		return nil, ErrIncompatibleTypes
	}
	d, ok := rule(a, b)
	if !ok {
		return nil, ErrIncompatibleTypes
	}
	return d, nil
}

// Unary specializes a domain that is still untyped after coercion.
func (e *Engine) Unary(d htsql.Domain) htsql.Domain {
	if d.Kind() == htsql.KindUntyped {
		return htsql.Text
	}
	return d
}

// Coerce folds Binary over the domains from the left and specializes the
// result.
func (e *Engine) Coerce(domains ...htsql.Domain) (htsql.Domain, error) {
	if len(domains) == 0 {
		return nil, ErrIncompatibleTypes
	}
	d := domains[0]
	if !htsql.IsScalar(d) {
		return nil, ErrIncompatibleTypes
	}
	for _, next := range domains[1:] {
		var err error
		if d, err = e.Binary(d, next); err != nil {
			return nil, err
		}
	}
	return e.Unary(d), nil
}

// Common is like Coerce but leaves an untyped result untyped.
func (e *Engine) Common(domains ...htsql.Domain) (htsql.Domain, error) {
	if len(domains) == 0 {
		return nil, ErrIncompatibleTypes
	}
	d := domains[0]
	for _, next := range domains[1:] {
		var err error
		if d, err = e.Binary(d, next); err != nil {
			return nil, err
		}
	}
	return d, nil
}

var scalarKinds = []htsql.Kind{
	htsql.KindUntyped,
	htsql.KindBoolean,
	htsql.KindInteger,
	htsql.KindDecimal,
	htsql.KindFloat,
	htsql.KindText,
	htsql.KindEnum,
	htsql.KindDate,
	htsql.KindTime,
	htsql.KindDateTime,
	htsql.KindOpaque,
}

func (e *Engine) registerDefaults() {
	for _, k := range scalarKinds {
		e.Register(htsql.KindUntyped, k, func(_, b htsql.Domain) (htsql.Domain, bool) { return b, true })
		e.Register(k, htsql.KindUntyped, func(a, _ htsql.Domain) (htsql.Domain, bool) { return a, true })
	}
	same := func(a, b htsql.Domain) (htsql.Domain, bool) {
		return a, htsql.EqualDomains(a, b)
	}
	e.Register(htsql.KindBoolean, htsql.KindBoolean, same)
	e.Register(htsql.KindDate, htsql.KindDate, same)
	e.Register(htsql.KindTime, htsql.KindTime, same)
	e.Register(htsql.KindDateTime, htsql.KindDateTime, same)
	e.Register(htsql.KindOpaque, htsql.KindOpaque, same)
	e.Register(htsql.KindInteger, htsql.KindInteger, func(a, b htsql.Domain) (htsql.Domain, bool) {
		return widenInteger(a.(*htsql.IntegerDomain), b.(*htsql.IntegerDomain)), true
	})
	e.Register(htsql.KindDecimal, htsql.KindDecimal, func(a, b htsql.Domain) (htsql.Domain, bool) {
		if htsql.EqualDomains(a, b) {
			return a, true
		}
		return htsql.Decimal, true
	})
	e.Register(htsql.KindFloat, htsql.KindFloat, func(a, b htsql.Domain) (htsql.Domain, bool) {
		return widenFloat(a.(*htsql.FloatDomain), b.(*htsql.FloatDomain)), true
	})
	e.RegisterSymmetric(htsql.KindInteger, htsql.KindDecimal, func(_, _ htsql.Domain) (htsql.Domain, bool) {
		return htsql.Decimal, true
	})
	toFloat := func(_, _ htsql.Domain) (htsql.Domain, bool) { return htsql.Float, true }
	e.RegisterSymmetric(htsql.KindInteger, htsql.KindFloat, toFloat)
	e.RegisterSymmetric(htsql.KindDecimal, htsql.KindFloat, toFloat)
	e.Register(htsql.KindText, htsql.KindText, func(a, b htsql.Domain) (htsql.Domain, bool) {
		if htsql.EqualDomains(a, b) {
			return a, true
		}
		return htsql.Text, true
	})
	e.Register(htsql.KindEnum, htsql.KindEnum, func(a, b htsql.Domain) (htsql.Domain, bool) {
		if htsql.EqualDomains(a, b) {
			return a, true
		}
		return htsql.Text, true
	})
	e.RegisterSymmetric(htsql.KindEnum, htsql.KindText, func(_, _ htsql.Domain) (htsql.Domain, bool) {
		return htsql.Text, true
	})
	e.RegisterSymmetric(htsql.KindDate, htsql.KindDateTime, func(_, _ htsql.Domain) (htsql.Domain, bool) {
		return htsql.DateTime, true
	})
}

// widenInteger returns the wider of two integer domains.  A domain of
// unknown width is wider than any other.
func widenInteger(a, b *htsql.IntegerDomain) htsql.Domain {
	if a.Size == 0 || b.Size == 0 {
		return htsql.Integer
	}
	if a.Size >= b.Size {
		return a
	}
	return b
}

func widenFloat(a, b *htsql.FloatDomain) htsql.Domain {
	as, bs := floatSize(a.Size), floatSize(b.Size)
	if as >= bs {
		return a
	}
	return b
}

func floatSize(n int) int {
	if n == 0 {
		return 64
	}
	return n
}
