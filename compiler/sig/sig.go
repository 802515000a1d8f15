// Package sig declares the signatures of the operators and functions of
// the query language.  A signature is data: it names a function and
// describes its formal parameters.  The binder decides which signature a
// call resolves to and the serializer renders a formula by looking up a
// template for its signature.
package sig

import "strings"

// Slot is a formal parameter.  A plural slot accepts an expression over
// a plural flow (the argument of an aggregate).  A variadic slot absorbs
// the remaining arguments.
type Slot struct {
	Name      string
	Optional  bool
	Plural    bool
	Variadic  bool
	Predicate bool
}

type Sig struct {
	Name  string
	Slots []Slot
	// Aggregate signatures compute one value from a plural operand.
	Aggregate bool
	// Predicate signatures produce a boolean that backends without a
	// boolean type render as a condition.
	Predicate bool
}

func (s *Sig) String() string {
	names := make([]string, 0, len(s.Slots))
	for _, slot := range s.Slots {
		name := slot.Name
		if slot.Optional {
			name += "?"
		}
		if slot.Variadic {
			name += "*"
		}
		names = append(names, name)
	}
	return s.Name + "(" + strings.Join(names, ",") + ")"
}

// Accepts reports whether the signature accepts n arguments.
func (s *Sig) Accepts(n int) bool {
	min, max := 0, 0
	for _, slot := range s.Slots {
		if slot.Variadic {
			max = -1
		} else if max >= 0 {
			max++
		}
		if !slot.Optional && !slot.Variadic {
			min++
		}
	}
	return n >= min && (max < 0 || n <= max)
}

func unary(name string) *Sig {
	return &Sig{Name: name, Slots: []Slot{{Name: "op"}}}
}

func binary(name string) *Sig {
	return &Sig{Name: name, Slots: []Slot{{Name: "lop"}, {Name: "rop"}}}
}

func predicate(s *Sig) *Sig {
	s.Predicate = true
	return s
}

func aggregate(name string) *Sig {
	return &Sig{Name: name, Slots: []Slot{{Name: "op", Plural: true}}, Aggregate: true}
}

var (
	And = predicate(&Sig{Name: "and", Slots: []Slot{{Name: "ops", Variadic: true, Predicate: true}}})
	Or  = predicate(&Sig{Name: "or", Slots: []Slot{{Name: "ops", Variadic: true, Predicate: true}}})
	Not = predicate(&Sig{Name: "not", Slots: []Slot{{Name: "op", Predicate: true}}})

	IsNull    = predicate(unary("is_null"))
	IfNull    = binary("if_null")
	NullIf    = binary("null_if")
	If        = &Sig{Name: "if", Slots: []Slot{{Name: "predicates", Variadic: true}}}
	Equal     = predicate(binary("equal"))
	NotEqual  = predicate(binary("not_equal"))
	Same      = predicate(binary("is_total_equal"))
	NotSame   = predicate(binary("is_total_not_equal"))
	Less      = predicate(binary("less"))
	LessEq    = predicate(binary("less_equal"))
	Greater   = predicate(binary("greater"))
	GreaterEq = predicate(binary("greater_equal"))
	Contains  = predicate(binary("contains"))
	Excludes  = predicate(binary("not_contains"))

	Add         = binary("add")
	Subtract    = binary("subtract")
	Multiply    = binary("multiply")
	Divide      = binary("divide")
	Negate      = unary("negate")
	Concatenate = binary("concatenate")
	DateAdd     = binary("date_add")
	DateSub     = binary("date_subtract")
	DateDiff    = binary("date_diff")

	Length  = unary("length")
	Upper   = unary("upper")
	Lower   = unary("lower")
	Trim    = unary("trim")
	Head    = &Sig{Name: "head", Slots: []Slot{{Name: "op"}, {Name: "length", Optional: true}}}
	Tail    = &Sig{Name: "tail", Slots: []Slot{{Name: "op"}, {Name: "length", Optional: true}}}
	Slice   = &Sig{Name: "slice", Slots: []Slot{{Name: "op"}, {Name: "left"}, {Name: "right"}}}
	At      = &Sig{Name: "at", Slots: []Slot{{Name: "op"}, {Name: "index"}, {Name: "length", Optional: true}}}
	Replace = &Sig{Name: "replace", Slots: []Slot{{Name: "op"}, {Name: "old"}, {Name: "new"}}}

	Round   = unary("round")
	RoundTo = binary("round_to")
	Trunc   = unary("trunc")
	TruncTo = binary("trunc_to")

	Today  = &Sig{Name: "today"}
	Now    = &Sig{Name: "now"}
	Year   = unary("year")
	Month  = unary("month")
	Day    = unary("day")
	Hour   = unary("hour")
	Minute = unary("minute")
	Second = unary("second")

	// Aggregate marks the boundary between an aggregate function and
	// the plural flow it is computed over.  Its single argument is a
	// formula of one of the aggregate signatures below.
	Aggregate = &Sig{Name: "aggregate", Slots: []Slot{{Name: "op"}}}

	Count  = aggregate("count")
	Exists = predicate(aggregate("exists"))
	Every  = predicate(aggregate("every"))
	Min    = aggregate("min")
	Max    = aggregate("max")
	Sum    = aggregate("sum")
	Avg    = aggregate("avg")
)
