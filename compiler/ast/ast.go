package ast

type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	IntegerLiteral
	DecimalLiteral
	FloatLiteral
)

type (
	// Segment is the top of a query: "/" followed by an optional flow.
	Segment struct {
		Branch Node `json:"branch"`
		Loc
	}
	// Command applies a named format command to a segment or to another
	// command, as in "/school/:json".
	Command struct {
		Base Node   `json:"base"`
		Name string `json:"name"`
		Args []Node `json:"args"`
		Loc
	}
	Identifier struct {
		Name string `json:"name"`
		Loc
	}
	// Reference is a "$name" reference to a value defined in an
	// enclosing scope.
	Reference struct {
		Name string `json:"name"`
		Loc
	}
	Literal struct {
		Kind LiteralKind `json:"kind"`
		Text string      `json:"text"`
		Loc
	}
	// Wildcard is "*" (all public fields) or "*N" (the N-th field).
	Wildcard struct {
		Index int `json:"index"`
		Loc
	}
	// Complement is the "^" atom referring to the complement of the
	// enclosing quotient.
	Complement struct {
		Loc
	}
	// Attach is "@table", a link to an unrelated table.
	Attach struct {
		Arg Node `json:"arg"`
		Loc
	}
	Group struct {
		Arg Node `json:"arg"`
		Loc
	}
	// Selector is "{a, b, ...}" optionally applied to a flow.
	Selector struct {
		Base  Node   `json:"base"`
		Elems []Node `json:"elems"`
		Loc
	}
	Call struct {
		Name string `json:"name"`
		Args []Node `json:"args"`
		Loc
	}
	// Pipe is "x :f(args)".
	Pipe struct {
		Lhs  Node   `json:"lhs"`
		Name string `json:"name"`
		Args []Node `json:"args"`
		Loc
	}
	Unary struct {
		Op      string `json:"op"`
		Operand Node   `json:"operand"`
		Loc
	}
	Binary struct {
		Op  string `json:"op"`
		Lhs Node   `json:"lhs"`
		Rhs Node   `json:"rhs"`
		Loc
	}
	Sieve struct {
		Base   Node `json:"base"`
		Filter Node `json:"filter"`
		Loc
	}
	Quotient struct {
		Base   Node `json:"base"`
		Kernel Node `json:"kernel"`
		Loc
	}
	// Direction is a postfix "+" (ascending) or "-" (descending) decorator.
	Direction struct {
		Base Node `json:"base"`
		Dir  int  `json:"dir"`
		Loc
	}
	// Compose is the specifier "a.b".
	Compose struct {
		Lhs Node `json:"lhs"`
		Rhs Node `json:"rhs"`
		Loc
	}
	// Locate is "table[identity]".
	Locate struct {
		Base     Node      `json:"base"`
		Identity *Identity `json:"identity"`
		Loc
	}
	// Identity is a bracketed or parenthesized list of labels.  Each label
	// is a *Label, a string *Literal or a nested *Identity.
	Identity struct {
		Labels []Node `json:"labels"`
		Loc
	}
	Label struct {
		Text string `json:"text"`
		Loc
	}
	// Assign is "lhs := rhs" where lhs is an *Identifier, a *Reference or
	// a *Call whose arguments are references (a parameterized definition).
	Assign struct {
		Lhs Node `json:"lhs"`
		Rhs Node `json:"rhs"`
		Loc
	}
	// Link is "expr -> table".
	Link struct {
		Lhs Node `json:"lhs"`
		Rhs Node `json:"rhs"`
		Loc
	}
)
