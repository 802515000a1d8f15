// Package htsql defines the value domains of the HTSQL query language:
// the closed set of scalar and structural types that bindings, codes
// and phrases carry, together with the parse and dump contracts that
// convert between literal text and native Go values.
package htsql

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/lestrrat-go/strftime"
	"github.com/shopspring/decimal"
	"github.com/x448/float16"
)

type Kind int

const (
	KindVoid Kind = iota
	KindUntyped
	KindBoolean
	KindInteger
	KindDecimal
	KindFloat
	KindText
	KindEnum
	KindDate
	KindTime
	KindDateTime
	KindIdentity
	KindRecord
	KindList
	KindEntity
	KindOpaque
)

var kindNames = [...]string{
	KindVoid:     "void",
	KindUntyped:  "untyped",
	KindBoolean:  "boolean",
	KindInteger:  "integer",
	KindDecimal:  "decimal",
	KindFloat:    "float",
	KindText:     "text",
	KindEnum:     "enum",
	KindDate:     "date",
	KindTime:     "time",
	KindDateTime: "datetime",
	KindIdentity: "identity",
	KindRecord:   "record",
	KindList:     "list",
	KindEntity:   "entity",
	KindOpaque:   "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Domain is the type of a value.  Parse converts a literal string into
// the domain's native Go value and Dump converts it back.  Both fail on
// values the domain cannot represent.  A nil native value stands for NULL
// in every domain.
type Domain interface {
	Kind() Kind
	Parse(string) (any, error)
	Dump(any) (string, error)
	String() string
}

var ErrNotLiteral = errors.New("domain has no literal form")

type (
	VoidDomain    struct{}
	UntypedDomain struct{}
	BooleanDomain struct{}
	// IntegerDomain holds values as *big.Int.  Size is the width in bits
	// or zero when the width is unknown.
	IntegerDomain struct {
		Size int
	}
	// DecimalDomain holds values as decimal.Decimal.  A zero Precision
	// means arbitrary precision.
	DecimalDomain struct {
		Precision int
		Scale     int
	}
	// FloatDomain holds values as float64 rounded to Size bits of
	// storage (16, 32 or 64).  A zero Size is treated as 64.
	FloatDomain struct {
		Size int
	}
	TextDomain struct {
		Length    int
		IsVarying bool
	}
	EnumDomain struct {
		Labels []string
	}
	DateDomain     struct{}
	TimeDomain     struct{}
	DateTimeDomain struct{}
	// IdentityDomain is the type of a row identity: an ordered list of
	// labels, each of which has its own domain.  Values are []any.
	IdentityDomain struct {
		Fields []Domain
	}
	RecordDomain struct {
		Fields []Field
	}
	ListDomain struct {
		Item Domain
	}
	// EntityDomain is the domain of a table flow used as a value.
	EntityDomain struct {
		Table string
	}
	// OpaqueDomain is a backend type the translator does not understand.
	// Two opaque domains are equal only when both the backend and the
	// type name agree.
	OpaqueDomain struct {
		Backend string
		Name    string
	}
)

type Field struct {
	Name   string
	Domain Domain
}

var (
	Void     = &VoidDomain{}
	Untyped  = &UntypedDomain{}
	Boolean  = &BooleanDomain{}
	Integer  = &IntegerDomain{}
	Decimal  = &DecimalDomain{}
	Float    = &FloatDomain{}
	Text     = &TextDomain{IsVarying: true}
	Date     = &DateDomain{}
	Time     = &TimeDomain{}
	DateTime = &DateTimeDomain{}
)

func (*VoidDomain) Kind() Kind     { return KindVoid }
func (*UntypedDomain) Kind() Kind  { return KindUntyped }
func (*BooleanDomain) Kind() Kind  { return KindBoolean }
func (*IntegerDomain) Kind() Kind  { return KindInteger }
func (*DecimalDomain) Kind() Kind  { return KindDecimal }
func (*FloatDomain) Kind() Kind    { return KindFloat }
func (*TextDomain) Kind() Kind     { return KindText }
func (*EnumDomain) Kind() Kind     { return KindEnum }
func (*DateDomain) Kind() Kind     { return KindDate }
func (*TimeDomain) Kind() Kind     { return KindTime }
func (*DateTimeDomain) Kind() Kind { return KindDateTime }
func (*IdentityDomain) Kind() Kind { return KindIdentity }
func (*RecordDomain) Kind() Kind   { return KindRecord }
func (*ListDomain) Kind() Kind     { return KindList }
func (*EntityDomain) Kind() Kind   { return KindEntity }
func (*OpaqueDomain) Kind() Kind   { return KindOpaque }

func (*VoidDomain) String() string    { return "void" }
func (*UntypedDomain) String() string { return "untyped" }
func (*BooleanDomain) String() string { return "boolean" }

func (d *IntegerDomain) String() string {
	if d.Size != 0 {
		return fmt.Sprintf("integer(%d)", d.Size)
	}
	return "integer"
}

func (d *DecimalDomain) String() string {
	if d.Precision != 0 {
		return fmt.Sprintf("decimal(%d,%d)", d.Precision, d.Scale)
	}
	return "decimal"
}

func (d *FloatDomain) String() string {
	if d.Size != 0 && d.Size != 64 {
		return fmt.Sprintf("float(%d)", d.Size)
	}
	return "float"
}

func (d *TextDomain) String() string {
	if d.Length != 0 {
		if d.IsVarying {
			return fmt.Sprintf("varchar(%d)", d.Length)
		}
		return fmt.Sprintf("char(%d)", d.Length)
	}
	return "text"
}

func (d *EnumDomain) String() string {
	return "enum(" + strings.Join(d.Labels, ",") + ")"
}

func (*DateDomain) String() string     { return "date" }
func (*TimeDomain) String() string     { return "time" }
func (*DateTimeDomain) String() string { return "datetime" }

func (d *IdentityDomain) String() string {
	var elems []string
	for _, f := range d.Fields {
		elems = append(elems, f.String())
	}
	return "identity(" + strings.Join(elems, ",") + ")"
}

func (d *RecordDomain) String() string {
	var elems []string
	for _, f := range d.Fields {
		if f.Name != "" {
			elems = append(elems, f.Name+" "+f.Domain.String())
		} else {
			elems = append(elems, f.Domain.String())
		}
	}
	return "record(" + strings.Join(elems, ",") + ")"
}

func (d *ListDomain) String() string   { return "list(" + d.Item.String() + ")" }
func (d *EntityDomain) String() string { return "entity(" + d.Table + ")" }

func (d *OpaqueDomain) String() string {
	if d.Backend != "" {
		return d.Backend + ":" + d.Name
	}
	return d.Name
}

// EqualDomains compares domains structurally.
func EqualDomains(a, b Domain) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case *IntegerDomain:
		return a.Size == b.(*IntegerDomain).Size
	case *DecimalDomain:
		b := b.(*DecimalDomain)
		return a.Precision == b.Precision && a.Scale == b.Scale
	case *FloatDomain:
		return floatSize(a.Size) == floatSize(b.(*FloatDomain).Size)
	case *TextDomain:
		b := b.(*TextDomain)
		return a.Length == b.Length && a.IsVarying == b.IsVarying
	case *EnumDomain:
		b := b.(*EnumDomain)
		if len(a.Labels) != len(b.Labels) {
			return false
		}
		for k := range a.Labels {
			if a.Labels[k] != b.Labels[k] {
				return false
			}
		}
		return true
	case *IdentityDomain:
		b := b.(*IdentityDomain)
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for k := range a.Fields {
			if !EqualDomains(a.Fields[k], b.Fields[k]) {
				return false
			}
		}
		return true
	case *RecordDomain:
		b := b.(*RecordDomain)
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for k := range a.Fields {
			if a.Fields[k].Name != b.Fields[k].Name || !EqualDomains(a.Fields[k].Domain, b.Fields[k].Domain) {
				return false
			}
		}
		return true
	case *ListDomain:
		return EqualDomains(a.Item, b.(*ListDomain).Item)
	case *EntityDomain:
		return a.Table == b.(*EntityDomain).Table
	case *OpaqueDomain:
		b := b.(*OpaqueDomain)
		return a.Backend == b.Backend && a.Name == b.Name
	}
	return true
}

// IsScalar is true for domains whose values may appear as a single SQL value.
func IsScalar(d Domain) bool {
	switch d.Kind() {
	case KindVoid, KindRecord, KindList, KindEntity, KindIdentity:
		return false
	}
	return true
}

// IsNumeric is true for integer, decimal and float domains.
func IsNumeric(d Domain) bool {
	switch d.Kind() {
	case KindInteger, KindDecimal, KindFloat:
		return true
	}
	return false
}

// IsOrderable is true for domains that support the comparison operators.
func IsOrderable(d Domain) bool {
	switch d.Kind() {
	case KindInteger, KindDecimal, KindFloat, KindText, KindEnum, KindDate, KindTime, KindDateTime, KindUntyped:
		return true
	}
	return false
}

func notLiteral(d Domain) error {
	return fmt.Errorf("%s: %w", d, ErrNotLiteral)
}

func invalid(d Domain, s string) error {
	return fmt.Errorf("invalid %s literal %q", d, s)
}

func mismatch(d Domain, v any) error {
	return fmt.Errorf("%s: unexpected native value of type %T", d, v)
}

func (d *VoidDomain) Parse(string) (any, error) { return nil, notLiteral(d) }
func (d *VoidDomain) Dump(any) (string, error)  { return "", notLiteral(d) }

func (*UntypedDomain) Parse(s string) (any, error) { return s, nil }

func (d *UntypedDomain) Dump(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", mismatch(d, v)
}

func (d *BooleanDomain) Parse(s string) (any, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, invalid(d, s)
}

func (d *BooleanDomain) Dump(v any) (string, error) {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b), nil
	}
	return "", mismatch(d, v)
}

var integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

func (d *IntegerDomain) Parse(s string) (any, error) {
	if !integerPattern.MatchString(s) {
		return nil, invalid(d, s)
	}
	var n big.Int
	if _, ok := n.SetString(strings.TrimPrefix(s, "+"), 10); !ok {
		return nil, invalid(d, s)
	}
	if !d.Fits(&n) {
		return nil, fmt.Errorf("integer %s is out of range for %s", s, d)
	}
	return &n, nil
}

// Fits reports whether n is representable in a signed integer of the
// domain's width.
func (d *IntegerDomain) Fits(n *big.Int) bool {
	if d.Size == 0 {
		return true
	}
	return n.BitLen() < d.Size || (n.Sign() < 0 && isPowerOfTwo(n, d.Size-1))
}

func isPowerOfTwo(n *big.Int, bits int) bool {
	var limit big.Int
	limit.Lsh(big.NewInt(1), uint(bits))
	limit.Neg(&limit)
	return n.Cmp(&limit) == 0
}

func (d *IntegerDomain) Dump(v any) (string, error) {
	switch v := v.(type) {
	case *big.Int:
		return v.String(), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", mismatch(d, v)
}

func (d *DecimalDomain) Parse(s string) (any, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil, invalid(d, s)
	}
	if d.Precision != 0 && v.NumDigits() > d.Precision {
		return nil, fmt.Errorf("decimal %s exceeds precision of %s", s, d)
	}
	return v, nil
}

func (d *DecimalDomain) Dump(v any) (string, error) {
	if v, ok := v.(decimal.Decimal); ok {
		return v.String(), nil
	}
	return "", mismatch(d, v)
}

func floatSize(size int) int {
	if size == 0 {
		return 64
	}
	return size
}

// Round converts f to the precision of the domain's storage size.
func (d *FloatDomain) Round(f float64) float64 {
	switch floatSize(d.Size) {
	case 16:
		return float64(float16.Fromfloat32(float32(f)).Float32())
	case 32:
		return float64(float32(f))
	}
	return f
}

func (d *FloatDomain) Parse(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(d, s)
	}
	f = d.Round(f)
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("float %s is out of range for %s", s, d)
	}
	return f, nil
}

func (d *FloatDomain) Dump(v any) (string, error) {
	f, ok := v.(float64)
	if !ok {
		return "", mismatch(d, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%s: %v has no literal form", d, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += "e0"
	}
	return s, nil
}

func (d *TextDomain) Parse(s string) (any, error) {
	if !utf8.ValidString(s) {
		return nil, invalid(d, s)
	}
	if d.Length != 0 && utf8.RuneCountInString(s) > d.Length {
		return nil, fmt.Errorf("text %q is longer than %d characters", s, d.Length)
	}
	return s, nil
}

func (d *TextDomain) Dump(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", mismatch(d, v)
}

func (d *EnumDomain) Parse(s string) (any, error) {
	for _, label := range d.Labels {
		if label == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("invalid label %q for %s", s, d)
}

func (d *EnumDomain) Dump(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", mismatch(d, v)
}

var (
	datePattern     = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	timePattern     = regexp.MustCompile(`^([0-9]{1,2}):([0-9]{2})(?::([0-9]{2})(\.[0-9]{1,9})?)?$`)
	datetimePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}(?:[ T][0-9]{1,2}:[0-9]{2}(?::[0-9]{2}(?:\.[0-9]{1,9})?)?)?$`)

	dateFormat     = mustStrftime("%Y-%m-%d")
	timeFormat     = mustStrftime("%H:%M:%S")
	datetimeFormat = mustStrftime("%Y-%m-%d %H:%M:%S")
)

func mustStrftime(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// fraction renders the sub-second part of t, if any, without trailing zeros.
func fraction(t time.Time) string {
	ns := t.Nanosecond()
	if ns == 0 {
		return ""
	}
	return strings.TrimRight(fmt.Sprintf(".%09d", ns), "0")
}

func (d *DateDomain) Parse(s string) (any, error) {
	if !datePattern.MatchString(s) {
		return nil, invalid(d, s)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, invalid(d, s)
	}
	return t, nil
}

func (d *DateDomain) Dump(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return dateFormat.FormatString(t), nil
	}
	return "", mismatch(d, v)
}

func (d *TimeDomain) Parse(s string) (any, error) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, invalid(d, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	var second, nsec int
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		digits := m[4][1:] + strings.Repeat("0", 10-len(m[4]))
		nsec, _ = strconv.Atoi(digits)
	}
	if hour > 23 || minute > 59 || second > 59 {
		return nil, invalid(d, s)
	}
	return time.Date(0, 1, 1, hour, minute, second, nsec, time.UTC), nil
}

func (d *TimeDomain) Dump(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return timeFormat.FormatString(t) + fraction(t), nil
	}
	return "", mismatch(d, v)
}

func (d *DateTimeDomain) Parse(s string) (any, error) {
	if !datetimePattern.MatchString(s) {
		return nil, invalid(d, s)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, invalid(d, s)
	}
	return t.UTC(), nil
}

func (d *DateTimeDomain) Dump(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return datetimeFormat.FormatString(t) + fraction(t), nil
	}
	return "", mismatch(d, v)
}

// Parse splits an identity label of the form "a.b.c" (with quoted
// labels 'x.y' for text containing dots) and parses each label with
// the corresponding field domain.
func (d *IdentityDomain) Parse(s string) (any, error) {
	labels, err := splitLabels(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	if len(labels) != len(d.Fields) {
		return nil, fmt.Errorf("%s: expected %d labels, got %d", d, len(d.Fields), len(labels))
	}
	out := make([]any, len(labels))
	for k, label := range labels {
		v, err := d.Fields[k].Parse(label)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (d *IdentityDomain) Dump(v any) (string, error) {
	vals, ok := v.([]any)
	if !ok || len(vals) != len(d.Fields) {
		return "", mismatch(d, v)
	}
	var labels []string
	for k, val := range vals {
		s, err := d.Fields[k].Dump(val)
		if err != nil {
			return "", err
		}
		if !isPlainLabel(s) {
			s = "'" + strings.ReplaceAll(s, "'", "''") + "'"
		}
		labels = append(labels, s)
	}
	return strings.Join(labels, "."), nil
}

var plainLabel = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

func isPlainLabel(s string) bool {
	return plainLabel.MatchString(s)
}

func splitLabels(s string) ([]string, error) {
	var labels []string
	for {
		var label string
		if strings.HasPrefix(s, "'") {
			var b strings.Builder
			k := 1
			for {
				if k >= len(s) {
					return nil, errors.New("unterminated quoted label")
				}
				if s[k] == '\'' {
					if k+1 < len(s) && s[k+1] == '\'' {
						b.WriteByte('\'')
						k += 2
						continue
					}
					k++
					break
				}
				b.WriteByte(s[k])
				k++
			}
			label, s = b.String(), s[k:]
		} else {
			end := strings.IndexByte(s, '.')
			if end < 0 {
				end = len(s)
			}
			label, s = s[:end], s[end:]
			if !isPlainLabel(label) {
				return nil, fmt.Errorf("invalid label %q", label)
			}
		}
		labels = append(labels, label)
		if s == "" {
			return labels, nil
		}
		if s[0] != '.' {
			return nil, fmt.Errorf("unexpected %q after label", s[:1])
		}
		s = s[1:]
	}
}

func (d *RecordDomain) Parse(string) (any, error) { return nil, notLiteral(d) }
func (d *RecordDomain) Dump(any) (string, error)  { return "", notLiteral(d) }
func (d *ListDomain) Parse(string) (any, error)   { return nil, notLiteral(d) }
func (d *ListDomain) Dump(any) (string, error)    { return "", notLiteral(d) }
func (d *EntityDomain) Parse(string) (any, error) { return nil, notLiteral(d) }
func (d *EntityDomain) Dump(any) (string, error)  { return "", notLiteral(d) }

func (*OpaqueDomain) Parse(s string) (any, error) { return s, nil }

func (d *OpaqueDomain) Dump(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", mismatch(d, v)
}

// EqualValues compares two native values of the same domain.
func EqualValues(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *big.Int:
		b, ok := b.(*big.Int)
		return ok && a.Cmp(b) == 0
	case decimal.Decimal:
		b, ok := b.(decimal.Decimal)
		return ok && a.Equal(b)
	case time.Time:
		b, ok := b.(time.Time)
		return ok && a.Equal(b)
	case []any:
		b, ok := b.([]any)
		if !ok || len(a) != len(b) {
			return false
		}
		for k := range a {
			if !EqualValues(a[k], b[k]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// LookupDomain maps a type name as it appears in catalog descriptions
// to a domain.  Names that are not recognized become opaque domains of
// the given backend.
func LookupDomain(backend, name string) Domain {
	base, args := splitTypeName(name)
	switch base {
	case "boolean", "bool":
		return Boolean
	case "integer", "int", "int4", "bigint", "int8", "smallint", "int2", "tinyint":
		switch base {
		case "smallint", "int2":
			return &IntegerDomain{Size: 16}
		case "tinyint":
			return &IntegerDomain{Size: 8}
		case "integer", "int", "int4":
			if backend == "sqlite" {
				return &IntegerDomain{Size: 64}
			}
			return &IntegerDomain{Size: 32}
		}
		return &IntegerDomain{Size: 64}
	case "decimal", "numeric", "number":
		d := &DecimalDomain{}
		if len(args) > 0 {
			d.Precision, _ = strconv.Atoi(args[0])
		}
		if len(args) > 1 {
			d.Scale, _ = strconv.Atoi(args[1])
		}
		return d
	case "float", "real", "double", "double precision", "float8":
		if base == "real" && backend != "sqlite" {
			return &FloatDomain{Size: 32}
		}
		return &FloatDomain{Size: 64}
	case "float4":
		return &FloatDomain{Size: 32}
	case "float2", "half":
		return &FloatDomain{Size: 16}
	case "text", "clob", "string":
		return Text
	case "varchar", "character varying", "varchar2", "nvarchar", "char", "character", "nchar":
		d := &TextDomain{IsVarying: !strings.Contains(base, "char") || strings.Contains(base, "var")}
		if len(args) > 0 {
			d.Length, _ = strconv.Atoi(args[0])
		}
		return d
	case "enum":
		return &EnumDomain{Labels: args}
	case "date":
		return Date
	case "time":
		return Time
	case "datetime", "timestamp":
		return DateTime
	}
	return &OpaqueDomain{Backend: backend, Name: name}
}

func splitTypeName(name string) (string, []string) {
	name = strings.ToLower(strings.TrimSpace(name))
	open := strings.IndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return name, nil
	}
	var args []string
	for _, arg := range strings.Split(name[open+1:len(name)-1], ",") {
		args = append(args, strings.Trim(strings.TrimSpace(arg), "'"))
	}
	return strings.TrimSpace(name[:open]), args
}
