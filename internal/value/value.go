// Package value defines the tagged cell type stored in parameter studies.
//
// Every cell of a study is exactly one of int, float, string, or bool. The
// kind travels with the value so hashing and serialization never depend on
// implicit numeric coercion: Int(1) and Float(1) are different values with
// different canonical forms.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

// String returns the lowercase kind name used in serialized metadata.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "bool":
		return KindBool, nil
	default:
		return KindInvalid, fmt.Errorf("unknown value kind %q", s)
	}
}

// Value is an immutable tagged scalar. The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer payload. It panics if v is not an Int.
func (v Value) AsInt() int64 {
	v.mustBe(KindInt)
	return v.i
}

// AsFloat returns the float payload. It panics if v is not a Float.
func (v Value) AsFloat() float64 {
	v.mustBe(KindFloat)
	return v.f
}

// AsString returns the string payload. It panics if v is not a String.
func (v Value) AsString() string {
	v.mustBe(KindString)
	return v.s
}

// AsBool returns the bool payload. It panics if v is not a Bool.
func (v Value) AsBool() bool {
	v.mustBe(KindBool)
	return v.b
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: %s accessed as %s", v.kind, k))
	}
}

// Float64 returns numeric values as float64. ok is false for strings and bools.
func (v Value) Float64() (f float64, ok bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Native returns the payload as int64, float64, string, or bool.
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether a and b have the same kind and payload.
// NaN floats compare equal to each other so studies holding them stay comparable.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(o.f) {
			return true
		}
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// Repr returns the canonical text form used for hashing and tagged storage.
// Floats always carry a decimal point or exponent so they never collide with ints.
func (v Value) Repr() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindString:
		return strconv.Quote(v.s)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// String returns the plain display form: strings unquoted, floats as in Repr.
func (v Value) String() string {
	if v.kind == KindString {
		return v.s
	}
	return v.Repr()
}

// FormatFloat renders f in shortest round-trip form with a guaranteed
// decimal point or exponent, e.g. 3 -> "3.0".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ParseRepr parses the output of Repr back into a Value of the given kind.
func ParseRepr(kind Kind, s string) (Value, error) {
	switch kind {
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float %q: %w", s, err)
		}
		return Float(f), nil
	case KindString:
		str, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, fmt.Errorf("parse string %q: %w", s, err)
		}
		return String(str), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("parse %q: invalid kind", s)
	}
}

// Tagged returns "kind:repr", the self-describing form used by columns that mix kinds.
func (v Value) Tagged() string {
	return v.kind.String() + ":" + v.Repr()
}

// ParseTagged is the inverse of Tagged.
func ParseTagged(s string) (Value, error) {
	k, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Value{}, fmt.Errorf("tagged value %q has no kind prefix", s)
	}
	kind, err := ParseKind(k)
	if err != nil {
		return Value{}, err
	}
	return ParseRepr(kind, rest)
}

// FromNative converts Go scalars into a Value. Integer types become Int,
// floating types Float. Anything else (including nil, slices, and maps)
// is rejected.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if !t.IsValid() {
			return Value{}, fmt.Errorf("invalid value")
		}
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// MustFromNative is FromNative for literals known to be valid. It panics on error.
func MustFromNative(x any) Value {
	v, err := FromNative(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Row converts a list of Go scalars with MustFromNative.
func Row(xs ...any) []Value {
	row := make([]Value, len(xs))
	for i, x := range xs {
		row[i] = MustFromNative(x)
	}
	return row
}
