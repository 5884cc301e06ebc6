// Package schema models parameter study schemas and validates them against
// the shape each generator requires.
//
// A schema is an ordered list of parameters. Each parameter carries a raw
// Spec: a scalar, a list, or a mapping, exactly as it was written in the
// source document. Keeping the raw shape lets the validator reject schemas
// whose cardinality is ambiguous (a bare scalar where a list of values is
// expected) instead of guessing.
package schema

import (
	"fmt"

	"github.com/nvandessel/paramstudy/internal/value"
)

// Kind selects the generator a schema is interpreted for.
type Kind uint8

const (
	KindInvalid Kind = iota
	CartesianProduct
	LatinHypercube
	SobolSequence
	CustomStudy
)

// String returns the CLI spelling of the generator kind.
func (k Kind) String() string {
	switch k {
	case CartesianProduct:
		return "cartesian_product"
	case LatinHypercube:
		return "latin_hypercube"
	case SobolSequence:
		return "sobol_sequence"
	case CustomStudy:
		return "custom_study"
	default:
		return "invalid"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{CartesianProduct, LatinHypercube, SobolSequence, CustomStudy} {
		if k.String() == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown generator kind %q", s)
}

// Statistical reports whether the kind samples distributions.
func (k Kind) Statistical() bool {
	return k == LatinHypercube || k == SobolSequence
}

// Form is the shape of a raw Spec.
type Form uint8

const (
	FormInvalid Form = iota
	FormScalar
	FormList
	FormMapping
)

func (f Form) String() string {
	switch f {
	case FormScalar:
		return "scalar"
	case FormList:
		return "list"
	case FormMapping:
		return "mapping"
	default:
		return "nothing"
	}
}

// Spec is one raw specification node.
type Spec struct {
	Form   Form
	Scalar value.Value
	Items  []Spec
	Fields []Field
}

// Field is one ordered key of a mapping Spec.
type Field struct {
	Key  string
	Spec Spec
}

// Parameter binds a parameter name to its raw specification.
type Parameter struct {
	Name string
	Spec Spec
}

// Custom holds the explicit sample array of a custom study.
type Custom struct {
	Names   []string
	Samples [][]Spec
}

// Schema is a parsed parameter schema.
type Schema struct {
	// Parameters are the value sets or distribution descriptors, in declared order.
	Parameters []Parameter

	// NumSimulations is the statistical sample count. Zero when absent.
	NumSimulations int

	// Custom is set only for custom study schemas.
	Custom *Custom
}

// Names returns the parameter names in column order.
func (s *Schema) Names() []string {
	if s.Custom != nil {
		names := make([]string, len(s.Custom.Names))
		copy(names, s.Custom.Names)
		return names
	}
	names := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		names[i] = p.Name
	}
	return names
}

// Scalar wraps a Go scalar as a Spec. It panics on unsupported types.
func Scalar(x any) Spec {
	return Spec{Form: FormScalar, Scalar: value.MustFromNative(x)}
}

// List builds a list Spec from Go scalars.
func List(xs ...any) Spec {
	items := make([]Spec, len(xs))
	for i, x := range xs {
		if s, ok := x.(Spec); ok {
			items[i] = s
			continue
		}
		items[i] = Scalar(x)
	}
	return Spec{Form: FormList, Items: items}
}

// Mapping builds a mapping Spec from alternating key, value arguments.
// Values may be Specs or Go scalars.
func Mapping(kv ...any) Spec {
	if len(kv)%2 != 0 {
		panic("schema.Mapping: odd number of arguments")
	}
	fields := make([]Field, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("schema.Mapping: key %v is not a string", kv[i]))
		}
		spec, ok := kv[i+1].(Spec)
		if !ok {
			spec = Scalar(kv[i+1])
		}
		fields = append(fields, Field{Key: key, Spec: spec})
	}
	return Spec{Form: FormMapping, Fields: fields}
}

// Param is shorthand for a Parameter literal.
func Param(name string, spec Spec) Parameter {
	return Parameter{Name: name, Spec: spec}
}

// New returns a schema holding params, in order.
func New(params ...Parameter) *Schema {
	return &Schema{Parameters: params}
}

// NewStatistical returns a statistical schema with n simulations.
func NewStatistical(n int, params ...Parameter) *Schema {
	return &Schema{Parameters: params, NumSimulations: n}
}

// NewCustom returns a custom study schema from an explicit sample array.
func NewCustom(names []string, rows ...[]any) *Schema {
	samples := make([][]Spec, len(rows))
	for i, row := range rows {
		samples[i] = make([]Spec, len(row))
		for j, x := range row {
			samples[i][j] = Scalar(x)
		}
	}
	return &Schema{Custom: &Custom{Names: names, Samples: samples}}
}

// field looks up key in a mapping Spec.
func (s Spec) field(key string) (Spec, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Spec, true
		}
	}
	return Spec{}, false
}
