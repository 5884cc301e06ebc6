package schema

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/distribution"
	"github.com/nvandessel/paramstudy/internal/sampler"
	"github.com/nvandessel/paramstudy/internal/value"
)

// Validate checks s against the shape kind requires. It has no side effects.
func Validate(s *Schema, kind Kind) error {
	var err error
	switch kind {
	case CartesianProduct:
		_, err = DiscreteValues(s)
	case LatinHypercube, SobolSequence:
		_, err = Distributions(s, kind)
	case CustomStudy:
		_, err = CustomRows(s)
	default:
		err = Invalidf(kind, "", "unknown generator kind")
	}
	return err
}

// validateCommon checks the rules shared by every generator.
func validateCommon(s *Schema, kind Kind) error {
	if s == nil {
		return Invalidf(kind, "", "schema must be a mapping, got nothing")
	}
	if kind != CustomStudy && s.Custom != nil {
		return Invalidf(kind, "", "%s and %s are only valid for custom studies",
			constants.ParameterNamesKey, constants.ParameterSamplesKey)
	}
	if !kind.Statistical() && s.NumSimulations != 0 {
		return Invalidf(kind, "", "%s is only valid for statistical generators", constants.NumSimulationsKey)
	}
	seen := make(map[string]bool, len(s.Parameters))
	for _, p := range s.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return Invalidf(kind, "", "parameter names must be non-empty")
		}
		if !utf8.ValidString(p.Name) {
			return Invalidf(kind, p.Name, "parameter name is not valid UTF-8")
		}
		if seen[p.Name] {
			return Invalidf(kind, p.Name, "duplicate parameter name")
		}
		seen[p.Name] = true
	}
	return nil
}

// DiscreteValues validates a Cartesian product schema and returns each
// parameter's value list in declared order.
func DiscreteValues(s *Schema) ([][]value.Value, error) {
	const kind = CartesianProduct
	if err := validateCommon(s, kind); err != nil {
		return nil, err
	}
	if len(s.Parameters) == 0 {
		return nil, Invalidf(kind, "", "schema has no parameters")
	}
	columns := make([][]value.Value, len(s.Parameters))
	for i, p := range s.Parameters {
		if p.Spec.Form != FormList {
			return nil, Invalidf(kind, p.Name, "value set must be a list of values, got a %s", describe(p.Spec))
		}
		if len(p.Spec.Items) == 0 {
			return nil, Invalidf(kind, p.Name, "value set is empty")
		}
		vals, err := scalars(kind, p.Name, p.Spec.Items)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(vals))
		for _, v := range vals {
			if seen[v.Tagged()] {
				return nil, Invalidf(kind, p.Name, "value set contains %s more than once", v.Repr())
			}
			seen[v.Tagged()] = true
		}
		columns[i] = vals
	}
	return columns, nil
}

// Distributions validates a statistical schema and returns one
// distribution per parameter in declared order.
func Distributions(s *Schema, kind Kind) ([]distribution.Distribution, error) {
	if err := validateCommon(s, kind); err != nil {
		return nil, err
	}
	if s.NumSimulations < 1 {
		return nil, Invalidf(kind, "", "%s must be a positive integer", constants.NumSimulationsKey)
	}
	if len(s.Parameters) == 0 {
		return nil, Invalidf(kind, "", "schema has no parameters")
	}
	if kind == SobolSequence && len(s.Parameters) > sampler.MaxSobolDimension {
		return nil, Invalidf(kind, "", "sobol sequences support at most %d parameters, got %d",
			sampler.MaxSobolDimension, len(s.Parameters))
	}
	dists := make([]distribution.Distribution, len(s.Parameters))
	for i, p := range s.Parameters {
		d, err := descriptor(kind, p)
		if err != nil {
			return nil, err
		}
		dist, err := distribution.New(d)
		if err != nil {
			reason := strings.TrimPrefix(err.Error(), distribution.ErrInvalidDescriptor.Error()+": ")
			return nil, Invalidf(kind, p.Name, "%s", reason)
		}
		dists[i] = dist
	}
	return dists, nil
}

func descriptor(kind Kind, p Parameter) (distribution.Descriptor, error) {
	if p.Spec.Form != FormMapping {
		return distribution.Descriptor{}, Invalidf(kind, p.Name,
			"must be a mapping with a %q key, got a %s", constants.DistributionKey, describe(p.Spec))
	}
	name, ok := p.Spec.field(constants.DistributionKey)
	if !ok {
		return distribution.Descriptor{}, Invalidf(kind, p.Name, "missing required %q key", constants.DistributionKey)
	}
	if name.Form != FormScalar || name.Scalar.Kind() != value.KindString {
		return distribution.Descriptor{}, Invalidf(kind, p.Name, "%q must be a string", constants.DistributionKey)
	}
	d := distribution.Descriptor{Name: name.Scalar.AsString(), Params: make(map[string]float64)}
	for _, f := range p.Spec.Fields {
		switch {
		case f.Key == constants.DistributionKey:
		case f.Key == "values":
			if f.Spec.Form != FormList {
				return d, Invalidf(kind, p.Name, "values must be a list, got a %s", describe(f.Spec))
			}
			vals, err := scalars(kind, p.Name, f.Spec.Items)
			if err != nil {
				return d, err
			}
			d.Values = vals
		default:
			if f.Spec.Form != FormScalar {
				return d, Invalidf(kind, p.Name, "keyword argument %q must be a number", f.Key)
			}
			num, ok := f.Spec.Scalar.Float64()
			if !ok {
				return d, Invalidf(kind, p.Name, "keyword argument %q must be a number", f.Key)
			}
			d.Params[f.Key] = num
		}
	}
	return d, nil
}

// CustomRows validates a custom study schema and returns its sample array.
func CustomRows(s *Schema) ([][]value.Value, error) {
	const kind = CustomStudy
	if err := validateCommon(s, kind); err != nil {
		return nil, err
	}
	if s.Custom == nil {
		return nil, Invalidf(kind, "", "missing required %q and %q keys",
			constants.ParameterNamesKey, constants.ParameterSamplesKey)
	}
	if len(s.Parameters) > 0 {
		return nil, Invalidf(kind, s.Parameters[0].Name, "custom studies only accept %q and %q",
			constants.ParameterNamesKey, constants.ParameterSamplesKey)
	}
	names := s.Custom.Names
	if len(names) == 0 {
		return nil, Invalidf(kind, "", "%s must be a non-empty list", constants.ParameterNamesKey)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, Invalidf(kind, "", "parameter names must be non-empty")
		}
		if seen[n] {
			return nil, Invalidf(kind, n, "duplicate parameter name")
		}
		seen[n] = true
	}
	if len(s.Custom.Samples) == 0 {
		return nil, Invalidf(kind, "", "%s must be a non-empty list of rows", constants.ParameterSamplesKey)
	}
	rows := make([][]value.Value, len(s.Custom.Samples))
	seenRows := make(map[string]int, len(rows))
	for i, raw := range s.Custom.Samples {
		if len(raw) != len(names) {
			return nil, Invalidf(kind, "", "row %d has %d values, want %d (one per parameter name)", i, len(raw), len(names))
		}
		row := make([]value.Value, len(raw))
		var key strings.Builder
		for j, cell := range raw {
			if cell.Form != FormScalar || !cell.Scalar.IsValid() {
				return nil, Invalidf(kind, names[j], "row %d: value must be a scalar, got a %s", i, describe(cell))
			}
			if !validText(cell.Scalar) {
				return nil, Invalidf(kind, names[j], "row %d: string value is not valid UTF-8", i)
			}
			row[j] = cell.Scalar
			key.WriteString(cell.Scalar.Tagged())
			key.WriteByte(0)
		}
		if prev, dup := seenRows[key.String()]; dup {
			return nil, Invalidf(kind, "", "row %d duplicates row %d", i, prev)
		}
		seenRows[key.String()] = i
		rows[i] = row
	}
	return rows, nil
}

func scalars(kind Kind, name string, items []Spec) ([]value.Value, error) {
	vals := make([]value.Value, len(items))
	for i, item := range items {
		if item.Form != FormScalar || !item.Scalar.IsValid() {
			return nil, Invalidf(kind, name, "item %d must be a scalar value, got a %s", i, describe(item))
		}
		if !validText(item.Scalar) {
			return nil, Invalidf(kind, name, "item %d: string value is not valid UTF-8", i)
		}
		vals[i] = item.Scalar
	}
	return vals, nil
}

// validText rejects strings that YAML would only round-trip as !!binary.
func validText(v value.Value) bool {
	return v.Kind() != value.KindString || utf8.ValidString(v.AsString())
}

// describe names a Spec's shape for error messages.
func describe(s Spec) string {
	if s.Form == FormScalar {
		if !s.Scalar.IsValid() {
			return "null"
		}
		return s.Scalar.Kind().String() + " scalar"
	}
	return s.Form.String()
}

// IsValidationError reports whether err is or wraps a SchemaValidationError.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSchemaValidation)
}
