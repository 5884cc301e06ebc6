package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeHCL parses an HCL schema. Each top-level attribute is one schema
// key; attributes keep their source order. Numbers written with a decimal
// point or exponent are floats, other whole numbers are ints.
//
//	parameter_1 = [1, 2]
//	parameter_2 = ["a", "b"]
func DecodeHCL(src []byte, filename string, kind Kind) (*Schema, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL schema %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse HCL schema %s: unexpected body type %T", filename, file.Body)
	}
	if len(body.Blocks) > 0 {
		b := body.Blocks[0]
		return nil, Invalidf(kind, "", "%s: blocks are not supported, found %q", b.DefRange().String(), b.Type)
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	s := &Schema{}
	for _, a := range attrs {
		spec, err := specFromExpr(a.Expr, src)
		if err != nil {
			return nil, Invalidf(kind, a.Name, "%v", err)
		}
		switch {
		case kind.Statistical() && a.Name == constants.NumSimulationsKey:
			if spec.Form != FormScalar || spec.Scalar.Kind() != value.KindInt {
				return nil, Invalidf(kind, "", "%s: must be an integer, got a %s", constants.NumSimulationsKey, describe(spec))
			}
			s.NumSimulations = int(spec.Scalar.AsInt())
		case kind == CustomStudy && a.Name == constants.ParameterNamesKey:
			names, err := specNames(spec)
			if err != nil {
				return nil, Invalidf(kind, "", "%s: %v", constants.ParameterNamesKey, err)
			}
			customOf(s).Names = names
		case kind == CustomStudy && a.Name == constants.ParameterSamplesKey:
			if spec.Form != FormList {
				return nil, Invalidf(kind, "", "%s: must be a list of rows, got a %s", constants.ParameterSamplesKey, describe(spec))
			}
			rows := make([][]Spec, len(spec.Items))
			for i, r := range spec.Items {
				if r.Form != FormList {
					return nil, Invalidf(kind, "", "%s: row %d must be a list, got a %s", constants.ParameterSamplesKey, i, describe(r))
				}
				rows[i] = r.Items
			}
			customOf(s).Samples = rows
		default:
			s.Parameters = append(s.Parameters, Parameter{Name: a.Name, Spec: spec})
		}
	}
	return s, nil
}

func specNames(spec Spec) ([]string, error) {
	if spec.Form != FormList {
		return nil, fmt.Errorf("must be a list of names, got a %s", describe(spec))
	}
	names := make([]string, len(spec.Items))
	for i, item := range spec.Items {
		if item.Form != FormScalar || item.Scalar.Kind() != value.KindString {
			return nil, fmt.Errorf("name %d must be a string", i)
		}
		names[i] = item.Scalar.AsString()
	}
	return names, nil
}

// specFromExpr walks tuple and object constructors syntactically so their
// element order and literal spelling survive, and evaluates everything else.
func specFromExpr(expr hclsyntax.Expression, src []byte) (Spec, error) {
	switch e := expr.(type) {
	case *hclsyntax.TupleConsExpr:
		items := make([]Spec, 0, len(e.Exprs))
		for _, x := range e.Exprs {
			item, err := specFromExpr(x, src)
			if err != nil {
				return Spec{}, err
			}
			items = append(items, item)
		}
		return Spec{Form: FormList, Items: items}, nil
	case *hclsyntax.ObjectConsExpr:
		fields := make([]Field, 0, len(e.Items))
		for _, item := range e.Items {
			k, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return Spec{}, diags
			}
			if k.IsNull() || k.Type() != cty.String {
				return Spec{}, fmt.Errorf("%s: object keys must be strings", item.KeyExpr.Range().String())
			}
			spec, err := specFromExpr(item.ValueExpr, src)
			if err != nil {
				return Spec{}, err
			}
			fields = append(fields, Field{Key: k.AsString(), Spec: spec})
		}
		return Spec{Form: FormMapping, Fields: fields}, nil
	}

	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return Spec{}, diags
	}
	return specFromCty(v, literalIsFloat(src, expr.Range()))
}

// specFromCty converts an evaluated cty.Value. Collections produced by
// function calls iterate in cty's own element order.
func specFromCty(v cty.Value, float bool) (Spec, error) {
	if v.IsNull() {
		return Spec{Form: FormScalar}, nil
	}
	if !v.IsKnown() {
		return Spec{}, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return Spec{Form: FormScalar, Scalar: value.String(v.AsString())}, nil
	case ty == cty.Bool:
		return Spec{Form: FormScalar, Scalar: value.Bool(v.True())}, nil
	case ty == cty.Number:
		if !float {
			var i int64
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return Spec{Form: FormScalar, Scalar: value.Int(i)}, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return Spec{}, fmt.Errorf("could not convert number: %w", err)
		}
		return Spec{Form: FormScalar, Scalar: value.Float(f)}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var items []Spec
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			item, err := specFromCty(elem, false)
			if err != nil {
				return Spec{}, err
			}
			items = append(items, item)
		}
		return Spec{Form: FormList, Items: items}, nil
	case ty.IsMapType() || ty.IsObjectType():
		var fields []Field
		it := v.ElementIterator()
		for it.Next() {
			k, elem := it.Element()
			spec, err := specFromCty(elem, false)
			if err != nil {
				return Spec{}, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			fields = append(fields, Field{Key: k.AsString(), Spec: spec})
		}
		return Spec{Form: FormMapping, Fields: fields}, nil
	default:
		return Spec{}, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

func literalIsFloat(src []byte, r hcl.Range) bool {
	if r.Start.Byte < 0 || r.End.Byte > len(src) || r.Start.Byte >= r.End.Byte {
		return false
	}
	text := string(src[r.Start.Byte:r.End.Byte])
	return strings.ContainsAny(text, ".eE")
}
