package schema

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/value"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a schema file for kind. Files ending in .hcl are parsed as
// HCL; everything else is parsed as YAML.
func LoadFile(path string, kind Kind) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return DecodeHCL(data, path, kind)
	}
	return DecodeYAML(data, kind)
}

// LoadYAML reads a YAML schema from r.
func LoadYAML(r io.Reader, kind Kind) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return DecodeYAML(data, kind)
}

// DecodeYAML parses a YAML document into a Schema interpreted for kind.
// Key order is preserved as column order.
func DecodeYAML(data []byte, kind Kind) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, Invalidf(kind, "", "schema must be a mapping, got nothing")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || root.ShortTag() == "!!set" {
		return nil, Invalidf(kind, "", "schema must be a mapping, got a %s", describeNode(root))
	}

	s := &Schema{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, Invalidf(kind, "", "line %d: parameter names must be scalars", keyNode.Line)
		}
		key := keyNode.Value

		switch {
		case kind.Statistical() && key == constants.NumSimulationsKey:
			n, err := yamlInt(valNode)
			if err != nil {
				return nil, Invalidf(kind, "", "%s: %v", constants.NumSimulationsKey, err)
			}
			s.NumSimulations = n
		case kind == CustomStudy && key == constants.ParameterNamesKey:
			names, err := yamlNames(valNode)
			if err != nil {
				return nil, Invalidf(kind, "", "%s: %v", constants.ParameterNamesKey, err)
			}
			customOf(s).Names = names
		case kind == CustomStudy && key == constants.ParameterSamplesKey:
			rows, err := yamlSamples(valNode)
			if err != nil {
				return nil, Invalidf(kind, "", "%s: %v", constants.ParameterSamplesKey, err)
			}
			customOf(s).Samples = rows
		default:
			spec, err := specFromNode(valNode)
			if err != nil {
				return nil, Invalidf(kind, key, "%v", err)
			}
			s.Parameters = append(s.Parameters, Parameter{Name: key, Spec: spec})
		}
	}
	return s, nil
}

func customOf(s *Schema) *Custom {
	if s.Custom == nil {
		s.Custom = &Custom{}
	}
	return s.Custom
}

// specFromNode converts a YAML node into a raw Spec. YAML sets become lists.
func specFromNode(n *yaml.Node) (Spec, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return Spec{Form: FormScalar}, nil
		}
		v, err := value.FromNode(n)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Form: FormScalar, Scalar: v}, nil
	case yaml.SequenceNode:
		items := make([]Spec, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := specFromNode(c)
			if err != nil {
				return Spec{}, err
			}
			items = append(items, item)
		}
		return Spec{Form: FormList, Items: items}, nil
	case yaml.MappingNode:
		if n.ShortTag() == "!!set" {
			items := make([]Spec, 0, len(n.Content)/2)
			for i := 0; i < len(n.Content); i += 2 {
				item, err := specFromNode(n.Content[i])
				if err != nil {
					return Spec{}, err
				}
				items = append(items, item)
			}
			return Spec{Form: FormList, Items: items}, nil
		}
		fields := make([]Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return Spec{}, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			spec, err := specFromNode(n.Content[i+1])
			if err != nil {
				return Spec{}, err
			}
			fields = append(fields, Field{Key: k.Value, Spec: spec})
		}
		return Spec{Form: FormMapping, Fields: fields}, nil
	default:
		return Spec{}, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func yamlInt(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, fmt.Errorf("must be an integer, got %s", describeNode(n))
	}
	var i int
	if err := n.Decode(&i); err != nil {
		return 0, err
	}
	return i, nil
}

func yamlNames(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a list of names, got %s", describeNode(n))
	}
	names := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode || c.ShortTag() == "!!null" {
			return nil, fmt.Errorf("line %d: names must be scalars", c.Line)
		}
		names = append(names, c.Value)
	}
	return names, nil
}

func yamlSamples(n *yaml.Node) ([][]Spec, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a list of rows, got %s", describeNode(n))
	}
	rows := make([][]Spec, 0, len(n.Content))
	for _, r := range n.Content {
		if r.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: each row must be a list, got %s", r.Line, describeNode(r))
		}
		row := make([]Spec, 0, len(r.Content))
		for _, c := range r.Content {
			spec, err := specFromNode(c)
			if err != nil {
				return nil, err
			}
			row = append(row, spec)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func describeNode(n *yaml.Node) string {
	name := value.NodeKindName(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		return strings.TrimPrefix(n.ShortTag(), "!!") + " scalar"
	}
	return name
}
