package value

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ToNode renders v as a YAML scalar node. Floats keep their decimal point so
// a float column written as YAML reads back as floats.
func ToNode(v Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v.kind {
	case KindInt:
		n.Tag = "!!int"
		n.Value = strconv.FormatInt(v.i, 10)
	case KindFloat:
		n.Tag = "!!float"
		switch {
		case math.IsNaN(v.f):
			n.Value = ".nan"
		case math.IsInf(v.f, 1):
			n.Value = ".inf"
		case math.IsInf(v.f, -1):
			n.Value = "-.inf"
		default:
			n.Value = FormatFloat(v.f)
		}
	case KindString:
		n.Tag = "!!str"
		n.Value = v.s
	case KindBool:
		n.Tag = "!!bool"
		n.Value = strconv.FormatBool(v.b)
	default:
		n.Tag = "!!null"
		n.Value = "null"
	}
	return n
}

// FromNode converts a YAML scalar node into a Value using its resolved tag.
func FromNode(n *yaml.Node) (Value, error) {
	if n == nil {
		return Value{}, fmt.Errorf("nil yaml node")
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return FromNode(n.Alias)
	}
	if n.Kind != yaml.ScalarNode {
		return Value{}, fmt.Errorf("line %d: expected a scalar, got %s", n.Line, nodeKindName(n.Kind))
	}
	switch n.ShortTag() {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Float(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Bool(b), nil
	case "!!str":
		return String(n.Value), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported scalar tag %s", n.Line, n.ShortTag())
	}
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}

// NodeKindName describes a YAML node kind for error messages.
func NodeKindName(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	return nodeKindName(n.Kind)
}
