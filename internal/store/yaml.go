package store

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

// YAMLFormat writes a study as one mapping of set name to a flat block of
// parameter values:
//
//	parameter_set0:
//	  parameter_1: 1
//	  parameter_2: a
//
// Per-set files hold just the flat block. Hashes are not stored; readers
// recompute them.
type YAMLFormat struct{}

func (YAMLFormat) Name() string { return "yaml" }
func (YAMLFormat) Ext() string  { return ".yaml" }

// Encode writes the aggregate form of s.
func (YAMLFormat) Encode(w io.Writer, s *study.Study) error {
	names := s.Names()
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, ps := range s.Sets() {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ps.Name},
			setNode(names, ps.Values))
	}
	return encodeNode(w, root)
}

// EncodeSet writes one flat parameter block.
func (YAMLFormat) EncodeSet(w io.Writer, names []string, values []value.Value) error {
	return encodeNode(w, setNode(names, values))
}

func setNode(names []string, values []value.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for j, name := range names {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			value.ToNode(values[j]))
	}
	return n
}

func encodeNode(w io.Writer, n *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func (f YAMLFormat) WriteFile(path string, s *study.Study) error {
	var buf bytes.Buffer
	if err := f.Encode(&buf, s); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func (f YAMLFormat) ReadFile(path string) (*study.Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file: %w", err)
	}
	return f.Decode(data)
}

// Decode parses the aggregate form.
func (YAMLFormat) Decode(data []byte) (*study.Study, error) {
	root, err := documentMapping(data)
	if err != nil {
		return nil, err
	}
	var names []string
	sets := make([]study.ParameterSet, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		setName := root.Content[i].Value
		n, vals, err := flatBlock(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", setName, err)
		}
		if names == nil {
			names = n
		}
		row, err := alignRow(names, n, vals)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", setName, err)
		}
		sets = append(sets, study.ParameterSet{Name: setName, Values: row})
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("empty mapping: %w", ErrNotStudy)
	}
	return study.FromSets(names, sets, templateFor(sets[0].Name))
}

func (YAMLFormat) ReadSetFile(path string) ([]string, []value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read parameter set file: %w", err)
	}
	root, err := documentMapping(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	names, vals, err := flatBlock(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, vals, nil
}

func documentMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStudy, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document: %w", ErrNotStudy)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping: %w", ErrNotStudy)
	}
	return root, nil
}

// flatBlock reads a mapping of parameter name to scalar value.
func flatBlock(n *yaml.Node) ([]string, []value.Value, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("line %d: parameter set is not a mapping: %w", n.Line, ErrNotStudy)
	}
	names := make([]string, 0, len(n.Content)/2)
	vals := make([]value.Value, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := value.FromNode(n.Content[i+1])
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %s: %w: %v", n.Content[i].Value, ErrNotStudy, err)
		}
		names = append(names, n.Content[i].Value)
		vals = append(vals, v)
	}
	return names, vals, nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
