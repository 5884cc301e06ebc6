// Package study holds the in-memory parameter study table: named, hashed
// parameter sets over a fixed list of parameter columns, and the merge that
// reconciles a fresh generation against a previously written study.
package study

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nvandessel/paramstudy/internal/value"
)

var (
	// ErrDuplicateSet is returned when two rows hash to the same content.
	ErrDuplicateSet = errors.New("duplicate parameter set")

	// ErrColumnMismatch is returned when merging studies over different parameters.
	ErrColumnMismatch = errors.New("parameter columns differ")

	// ErrCorruptStudy is returned when a stored set hash does not match its values.
	ErrCorruptStudy = errors.New("corrupt parameter study")
)

// ParameterSet is one row of a study.
type ParameterSet struct {
	Name   string
	Hash   string
	Values []value.Value
}

// Study is an ordered table of parameter sets with unique content hashes.
type Study struct {
	names    []string
	sets     []ParameterSet
	template SetNameTemplate
}

// New assembles a study from rows in generation order. Row i is named
// template.Name(i) and hashed with Hash.
func New(names []string, rows [][]value.Value, template SetNameTemplate) (*Study, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	template = NewSetNameTemplate(string(template))
	s := &Study{
		names:    append([]string(nil), names...),
		sets:     make([]ParameterSet, 0, len(rows)),
		template: template,
	}
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		if err := checkRow(names, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		h := Hash(names, row)
		if j, dup := seen[h]; dup {
			return nil, fmt.Errorf("rows %d and %d: %w", j, i, ErrDuplicateSet)
		}
		seen[h] = i
		s.sets = append(s.sets, ParameterSet{
			Name:   template.Name(i),
			Hash:   h,
			Values: append([]value.Value(nil), row...),
		})
	}
	return s, nil
}

// FromSets rebuilds a study read from storage, keeping stored names and
// hashes. Every stored hash is recomputed and must match.
func FromSets(names []string, sets []ParameterSet, template SetNameTemplate) (*Study, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	s := &Study{
		names:    append([]string(nil), names...),
		sets:     make([]ParameterSet, 0, len(sets)),
		template: NewSetNameTemplate(string(template)),
	}
	seenHash := make(map[string]string, len(sets))
	seenName := make(map[string]bool, len(sets))
	for _, ps := range sets {
		if err := checkRow(names, ps.Values); err != nil {
			return nil, fmt.Errorf("set %s: %w: %v", ps.Name, ErrCorruptStudy, err)
		}
		h := Hash(names, ps.Values)
		if ps.Hash != "" && ps.Hash != h {
			return nil, fmt.Errorf("set %s: stored hash %s, computed %s: %w", ps.Name, ps.Hash, h, ErrCorruptStudy)
		}
		if other, dup := seenHash[h]; dup {
			return nil, fmt.Errorf("sets %s and %s: %w", other, ps.Name, ErrDuplicateSet)
		}
		if seenName[ps.Name] {
			return nil, fmt.Errorf("set name %s repeated: %w", ps.Name, ErrCorruptStudy)
		}
		seenHash[h] = ps.Name
		seenName[ps.Name] = true
		s.sets = append(s.sets, ParameterSet{
			Name:   ps.Name,
			Hash:   h,
			Values: append([]value.Value(nil), ps.Values...),
		})
	}
	return s, nil
}

func checkNames(names []string) error {
	if len(names) == 0 {
		return errors.New("study has no parameters")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return errors.New("empty parameter name")
		}
		if seen[n] {
			return fmt.Errorf("parameter %q repeated", n)
		}
		seen[n] = true
	}
	return nil
}

func checkRow(names []string, row []value.Value) error {
	if len(row) != len(names) {
		return fmt.Errorf("has %d values for %d parameters", len(row), len(names))
	}
	for j, v := range row {
		if !v.IsValid() {
			return fmt.Errorf("parameter %s has no value", names[j])
		}
	}
	return nil
}

// Dedupe drops rows whose content repeats an earlier row, keeping the first.
func Dedupe(names []string, rows [][]value.Value) [][]value.Value {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		h := Hash(names, row)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, row)
	}
	return out
}

// Names returns the parameter names in column order.
func (s *Study) Names() []string { return append([]string(nil), s.names...) }

// Sets returns the parameter sets in table order.
func (s *Study) Sets() []ParameterSet { return s.sets }

// Len returns the number of parameter sets.
func (s *Study) Len() int { return len(s.sets) }

// Template returns the set name template.
func (s *Study) Template() SetNameTemplate { return s.template }

// Set looks up a parameter set by name.
func (s *Study) Set(name string) (ParameterSet, bool) {
	for _, ps := range s.sets {
		if ps.Name == name {
			return ps, true
		}
	}
	return ParameterSet{}, false
}

// Value returns the value of parameter name in set ps.
func (s *Study) Value(ps ParameterSet, name string) (value.Value, bool) {
	for j, n := range s.names {
		if n == name {
			return ps.Values[j], true
		}
	}
	return value.Value{}, false
}

// Hashes returns the set hashes in table order.
func (s *Study) Hashes() []string {
	out := make([]string, len(s.sets))
	for i, ps := range s.sets {
		out[i] = ps.Hash
	}
	return out
}

// Equal reports whether both studies hold the same sets under the same
// names. Column order is ignored.
func (s *Study) Equal(o *Study) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.names) != len(o.names) || len(s.sets) != len(o.sets) {
		return false
	}
	perm, err := columnPermutation(s.names, o.names)
	if err != nil {
		return false
	}
	for i, ps := range s.sets {
		po := o.sets[i]
		if ps.Name != po.Name || ps.Hash != po.Hash {
			return false
		}
		for j, v := range ps.Values {
			if !v.Equal(po.Values[perm[j]]) {
				return false
			}
		}
	}
	return true
}

// columnPermutation returns p with to[p[j]] == from[j], or ErrColumnMismatch.
func columnPermutation(from, to []string) ([]int, error) {
	if len(from) != len(to) {
		return nil, fmt.Errorf("%v vs %v: %w", from, to, ErrColumnMismatch)
	}
	index := make(map[string]int, len(to))
	for j, n := range to {
		index[n] = j
	}
	perm := make([]int, len(from))
	for j, n := range from {
		k, ok := index[n]
		if !ok {
			return nil, fmt.Errorf("%v vs %v: %w", from, to, ErrColumnMismatch)
		}
		perm[j] = k
	}
	return perm, nil
}

// Merge reconciles current against previous. The result holds every set of
// current; previous sets whose hash is absent from current are dropped.
// Sets are ordered by ascending hash and renamed densely with current's
// template, so callers must not rely on generation order surviving a merge.
func Merge(current, previous *Study) (*Study, error) {
	if current == nil {
		return nil, errors.New("merge: nil study")
	}
	if previous == nil {
		return current, nil
	}
	perm, err := columnPermutation(current.names, previous.names)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	for _, ps := range previous.sets {
		if h := Hash(previous.names, ps.Values); h != ps.Hash {
			return nil, fmt.Errorf("merge: previous set %s: %w", ps.Name, ErrCorruptStudy)
		}
	}

	byHash := make(map[string][]value.Value, len(current.sets))
	for _, ps := range current.sets {
		byHash[ps.Hash] = ps.Values
	}
	// Shared rows keep the previous study's cells, reordered to current's columns.
	for _, ps := range previous.sets {
		if _, shared := byHash[ps.Hash]; !shared {
			continue
		}
		row := make([]value.Value, len(current.names))
		for j := range row {
			row[j] = ps.Values[perm[j]]
		}
		byHash[ps.Hash] = row
	}

	hashes := make([]string, 0, len(byHash))
	for h := range byHash {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	merged := &Study{
		names:    append([]string(nil), current.names...),
		sets:     make([]ParameterSet, len(hashes)),
		template: current.template,
	}
	for i, h := range hashes {
		merged.sets[i] = ParameterSet{Name: current.template.Name(i), Hash: h, Values: byHash[h]}
	}
	return merged, nil
}
