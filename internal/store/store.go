// Package store persists parameter studies. It provides the on-disk
// formats (YAML, Apache Arrow IPC, SQLite), readers for previously written
// studies, and a Writer that applies the conditional overwrite policy.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

var (
	// ErrUnsupportedFormat is returned for unknown output file types.
	ErrUnsupportedFormat = errors.New("unsupported output file type")

	// ErrRefuseOverwrite is returned when a target exists and is not a study.
	ErrRefuseOverwrite = errors.New("refusing to overwrite existing file")

	// ErrNotStudy is returned by readers when a file does not hold a study.
	ErrNotStudy = errors.New("not a parameter study")
)

// Format serializes whole studies to files.
type Format interface {
	// Name is the output file type, e.g. "yaml".
	Name() string
	// Ext is the file extension including the dot.
	Ext() string
	WriteFile(path string, s *study.Study) error
	ReadFile(path string) (*study.Study, error)
}

// Encoder is implemented by text formats that can stream a study.
type Encoder interface {
	Encode(w io.Writer, s *study.Study) error
}

// SetFormat is implemented by formats with a dedicated one-set-per-file layout.
type SetFormat interface {
	EncodeSet(w io.Writer, names []string, values []value.Value) error
	ReadSetFile(path string) (names []string, values []value.Value, err error)
}

var formats = map[string]Format{}

func register(f Format) { formats[f.Name()] = f }

func init() {
	register(YAMLFormat{})
	register(ArrowFormat{})
	register(SQLiteFormat{})
}

// Lookup returns the format registered under name.
func Lookup(name string) (Format, error) {
	f, ok := formats[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names lists the registered format names.
func Names() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForPath picks a format by file extension.
func ForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, name := range Names() {
		f := formats[name]
		if f.Ext() == ext || (name == "yaml" && ext == ".yml") {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

// ReadStudy reads a previously written study. A directory is read as one
// flat YAML file per set, named after the set.
func ReadStudy(path string) (*study.Study, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter study: %w", err)
	}
	if info.IsDir() {
		return ReadSetDir(path, YAMLFormat{})
	}
	f, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return f.ReadFile(path)
}

// ReadSetDir rebuilds a study from per-set files in dir. Set names are the
// file stems, ordered by their trailing set number.
func ReadSetDir(dir string, f SetFormat) (*study.Study, error) {
	ext := ".yaml"
	if ff, ok := f.(Format); ok {
		ext = ff.Ext()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		stems = append(stems, strings.TrimSuffix(e.Name(), ext))
	}
	if len(stems) == 0 {
		return nil, fmt.Errorf("%s: no %s parameter set files: %w", dir, ext, ErrNotStudy)
	}
	sort.Slice(stems, func(i, j int) bool { return setLess(stems[i], stems[j]) })

	var names []string
	sets := make([]study.ParameterSet, 0, len(stems))
	for _, stem := range stems {
		n, vals, err := f.ReadSetFile(filepath.Join(dir, stem+ext))
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = n
		}
		row, err := alignRow(names, n, vals)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", stem, err)
		}
		sets = append(sets, study.ParameterSet{Name: stem, Values: row})
	}
	return study.FromSets(names, sets, templateFor(stems[0]))
}

// alignRow reorders vals (keyed by got) into the column order of want.
func alignRow(want, got []string, vals []value.Value) ([]value.Value, error) {
	if len(want) != len(got) {
		return nil, fmt.Errorf("parameters %v vs %v: %w", got, want, study.ErrColumnMismatch)
	}
	index := make(map[string]int, len(got))
	for j, n := range got {
		index[n] = j
	}
	row := make([]value.Value, len(want))
	for j, n := range want {
		k, ok := index[n]
		if !ok {
			return nil, fmt.Errorf("missing parameter %s: %w", n, study.ErrColumnMismatch)
		}
		row[j] = vals[k]
	}
	return row, nil
}

// splitNumber splits a trailing decimal number off name.
func splitNumber(name string) (prefix string, number int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n := 0
	for _, c := range name[i:] {
		n = n*10 + int(c-'0')
	}
	return name[:i], n, true
}

func setLess(a, b string) bool {
	pa, na, oka := splitNumber(a)
	pb, nb, okb := splitNumber(b)
	if oka && okb && pa == pb {
		return na < nb
	}
	return a < b
}

// templateFor guesses the set name template from one set name.
func templateFor(name string) study.SetNameTemplate {
	prefix, _, ok := splitNumber(name)
	if !ok {
		return study.NewSetNameTemplate("")
	}
	return study.NewSetNameTemplate(prefix)
}
