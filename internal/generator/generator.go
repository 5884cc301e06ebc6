// Package generator is the public face of parameter study generation. Each
// strategy validates its schema, builds the sample array, names and hashes
// the sets, merges against a previous study, and writes the result.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/paramstudy/internal/constants"
	"github.com/nvandessel/paramstudy/internal/logging"
	"github.com/nvandessel/paramstudy/internal/schema"
	"github.com/nvandessel/paramstudy/internal/store"
	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

// ErrConflictingOutputs is returned when both an output file and an output
// file template are given.
var ErrConflictingOutputs = errors.New("output file and output file template are mutually exclusive")

// ParameterGenerator is the surface shared by every strategy.
type ParameterGenerator interface {
	// Validate checks the schema against the strategy's required shape.
	Validate() error
	// BuildSamples returns the sample array in generation order.
	BuildSamples() ([][]value.Value, error)
	// ParameterStudy returns the generated (and possibly merged) study.
	ParameterStudy() *study.Study
	// Merge reconciles the study against a previous one.
	Merge(previous *study.Study) error
	// Write persists the study with the constructor-time output settings.
	Write() error
}

// Options are the output and sampling settings of a generator.
type Options struct {
	// PreviousParameterStudy is a study file (or per-set directory) to merge with.
	PreviousParameterStudy string
	// OutputFileTemplate writes one file per set. Its base name also
	// becomes the set name template.
	OutputFileTemplate string
	// OutputFile writes one aggregate file.
	OutputFile     string
	OutputFileType string
	// SetNameTemplate names sets when OutputFileTemplate is empty.
	SetNameTemplate string

	Overwrite            bool
	DryRun               bool
	WriteMeta            bool
	TimestampOnCollision bool

	// Seed drives the statistical samplers.
	Seed uint64
	// Scramble applies a seeded digital shift to Sobol sequences.
	Scramble bool

	Stdout    io.Writer
	Logger    *slog.Logger
	Decisions store.DecisionLog
}

// DefaultOptions returns a fresh Options value with the default output type
// and set name template.
func DefaultOptions() Options {
	return Options{
		OutputFileType:  constants.DefaultOutputFileType,
		SetNameTemplate: constants.DefaultSetNameTemplate,
	}
}

// New returns the generator for kind.
func New(kind schema.Kind, s *schema.Schema, opts Options) (ParameterGenerator, error) {
	switch kind {
	case schema.CartesianProduct:
		return NewCartesianProduct(s, opts)
	case schema.LatinHypercube:
		return NewLatinHypercube(s, opts)
	case schema.SobolSequence:
		return NewSobolSequence(s, opts)
	case schema.CustomStudy:
		return NewCustomStudy(s, opts)
	default:
		return nil, fmt.Errorf("unknown generator kind %d", kind)
	}
}

// base holds what every strategy shares. Strategies supply build.
type base struct {
	kind   schema.Kind
	schema *schema.Schema
	opts   Options
	logger *slog.Logger

	writer   *store.Writer
	template study.SetNameTemplate
	study    *study.Study

	build func() ([][]value.Value, error)
}

func newBase(kind schema.Kind, s *schema.Schema, opts Options) (*base, error) {
	if opts.OutputFile != "" && opts.OutputFileTemplate != "" {
		return nil, ErrConflictingOutputs
	}
	if opts.OutputFileType == "" {
		opts.OutputFileType = constants.DefaultOutputFileType
	}
	format, err := store.Lookup(opts.OutputFileType)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	b := &base{
		kind:   kind,
		schema: s,
		opts:   opts,
		logger: logger,
		writer: &store.Writer{
			Format:               format,
			OutputFile:           opts.OutputFile,
			Overwrite:            opts.Overwrite,
			DryRun:               opts.DryRun,
			WriteMeta:            opts.WriteMeta,
			TimestampOnCollision: opts.TimestampOnCollision,
			Stdout:               opts.Stdout,
			Logger:               logger,
			Decisions:            opts.Decisions,
		},
	}

	if opts.OutputFileTemplate != "" {
		name := filepath.Base(opts.OutputFileTemplate)
		name = strings.TrimSuffix(name, format.Ext())
		b.template = study.NewSetNameTemplate(name)
		b.writer.PerSet = true
		b.writer.OutputDir = filepath.Dir(opts.OutputFileTemplate)
	} else {
		b.template = study.NewSetNameTemplate(opts.SetNameTemplate)
	}
	return b, nil
}

// generate runs validation, sampling, naming, and the optional merge.
func (b *base) generate() error {
	if err := b.Validate(); err != nil {
		return err
	}
	rows, err := b.build()
	if err != nil {
		return err
	}
	names := b.schema.Names()
	if b.kind.Statistical() {
		n := len(rows)
		rows = study.Dedupe(names, rows)
		if len(rows) < n {
			b.logger.Debug("dropped repeated samples", "kind", b.kind.String(), "dropped", n-len(rows))
		}
	}
	st, err := study.New(names, rows, b.template)
	if err != nil {
		return fmt.Errorf("%s: %w", b.kind, err)
	}
	b.study = st
	b.logger.Debug("generated parameter study", "kind", b.kind.String(), "sets", st.Len(), "parameters", len(names))
	if b.logger.Enabled(context.Background(), logging.LevelTrace) {
		for _, ps := range st.Sets() {
			b.logger.Log(context.Background(), logging.LevelTrace, "parameter set", "set", ps.Name, "hash", ps.Hash)
		}
	}

	if b.opts.PreviousParameterStudy == "" {
		return nil
	}
	if _, err := os.Stat(b.opts.PreviousParameterStudy); errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("previous parameter study does not exist, skipping merge", "path", b.opts.PreviousParameterStudy)
		return nil
	}
	previous, err := store.ReadStudy(b.opts.PreviousParameterStudy)
	if err != nil {
		return fmt.Errorf("failed to read previous parameter study: %w", err)
	}
	return b.Merge(previous)
}

func (b *base) Validate() error { return schema.Validate(b.schema, b.kind) }

func (b *base) BuildSamples() ([][]value.Value, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.build()
}

func (b *base) ParameterStudy() *study.Study { return b.study }

func (b *base) Merge(previous *study.Study) error {
	if previous == nil {
		return nil
	}
	merged, err := study.Merge(b.study, previous)
	if err != nil {
		return err
	}
	b.logger.Debug("merged parameter study", "previous", previous.Len(), "current", b.study.Len(), "merged", merged.Len())
	b.study = merged
	return nil
}

func (b *base) Write() error {
	if b.study == nil {
		return errors.New("no parameter study to write")
	}
	return b.writer.Write(b.study)
}

// SetPaths returns the per-set files Write produces in template mode, or nil.
func (b *base) SetPaths() []string {
	if b.study == nil || !b.writer.PerSet {
		return nil
	}
	return b.writer.SetPaths(b.study)
}
