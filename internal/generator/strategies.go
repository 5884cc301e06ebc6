package generator

import (
	"github.com/nvandessel/paramstudy/internal/sampler"
	"github.com/nvandessel/paramstudy/internal/schema"
	"github.com/nvandessel/paramstudy/internal/value"
)

// CartesianProduct builds every combination of each parameter's discrete values.
type CartesianProduct struct{ *base }

// NewCartesianProduct validates s and generates the study eagerly.
func NewCartesianProduct(s *schema.Schema, opts Options) (*CartesianProduct, error) {
	b, err := newBase(schema.CartesianProduct, s, opts)
	if err != nil {
		return nil, err
	}
	b.build = func() ([][]value.Value, error) {
		columns, err := schema.DiscreteValues(b.schema)
		if err != nil {
			return nil, err
		}
		return sampler.Cartesian(columns), nil
	}
	if err := b.generate(); err != nil {
		return nil, err
	}
	return &CartesianProduct{b}, nil
}

// LatinHypercube draws one stratified sample per stratum and dimension.
type LatinHypercube struct{ *base }

// NewLatinHypercube validates s and generates the study eagerly using opts.Seed.
func NewLatinHypercube(s *schema.Schema, opts Options) (*LatinHypercube, error) {
	b, err := newBase(schema.LatinHypercube, s, opts)
	if err != nil {
		return nil, err
	}
	b.build = func() ([][]value.Value, error) {
		dists, err := schema.Distributions(b.schema, b.kind)
		if err != nil {
			return nil, err
		}
		points := sampler.LatinHypercube(b.schema.NumSimulations, len(dists), sampler.NewRand(b.opts.Seed))
		return sampler.Transform(points, dists), nil
	}
	if err := b.generate(); err != nil {
		return nil, err
	}
	return &LatinHypercube{b}, nil
}

// SobolSequence samples a low-discrepancy Sobol sequence.
type SobolSequence struct{ *base }

// NewSobolSequence validates s and generates the study eagerly. The sequence
// depends only on opts.Scramble and, when scrambled, opts.Seed.
func NewSobolSequence(s *schema.Schema, opts Options) (*SobolSequence, error) {
	b, err := newBase(schema.SobolSequence, s, opts)
	if err != nil {
		return nil, err
	}
	b.build = func() ([][]value.Value, error) {
		dists, err := schema.Distributions(b.schema, b.kind)
		if err != nil {
			return nil, err
		}
		seq, err := sampler.NewSobol(len(dists), b.opts.Scramble, b.opts.Seed)
		if err != nil {
			return nil, err
		}
		return sampler.Transform(seq.Points(b.schema.NumSimulations), dists), nil
	}
	if err := b.generate(); err != nil {
		return nil, err
	}
	return &SobolSequence{b}, nil
}

// CustomStudy passes an explicit sample array through unchanged.
type CustomStudy struct{ *base }

// NewCustomStudy validates s and builds the study from its samples.
func NewCustomStudy(s *schema.Schema, opts Options) (*CustomStudy, error) {
	b, err := newBase(schema.CustomStudy, s, opts)
	if err != nil {
		return nil, err
	}
	b.build = func() ([][]value.Value, error) {
		return schema.CustomRows(b.schema)
	}
	if err := b.generate(); err != nil {
		return nil, err
	}
	return &CustomStudy{b}, nil
}
