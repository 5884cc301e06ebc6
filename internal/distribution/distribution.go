// Package distribution maps distribution descriptors onto inverse-CDF
// transforms. Statistical samplers draw points in the unit hypercube and push
// each coordinate through a Distribution to obtain the final parameter value.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nvandessel/paramstudy/internal/value"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidDescriptor is wrapped by every error New returns.
var ErrInvalidDescriptor = errors.New("invalid distribution descriptor")

// Descriptor is the declarative form of a distribution: a registered name,
// numeric keyword arguments, and for the discrete distribution the value list.
type Descriptor struct {
	Name   string
	Params map[string]float64
	Values []value.Value
}

// Distribution transforms a probability in (0, 1) into a parameter value.
type Distribution interface {
	Quantile(p float64) value.Value
	Name() string
}

type builder func(d Descriptor) (Distribution, error)

type entry struct {
	build builder
	// keys lists the accepted keyword spellings, used in error messages.
	keys string
}

var registry = map[string]entry{
	"uniform":     {buildUniform, "lower+upper or loc+scale"},
	"normal":      {buildNormal, "mean+std or loc+scale"},
	"lognormal":   {buildLogNormal, "mu+sigma"},
	"triangular":  {buildTriangular, "lower+mode+upper"},
	"exponential": {buildExponential, "rate or scale"},
	"beta":        {buildBeta, "alpha+beta"},
	"gamma":       {buildGamma, "alpha+beta"},
	"weibull":     {buildWeibull, "k+lambda"},
	"randint":     {buildRandInt, "low+high"},
	"discrete":    {buildDiscrete, "values"},
}

// Names returns the registered distribution names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New validates d and returns the matching Distribution.
func New(d Descriptor) (Distribution, error) {
	e, ok := registry[d.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown distribution %q (valid: %s)",
			ErrInvalidDescriptor, d.Name, strings.Join(Names(), ", "))
	}
	if d.Name != "discrete" && len(d.Values) > 0 {
		return nil, fmt.Errorf("%w: %s does not accept values", ErrInvalidDescriptor, d.Name)
	}
	dist, err := e.build(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrInvalidDescriptor, d.Name, e.keys, err)
	}
	return dist, nil
}

// ClampUnit maps p into the open interval (0, 1) so quantiles stay finite.
func ClampUnit(p float64) float64 {
	if p <= 0 {
		return math.Nextafter(0, 1)
	}
	if p >= 1 {
		return math.Nextafter(1, 0)
	}
	return p
}

// params reads keyword arguments, accepting the first alias set fully present.
type params struct {
	d    Descriptor
	used map[string]bool
}

func newParams(d Descriptor) *params {
	return &params{d: d, used: make(map[string]bool)}
}

// pick returns the values of the first alias group whose keys are all present.
func (p *params) pick(groups ...[]string) ([]float64, error) {
	for _, g := range groups {
		vals := make([]float64, 0, len(g))
		for _, k := range g {
			v, ok := p.d.Params[k]
			if !ok {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) == len(g) {
			for _, k := range g {
				p.used[k] = true
			}
			return vals, nil
		}
	}
	return nil, fmt.Errorf("missing required keyword arguments")
}

// done rejects keyword arguments that no alias group consumed.
func (p *params) done() error {
	var extra []string
	for k := range p.d.Params {
		if !p.used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("unexpected keyword arguments: %s", strings.Join(extra, ", "))
	}
	return nil
}

func finite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("keyword arguments must be finite")
		}
	}
	return nil
}

// continuous adapts any gonum distribution with a Quantile method.
type continuous struct {
	name string
	q    interface{ Quantile(float64) float64 }
}

func (c continuous) Quantile(p float64) value.Value {
	return value.Float(c.q.Quantile(ClampUnit(p)))
}

func (c continuous) Name() string { return c.name }

func buildUniform(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"lower", "upper"}, []string{"loc", "scale"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	lower, upper := v[0], v[1]
	if _, ok := d.Params["scale"]; ok {
		upper = lower + v[1]
	}
	if upper <= lower {
		return nil, fmt.Errorf("upper bound must exceed lower bound")
	}
	return continuous{d.Name, distuv.Uniform{Min: lower, Max: upper}}, nil
}

func buildNormal(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"mean", "std"}, []string{"loc", "scale"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[1] <= 0 {
		return nil, fmt.Errorf("standard deviation must be positive")
	}
	return continuous{d.Name, distuv.Normal{Mu: v[0], Sigma: v[1]}}, nil
}

func buildLogNormal(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"mu", "sigma"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[1] <= 0 {
		return nil, fmt.Errorf("sigma must be positive")
	}
	return continuous{d.Name, distuv.LogNormal{Mu: v[0], Sigma: v[1]}}, nil
}

func buildTriangular(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"lower", "mode", "upper"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	lower, mode, upper := v[0], v[1], v[2]
	if !(lower < upper && lower <= mode && mode <= upper) {
		return nil, fmt.Errorf("require lower <= mode <= upper and lower < upper")
	}
	return continuous{d.Name, distuv.NewTriangle(lower, upper, mode, nil)}, nil
}

func buildExponential(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"rate"}, []string{"scale"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[0] <= 0 {
		return nil, fmt.Errorf("rate and scale must be positive")
	}
	rate := v[0]
	if _, ok := d.Params["scale"]; ok {
		rate = 1 / v[0]
	}
	return continuous{d.Name, distuv.Exponential{Rate: rate}}, nil
}

func buildBeta(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"alpha", "beta"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[0] <= 0 || v[1] <= 0 {
		return nil, fmt.Errorf("alpha and beta must be positive")
	}
	return continuous{d.Name, distuv.Beta{Alpha: v[0], Beta: v[1]}}, nil
}

func buildGamma(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"alpha", "beta"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[0] <= 0 || v[1] <= 0 {
		return nil, fmt.Errorf("alpha and beta must be positive")
	}
	return continuous{d.Name, distuv.Gamma{Alpha: v[0], Beta: v[1]}}, nil
}

func buildWeibull(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"k", "lambda"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[0] <= 0 || v[1] <= 0 {
		return nil, fmt.Errorf("k and lambda must be positive")
	}
	return continuous{d.Name, distuv.Weibull{K: v[0], Lambda: v[1]}}, nil
}

// randInt is the discrete uniform distribution on [low, high).
type randInt struct {
	low, high int64
}

func (r randInt) Quantile(p float64) value.Value {
	span := float64(r.high - r.low)
	i := r.low + int64(math.Floor(ClampUnit(p)*span))
	if i >= r.high {
		i = r.high - 1
	}
	return value.Int(i)
}

func (r randInt) Name() string { return "randint" }

func buildRandInt(d Descriptor) (Distribution, error) {
	p := newParams(d)
	v, err := p.pick([]string{"low", "high"})
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	if err := finite(v...); err != nil {
		return nil, err
	}
	if v[0] != math.Trunc(v[0]) || v[1] != math.Trunc(v[1]) {
		return nil, fmt.Errorf("low and high must be integers")
	}
	if v[1] <= v[0] {
		return nil, fmt.Errorf("high must exceed low")
	}
	return randInt{low: int64(v[0]), high: int64(v[1])}, nil
}

// discrete picks one of its values with equal probability.
type discrete struct {
	values []value.Value
}

func (d discrete) Quantile(p float64) value.Value {
	i := int(math.Floor(ClampUnit(p) * float64(len(d.values))))
	if i >= len(d.values) {
		i = len(d.values) - 1
	}
	return d.values[i]
}

func (d discrete) Name() string { return "discrete" }

func buildDiscrete(d Descriptor) (Distribution, error) {
	if len(d.Params) > 0 {
		return nil, newParams(d).done()
	}
	if len(d.Values) == 0 {
		return nil, fmt.Errorf("values must be a non-empty list")
	}
	vals := make([]value.Value, len(d.Values))
	copy(vals, d.Values)
	return discrete{values: vals}, nil
}
