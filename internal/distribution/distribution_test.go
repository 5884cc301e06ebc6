package distribution

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/paramstudy/internal/value"
)

func TestNewValidDescriptors(t *testing.T) {
	tests := []Descriptor{
		{Name: "uniform", Params: map[string]float64{"lower": 0, "upper": 1}},
		{Name: "uniform", Params: map[string]float64{"loc": 1, "scale": 2}},
		{Name: "normal", Params: map[string]float64{"mean": 0, "std": 1}},
		{Name: "normal", Params: map[string]float64{"loc": 0, "scale": 1}},
		{Name: "lognormal", Params: map[string]float64{"mu": 0, "sigma": 1}},
		{Name: "triangular", Params: map[string]float64{"lower": 0, "mode": 0.5, "upper": 1}},
		{Name: "exponential", Params: map[string]float64{"rate": 2}},
		{Name: "exponential", Params: map[string]float64{"scale": 0.5}},
		{Name: "beta", Params: map[string]float64{"alpha": 2, "beta": 3}},
		{Name: "gamma", Params: map[string]float64{"alpha": 2, "beta": 1}},
		{Name: "weibull", Params: map[string]float64{"k": 1.5, "lambda": 1}},
		{Name: "randint", Params: map[string]float64{"low": 0, "high": 10}},
		{Name: "discrete", Values: value.Row("a", "b")},
	}
	for _, d := range tests {
		t.Run(d.Name, func(t *testing.T) {
			dist, err := New(d)
			if err != nil {
				t.Fatalf("New(%+v) error = %v", d, err)
			}
			if dist.Name() != d.Name {
				t.Errorf("Name() = %q, want %q", dist.Name(), d.Name)
			}
		})
	}
}

func TestNewInvalidDescriptors(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"unknown", Descriptor{Name: "cauchy"}},
		{"missing bounds", Descriptor{Name: "uniform", Params: map[string]float64{"lower": 0}}},
		{"inverted bounds", Descriptor{Name: "uniform", Params: map[string]float64{"lower": 1, "upper": 0}}},
		{"extra kwarg", Descriptor{Name: "normal", Params: map[string]float64{"mean": 0, "std": 1, "skew": 2}}},
		{"zero std", Descriptor{Name: "normal", Params: map[string]float64{"mean": 0, "std": 0}}},
		{"bad mode", Descriptor{Name: "triangular", Params: map[string]float64{"lower": 0, "mode": 2, "upper": 1}}},
		{"fractional randint", Descriptor{Name: "randint", Params: map[string]float64{"low": 0.5, "high": 2}}},
		{"empty discrete", Descriptor{Name: "discrete"}},
		{"values on continuous", Descriptor{Name: "uniform", Params: map[string]float64{"lower": 0, "upper": 1}, Values: value.Row(1)}},
		{"infinite", Descriptor{Name: "uniform", Params: map[string]float64{"lower": 0, "upper": math.Inf(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.d)
			if err == nil {
				t.Fatal("New() expected error")
			}
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("New() error = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestUniformQuantile(t *testing.T) {
	dist, err := New(Descriptor{Name: "uniform", Params: map[string]float64{"loc": 1, "scale": 2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := dist.Quantile(0.5).AsFloat()
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("Quantile(0.5) = %v, want 2", got)
	}
}

func TestNormalQuantileIsFiniteAtEdges(t *testing.T) {
	dist, err := New(Descriptor{Name: "normal", Params: map[string]float64{"mean": 0, "std": 1}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, p := range []float64{0, 1} {
		f := dist.Quantile(p).AsFloat()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			t.Errorf("Quantile(%v) = %v, want finite", p, f)
		}
	}
	if got := dist.Quantile(0.5).AsFloat(); math.Abs(got) > 1e-12 {
		t.Errorf("Quantile(0.5) = %v, want 0", got)
	}
}

func TestRandIntQuantile(t *testing.T) {
	dist, err := New(Descriptor{Name: "randint", Params: map[string]float64{"low": 2, "high": 5}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tests := []struct {
		p    float64
		want int64
	}{{0, 2}, {0.3, 2}, {0.34, 3}, {0.99, 4}, {1, 4}}
	for _, tt := range tests {
		if got := dist.Quantile(tt.p); !got.Equal(value.Int(tt.want)) {
			t.Errorf("Quantile(%v) = %v, want %d", tt.p, got, tt.want)
		}
	}
}

func TestDiscreteQuantile(t *testing.T) {
	dist, err := New(Descriptor{Name: "discrete", Values: value.Row("a", 2, 3.5)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want := value.Row("a", 2, 3.5)
	for i, p := range []float64{0.1, 0.5, 0.9} {
		if got := dist.Quantile(p); !got.Equal(want[i]) {
			t.Errorf("Quantile(%v) = %v, want %v", p, got, want[i])
		}
	}
}
