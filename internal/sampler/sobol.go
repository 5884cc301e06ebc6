package sampler

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"sync"
)

const sobolBits = 32

// sobolPoly is one primitive polynomial with its initial direction numbers:
// degree s, interior coefficients a, and odd m_k < 2^k for k = 1..s.
// Values follow the Joe-Kuo table for dimensions 2 through 21; later
// dimensions take the next primitive polynomials in (degree, a) order with
// odd initial direction numbers drawn from a fixed per-dimension stream.
type sobolPoly struct {
	s uint
	a uint32
	m []uint32
}

var sobolPolys = []sobolPoly{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
	{6, 19, []uint32{1, 1, 1, 15, 7, 5}},
	{6, 22, []uint32{1, 3, 1, 15, 13, 25}},
	{6, 25, []uint32{1, 1, 5, 5, 19, 61}},
	{7, 1, []uint32{1, 3, 7, 11, 23, 15, 103}},
	{7, 4, []uint32{1, 3, 7, 13, 13, 15, 69}},
}

// MaxSobolDimension is the largest dimension Sobol supports, the size of the
// published Joe-Kuo direction number set.
const MaxSobolDimension = 21201

var (
	polyMu    sync.Mutex
	polyCache = sobolPolys
)

// polynomials returns the first n primitive polynomials with their initial
// direction numbers, extending the cache past the table as needed.
func polynomials(n int) []sobolPoly {
	polyMu.Lock()
	defer polyMu.Unlock()

	last := polyCache[len(polyCache)-1]
	deg, a := last.s, last.a+1
	for len(polyCache) < n {
		if a >= 1<<(deg-1) {
			deg++
			a = 0
			continue
		}
		if isPrimitive(deg, a) {
			polyCache = append(polyCache, sobolPoly{s: deg, a: a, m: initialDirections(len(polyCache)+2, deg)})
		}
		a++
	}
	return polyCache[:n:n]
}

// initialDirections draws odd m_k < 2^k for k = 1..deg, fixed per dimension.
func initialDirections(dim int, deg uint) []uint32 {
	rng := rand.New(rand.NewPCG(uint64(dim), 0x50b01))
	m := make([]uint32, deg)
	for k := range m {
		m[k] = rng.Uint32N(1<<k)<<1 | 1
	}
	return m
}

// isPrimitive reports whether x^deg + a_1 x^(deg-1) + ... + a_(deg-1) x + 1
// is primitive over GF(2), with a holding a_1 in its top bit. It is when x has
// multiplicative order exactly 2^deg - 1 modulo the polynomial.
func isPrimitive(deg uint, a uint32) bool {
	p := uint64(1)<<deg | uint64(a)<<1 | 1
	order := uint64(1)<<deg - 1
	if gf2PowMod(2, order, p, deg) != 1 {
		return false
	}
	for _, q := range primeFactors(order) {
		if gf2PowMod(2, order/q, p, deg) == 1 {
			return false
		}
	}
	return true
}

// gf2PowMod returns b^e modulo p over GF(2), where p has degree deg.
func gf2PowMod(b, e, p uint64, deg uint) uint64 {
	r := uint64(1)
	if deg == 1 {
		// x = 1 modulo x + 1.
		return r
	}
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			r = gf2MulMod(r, b, p, deg)
		}
		b = gf2MulMod(b, b, p, deg)
	}
	return r
}

func gf2MulMod(a, b, p uint64, deg uint) uint64 {
	var r uint64
	for ; b != 0; b >>= 1 {
		if b&1 == 1 {
			r ^= a
		}
		a <<= 1
		if a>>deg&1 == 1 {
			a ^= p
		}
	}
	return r
}

func primeFactors(n uint64) []uint64 {
	var fs []uint64
	for q := uint64(2); q*q <= n; q++ {
		if n%q == 0 {
			fs = append(fs, q)
			for n%q == 0 {
				n /= q
			}
		}
	}
	if n > 1 {
		fs = append(fs, n)
	}
	return fs
}

// Sobol generates a low-discrepancy Sobol sequence in [0,1)^dim using
// Gray-code ordering. Unscrambled sequences skip the origin; scrambled
// sequences apply a seeded random digital shift to every point.
type Sobol struct {
	dim   int
	v     [][sobolBits]uint32
	x     []uint32
	shift []uint32
	index uint64
}

// NewSobol returns a Sobol generator. It is deterministic given
// (dim, scramble, seed); seed is ignored when scramble is false.
func NewSobol(dim int, scramble bool, seed uint64) (*Sobol, error) {
	if dim < 1 || dim > MaxSobolDimension {
		return nil, fmt.Errorf("sobol dimension %d out of range [1, %d]", dim, MaxSobolDimension)
	}
	s := &Sobol{
		dim:   dim,
		v:     make([][sobolBits]uint32, dim),
		x:     make([]uint32, dim),
		shift: make([]uint32, dim),
	}

	// Dimension 1 is the van der Corput sequence in base 2.
	for i := 0; i < sobolBits; i++ {
		s.v[0][i] = 1 << (sobolBits - 1 - i)
	}
	polys := polynomials(dim - 1)
	for j := 1; j < dim; j++ {
		p := polys[j-1]
		v := &s.v[j]
		for i := uint(0); i < p.s; i++ {
			v[i] = p.m[i] << (sobolBits - 1 - i)
		}
		for i := p.s; i < sobolBits; i++ {
			v[i] = v[i-p.s] ^ (v[i-p.s] >> p.s)
			for k := uint(1); k < p.s; k++ {
				if (p.a>>(p.s-1-k))&1 == 1 {
					v[i] ^= v[i-k]
				}
			}
		}
	}

	if scramble {
		rng := NewRand(seed)
		for j := range s.shift {
			s.shift[j] = rng.Uint32()
		}
	} else {
		s.Next()
	}
	return s, nil
}

// Dim returns the sequence dimension.
func (s *Sobol) Dim() int { return s.dim }

// Next returns the next point of the sequence.
func (s *Sobol) Next() []float64 {
	if s.index > 0 {
		c := bits.TrailingZeros64(^(s.index - 1))
		if c >= sobolBits {
			c = sobolBits - 1
		}
		for j := range s.x {
			s.x[j] ^= s.v[j][c]
		}
	}
	s.index++

	p := make([]float64, s.dim)
	for j, x := range s.x {
		p[j] = float64(x^s.shift[j]) / (1 << sobolBits)
	}
	return p
}

// Points returns the next n points.
func (s *Sobol) Points(n int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = s.Next()
	}
	return points
}
