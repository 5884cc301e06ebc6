package sampler

import (
	"math/rand/v2"

	"github.com/nvandessel/paramstudy/internal/distribution"
	"github.com/nvandessel/paramstudy/internal/value"
)

// NewRand returns the deterministic generator used by seeded samplers.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LatinHypercube returns n points in [0,1)^d. Each dimension is split into n
// equal strata; every stratum holds exactly one point, at a uniform offset,
// and stratum-to-row assignment is permuted independently per dimension.
func LatinHypercube(n, d int, rng *rand.Rand) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, d)
	}
	for j := 0; j < d; j++ {
		perm := rng.Perm(n)
		for i := 0; i < n; i++ {
			points[i][j] = (float64(perm[i]) + rng.Float64()) / float64(n)
		}
	}
	return points
}

// Transform maps unit points through one distribution per column.
func Transform(points [][]float64, dists []distribution.Distribution) [][]value.Value {
	rows := make([][]value.Value, len(points))
	for i, p := range points {
		row := make([]value.Value, len(dists))
		for j, dist := range dists {
			row[j] = dist.Quantile(p[j])
		}
		rows[i] = row
	}
	return rows
}
