// Package randutil provides the single seeded random source threaded through
// population generation, review and simulation so a seed reproduces a run.
package randutil

import (
	"math/rand/v2"
)

// pcgStream is the fixed PCG stream selector; only the seed varies.
const pcgStream = 0x9e3779b97f4a7c15

// RNG wraps a seeded PCG generator with the draw shapes the simulation needs.
// It is not safe for concurrent use.
type RNG struct {
	r *rand.Rand
}

// New returns an RNG seeded with seed.
func New(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), pcgStream))}
}

// Float64 returns a uniform value in [0, 1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// IntN returns a uniform int in [0, n). It returns 0 when n <= 0.
func (g *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.IntN(n)
}

// Uniform returns a uniform value in [lo, hi).
func (g *RNG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.r.Float64()
}

// Normal returns a normally distributed value.
func (g *RNG) Normal(mean, std float64) float64 {
	return mean + std*g.r.NormFloat64()
}

// Normals returns n normal draws.
func (g *RNG) Normals(mean, std float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Normal(mean, std)
	}
	return out
}

// Choice draws an index with probability proportional to weights.
// Weights need not sum to one. Non-positive totals fall back to the last index.
func (g *RNG) Choice(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	s := g.r.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if s < cum {
			return i
		}
	}
	return len(weights) - 1
}

// Shuffle permutes n elements in place via swap.
func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	g.r.Shuffle(n, swap)
}

// Perm returns a random permutation of [0, n).
func (g *RNG) Perm(n int) []int {
	return g.r.Perm(n)
}

// Sample picks k distinct indices from [0, n) in random order.
// k is clamped to n.
func (g *RNG) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: only the first k slots are settled.
	for i := 0; i < k; i++ {
		j := i + g.r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
