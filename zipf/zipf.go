// ════════════════════════════════════════════════════════════════════════════════════════════════
// Skewed Workload Generator
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Zipf-Distributed Field Selection
//
// Description:
//   Maps uniform randomness onto field indexes following Zipf's law, so benchmark contention
//   can be dialed from uniform (skew 0) to pathological hot-spotting. The cumulative
//   distribution is precomputed once and shared read-only across workers; each worker draws
//   with its own RNG, so generation is embarrassingly parallel.
//
// Usage:
//   Runs only during op pre-generation, never inside a measurement window.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package zipf

import (
	"math"
	"sort"

	"github.com/valyala/fastrand"
)

// Generator picks indexes in [0, n) with probability proportional to
// 1/(rank+1)^skew.
type Generator struct {
	cdf []float64
}

// NewGenerator precomputes the cumulative distribution for n items with
// the given skew. Skew 0 degenerates to the uniform distribution.
func NewGenerator(n int, skew float64) *Generator {
	if n <= 0 {
		panic("zipf: item count must be positive")
	}
	if skew < 0 {
		panic("zipf: skew must be non-negative")
	}

	cdf := make([]float64, n)
	sum := 0.0
	for i := 1; i <= n; i++ {
		sum += 1.0 / math.Pow(float64(i), skew)
	}
	acc := 0.0
	for i := 1; i <= n; i++ {
		acc += 1.0 / math.Pow(float64(i), skew)
		cdf[i-1] = acc / sum
	}
	// Pin the tail so a draw of u→1 cannot fall off the table.
	cdf[n-1] = 1.0

	return &Generator{cdf: cdf}
}

// Pick draws one index using the caller's RNG. Safe for concurrent use as
// long as each caller brings its own RNG.
func (g *Generator) Pick(rng *fastrand.RNG) int {
	u := float64(rng.Uint32()) / float64(1<<32)
	return sort.SearchFloat64s(g.cdf, u)
}

// N returns the number of items the generator draws from.
func (g *Generator) N() int { return len(g.cdf) }
