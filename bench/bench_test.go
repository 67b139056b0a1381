// ============================================================================
// BENCHMARK DRIVER VALIDATION SUITE
// ============================================================================
//
// Drives full runs through the two-gate protocol and checks the observable
// side effects: exact field values after increment storms, report sanity,
// and the percentile merge against a sorted-union reference.

package bench

import (
	"math/rand"
	"sort"
	"testing"
)

// ============================================================================
// FULL RUNS
// ============================================================================

// TestRunMwCASThroughput: two threads issue 100k arity-2 increments each on
// the same two fields; both fields must land on exactly 200k and the run
// must report positive throughput.
func TestRunMwCASThroughput(t *testing.T) {
	b, err := New(Config{
		NumExec:    200_000,
		NumThread:  2,
		NumField:   2,
		NumTarget:  2,
		Seed:       1,
		Throughput: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	rep := b.Run(TargetOurs)
	if rep.Throughput <= 0 {
		t.Fatalf("throughput = %f, want > 0", rep.Throughput)
	}
	for i, v := range b.Fields() {
		if v != 200_000 {
			t.Fatalf("fields[%d] = %d, want 200000", i, v)
		}
	}
}

// TestRunSingleCAS: the baseline increments each selected field once per
// op, so the field sum must equal NumExec * NumTarget.
func TestRunSingleCAS(t *testing.T) {
	cfg := Config{
		NumExec:    100_000,
		NumThread:  4,
		NumField:   64,
		NumTarget:  3,
		Seed:       2,
		Throughput: true,
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	rep := b.Run(TargetSingle)
	if rep.Throughput <= 0 {
		t.Fatalf("throughput = %f, want > 0", rep.Throughput)
	}
	var sum uint64
	for _, v := range b.Fields() {
		sum += v
	}
	if want := uint64(cfg.NumExec * cfg.NumTarget); sum != want {
		t.Fatalf("field sum = %d, want %d", sum, want)
	}
}

// TestRunLatencyPercentilesOrdered: a latency-mode run must report
// monotonically ordered percentiles.
func TestRunLatencyPercentilesOrdered(t *testing.T) {
	b, err := New(Config{
		NumExec:   20_000,
		NumThread: 4,
		NumField:  128,
		NumTarget: 2,
		Seed:      3,
	})
	if err != nil {
		t.Fatal(err)
	}

	rep := b.Run(TargetOurs)
	if rep.LatMin > rep.LatP90 || rep.LatP90 > rep.LatP95 ||
		rep.LatP95 > rep.LatP99 || rep.LatP99 > rep.LatMax {
		t.Fatalf("percentiles out of order: min %d p90 %d p95 %d p99 %d max %d",
			rep.LatMin, rep.LatP90, rep.LatP95, rep.LatP99, rep.LatMax)
	}
}

// TestRunQueueWorkloads drives the mixed front/back/push/pop workload over
// every container variant.
func TestRunQueueWorkloads(t *testing.T) {
	for _, kind := range []QueueKind{QueueCAS, QueueMwCAS, QueueMutex} {
		t.Run(string(kind), func(t *testing.T) {
			b, err := New(Config{
				NumExec:    40_000,
				NumThread:  4,
				NumField:   16,
				NumTarget:  1,
				Seed:       4,
				Throughput: true,
				Queue:      kind,
			})
			if err != nil {
				t.Fatal(err)
			}

			rep := b.Run(TargetQueue)
			if rep.Target != "queue" {
				t.Fatalf("target = %q, want queue", rep.Target)
			}
			if rep.Throughput <= 0 {
				t.Fatalf("throughput = %f, want > 0", rep.Throughput)
			}
		})
	}
}

// ============================================================================
// CONFIG VALIDATION
// ============================================================================

func TestConfigValidation(t *testing.T) {
	base := Config{NumExec: 100, NumThread: 2, NumField: 8, NumTarget: 2}

	bad := map[string]func(c *Config){
		"zero exec":          func(c *Config) { c.NumExec = 0 },
		"zero threads":       func(c *Config) { c.NumThread = 0 },
		"excess threads":     func(c *Config) { c.NumThread = 100_000 },
		"zero fields":        func(c *Config) { c.NumField = 0 },
		"zero targets":       func(c *Config) { c.NumTarget = 0 },
		"excess targets":     func(c *Config) { c.NumTarget = 64 },
		"targets > fields":   func(c *Config) { c.NumField = 1; c.NumTarget = 2 },
		"negative skew":      func(c *Config) { c.Skew = -0.5 },
		"unknown queue kind": func(c *Config) { c.Queue = "deque" },
	}
	for name, mutate := range bad {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: validation must fail", name)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config rejected: %v", err)
	}
}

// ============================================================================
// PERCENTILE MERGE
// ============================================================================

// TestMergeLatenciesMatchesSortedUnion fabricates per-worker sorted arrays
// and checks the descending k-way merge against indexing into the fully
// sorted union.
func TestMergeLatenciesMatchesSortedUnion(t *testing.T) {
	rng := rand.New(rand.NewSource(69))

	for trial := 0; trial < 20; trial++ {
		threads := 1 + rng.Intn(8)
		total := 0
		workers := make([]*worker, threads)
		var union []uint64
		for i := range workers {
			n := 100 + rng.Intn(400)
			total += n
			lats := make([]uint64, n)
			for j := range lats {
				lats[j] = uint64(rng.Intn(1_000_000))
			}
			sort.Slice(lats, func(a, b int) bool { return lats[a] < lats[b] })
			workers[i] = &worker{latencies: lats}
			union = append(union, lats...)
		}
		sort.Slice(union, func(a, b int) bool { return union[a] < union[b] })

		b := &Bench{cfg: Config{NumExec: total}}
		r := &Report{}
		b.mergeLatencies(r, workers)

		idx := func(frac float64) uint64 {
			return union[int(float64(total)*frac)-1]
		}
		if r.LatMin != union[0] {
			t.Fatalf("min = %d, want %d", r.LatMin, union[0])
		}
		if r.LatMax != union[total-1] {
			t.Fatalf("max = %d, want %d", r.LatMax, union[total-1])
		}
		if r.LatP99 != idx(0.99) {
			t.Fatalf("p99 = %d, want %d", r.LatP99, idx(0.99))
		}
		if r.LatP95 != idx(0.95) {
			t.Fatalf("p95 = %d, want %d", r.LatP95, idx(0.95))
		}
		if r.LatP90 != idx(0.90) {
			t.Fatalf("p90 = %d, want %d", r.LatP90, idx(0.90))
		}
	}
}
