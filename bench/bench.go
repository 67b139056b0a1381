// ════════════════════════════════════════════════════════════════════════════════════════════════
// Benchmark Driver
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Run Orchestration & Result Aggregation
//
// Description:
//   Spawns one OS-locked worker per thread and walks every run through the two-gate protocol:
//
//     ready latch   — workers arrive after building their private op lists; main waits
//     start gate    — main resets the shared fields, then releases measurement
//     finish latch  — workers arrive after their measurement window closes; main waits
//     drain gate    — main releases post-processing (latency sorts) once all clocks stopped
//     done latch    — workers arrive after sorting; main aggregates
//
//   Keeping the sorts behind the drain gate means no worker burns CPU on sorting while a
//   slower sibling is still inside its measurement window.
//
// Aggregation:
//   Throughput is total operations over the mean per-worker wall time. Latency percentiles
//   come from a k-way merge walking the sorted per-worker arrays from the global maximum
//   downward — equivalent to sorting the union, without the O(N log N) pass.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package bench

import (
	"runtime"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/control"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/mwcas"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/queue"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/zipf"
)

// Target selects the implementation a run exercises.
type Target int

const (
	// TargetOurs runs the in-memory MwCAS engine on the shared fields.
	TargetOurs Target = iota
	// TargetSingle runs independent single-word CAS increments.
	TargetSingle
	// TargetQueue runs the container workload selected by Config.Queue.
	TargetQueue
)

// String names the target for reports and the results DB.
func (t Target) String() string {
	switch t {
	case TargetOurs:
		return "mwcas"
	case TargetSingle:
		return "single"
	default:
		return "queue"
	}
}

// Report is the aggregated outcome of one run.
type Report struct {
	Target     string  `json:"target"`
	TotalOps   int     `json:"total_ops"`
	Throughput float64 `json:"throughput_ops_per_sec,omitempty"`
	LatMin     uint64  `json:"latency_min_ns,omitempty"`
	LatP90     uint64  `json:"latency_p90_ns,omitempty"`
	LatP95     uint64  `json:"latency_p95_ns,omitempty"`
	LatP99     uint64  `json:"latency_p99_ns,omitempty"`
	LatMax     uint64  `json:"latency_max_ns,omitempty"`

	// ZeroTimeWorkers counts workers whose wall clock read zero — an
	// anomaly worth reporting, not a fatal condition.
	ZeroTimeWorkers int `json:"zero_time_workers,omitempty"`
}

// Bench owns the shared state reused across a process's runs: the target
// fields and the precomputed workload distribution.
type Bench struct {
	cfg    Config
	fields []uint64
	zg     *zipf.Generator
}

// New validates the configuration and prepares shared run state.
func New(cfg Config) (*Bench, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bench{
		cfg:    cfg,
		fields: make([]uint64, cfg.NumField),
		zg:     zipf.NewGenerator(cfg.NumField, cfg.Skew),
	}, nil
}

// Fields exposes the shared field array for post-run verification in tests.
func (b *Bench) Fields() []uint64 { return b.fields }

// Run executes one full measurement for the given target and aggregates
// its results.
func (b *Bench) Run(target Target) *Report {
	cfg := &b.cfg
	threads := cfg.NumThread

	// Per-run infrastructure: epoch slots, engine, container.
	mgr := epoch.NewManager(threads)
	var eng *mwcas.Engine
	if target == TargetOurs || (target == TargetQueue && cfg.Queue == QueueMwCAS) {
		eng = mwcas.NewEngine(threads)
	}
	var q queue.Queue
	if target == TargetQueue {
		switch cfg.Queue {
		case QueueCAS:
			q = queue.NewQueueCAS(queue.NewArena(cfg.NumExec + 2))
		case QueueMwCAS:
			q = queue.NewQueueMwCAS(queue.NewArena(cfg.NumExec+2), eng)
		default:
			q = queue.NewQueueMutex()
		}
	}

	ready := control.NewLatch(threads)
	start := control.NewGate()
	finished := control.NewLatch(threads)
	drain := control.NewGate()
	done := control.NewLatch(threads)

	workers := make([]*worker, threads)
	var fieldEng *mwcas.Engine
	if target == TargetOurs {
		fieldEng = eng
	}

	assigned := 0
	for i := 0; i < threads; i++ {
		opCount := cfg.NumExec / threads
		if i == threads-1 {
			opCount = cfg.NumExec - assigned
		}
		assigned += opCount

		go func(id, ops int) {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			w := newWorker(cfg, id, ops, b.fields, fieldEng, q, b.zg, mgr.Register())
			workers[id] = w
			ready.Arrive()

			start.Wait()
			if cfg.Throughput {
				w.measureThroughput()
			} else {
				w.measureLatency()
			}
			finished.Arrive()

			drain.Wait()
			w.sortLatencies()
			done.Arrive()
		}(i, opCount)
	}

	ready.Wait()
	// Workers may have touched nothing yet, but reset defensively so every
	// target starts from zeroed fields even across repeated runs.
	for i := range b.fields {
		b.fields[i] = 0
	}
	start.Open()

	finished.Wait()
	drain.Open()
	done.Wait()

	return b.aggregate(target, workers)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// AGGREGATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func (b *Bench) aggregate(target Target, workers []*worker) *Report {
	r := &Report{Target: target.String(), TotalOps: b.cfg.NumExec}

	if b.cfg.Throughput {
		var sum uint64
		for _, w := range workers {
			if w.totalNanos == 0 {
				r.ZeroTimeWorkers++
			}
			sum += w.totalNanos
		}
		avg := sum / uint64(len(workers))
		if avg > 0 {
			r.Throughput = float64(b.cfg.NumExec) / (float64(avg) / 1e9)
		}
		return r
	}

	b.mergeLatencies(r, workers)
	return r
}

// mergeLatencies walks the sorted per-worker arrays from the global
// maximum downward, recording each percentile as the walk crosses it. Only
// the top decile is ever visited.
func (b *Bench) mergeLatencies(r *Report, workers []*worker) {
	total := b.cfg.NumExec

	r.LatMin = ^uint64(0)
	for _, w := range workers {
		if len(w.latencies) > 0 && w.latencies[0] < r.LatMin {
			r.LatMin = w.latencies[0]
		}
	}

	indexes := make([]int, len(workers))
	for t, w := range workers {
		indexes[t] = len(w.latencies) - 1
	}

	c90 := int(float64(total) * 0.90)
	c95 := int(float64(total) * 0.95)
	c99 := int(float64(total) * 0.99)

	for count := total; count >= c90; count-- {
		target := -1
		var max uint64
		for t, w := range workers {
			if indexes[t] < 0 {
				continue
			}
			if lat := w.latencies[indexes[t]]; target < 0 || lat > max {
				max = lat
				target = t
			}
		}
		if target < 0 {
			break // every array exhausted (tiny runs)
		}

		if count == total {
			r.LatMax = max
		}
		if count == c99 {
			r.LatP99 = max
		}
		if count == c95 {
			r.LatP95 = max
		}
		if count == c90 {
			r.LatP90 = max
		}
		indexes[target]--
	}
}
