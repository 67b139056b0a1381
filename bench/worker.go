// ════════════════════════════════════════════════════════════════════════════════════════════════
// Benchmark Worker
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Per-Thread Operation Generation & Measurement
//
// Description:
//   One worker per OS-locked goroutine. Everything random happens up front: the full operation
//   list (target fields, already deduplicated and address-sorted; or queue op types) is
//   generated before the start gate opens, so measurement windows contain nothing but the
//   operations themselves.
//
// Seeding:
//   Per-worker streams are derived from the base seed by hashing (seed, worker id) with
//   xxhash and whitening the result, so neighboring workers never share a stream even for
//   adjacent seeds.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package bench

import (
	"encoding/binary"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/fastrand"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/mwcas"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/queue"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/utils"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/zipf"
)

// Queue op codes, drawn 25% each in queue mode.
const (
	opFront = iota
	opBack
	opPush
	opPop
)

// worker holds one thread's pre-generated operations and its measurements.
type worker struct {
	id      int
	opCount int

	// field benchmark state
	fields  []uint64
	targets []uint32 // opCount × NumTarget field indexes, sorted per op
	arity   int
	eng     *mwcas.Engine

	// queue benchmark state
	q    queue.Queue
	qops []uint8

	h *epoch.Handle

	perform func(op int)

	totalNanos uint64
	latencies  []uint64
}

// deriveSeed whitens (base seed, worker id) into one 64-bit stream seed.
func deriveSeed(seed uint64, id int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(id))
	return utils.Mix64(xxhash.Sum64(buf[:]))
}

// newWorker pre-generates the operation list for one thread. Runs before
// the start gate opens; nothing here is timed.
func newWorker(
	cfg *Config,
	id, opCount int,
	fields []uint64,
	eng *mwcas.Engine,
	q queue.Queue,
	zg *zipf.Generator,
	h *epoch.Handle,
) *worker {
	w := &worker{
		id:      id,
		opCount: opCount,
		fields:  fields,
		arity:   cfg.NumTarget,
		eng:     eng,
		q:       q,
		h:       h,
	}

	derived := deriveSeed(cfg.Seed, id)

	if cfg.Queue != QueueNone {
		// Queue mode: 25% front / back / push / pop.
		rng := rand.New(rand.NewSource(int64(derived)))
		w.qops = make([]uint8, opCount)
		for i := range w.qops {
			w.qops[i] = uint8(rng.Intn(100) / 25)
		}
		w.perform = w.performQueue
	} else {
		// Field mode: per-op distinct target fields, sorted so every
		// descriptor installs in ascending address order.
		var rng fastrand.RNG
		rng.Seed(uint32(derived))
		w.targets = make([]uint32, opCount*w.arity)
		for i := 0; i < opCount; i++ {
			op := w.targets[i*w.arity : (i+1)*w.arity]
			for j := 0; j < w.arity; j++ {
				for {
					field := uint32(zg.Pick(&rng))
					dup := false
					for k := 0; k < j; k++ {
						if op[k] == field {
							dup = true
							break
						}
					}
					if !dup {
						op[j] = field
						break
					}
				}
			}
			sort.Slice(op, func(a, b int) bool { return op[a] < op[b] })
		}
		if eng != nil {
			w.perform = w.performMwCAS
		} else {
			w.perform = w.performSingleCAS
		}
	}

	if !cfg.Throughput {
		w.latencies = make([]uint64, 0, opCount)
	}
	return w
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// OPERATION BODIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// performMwCAS increments every target field of the op in one atomic
// multi-word step, retrying on contention until it linearizes.
func (w *worker) performMwCAS(op int) {
	base := op * w.arity

	w.h.Enter()
	for {
		d := w.eng.Acquire(w.h)
		for j := 0; j < w.arity; j++ {
			addr := &w.fields[w.targets[base+j]]
			old := w.eng.Read(addr)
			d.AddTarget(addr, old, old+1)
		}
		if d.Exec() {
			break
		}
	}
	w.h.Leave()
}

// performSingleCAS increments each target field with an independent
// single-word CAS loop — the non-atomic-across-words baseline.
func (w *worker) performSingleCAS(op int) {
	base := op * w.arity
	for j := 0; j < w.arity; j++ {
		addr := &w.fields[w.targets[base+j]]
		for {
			old := atomic.LoadUint64(addr)
			if atomic.CompareAndSwapUint64(addr, old, old+1) {
				break
			}
		}
	}
}

// performQueue runs one pre-drawn container operation.
func (w *worker) performQueue(op int) {
	switch w.qops[op] {
	case opFront:
		w.q.Front(w.h)
	case opBack:
		w.q.Back(w.h)
	case opPush:
		w.q.Push(w.h, uint64(op))
	default:
		w.q.Pop(w.h)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MEASUREMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// measureThroughput runs the full operation list under one wall clock.
func (w *worker) measureThroughput() {
	start := time.Now()
	for i := 0; i < w.opCount; i++ {
		w.perform(i)
	}
	w.totalNanos = uint64(time.Since(start).Nanoseconds())
}

// measureLatency times every operation individually.
func (w *worker) measureLatency() {
	for i := 0; i < w.opCount; i++ {
		start := time.Now()
		w.perform(i)
		w.latencies = append(w.latencies, uint64(time.Since(start).Nanoseconds()))
	}
}

// sortLatencies prepares the per-worker array for the k-way percentile
// merge. Runs after the drain gate, outside every measurement window.
func (w *worker) sortLatencies() {
	sort.Slice(w.latencies, func(a, b int) bool { return w.latencies[a] < w.latencies[b] })
}
