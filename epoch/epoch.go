// ════════════════════════════════════════════════════════════════════════════════════════════════
// Epoch-Based Reclamation
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Deferred Memory Reclamation for Lock-Free Structures
//
// Description:
//   Defers recycling of pool-allocated nodes and descriptors until no worker can still observe
//   them. Workers publish the epoch they entered a critical section under; retired objects are
//   bucketed by retirement epoch and recycled once every active worker has moved two epochs past.
//
// Architecture:
//   - One global monotonic epoch counter
//   - One cache-line-isolated slot per registered worker (observed epoch, or inactive sentinel)
//   - Per-worker garbage buckets keyed by retirement epoch
//   - Opportunistic advance: every GCInterval retirements on the retiring worker, no background
//     thread
//
// Threading model:
//   - A Handle is owned by exactly one goroutine; only slot publication is shared
//   - Reclamation of a worker's buckets runs on that worker, so Reclaimer targets sliced
//     per-worker need no internal synchronization
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package epoch

import (
	"sync/atomic"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
)

// inactive marks a worker that is not inside any guard.
const inactive = ^uint64(0)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RECLAIMER CONTRACT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Reclaimer recycles a retired object identified by an opaque token (a pool
// handle or descriptor index). Intentionally type-erased so one garbage
// bucket can hold nodes and descriptors alike.
//
// Reclaim is invoked on the goroutine that retired the token.
type Reclaimer interface {
	Reclaim(token uint64)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MANAGER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// slot publishes one worker's observed epoch on a private cache line.
type slot struct {
	state atomic.Uint64
	_     [constants.CacheLine - 8]byte
}

// Manager owns the global epoch counter and the worker slot table.
type Manager struct {
	global     atomic.Uint64
	_          [constants.CacheLine - 8]byte
	slots      []slot
	registered atomic.Int64
}

// NewManager creates a manager with capacity for maxWorkers handles.
func NewManager(maxWorkers int) *Manager {
	if maxWorkers <= 0 || maxWorkers > constants.MaxWorkers {
		panic("epoch: worker capacity out of range")
	}
	m := &Manager{slots: make([]slot, maxWorkers)}
	for i := range m.slots {
		m.slots[i].state.Store(inactive)
	}
	// Start past the reclamation gap so limit arithmetic never underflows.
	m.global.Store(constants.EpochGap)
	return m
}

// Register claims the next worker slot and returns its handle. The handle
// must be used by a single goroutine. Panics when capacity is exhausted.
func (m *Manager) Register() *Handle {
	id := int(m.registered.Add(1)) - 1
	if id >= len(m.slots) {
		panic("epoch: worker slots exhausted")
	}
	return &Handle{mgr: m, id: id}
}

// GlobalEpoch returns the current global epoch. Diagnostic use only.
func (m *Manager) GlobalEpoch() uint64 {
	return m.global.Load()
}

// advance bumps the global epoch by one. A failed CAS means another worker
// advanced concurrently, which serves the same purpose.
func (m *Manager) advance() {
	e := m.global.Load()
	m.global.CompareAndSwap(e, e+1)
}

// minObserved scans every registered slot and returns the smallest epoch
// currently published, or inactive when no worker is inside a guard.
func (m *Manager) minObserved() uint64 {
	n := int(m.registered.Load())
	if n > len(m.slots) {
		n = len(m.slots)
	}
	min := uint64(inactive)
	for i := 0; i < n; i++ {
		if e := m.slots[i].state.Load(); e < min {
			min = e
		}
	}
	return min
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PER-WORKER HANDLE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// garbage pairs a retired token with the pool that recycles it.
type garbage struct {
	token uint64
	pool  Reclaimer
}

// bucket accumulates garbage retired under one epoch.
type bucket struct {
	epoch uint64
	items []garbage
}

// Handle is a worker's private view of the manager: guard nesting, the
// retirement counter that paces collection, and the garbage buckets.
type Handle struct {
	mgr     *Manager
	id      int
	depth   int      // nested guard count; slot is published at depth 0→1
	retired int      // retirements since the last collection attempt
	buckets []bucket // ascending retirement epoch
}

// ID returns the slot index, also used to address per-worker pool slabs.
func (h *Handle) ID() int { return h.id }

// Enter opens (or nests into) a guarded section. The observed epoch is
// published only on the outermost entry; nesting is idempotent.
func (h *Handle) Enter() {
	if h.depth == 0 {
		h.mgr.slots[h.id].state.Store(h.mgr.global.Load())
	}
	h.depth++
}

// Leave closes one nesting level; the outermost leave unpublishes the slot.
func (h *Handle) Leave() {
	h.depth--
	if h.depth < 0 {
		panic("epoch: unbalanced guard leave")
	}
	if h.depth == 0 {
		h.mgr.slots[h.id].state.Store(inactive)
	}
}

// Active reports whether the handle is currently inside a guard.
func (h *Handle) Active() bool { return h.depth > 0 }

// Retire hands a token to the reclamation machinery. The token is recycled
// through pool once no guard that could observe it remains. Every
// GCInterval retirements the handle attempts an epoch advance and sweeps
// its own buckets.
func (h *Handle) Retire(token uint64, pool Reclaimer) {
	e := h.mgr.global.Load()
	n := len(h.buckets)
	if n > 0 && h.buckets[n-1].epoch == e {
		h.buckets[n-1].items = append(h.buckets[n-1].items, garbage{token, pool})
	} else {
		h.buckets = append(h.buckets, bucket{epoch: e, items: []garbage{{token, pool}}})
	}

	h.retired++
	if h.retired >= constants.GCInterval {
		h.retired = 0
		h.Collect()
	}
}

// Collect advances the global epoch and recycles every bucket that has
// passed the two-epoch quiescence gap. Retire calls it every GCInterval
// retirements; the handle's owner may also call it directly.
func (h *Handle) Collect() {
	h.mgr.advance()

	min := h.mgr.minObserved()
	var limit uint64
	if min == inactive {
		// No guards anywhere: everything retired so far is unreachable.
		limit = h.mgr.global.Load()
	} else if min < constants.EpochGap {
		return
	} else {
		limit = min - constants.EpochGap
	}

	i := 0
	for ; i < len(h.buckets) && h.buckets[i].epoch <= limit; i++ {
		for _, g := range h.buckets[i].items {
			g.pool.Reclaim(g.token)
		}
	}
	if i > 0 {
		h.buckets = append(h.buckets[:0], h.buckets[i:]...)
	}
}

// Pending returns the number of tokens awaiting reclamation. Test hook.
func (h *Handle) Pending() int {
	n := 0
	for _, b := range h.buckets {
		n += len(b.items)
	}
	return n
}
