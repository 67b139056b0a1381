// ════════════════════════════════════════════════════════════════════════════════════════════════
// Lock-Free FIFO — MwCAS Variant
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: FIFO with Descriptor-Backed Push
//
// Description:
//   Same shape as the single-word variant, but Push updates the back pointer and the old
//   back's next link in ONE multi-word CAS. That removes the lagging-back state and the
//   helping CAS the Michael–Scott push needs — the simplification this benchmark exists to
//   price. Pop still needs only a single-word CAS because only the front pointer mutates.
//
// Word discipline:
//   back and every node's next link are MwCAS target words: read them through the engine's
//   protected read, never raw, since they may transiently hold an encoded descriptor. The
//   front pointer is never a descriptor target and uses plain atomics.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package queue

import (
	"sync/atomic"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/mwcas"
)

// QueueMwCAS is the multi-word CAS FIFO.
type QueueMwCAS struct {
	arena *Arena
	eng   *mwcas.Engine
	_     [constants.CacheLine]byte
	front uint64 // plain atomic word; never a descriptor target
	_     [constants.CacheLine - 8]byte
	back  uint64 // MwCAS target word
	_     [constants.CacheLine - 8]byte
}

// NewQueueMwCAS creates an empty queue over arena, issuing its multi-word
// operations through eng.
func NewQueueMwCAS(arena *Arena, eng *mwcas.Engine) *QueueMwCAS {
	q := &QueueMwCAS{arena: arena, eng: eng}
	sentinel := arena.Alloc(0)
	atomic.StoreUint64(&q.front, sentinel)
	atomic.StoreUint64(&q.back, sentinel)
	return q
}

// Push appends x, atomically swinging back and linking the old back's next
// in a single arity-2 MwCAS.
func (q *QueueMwCAS) Push(h *epoch.Handle, x uint64) {
	h.Enter()
	defer h.Leave()

	n := q.arena.Alloc(x)
	for {
		back := q.eng.Read(&q.back)

		d := q.eng.Acquire(h)
		d.AddTarget(&q.back, back, n)
		d.AddTarget(&q.arena.node(back).next, NilNode, n)
		if d.Exec() {
			return
		}
	}
}

// Pop removes and returns the oldest element, or ok=false when empty.
// A single-word CAS suffices: only the front pointer mutates on this side.
func (q *QueueMwCAS) Pop(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	front := atomic.LoadUint64(&q.front)
	for {
		newFront := q.eng.Read(&q.arena.node(front).next)
		if newFront == NilNode {
			return 0, false
		}
		elem := q.arena.node(newFront).elem
		if atomic.CompareAndSwapUint64(&q.front, front, newFront) {
			h.Retire(front, q.arena)
			return elem, true
		}
		front = atomic.LoadUint64(&q.front)
	}
}

// Front reports the oldest element without removing it.
func (q *QueueMwCAS) Front(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	front := atomic.LoadUint64(&q.front)
	next := q.eng.Read(&q.arena.node(front).next)
	if next == NilNode {
		return 0, false
	}
	return q.arena.node(next).elem, true
}

// Back reports the newest element without removing it.
func (q *QueueMwCAS) Back(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	back := q.eng.Read(&q.back)
	if back == atomic.LoadUint64(&q.front) {
		return 0, false
	}
	return q.arena.node(back).elem, true
}

// Empty reports whether the queue currently holds no elements.
func (q *QueueMwCAS) Empty(h *epoch.Handle) bool {
	h.Enter()
	defer h.Leave()

	front := atomic.LoadUint64(&q.front)
	return q.eng.Read(&q.arena.node(front).next) == NilNode
}

// IsValid checks structural integrity. ⚠️ Quiescent use only — at rest no
// descriptor is in flight, so raw link loads are exact.
func (q *QueueMwCAS) IsValid() bool {
	return validateChain(q.arena, atomic.LoadUint64(&q.front), atomic.LoadUint64(&q.back))
}
