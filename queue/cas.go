// ════════════════════════════════════════════════════════════════════════════════════════════════
// Lock-Free FIFO — Single-Word CAS Variant
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Michael–Scott Queue over the Node Arena
//
// Description:
//   Classic two-pointer FIFO with a permanent sentinel. Push links the new node behind the
//   current back and then swings the back pointer; a pusher that finds the back lagging helps
//   advance it first, so a stalled peer never wedges the queue. Pop swings the front pointer
//   forward and retires the old sentinel through epoch reclamation.
//
// Linearization:
//   - Push linearizes at the successful CAS on back.next
//   - Pop linearizes at the successful CAS on front
//
// Safety:
//   Every operation runs inside an epoch guard. A pusher caught between its two CASes holds
//   its guard, which pins the epoch and keeps the (possibly already popped) node it is about
//   to fix the back pointer away from alive until the repair lands.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package queue

import (
	"sync/atomic"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
)

// QueueCAS is the single-word CAS FIFO.
type QueueCAS struct {
	arena *Arena
	_     [constants.CacheLine]byte
	front atomic.Uint64
	_     [constants.CacheLine - 8]byte
	back  atomic.Uint64
	_     [constants.CacheLine - 8]byte
}

// NewQueueCAS creates an empty queue whose sentinel and nodes live in arena.
func NewQueueCAS(arena *Arena) *QueueCAS {
	q := &QueueCAS{arena: arena}
	sentinel := arena.Alloc(0)
	q.front.Store(sentinel)
	q.back.Store(sentinel)
	return q
}

// Push appends x to the back of the queue.
func (q *QueueCAS) Push(h *epoch.Handle, x uint64) {
	h.Enter()
	defer h.Leave()

	n := q.arena.Alloc(x)
	for {
		back := q.back.Load()
		next := atomic.LoadUint64(&q.arena.node(back).next)
		if next != NilNode {
			// The back pointer lags behind a half-finished push; help.
			q.back.CompareAndSwap(back, next)
			continue
		}
		if atomic.CompareAndSwapUint64(&q.arena.node(back).next, NilNode, n) {
			// Best effort: on failure another thread has already helped.
			q.back.CompareAndSwap(back, n)
			return
		}
	}
}

// Pop removes and returns the oldest element, or ok=false when empty.
func (q *QueueCAS) Pop(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	front := q.front.Load()
	for {
		newFront := atomic.LoadUint64(&q.arena.node(front).next)
		if newFront == NilNode {
			return 0, false
		}
		// Read the element before swinging front: once the CAS lands, the
		// old sentinel is retired and its successor may be recycled by a
		// later pop.
		elem := q.arena.node(newFront).elem
		if q.front.CompareAndSwap(front, newFront) {
			h.Retire(front, q.arena)
			return elem, true
		}
		front = q.front.Load()
	}
}

// Front reports the oldest element without removing it.
func (q *QueueCAS) Front(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	front := q.front.Load()
	next := atomic.LoadUint64(&q.arena.node(front).next)
	if next == NilNode {
		return 0, false
	}
	return q.arena.node(next).elem, true
}

// Back reports the newest element without removing it.
func (q *QueueCAS) Back(h *epoch.Handle) (uint64, bool) {
	h.Enter()
	defer h.Leave()

	back := q.back.Load()
	if back == q.front.Load() {
		return 0, false
	}
	return q.arena.node(back).elem, true
}

// Empty reports whether the queue currently holds no elements.
func (q *QueueCAS) Empty(h *epoch.Handle) bool {
	h.Enter()
	defer h.Leave()

	front := q.front.Load()
	return atomic.LoadUint64(&q.arena.node(front).next) == NilNode
}

// IsValid checks structural integrity. ⚠️ Quiescent use only.
func (q *QueueCAS) IsValid() bool {
	return validateChain(q.arena, q.front.Load(), q.back.Load())
}

// validateChain walks next links from front: the chain must reach back
// within the arena's capacity (acyclic) and back must terminate it.
func validateChain(a *Arena, front, back uint64) bool {
	cur := front
	for steps := 0; steps <= len(a.nodes); steps++ {
		if cur == back {
			return atomic.LoadUint64(&a.node(back).next) == NilNode
		}
		next := atomic.LoadUint64(&a.node(cur).next)
		if next == NilNode {
			return false // chain ended before reaching back
		}
		cur = next
	}
	return false // cycle
}
