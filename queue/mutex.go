// ════════════════════════════════════════════════════════════════════════════════════════════════
// FIFO — Reader/Writer Mutex Baseline
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Coarse-Locked Queue for Comparative Numbers
//
// Description:
//   The simplest correct implementation: one RWMutex over a singly-linked list with a
//   sentinel. Mutating ops take the write lock, probes take the read lock. Nodes are plain
//   heap objects — with a global lock there is no concurrent traversal to protect, so the
//   collector owns reclamation and the epoch handle is ignored.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package queue

import (
	"sync"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
)

// mnode is a GC-owned list cell for the mutex baseline.
type mnode struct {
	elem uint64
	next *mnode
}

// QueueMutex is the coarse-locked FIFO.
type QueueMutex struct {
	mtx   sync.RWMutex
	front *mnode // sentinel; oldest element is front.next
	back  *mnode // newest element, or the sentinel when empty
}

// NewQueueMutex creates an empty queue.
func NewQueueMutex() *QueueMutex {
	sentinel := &mnode{}
	return &QueueMutex{front: sentinel, back: sentinel}
}

// Push appends x to the back of the queue.
func (q *QueueMutex) Push(_ *epoch.Handle, x uint64) {
	n := &mnode{elem: x}

	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.back.next = n
	q.back = n
}

// Pop removes and returns the oldest element, or ok=false when empty.
func (q *QueueMutex) Pop(_ *epoch.Handle) (uint64, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	head := q.front.next
	if head == nil {
		return 0, false
	}
	q.front = head // the old sentinel drops to the collector
	return head.elem, true
}

// Front reports the oldest element without removing it.
func (q *QueueMutex) Front(_ *epoch.Handle) (uint64, bool) {
	q.mtx.RLock()
	defer q.mtx.RUnlock()

	head := q.front.next
	if head == nil {
		return 0, false
	}
	return head.elem, true
}

// Back reports the newest element without removing it.
func (q *QueueMutex) Back(_ *epoch.Handle) (uint64, bool) {
	q.mtx.RLock()
	defer q.mtx.RUnlock()

	if q.back == q.front {
		return 0, false
	}
	return q.back.elem, true
}

// Empty reports whether the queue currently holds no elements.
func (q *QueueMutex) Empty(_ *epoch.Handle) bool {
	q.mtx.RLock()
	defer q.mtx.RUnlock()

	return q.front.next == nil
}

// IsValid checks structural integrity. ⚠️ Quiescent use only.
func (q *QueueMutex) IsValid() bool {
	q.mtx.RLock()
	defer q.mtx.RUnlock()

	cur := q.front
	for cur != q.back {
		if cur.next == nil {
			return false
		}
		cur = cur.next
	}
	return q.back.next == nil
}
