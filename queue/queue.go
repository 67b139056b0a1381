// ════════════════════════════════════════════════════════════════════════════════════════════════
// Thread-Safe FIFO Surface
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Common Queue Contract
//
// Description:
//   One interface over the three synchronization strategies under comparison: single-word CAS,
//   multi-word CAS, and a reader/writer mutex baseline. Every operation takes the caller's
//   epoch handle; the lock-free variants open a guard per call, the mutex variant ignores it.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package queue

import "github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"

// Queue is a multi-producer/multi-consumer FIFO of 63-bit payloads.
//
// Front and Back are read probes: they report the oldest/newest element, or
// ok=false on an empty queue. Like the rest of the surface they are
// linearizable per call, but a reported element may be gone by the time the
// caller acts on it.
type Queue interface {
	Push(h *epoch.Handle, x uint64)
	Pop(h *epoch.Handle) (uint64, bool)
	Front(h *epoch.Handle) (uint64, bool)
	Back(h *epoch.Handle) (uint64, bool)
	Empty(h *epoch.Handle) bool

	// IsValid walks the FIFO and checks structural integrity: the chain
	// from front reaches back in finitely many steps and back has no
	// successor. ⚠️ Quiescent use only — never run concurrently with ops.
	IsValid() bool
}
