// ════════════════════════════════════════════════════════════════════════════════════════════════
// MwCAS Descriptor Engine
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Multi-Word Compare-and-Swap with Cooperative Helping
//
// Description:
//   Atomically swaps up to MaxTargets independent words using only single-word hardware CAS.
//   A descriptor records the (address, expected, desired) entries and a status word; the
//   three-phase protocol installs the descriptor into every target slot, decides the outcome
//   with one status CAS (the linearization point), and finalizes slots to their terminal
//   values. Any thread that encounters an installed descriptor drives it to completion before
//   making progress, so a stalled owner never blocks the system.
//
// Memory management:
//   Descriptors live in a fixed pool sliced into per-worker slabs. Slab freelists are touched
//   only by their owning worker: allocation pops locally, and epoch reclamation runs on the
//   retiring worker, so recycling pushes locally too. An allocation sequence embedded in the
//   encoded word reference unmasks stale references to recycled descriptors.
//
// Progress guarantee:
//   Lock-free. Entries are kept sorted by target address, so two descriptors always collide in
//   the same order and cooperative helping cannot cycle.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package mwcas

import (
	"sync/atomic"
	"unsafe"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/epoch"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DESCRIPTOR STATE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Descriptor status values. A descriptor moves Undecided → Succeeded or
// Undecided → Failed exactly once; terminal states are immutable.
const (
	StatusUndecided uint64 = iota
	StatusSucceeded
	StatusFailed
)

// Entry is one (address, expected, desired) target of a descriptor.
type Entry struct {
	addr *uint64
	old  uint64
	new  uint64
}

// Descriptor describes one in-flight MwCAS attempt. Acquired from the
// engine pool, filled with AddTarget, executed once with Exec, and retired
// automatically through epoch reclamation.
type Descriptor struct {
	status  atomic.Uint64
	seq     atomic.Uint64 // bumped on every allocation; embedded in enc
	eng     *Engine
	owner   *epoch.Handle // allocating worker; receives the retirement
	index   uint32
	count   int
	enc     uint64 // encoded word reference for the current allocation
	entries [constants.MaxTargets]Entry
}

// AddTarget appends one CAS target, keeping entries sorted by address so
// concurrent descriptors always install in the same order. Duplicate
// addresses, arity overflow, and values colliding with the descriptor tag
// are programmer bugs and abort.
func (d *Descriptor) AddTarget(addr *uint64, old, new uint64) {
	if d.count == constants.MaxTargets {
		panic("mwcas: descriptor arity exceeds MaxTargets")
	}
	checkPlain(old)
	checkPlain(new)

	// Insertion sort from the tail; descriptors carry at most 8 entries.
	pos := d.count
	key := uintptr(unsafe.Pointer(addr))
	for pos > 0 {
		prev := uintptr(unsafe.Pointer(d.entries[pos-1].addr))
		if prev == key {
			panic("mwcas: duplicate target address in one descriptor")
		}
		if prev < key {
			break
		}
		d.entries[pos] = d.entries[pos-1]
		pos--
	}
	d.entries[pos] = Entry{addr: addr, old: old, new: new}
	d.count++
}

// Exec runs the attempt to completion and reports whether every target
// moved from its expected to its desired value. The descriptor is retired
// through the owner's epoch handle and must not be touched afterwards.
//
// The caller must still hold the epoch guard it held at Acquire.
func (d *Descriptor) Exec() bool {
	e := d.eng
	e.run(d)
	success := d.status.Load() == StatusSucceeded
	d.owner.Retire(uint64(d.index), e)
	return success
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// slab is one worker's private descriptor freelist, padded so neighboring
// workers do not share a cache line through the slice headers.
type slab struct {
	free []uint32
	_    [constants.CacheLine - unsafe.Sizeof([]uint32{})]byte
}

// Engine owns the descriptor pool and implements the MwCAS protocol.
// It doubles as the epoch.Reclaimer that returns retired descriptors to
// their slab.
type Engine struct {
	pool      []Descriptor
	slabs     []slab
	perWorker int
}

// NewEngine builds an engine whose pool holds DescPerWorker descriptors
// for each of the given workers. Worker w allocates from slab w, indexed
// by its epoch handle ID.
func NewEngine(workers int) *Engine {
	if workers <= 0 || workers > constants.MaxWorkers {
		panic("mwcas: worker count out of range")
	}
	total := workers * constants.DescPerWorker
	if uint64(total) > uint64(1)<<constants.DescIndexBits {
		panic("mwcas: descriptor pool exceeds index space")
	}

	e := &Engine{
		pool:      make([]Descriptor, total),
		slabs:     make([]slab, workers),
		perWorker: constants.DescPerWorker,
	}
	for i := range e.pool {
		e.pool[i].eng = e
		e.pool[i].index = uint32(i)
	}
	for w := range e.slabs {
		free := make([]uint32, 0, e.perWorker)
		base := w * e.perWorker
		for i := e.perWorker - 1; i >= 0; i-- {
			free = append(free, uint32(base+i))
		}
		e.slabs[w].free = free
	}
	return e
}

// Acquire pops a fresh descriptor from the calling worker's slab. The
// caller must be inside an epoch guard; the guard keeps every descriptor
// this worker can observe stable until the guard is left.
func (e *Engine) Acquire(h *epoch.Handle) *Descriptor {
	if !h.Active() {
		panic("mwcas: descriptor acquired outside an epoch guard")
	}
	s := &e.slabs[h.ID()]
	n := len(s.free)
	if n == 0 {
		panic("mwcas: descriptor slab exhausted (pool sizing bug)")
	}
	idx := s.free[n-1]
	s.free = s.free[:n-1]

	d := &e.pool[idx]
	seq := d.seq.Add(1)
	d.status.Store(StatusUndecided)
	d.owner = h
	d.count = 0
	d.enc = encode(idx, seq)
	return d
}

// Reclaim returns a retired descriptor to its slab. Invoked by epoch
// reclamation on the owning worker, so the slab push needs no atomics.
func (e *Engine) Reclaim(token uint64) {
	s := &e.slabs[int(token)/e.perWorker]
	s.free = append(s.free, uint32(token))
}

// decode resolves an encoded word reference to its descriptor. A sequence
// mismatch means the reference outlived a recycle; callers re-read the
// slot, which by then no longer holds the stale encoding.
func (e *Engine) decode(word uint64) (*Descriptor, bool) {
	idx := word & constants.DescIndexMask
	if idx >= uint64(len(e.pool)) {
		return nil, false
	}
	d := &e.pool[idx]
	if (d.seq.Load() & constants.DescSeqMask) != (word>>constants.DescIndexBits)&constants.DescSeqMask {
		return nil, false
	}
	return d, true
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// THREE-PHASE PROTOCOL
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// run drives phases 2–4 (install, decide, finalize) for a descriptor.
// Safe to call from the owner and from any helper; every caller finishes
// with a finalize sweep, which keeps cleanup idempotent even when an
// installer lands a slot after the decision was made.
func (e *Engine) run(d *Descriptor) {
	enc := d.enc
	installed := true

install:
	for i := 0; i < d.count; i++ {
		entry := &d.entries[i]
		for {
			if d.status.Load() != StatusUndecided {
				// Another helper already decided; skip straight to finalize.
				installed = false
				break install
			}
			cur := atomic.LoadUint64(entry.addr)
			if cur == enc {
				// A helper installed this slot for us.
				break
			}
			if IsDescriptor(cur) {
				// Foreign in-flight descriptor: help it complete, re-read.
				if other, ok := e.decode(cur); ok {
					e.run(other)
				}
				continue
			}
			if cur != entry.old {
				// Genuine mismatch: try to fail the whole operation.
				d.status.CompareAndSwap(StatusUndecided, StatusFailed)
				installed = false
				break install
			}
			if atomic.CompareAndSwapUint64(entry.addr, entry.old, enc) {
				break
			}
			cpuRelax()
		}
	}

	if installed {
		// Linearization point: exactly one caller wins this transition.
		d.status.CompareAndSwap(StatusUndecided, StatusSucceeded)
	}
	e.finalize(d)
}

// finalize flips every slot still holding the descriptor reference to its
// terminal value: desired on success, expected on failure. The CAS only
// fires where the reference is actually present, so repeated sweeps are
// harmless.
func (e *Engine) finalize(d *Descriptor) {
	enc := d.enc
	succeeded := d.status.Load() == StatusSucceeded
	for i := 0; i < d.count; i++ {
		entry := &d.entries[i]
		want := entry.old
		if succeeded {
			want = entry.new
		}
		atomic.CompareAndSwapUint64(entry.addr, enc, want)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PROTECTED READ
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Read returns the logical value of a target word: the plain value when no
// operation is in flight, the desired value once the covering descriptor
// succeeded, or the expected value when it failed. Undecided descriptors
// are helped to completion first, so a reader never publishes torn state.
//
// Must be called inside an epoch guard; the guard pins any descriptor the
// reader may decode.
func (e *Engine) Read(addr *uint64) uint64 {
	for {
		cur := atomic.LoadUint64(addr)
		if !IsDescriptor(cur) {
			return cur
		}
		d, ok := e.decode(cur)
		if !ok {
			// Stale reference from a recycled descriptor; the slot is
			// being healed concurrently.
			cpuRelax()
			continue
		}
		st := d.status.Load()
		if st == StatusUndecided {
			e.run(d)
			continue
		}
		for i := 0; i < d.count; i++ {
			entry := &d.entries[i]
			if entry.addr == addr {
				want := entry.old
				if st == StatusSucceeded {
					want = entry.new
				}
				// Heal the slot on the way out.
				atomic.CompareAndSwapUint64(addr, cur, want)
				return want
			}
		}
		// Descriptor no longer covers this address: recycled between the
		// decode and the scan. Re-read the slot.
	}
}
