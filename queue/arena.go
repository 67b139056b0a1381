// ════════════════════════════════════════════════════════════════════════════════════════════════
// Shared Node Arena
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Handle-Based Node Pool with Epoch-Owned Recycling
//
// Description:
//   Fixed-capacity pool backing the lock-free queue variants. Queue links are integer handles
//   into the pool rather than raw pointers: handles keep every node reachable by the runtime,
//   fit the 63-bit plain-value contract of MwCAS target words, and make epoch-based recycling
//   observable (a reclaimed node really is reused, so a use-after-reclaim is a real bug rather
//   than something the collector silently forgives).
//
// Memory Layout:
//   - Handle 0 is the nil link; slot 0 is never handed out
//   - Fresh nodes come from a bump cursor, recycled nodes from a Treiber freelist
//   - The freelist head packs a 32-bit push tag beside the index to defeat ABA
//
// Ownership:
//   - Alloc transfers a node to the caller; linking it publishes it to the queue
//   - Pop transfers the unlinked node to epoch garbage via Retire(handle, arena)
//   - Reclaim (epoch callback) returns the node to the freelist
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package queue

import (
	"sync/atomic"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
)

// NilNode is the null link handle.
const NilNode = uint64(0)

// handleMask extracts the index half of the packed freelist head.
const handleMask = (uint64(1) << 32) - 1

// Node is one FIFO cell. The next field is an atomic word: it holds a
// successor handle, NilNode, or (for the MwCAS variant) a transient encoded
// descriptor reference. While a node sits on the freelist, next doubles as
// the freelist link.
type Node struct {
	elem uint64
	next uint64
}

// Arena is a bounded node pool shared by the queues built on it.
type Arena struct {
	nodes    []Node
	_        [constants.CacheLine]byte
	bump     atomic.Uint64 // next never-used slot; starts at 1 (slot 0 is nil)
	_        [constants.CacheLine - 8]byte
	freeHead atomic.Uint64 // packed (tag<<32 | handle); 0 = empty
	_        [constants.CacheLine - 8]byte
}

// NewArena creates a pool with room for capacity live nodes. Capacity is a
// sizing decision: running out aborts rather than blocking a lock-free op.
func NewArena(capacity int) *Arena {
	if capacity <= 0 || uint64(capacity) >= handleMask {
		panic("queue: arena capacity out of range")
	}
	a := &Arena{nodes: make([]Node, capacity+1)}
	a.bump.Store(1)
	return a
}

// node resolves a handle. Callers guarantee validity (handles only come
// from this arena).
//
//go:inline
func (a *Arena) node(h uint64) *Node {
	return &a.nodes[h]
}

// Alloc returns a fresh node holding elem, with a nil next link. Recycled
// slots are preferred; the bump cursor extends into untouched capacity.
// Exhaustion is a sizing bug and aborts.
func (a *Arena) Alloc(elem uint64) uint64 {
	for {
		head := a.freeHead.Load()
		idx := head & handleMask
		if idx == NilNode {
			break
		}
		link := atomic.LoadUint64(&a.nodes[idx].next)
		tag := head >> 32
		if a.freeHead.CompareAndSwap(head, (tag+1)<<32|(link&handleMask)) {
			n := &a.nodes[idx]
			n.elem = elem
			atomic.StoreUint64(&n.next, NilNode)
			return idx
		}
	}

	idx := a.bump.Add(1) - 1
	if idx >= uint64(len(a.nodes)) {
		panic("queue: node arena exhausted (sizing bug)")
	}
	n := &a.nodes[idx]
	n.elem = elem
	atomic.StoreUint64(&n.next, NilNode)
	return idx
}

// Reclaim pushes a retired node back onto the freelist. Invoked by epoch
// reclamation once no guard can still observe the handle; the tag bump
// protects concurrent Alloc against the freelist's own ABA.
func (a *Arena) Reclaim(token uint64) {
	for {
		head := a.freeHead.Load()
		atomic.StoreUint64(&a.nodes[token].next, head&handleMask)
		if a.freeHead.CompareAndSwap(head, (head>>32+1)<<32|token) {
			return
		}
	}
}

// Live returns the number of slots handed out and not yet recycled.
// Quiescent diagnostic only.
func (a *Arena) Live() int {
	used := int(a.bump.Load()) - 1
	free := 0
	for h := a.freeHead.Load() & handleMask; h != NilNode; h = a.nodes[h].next & handleMask {
		free++
	}
	return used - free
}
