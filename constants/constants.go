// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global MwCAS Benchmark Tunables
//
// Purpose:
//   - Defines compile-time limits for the MwCAS engine, epoch reclamation,
//     and descriptor/node pools shared by every component.
//   - Fixes the word-encoding bit layout used to tag in-flight descriptors.
//
// Notes:
//   - Pool sizes are deliberately generous: exhaustion is treated as a sizing
//     bug and aborts the run rather than blocking a lock-free path.
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── MwCAS Engine ────────────────────────────────

const (
	// MaxTargets caps the number of (address, expected, desired) entries a
	// single descriptor can carry. Operations requesting more abort.
	MaxTargets = 8

	// DescPerWorker sizes each worker's private descriptor slab. One
	// descriptor is consumed per MwCAS attempt and recycled after a
	// two-epoch quiescence, so the slab must cover every attempt issued
	// between two reclamation sweeps with room for retry storms.
	DescPerWorker = 8192

	// MaxWorkers bounds the number of registered epoch slots and therefore
	// the number of descriptor slabs. DescPerWorker * MaxWorkers must stay
	// addressable within DescIndexBits.
	MaxWorkers = 256
)

// ─────────────────────────── Word Encoding Layout ──────────────────────────
//
// A target word either holds a plain 63-bit value or an encoded descriptor
// reference:
//
//	bit 63    : descriptor flag
//	bits 62-24: allocation sequence (defeats ABA on descriptor reuse)
//	bits 23-0 : descriptor pool index
//
// The flag lives in the top bit because target fields hold arbitrary
// incrementing counters whose low bits cannot be reserved.

const (
	// DescFlag marks a word as an encoded descriptor reference.
	DescFlag = uint64(1) << 63

	// DescIndexBits is the width of the pool-index portion of an encoded
	// reference: 2^24 descriptors = 16M, far above DescPerWorker*MaxWorkers.
	DescIndexBits = 24

	// DescIndexMask extracts the pool index from an encoded reference.
	DescIndexMask = (uint64(1) << DescIndexBits) - 1

	// DescSeqBits is the width of the allocation-sequence portion. The
	// sequence wraps after 2^39 allocations per slot, unreachable within a
	// single benchmark process.
	DescSeqBits = 63 - DescIndexBits

	// DescSeqMask extracts the allocation sequence after shifting.
	DescSeqMask = (uint64(1) << DescSeqBits) - 1
)

// ──────────────────────────── Epoch Reclamation ────────────────────────────

const (
	// GCInterval is the number of retirements a worker accumulates before it
	// opportunistically advances the global epoch and sweeps its buckets.
	GCInterval = 1000

	// EpochGap is the quiescence distance: garbage retired in epoch e is
	// reclaimable once every active worker has observed epoch e+EpochGap.
	// Two epochs cover a worker that read the counter just before a pending
	// advance.
	EpochGap = 2
)

// ───────────────────────────── Cache Geometry ──────────────────────────────

const (
	// CacheLine is the assumed cache-line size used to pad per-worker epoch
	// slots and queue head/tail words against false sharing.
	CacheLine = 64
)
