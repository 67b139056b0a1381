// ════════════════════════════════════════════════════════════════════════════════════════════════
// Atomic Word Abstraction
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Tagged Word Encoding
//
// Description:
//   MwCAS target words are ordinary uint64 slots updated only through sync/atomic. A word holds
//   either a plain 63-bit value or an encoded reference to an in-flight descriptor. The encoding
//   reserves the top bit as the descriptor flag and packs an allocation sequence plus a pool
//   index beneath it (layout in constants), so a single load tells a reader whether the slot is
//   mid-operation and which descriptor owns it.
//
// Value contract:
//   Plain values must leave the flag bit clear. Counters and arena handles satisfy this by
//   construction; AddTarget rejects violations loudly.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package mwcas

import "github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"

// IsDescriptor reports whether a word currently encodes an in-flight
// descriptor reference rather than a plain value.
//
//go:inline
func IsDescriptor(word uint64) bool {
	return word&constants.DescFlag != 0
}

// checkPlain aborts when a caller hands the engine a value that collides
// with the descriptor flag. Such a value could never be distinguished from
// an encoded reference, so this is a programmer bug, not contention.
func checkPlain(v uint64) {
	if IsDescriptor(v) {
		panic("mwcas: plain values are limited to 63 bits")
	}
}

// encode builds the word form of a descriptor reference from its pool
// index and allocation sequence.
//
//go:inline
func encode(index uint32, seq uint64) uint64 {
	return constants.DescFlag |
		((seq & constants.DescSeqMask) << constants.DescIndexBits) |
		uint64(index)
}
