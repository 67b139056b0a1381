// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: x86-64 Spin-Wait Optimization
//
// Description:
//   Platform-specific implementation for x86-64 processors using the PAUSE instruction.
//   MwCAS install loops and protected reads spin on contended slots; PAUSE hints the
//   pipeline so hyperthread siblings and the cache subsystem are not starved while a
//   descriptor is being helped to completion.
//
// Hardware Benefits:
//   - Reduced power consumption during spin loops
//   - Better resource sharing on SMT/hyperthreaded cores
//   - Minimized memory ordering speculation on CAS retry
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && !noasm && !nocgo

package mwcas

/*
#ifdef __x86_64__
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
#else
#error "This file requires x86-64 architecture"
#endif
*/
import "C"

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CPU RELAXATION FUNCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// cpuRelax emits the x86-64 PAUSE instruction for efficient spin-wait loops.
// Called on CAS retry paths while a contended slot settles.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func cpuRelax() {
	C.cpu_pause()
}
