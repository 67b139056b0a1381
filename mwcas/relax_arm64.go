// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - ARM64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: ARM64 Spin-Wait Optimization
//
// Description:
//   Platform-specific implementation for ARM64 processors using the YIELD instruction.
//   MwCAS install loops and protected reads spin on contended slots; YIELD hints the core
//   that the thread is busy-waiting so the scheduler and power management can react.
//
// Hardware Benefits:
//   - Reduced power consumption during spin loops
//   - Better resource sharing on multi-core systems
//   - Effective on Apple Silicon and modern ARM server cores
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build arm64 && !noasm && !nocgo

package mwcas

/*
#ifdef __aarch64__
static inline void cpu_yield() {
    __asm__ __volatile__("yield" ::: "memory");
}
#else
#error "This file requires ARM64 architecture"
#endif
*/
import "C"

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CPU RELAXATION FUNCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// cpuRelax emits the ARM64 YIELD instruction for efficient spin-wait loops.
// Called on CAS retry paths while a contended slot settles.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func cpuRelax() {
	C.cpu_yield()
}
