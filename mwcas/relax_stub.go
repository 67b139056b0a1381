// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - Fallback Implementation
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Cross-Platform Compatibility Layer
//
// Description:
//   Fallback implementation for architectures without specialized spin-wait instructions.
//   Provides API compatibility while allowing platform-specific optimizations where available.
//
// Compilation Targets:
//   - RISC-V, MIPS, PowerPC, s390x, and other architectures
//   - Builds with assembly disabled (noasm tag)
//   - Builds with CGO disabled (nocgo tag)
//
// Supported Architectures (with dedicated implementations):
//   - amd64: Uses PAUSE instruction (relax_amd64.go)
//   - arm64: Uses YIELD instruction (relax_arm64.go)
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build (!amd64 && !arm64) || noasm || nocgo

package mwcas

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CPU RELAXATION FUNCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// cpuRelax provides a no-op implementation for architectural compatibility.
// On platforms without specialized spin-wait instructions the call compiles
// to nothing and the retry loop spins at full speed.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func cpuRelax() {
	// No-op implementation
}
