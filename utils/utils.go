// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: utils.go — fmt-Free Conversion & Print Helpers
//
// Purpose:
//   - Integer/float to ASCII conversion without fmt on report paths.
//   - fd-direct stdout/stderr writes that bypass buffered I/O.
//   - Mix64 finalizer for seed whitening.
//
// Notes:
//   - B2s and the fd-direct writers do not allocate; the decimal
//     conversions allocate the strings they return.
// ─────────────────────────────────────────────────────────────────────────────

package utils

import (
	"os"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for human-readable print paths.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

///////////////////////////////////////////////////////////////////////////////
// Integer Formatting
///////////////////////////////////////////////////////////////////////////////

// Utoa renders an unsigned integer in decimal. A 20-byte scratch buffer
// covers the full uint64 range.
func Utoa(v uint64) string {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return string(buf[i:])
}

// Itoa renders a signed integer in decimal.
func Itoa(v int) string {
	if v < 0 {
		return "-" + Utoa(uint64(-v))
	}
	return Utoa(uint64(v))
}

// Ftoa renders a float in fixed-point decimal with the given number of
// fractional digits. Rounding is half-up; precision above 9 digits is
// clamped. Sufficient for throughput and latency report lines.
func Ftoa(v float64, prec int) string {
	if prec < 0 {
		prec = 0
	} else if prec > 9 {
		prec = 9
	}

	neg := false
	if v < 0 {
		neg = true
		v = -v
	}

	scale := uint64(1)
	for i := 0; i < prec; i++ {
		scale *= 10
	}

	// Round at the requested precision before splitting the parts.
	scaled := uint64(v*float64(scale) + 0.5)
	whole := scaled / scale
	frac := scaled % scale

	s := Utoa(whole)
	if prec > 0 {
		f := Utoa(frac)
		for len(f) < prec {
			f = "0" + f
		}
		s += "." + f
	}
	if neg {
		return "-" + s
	}
	return s
}

///////////////////////////////////////////////////////////////////////////////
// fd-Direct Output
///////////////////////////////////////////////////////////////////////////////

// PrintOut writes a message directly to stdout (fd 1). Used for report
// lines; no buffering, no fmt.
//
//go:nosplit
func PrintOut(msg string) {
	os.Stdout.WriteString(msg)
}

// PrintWarning writes a message directly to stderr (fd 2). Used only on
// cold diagnostic paths.
//
//go:nosplit
func PrintWarning(msg string) {
	os.Stderr.WriteString(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Bit Mixing
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies one splitmix64 step (golden-gamma increment, then the
// splitmix64 finalizer). Used to whiten derived seeds so neighboring
// worker IDs do not produce correlated random streams.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
