// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Cold-Path Logging Helper (fmt-free)
//
// Purpose:
//   - Logs benchmark progress and error paths; each call builds one
//     message string by concatenation.
//   - Used only outside measurement windows: run phases, config errors,
//     results-DB failures.
//
// Notes:
//   - Avoids fmt.Sprintf to minimize footprint.
//   - Progress lines are suppressed by the caller in csv/json output modes.
//
// ⚠️ Never invoke inside measurement loops — cold paths only.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "github.com/dbgroup-nagoya-u/mwcas-benchmark/utils"

// DropError logs an error with a prefix via direct string concatenation.
// Passing a nil error prints the prefix alone.
//
//go:nosplit
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
	} else {
		utils.PrintWarning(prefix + "\n")
	}
}

// DropMessage logs a tagged progress message. Used for run-phase
// transitions and infrequent diagnostics.
//
//go:nosplit
//go:inline
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}
