// debug.go — cold-path logging helper (fmt-free)
//
// Purpose:
//   - Logs infrequent paths with one string concatenation per line: startup
//     phases, per-frame milestones, queue-capacity warnings, shutdown.
//
// Notes:
//   - Avoids fmt to minimize footprint and latency.
//   - Per-frame progress lines are compile-time gated so the master loop
//     carries no logging cost when they are off.
//
// ⚠️ Never invoke in hot loops — use only for milestones and diagnostics.

package debug

import "main/utils"

// Compile-time switches for per-frame progress lines. Milestone lines
// (DropMessage/DropError callers) are always on.
const (
	PrintPerFrameDone  = false
	PrintPerFrameStart = false
	PrintDeferral      = true
)

// DropError logs error messages without fmt. It writes directly to
// stderr; the concatenated line is its only allocation.
//
//go:nosplit
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
	} else {
		utils.PrintWarning(prefix + "\n")
	}
}

// DropMessage logs debug messages straight to stderr without fmt.
// Used for cold-path diagnostics, phase changes, and infrequent events.
//
//go:nosplit
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}

// FrameDone emits a per-frame stage-closure line when enabled.
func FrameDone(stage string, frame uint32) {
	if PrintPerFrameDone {
		utils.PrintWarning("FRAME " + utils.Utoa(uint64(frame)) + ": " + stage + " done\n")
	}
}
