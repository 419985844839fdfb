// relax.go — spin-loop back-off hint.
//
// On amd64 the PAUSE instruction would be the right body; carrying the
// assembly is not worth it for the poll densities the pipeline runs at,
// so this is a portable tiny-delay hint. Safe to call unconditionally in
// spin loops.

package ring

import "sync/atomic"

var relaxSink uint32

// CPURelax burns a handful of cycles without touching shared cache lines
// meaningfully. Used between failed polls in pinned loops.
//
//go:nosplit
func CPURelax() {
	// A dependent atomic on a private word approximates a pipeline bubble.
	atomic.AddUint32(&relaxSink, 1)
}
