// doer.go — the compute-kernel contract.
//
// A Doer takes one tag, performs its stage's transform over the buffer
// pool, and returns. The worker that launched it owns the completion
// event; doers never touch queues. Kernels are stateless across frames —
// any scratch lives in the doer instance, which belongs to exactly one
// worker.
//
// The transforms themselves are deliberately cheap, deterministic
// stand-ins honoring each stage's input/output buffer contract; the heavy
// DSP (real FFT, LDPC, matrix inversion) plugs in behind the same
// signatures.

package phy

import "main/message"

// Doer is implemented by every kernel.
type Doer interface {
	Launch(tag message.Tag)
}

// qamScale normalizes int16 sample amplitude into the unit circle.
const qamScale = 1.0 / 32768.0

// modPoint maps a constellation index to a point. Deterministic and
// invertible over the index's low 7 bits; bit 7 is ignored. Good enough
// for the pipeline's data-flow contract.
//
//go:inline
func modPoint(idx int8) complex64 {
	re := float32(idx&0x0F) - 7.5
	im := float32((idx>>4)&0x07) - 3.5
	return complex(re/8, im/4)
}
