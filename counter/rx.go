// rx.go — packet-admission tallies.
//
// RxCounters tracks raw packet arrivals per frame slot, split into the
// pilot and calibration shares the scheduler keys milestones off.
// Master-thread only, like FrameCounters.

package counter

import (
	"main/constants"
)

// RxCounters counts received packets per live frame.
type RxCounters struct {
	numPkts      [constants.FrameWnd]uint32
	numPilotPkts [constants.FrameWnd]uint32
	numCalPkts   [constants.FrameWnd]uint32

	PktsPerFrame      uint32
	PilotPktsPerFrame uint32
	CalPktsPerFrame   uint32
}

// Init sets the per-frame thresholds.
func (r *RxCounters) Init(pktsPerFrame, pilotPktsPerFrame, calPktsPerFrame int) {
	r.PktsPerFrame = uint32(pktsPerFrame)
	r.PilotPktsPerFrame = uint32(pilotPktsPerFrame)
	r.CalPktsPerFrame = uint32(calPktsPerFrame)
}

// FirstPacket reports whether the next AddPacket call for frame is its
// first (frame-arrival milestone).
func (r *RxCounters) FirstPacket(frame uint32) bool {
	return r.numPkts[frame%constants.FrameWnd] == 0
}

// AddPacket counts one packet and reports whether the frame's RX is now
// complete. The slot auto-clears on completion, ready for slot reuse.
func (r *RxCounters) AddPacket(frame uint32) bool {
	slot := frame % constants.FrameWnd
	r.numPkts[slot]++
	if r.numPkts[slot] == r.PktsPerFrame {
		r.numPkts[slot] = 0
		return true
	}
	return false
}

// AddPilotPacket counts one pilot packet, reporting pilot-RX completion.
func (r *RxCounters) AddPilotPacket(frame uint32) bool {
	slot := frame % constants.FrameWnd
	r.numPilotPkts[slot]++
	if r.numPilotPkts[slot] == r.PilotPktsPerFrame {
		r.numPilotPkts[slot] = 0
		return true
	}
	return false
}

// AddCalPacket counts one calibration packet, reporting calibration-RX
// completion.
func (r *RxCounters) AddCalPacket(frame uint32) bool {
	slot := frame % constants.FrameWnd
	r.numCalPkts[slot]++
	if r.numCalPkts[slot] == r.CalPktsPerFrame {
		r.numCalPkts[slot] = 0
		return true
	}
	return false
}

// Pending returns the packets still outstanding for frame.
func (r *RxCounters) Pending(frame uint32) uint32 {
	return r.numPkts[frame%constants.FrameWnd]
}
