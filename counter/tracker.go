// tracker.go — the frame window cursors.
//
// Tracker holds cur_sche_frame and cur_proc_frame. The master is the only
// writer; pinned workers read both to pick a parity bucket, so the fields
// are atomics rather than plain words. The window invariant
// curProc ≤ curSche < curProc+FrameWnd is asserted on every advance.

package counter

import (
	"sync/atomic"

	"main/constants"
	"main/utils"
)

// Schedule-direction completion flags for the scheduling cursor.
const (
	ScheduleNone       uint8 = 0
	ScheduleUplinkDone uint8 = 1 << 0
	ScheduleDownlink   uint8 = 1 << 1
	ScheduleComplete         = ScheduleUplinkDone | ScheduleDownlink
)

// Tracker is shared by the master and the worker pool.
type Tracker struct {
	curSche atomic.Uint32
	curProc atomic.Uint32
}

//go:inline
func (t *Tracker) CurSche() uint32 { return t.curSche.Load() }

//go:inline
func (t *Tracker) CurProc() uint32 { return t.curProc.Load() }

// AdvanceSche moves the scheduling cursor by one frame.
func (t *Tracker) AdvanceSche() {
	next := t.curSche.Load() + 1
	t.curSche.Store(next)
	t.check()
}

// AdvanceProc moves the processing cursor by one frame (frame retired).
func (t *Tracker) AdvanceProc() {
	next := t.curProc.Load() + 1
	t.curProc.Store(next)
	t.check()
}

func (t *Tracker) check() {
	sche, proc := t.curSche.Load(), t.curProc.Load()
	if sche < proc || sche >= proc+constants.FrameWnd {
		panic("frame window violated: curProc=" + utils.Utoa(uint64(proc)) +
			" curSche=" + utils.Utoa(uint64(sche)))
	}
}
