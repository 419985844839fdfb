// schedule.go — task emission, FFT batching, the frame window, and the
// downlink deferral FIFO.
//
// Emitters walk ascending antenna / subcarrier-base / code-block order
// and route every task onto the parity bucket frame_id & 1.

package sched

import (
	"main/constants"
	"main/control"
	"main/counter"
	"main/debug"
	"main/message"
	"main/stats"
	"main/utils"
)

// ─────────────────────────────── Emitters ──────────────────────────────────

// scheduleAntennas emits batched per-antenna tasks (FFT, IFFT):
// fft_block_size tags per event, remainder in the last event.
func (s *Scheduler) scheduleAntennas(kind message.EventKind, frame, symbol uint32) {
	qid := frame & 1
	block := s.cfg.FftBlockSize
	var ev message.Event
	ev.Kind = kind
	ant := 0
	for ant < s.cfg.BsAntNum {
		n := block
		if rem := s.cfg.BsAntNum - ant; rem < n {
			n = rem
		}
		ev.NumTags = uint8(n)
		for j := 0; j < n; j++ {
			ev.Tags[j] = message.TagFrmSymAnt(frame, symbol, uint32(ant+j))
		}
		s.fab.EnqueueTask(kind, qid, &ev)
		ant += n
	}
}

// scheduleAntennasTX emits one transmit order per antenna of a symbol.
func (s *Scheduler) scheduleAntennasTX(frame, symbol uint32) {
	for ant := 0; ant < s.cfg.BsAntNum; ant++ {
		ev := message.NewEvent(message.KindPacketTX,
			message.TagFrmSymAnt(frame, symbol, uint32(ant)))
		s.fab.EnqueueTx(&ev)
	}
}

// scheduleSubcarriers emits blocked subcarrier tasks (beam, demul,
// precode), one single-tag event per block, base striding by the block
// size.
func (s *Scheduler) scheduleSubcarriers(kind message.EventKind, frame, symbol uint32) {
	var numEvents, block int
	var base message.Tag
	switch kind {
	case message.KindDemul, message.KindPrecode:
		numEvents = s.cfg.DemulEventsPerSymbol()
		block = s.cfg.DemulBlockSize
		base = message.TagFrmSymSc(frame, symbol, 0)
	case message.KindBeam:
		numEvents = s.cfg.BeamEventsPerSymbol()
		block = s.cfg.BeamBlockSize
		base = message.TagFrmSc(frame, 0)
	default:
		panic("sched: invalid kind in scheduleSubcarriers")
	}
	qid := frame & 1
	for i := 0; i < numEvents; i++ {
		ev := message.NewEvent(kind, base.WithInner(uint32(i*block)))
		s.fab.EnqueueTask(kind, qid, &ev)
	}
}

// scheduleCodeblocks emits batched encode/decode tasks:
// encode_block_size code-block tags per event, remainder last.
func (s *Scheduler) scheduleCodeblocks(kind message.EventKind, dl bool, frame, symbol uint32) {
	total := s.cfg.CodeBlockTasks(dl)
	block := s.cfg.EncodeBlockSize
	qid := frame & 1
	var ev message.Event
	ev.Kind = kind
	cb := 0
	for cb < total {
		n := block
		if rem := total - cb; rem < n {
			n = rem
		}
		ev.NumTags = uint8(n)
		for j := 0; j < n; j++ {
			ev.Tags[j] = message.TagFrmSymCb(frame, symbol, uint32(cb+j))
		}
		s.fab.EnqueueTask(kind, qid, &ev)
		cb += n
	}
}

// scheduleUsers hands one decoded symbol per UE to MAC.
func (s *Scheduler) scheduleUsers(frame, symbol uint32) {
	for ue := 0; ue < s.cfg.UeAntNum; ue++ {
		ev := message.NewEvent(message.KindPacketToMac,
			message.TagFrmSymUe(frame, symbol, uint32(ue)))
		s.macQ.Req.PushWait(&ev)
	}
}

// scheduleDownlink starts a frame's downlink: control-symbol generation,
// then encode for every data symbol.
func (s *Scheduler) scheduleDownlink(frame uint32) {
	if s.cfg.Frame.NumDlControlSyms() > 0 {
		ev := message.NewEvent(message.KindBroadcast, message.TagFrmSym(frame, 0))
		s.fab.EnqueueTask(message.KindBroadcast, frame&1, &ev)
	}
	for i := 0; i < s.cfg.Frame.NumDLSyms(); i++ {
		s.scheduleCodeblocks(message.KindEncode, true, frame, s.cfg.Frame.GetDLSymbol(i))
	}
}

// ─────────────────────────────── FFT batching ──────────────────────────────

// tryScheduleFft batches queued RX tags of the scheduling frame into
// fft_block_size events. The tail flushes as soon as the frame's last
// packet is queued, so a block size that does not divide the packet count
// still schedules everything.
func (s *Scheduler) tryScheduleFft() {
	frame := s.tracker.CurSche()
	slot := frame % constants.FrameWnd
	queued := len(s.fftQ[slot]) - s.fftHead[slot]
	if queued == 0 {
		return
	}
	block := s.cfg.FftBlockSize
	flushAll := s.fftCreated+uint32(queued) == s.rxC.PktsPerFrame

	for queued >= block || (flushAll && queued > 0) {
		n := block
		if queued < n {
			n = queued
		}
		var ev message.Event
		ev.Kind = message.KindFFT
		ev.NumTags = uint8(n)
		for j := 0; j < n; j++ {
			if s.fftCreated == 0 {
				s.st.MasterSetTs(stats.TsProcessingStarted, frame)
				debug.FrameDone("processing start", frame)
			}
			ev.Tags[j] = s.fftQ[slot][s.fftHead[slot]]
			s.fftHead[slot]++
			s.fftCreated++
		}
		s.fab.EnqueueTask(message.KindFFT, frame&1, &ev)
		queued -= n
	}

	if s.fftCreated == s.rxC.PktsPerFrame {
		s.fftCreated = 0
	}
	if s.fftHead[slot] == len(s.fftQ[slot]) {
		s.fftQ[slot] = s.fftQ[slot][:0]
		s.fftHead[slot] = 0
	}
}

// ─────────────────────────────── Frame window ──────────────────────────────

// checkIncrementScheduleFrame accumulates direction flags; when both
// directions finished scheduling, the scheduling cursor advances and the
// zero-symbol directions pre-assert for the next frame.
func (s *Scheduler) checkIncrementScheduleFrame(flag uint8) {
	s.scheduleFlags |= flag
	if s.scheduleFlags != counter.ScheduleComplete {
		return
	}
	s.tracker.AdvanceSche()
	s.scheduleFlags = counter.ScheduleNone
	if s.cfg.Frame.NumULSyms() == 0 {
		s.scheduleFlags |= counter.ScheduleUplinkDone
	}
	if s.cfg.Frame.NumDLSyms() == 0 {
		s.scheduleFlags |= counter.ScheduleDownlink
	}
}

// checkFrameComplete is the retirement predicate: all terminal stages of
// every active branch closed. Only the oldest live frame may retire —
// a younger frame finishing first (or a re-invocation on an already
// retired frame) is a no-op, and retirement cascades to successors whose
// terminal stages closed while they waited.
func (s *Scheduler) checkFrameComplete(frame uint32) {
	if frame != s.tracker.CurProc() {
		return
	}
	if !s.ifft.IsLastSymbol(frame) || !s.tx.IsLastSymbol(frame) {
		return
	}
	ulDone := false
	switch {
	case s.cfg.Frame.NumULSyms() == 0:
		ulDone = s.decode.IsLastSymbol(frame) // vacuously true, zero limit
	case s.cfg.HardDemod:
		ulDone = s.demul.IsLastSymbol(frame)
	case s.cfg.EnableMac:
		ulDone = s.tomac.IsLastSymbol(frame)
	default:
		ulDone = s.decode.IsLastSymbol(frame)
	}
	if !ulDone {
		return
	}

	// Retire.
	if s.cfg.HardDemod {
		s.demul.Reset(frame)
	}
	s.decode.Reset(frame)
	s.tomac.Reset(frame)
	s.ifft.Reset(frame)
	s.tx.Reset(frame)
	s.pool.ClearDlBitsStatus(frame)
	s.gd.ResetSlot(frame)
	s.st.RetireFrame(frame)
	debug.FrameDone("frame", frame)
	s.tracker.AdvanceProc()

	if frame == uint32(s.cfg.FramesToTest-1) {
		s.finish = true
		return
	}
	s.releaseDeferred()
	s.checkFrameComplete(s.tracker.CurProc())
}

// ─────────────────────────────── Deferral ──────────────────────────────────

// deferOrScheduleDownlink postpones a frame's downlink when the window is
// saturated or earlier frames already wait; FIFO order is preserved.
func (s *Scheduler) deferOrScheduleDownlink(frame uint32) {
	if s.deferLen > 0 || frame >= s.tracker.CurProc()+constants.ScheduleQueues {
		if debug.PrintDeferral {
			debug.DropMessage("DEFER", "postponing downlink of frame "+utils.Utoa(uint64(frame)))
		}
		s.pushDeferral(frame)
		return
	}
	s.scheduleDownlink(frame)
}

func (s *Scheduler) pushDeferral(frame uint32) {
	if s.deferLen == constants.DeferralCap {
		// Clamp at capacity. Repeated clamps mean a frame is wedged.
		s.deferralClamp++
		if s.deferralClamp >= constants.DeferralFatalThreshold {
			control.Fatal(control.ExitFatalStall,
				"deferral queue clamped "+utils.Itoa(s.deferralClamp)+
					" times: pipeline wedged")
		}
		return
	}
	s.deferral[(s.deferHead+s.deferLen)%constants.DeferralCap] = frame
	s.deferLen++
}

// releaseDeferred launches up to ScheduleQueues deferred frames, oldest
// first, that now fit the horizon.
func (s *Scheduler) releaseDeferred() {
	for i := 0; i < constants.ScheduleQueues && s.deferLen > 0; i++ {
		frame := s.deferral[s.deferHead]
		if frame >= s.tracker.CurProc()+constants.ScheduleQueues {
			break // the rest are newer still
		}
		if debug.PrintDeferral {
			debug.DropMessage("DEFER", "releasing downlink of frame "+utils.Utoa(uint64(frame)))
		}
		s.deferHead = (s.deferHead + 1) % constants.DeferralCap
		s.deferLen--
		s.deferralClamp = 0
		s.scheduleDownlink(frame)
	}
}

// deferredLen is exposed for the test suite.
func (s *Scheduler) deferredLen() int { return s.deferLen }
