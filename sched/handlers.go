// handlers.go — per-event-kind state transitions.
//
// Each handler only moves counters and emits follow-on events; the
// dependency table lives in the chain of "on closure, schedule X" steps
// below. After every handled event the master tries to batch queued RX
// tags into FFT tasks.

package sched

import (
	"math"

	"main/config"
	"main/constants"
	"main/control"
	"main/counter"
	"main/debug"
	"main/message"
	"main/stats"
	"main/utils"
)

// HandleEvent dispatches one event. Unknown kinds are a programming
// error: abort.
func (s *Scheduler) HandleEvent(ev *message.Event) {
	switch ev.Kind {
	case message.KindPacketRX:
		s.handlePacketRX(ev.Tags[0])
	case message.KindFFT:
		for _, tag := range ev.TagSlice() {
			s.handleFft(tag)
		}
	case message.KindBeam:
		for _, tag := range ev.TagSlice() {
			s.handleBeam(tag)
		}
	case message.KindDemul:
		s.handleDemul(ev.Tags[0])
	case message.KindDecode:
		for _, tag := range ev.TagSlice() {
			s.handleDecode(tag)
		}
	case message.KindPacketToMac:
		s.handleToMacAck(ev.Tags[0])
	case message.KindPacketFromMac:
		s.handleFromMac(ev.Tags[0])
	case message.KindRANUpdate:
		s.handleRanUpdate(ev)
	case message.KindEncode:
		for _, tag := range ev.TagSlice() {
			s.handleEncode(tag)
		}
	case message.KindPrecode:
		s.handlePrecode(ev.Tags[0])
	case message.KindIFFT:
		for _, tag := range ev.TagSlice() {
			s.handleIfft(tag)
		}
	case message.KindBroadcast:
		s.handleBroadcast(ev.Tags[0])
	case message.KindPacketTX:
		s.handleTx(ev.Tags[0])
	default:
		panic("sched: unknown event kind " + utils.Itoa(int(ev.Kind)))
	}

	// Batch whatever RX accumulated for the scheduling frame.
	s.tryScheduleFft()
}

// ─────────────────────────────── RX path ───────────────────────────────────

func (s *Scheduler) handlePacketRX(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()

	if frame >= s.tracker.CurSche()+constants.FrameWnd {
		control.Fatal(control.ExitFatalStall,
			"received packet for future frame "+utils.Utoa(uint64(frame))+
				" beyond the frame window (sche "+utils.Utoa(uint64(s.tracker.CurSche()))+
				" + "+utils.Itoa(constants.FrameWnd)+"): pipeline cannot keep up")
		return
	}

	if s.gd.Observe(tag) {
		debug.DropMessage("RX", "suspected duplicate packet, frame "+utils.Utoa(uint64(frame)))
	}
	s.updateRxCounters(frame, symbol)

	slot := frame % constants.FrameWnd
	s.fftQ[slot] = append(s.fftQ[slot], tag)
}

func (s *Scheduler) updateRxCounters(frame, symbol uint32) {
	switch s.cfg.Frame.Type(symbol) {
	case config.SymbolPilot:
		if s.rxC.AddPilotPacket(frame) {
			s.st.MasterSetTs(stats.TsPilotAllRX, frame)
			debug.FrameDone("pilot rx", frame)
		}
	case config.SymbolCalUL:
		if s.rxC.AddCalPacket(frame) {
			s.st.MasterSetTs(stats.TsRcAllRX, frame)
		}
	}

	if s.rxC.FirstPacket(frame) {
		// First packet of the frame: start downlink now when MAC is off
		// (payloads are staged from configuration).
		if !s.cfg.EnableMac && s.cfg.Frame.NumDLSyms() > 0 {
			s.deferOrScheduleDownlink(frame)
		}
		s.st.MasterSetTs(stats.TsFirstSymbolRX, frame)
	}
	if s.rxC.AddPacket(frame) {
		s.st.MasterSetTs(stats.TsRXDone, frame)
		debug.FrameDone("rx", frame)
	}
}

// ─────────────────────────────── FFT path ──────────────────────────────────

func (s *Scheduler) handleFft(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()

	switch s.cfg.Frame.Type(symbol) {
	case config.SymbolPilot:
		idx := s.cfg.Frame.GetPilotSymbolIdx(symbol)
		if s.pilotFft.CompleteTask(frame, idx) {
			if s.pilotFft.CompleteSymbol(frame) {
				s.st.MasterSetTs(stats.TsFFTPilotsDone, frame)
				debug.FrameDone("fft pilots", frame)
				s.maybeScheduleBeam(frame)
			}
		}

	case config.SymbolUL:
		idx := s.cfg.Frame.GetULSymbolIdx(symbol)
		if s.uplinkFft.CompleteTask(frame, idx) {
			s.fftCurFrameForSymbol[idx] = int64(frame)
			// If the beam for this frame exists, demodulation can start.
			if s.beamLastFrame == int64(frame) {
				s.scheduleSubcarriers(message.KindDemul, frame, symbol)
			}
			if s.uplinkFft.CompleteSymbol(frame) {
				s.uplinkFft.Reset(frame)
			}
		}

	case config.SymbolCalUL:
		if s.rc.CompleteTask(frame, 0) {
			s.rc.CompleteSymbol(frame)
			s.rc.Reset(frame)
			s.st.MasterSetTs(stats.TsRcDone, frame)
			s.rcLastFrame = int64(frame)
			// Pilots may have closed while calibration was in flight.
			if s.pilotFft.IsLastSymbol(frame) {
				s.maybeScheduleBeam(frame)
			}
		}

	default:
		panic("sched: FFT completion for non-receivable symbol " + utils.Utoa(uint64(symbol)))
	}
}

// maybeScheduleBeam releases beam-weight computation once both the pilots
// and (when the schedule carries them) the calibration symbols closed.
func (s *Scheduler) maybeScheduleBeam(frame uint32) {
	if s.cfg.Frame.NumCalSyms() > 0 && s.rcLastFrame != int64(frame) {
		return
	}
	s.pilotFft.Reset(frame)
	if s.cfg.EnableMac {
		s.sendSnrReports(frame)
	}
	s.scheduleSubcarriers(message.KindBeam, frame, 0)
}

// ─────────────────────────────── Beam path ─────────────────────────────────

func (s *Scheduler) handleBeam(tag message.Tag) {
	frame := tag.Frame()
	if !s.beam.CompleteTask(frame, 0) {
		return
	}
	s.st.MasterSetTs(stats.TsBeamDone, frame)
	debug.FrameDone("beam", frame)
	s.beamLastFrame = int64(frame)
	s.beam.CompleteSymbol(frame)
	s.beam.Reset(frame)

	// Uplink symbols whose FFT already closed can demodulate now.
	for i := 0; i < s.cfg.Frame.NumULSyms(); i++ {
		if s.fftCurFrameForSymbol[i] == int64(frame) {
			s.scheduleSubcarriers(message.KindDemul, frame, s.cfg.Frame.GetULSymbol(i))
		}
	}
	// Downlink symbols already encoded can precode now.
	for i := 0; i < s.cfg.Frame.NumDLSyms(); i++ {
		if last := s.encodeCurFrameForSymbol[i]; last != -1 && last >= int64(frame) {
			s.scheduleSubcarriers(message.KindPrecode, frame, s.cfg.Frame.GetDLSymbol(i))
		}
	}
}

// ────────────────────────────── Uplink chain ───────────────────────────────

func (s *Scheduler) handleDemul(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetULSymbolIdx(symbol)

	if !s.demul.CompleteTask(frame, idx) {
		return
	}
	if !s.cfg.HardDemod {
		s.scheduleCodeblocks(message.KindDecode, false, frame, symbol)
	}
	if !s.demul.CompleteSymbol(frame) {
		return
	}
	s.st.MasterSetTs(stats.TsDemulDone, frame)
	debug.FrameDone("demul", frame)

	if s.cfg.HardDemod {
		// Decode is skipped entirely; demul is the uplink terminal stage.
		s.checkIncrementScheduleFrame(counter.ScheduleUplinkDone)
		s.checkFrameComplete(frame)
		return
	}
	s.demul.Reset(frame)
	s.checkIncrementScheduleFrame(counter.ScheduleUplinkDone)
}

func (s *Scheduler) handleDecode(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetULSymbolIdx(symbol)

	if !s.decode.CompleteTask(frame, idx) {
		return
	}
	if s.cfg.EnableMac {
		s.scheduleUsers(frame, symbol)
	}
	if !s.decode.CompleteSymbol(frame) {
		return
	}
	s.st.MasterSetTs(stats.TsDecodeDone, frame)
	debug.FrameDone("decode", frame)
	if !s.cfg.EnableMac {
		s.checkFrameComplete(frame)
	}
}

func (s *Scheduler) handleToMacAck(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetULSymbolIdx(symbol)

	if !s.tomac.CompleteTask(frame, idx) {
		return
	}
	if !s.tomac.CompleteSymbol(frame) {
		return
	}
	debug.FrameDone("to_mac", frame)
	s.checkFrameComplete(frame)
}

// ────────────────────────────── MAC ingress ────────────────────────────────

func (s *Scheduler) handleFromMac(tag message.Tag) {
	frame := tag.Frame()
	if !s.macToPhy.CompleteTask(frame, 0) {
		return
	}
	s.macToPhy.CompleteSymbol(frame)
	s.macToPhy.Reset(frame)
	debug.FrameDone("from_mac", frame)
	s.deferOrScheduleDownlink(frame)
}

func (s *Scheduler) handleRanUpdate(ev *message.Event) {
	idx := uint32(uint64(ev.Tags[1]))
	s.ulMcsIndex = idx
	debug.DropMessage("RAN", "uplink MCS index now "+utils.Utoa(uint64(idx)))
}

// ────────────────────────────── Downlink chain ─────────────────────────────

func (s *Scheduler) handleEncode(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetDLSymbolIdx(symbol)

	if !s.encode.CompleteTask(frame, idx) {
		return
	}
	s.encodeCurFrameForSymbol[idx] = int64(frame)
	// If this frame's beam exists, the symbol can precode immediately.
	if s.beamLastFrame == int64(frame) {
		s.scheduleSubcarriers(message.KindPrecode, frame, symbol)
	}
	if s.encode.CompleteSymbol(frame) {
		s.encode.Reset(frame)
		s.st.MasterSetTs(stats.TsEncodeDone, frame)
		debug.FrameDone("encode", frame)
	}
}

func (s *Scheduler) handlePrecode(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetDLSymbolIdx(symbol)

	if !s.precode.CompleteTask(frame, idx) {
		return
	}
	s.scheduleAntennas(message.KindIFFT, frame, symbol)
	if s.precode.CompleteSymbol(frame) {
		s.precode.Reset(frame)
		s.st.MasterSetTs(stats.TsPrecodeDone, frame)
		debug.FrameDone("precode", frame)
	}
}

func (s *Scheduler) handleIfft(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.cfg.Frame.GetDLSymbolIdx(symbol)

	if !s.ifft.CompleteTask(frame, idx) {
		return
	}
	s.ifftCurFrameForSymbol[idx] = int64(frame)
	// Transmission is released in symbol order: walk forward from the
	// next expected symbol over the contiguously available ones.
	if idx == s.ifftNextSymbol {
		for symIdx := idx; symIdx <= int(s.ifft.SymbolCount(frame)) &&
			symIdx < s.cfg.Frame.NumDLSyms(); symIdx++ {
			if s.ifftCurFrameForSymbol[symIdx] != int64(frame) {
				break
			}
			s.scheduleAntennasTX(frame, s.cfg.Frame.GetDLSymbol(symIdx))
			s.ifftNextSymbol++
		}
	}
	if s.ifft.CompleteSymbol(frame) {
		s.ifftNextSymbol = 0
		s.st.MasterSetTs(stats.TsIFFTDone, frame)
		debug.FrameDone("ifft", frame)
		s.checkIncrementScheduleFrame(counter.ScheduleDownlink)
		s.checkFrameComplete(frame)
	}
}

func (s *Scheduler) handleBroadcast(tag message.Tag) {
	frame := tag.Frame()
	s.st.MasterSetTs(stats.TsBroadcastDone, frame)
	for i := 0; i < s.cfg.Frame.NumDlControlSyms(); i++ {
		s.scheduleAntennasTX(frame, s.cfg.Frame.GetDLControlSymbol(i))
	}
	debug.FrameDone("broadcast", frame)
}

func (s *Scheduler) handleTx(tag message.Tag) {
	frame, symbol := tag.Frame(), tag.Symbol()
	idx := s.txIdx[symbol]

	if !s.tx.CompleteTask(frame, idx) {
		return
	}
	if s.cfg.Frame.NumDLSyms() > 0 && symbol == s.cfg.Frame.GetDLSymbol(0) {
		s.st.MasterSetTs(stats.TsTXProcessedFirst, frame)
		debug.FrameDone("tx first", frame)
	}
	if s.tx.CompleteSymbol(frame) {
		s.st.MasterSetTs(stats.TsTXDone, frame)
		debug.FrameDone("tx", frame)
		s.checkFrameComplete(frame)
	}
}

// ─────────────────────────────── MAC egress ────────────────────────────────

// sendSnrReports pushes one SNR report per UE after pilot closure.
func (s *Scheduler) sendSnrReports(frame uint32) {
	for ue := 0; ue < s.cfg.UeAntNum; ue++ {
		snr := s.estimateSnr(frame, uint32(ue))
		ev := message.Event{Kind: message.KindSNRReport, NumTags: 2}
		ev.Tags[0] = message.TagFrmSymUe(frame, 0, uint32(ue))
		ev.Tags[1] = message.Tag(math.Float32bits(snr))
		s.macQ.Req.PushWait(&ev)
	}
}

// estimateSnr derives a coarse per-UE SNR from the CSI magnitudes.
func (s *Scheduler) estimateSnr(frame, ue uint32) float32 {
	csi := s.pool.Csi(frame, ue)
	var p float64
	for _, v := range csi[:s.cfg.OfdmDataNum] {
		p += float64(real(v)*real(v) + imag(v)*imag(v))
	}
	if p == 0 {
		return 0
	}
	return float32(10 * math.Log10(p/float64(s.cfg.OfdmDataNum)*1e4))
}
