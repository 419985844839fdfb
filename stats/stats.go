// stats.go — per-frame timestamp matrix.
//
// The master is the only writer on the hot path: MasterSetTs is a couple
// of stores into the live slot of the frame window. Retired frames are
// copied into the retained history, which the summary printer and the
// sqlite reporter read after the event loop exits.

package stats

import (
	"time"

	"main/constants"
	"main/debug"
	"main/utils"
)

// TsType enumerates the master-recorded milestones of one frame.
type TsType int

const (
	TsFirstSymbolRX TsType = iota
	TsPilotAllRX
	TsRcAllRX
	TsRXDone
	TsProcessingStarted
	TsFFTPilotsDone
	TsRcDone
	TsBeamDone
	TsDemulDone
	TsDecodeDone
	TsEncodeDone
	TsPrecodeDone
	TsIFFTDone
	TsBroadcastDone
	TsTXProcessedFirst
	TsTXDone
	TsFrameDone

	NumTs
)

var tsNames = [NumTs]string{
	"first_symbol_rx", "pilot_all_rx", "rc_all_rx", "rx_done",
	"processing_started", "fft_pilots_done", "rc_done", "beam_done",
	"demul_done", "decode_done", "encode_done", "precode_done",
	"ifft_done", "broadcast_done", "tx_first", "tx_done", "frame_done",
}

func (t TsType) String() string { return tsNames[t] }

// FrameRecord is one frame's milestone set, nanoseconds since run start.
type FrameRecord struct {
	Frame uint32
	Ts    [NumTs]int64
}

// maxRetained bounds the history so indefinite runs cannot grow it.
const maxRetained = 1 << 14

// Stats is master-owned; Summary/retained reads happen post-loop.
type Stats struct {
	start  time.Time
	lastNs int64
	live   [constants.FrameWnd]FrameRecord
	done   []FrameRecord
	last   uint32
}

func New() *Stats {
	s := &Stats{start: time.Now()}
	for i := range s.live {
		s.live[i].Frame = ^uint32(0)
	}
	return s
}

// now is strictly monotonic: consecutive milestones never share a stamp
// even on coarse clocks, so "strictly before" orderings hold.
func (s *Stats) now() int64 {
	ns := int64(time.Since(s.start))
	if ns <= s.lastNs {
		ns = s.lastNs + 1
	}
	s.lastNs = ns
	return ns
}

// MasterSetTs stamps a milestone for a live frame. A slot reused by a new
// frame is cleared on its first stamp.
func (s *Stats) MasterSetTs(ts TsType, frame uint32) {
	rec := &s.live[frame%constants.FrameWnd]
	if rec.Frame != frame {
		*rec = FrameRecord{Frame: frame}
	}
	rec.Ts[ts] = s.now()
}

// RetireFrame stamps frame_done and moves the record into history.
func (s *Stats) RetireFrame(frame uint32) {
	s.MasterSetTs(TsFrameDone, frame)
	rec := s.live[frame%constants.FrameWnd]
	if len(s.done) < maxRetained {
		s.done = append(s.done, rec)
	}
	s.last = frame
}

// LastFrame returns the most recently retired frame id.
func (s *Stats) LastFrame() uint32 { return s.last }

// Retained returns the retirement history.
func (s *Stats) Retained() []FrameRecord { return s.done }

// PrintSummary logs frame count and mean RX-to-done latency.
func (s *Stats) PrintSummary() {
	if len(s.done) == 0 {
		debug.DropMessage("STATS", "no frames completed")
		return
	}
	var sumUs int64
	for i := range s.done {
		r := &s.done[i]
		sumUs += (r.Ts[TsFrameDone] - r.Ts[TsFirstSymbolRX]) / 1000
	}
	debug.DropMessage("STATS", utils.Itoa(len(s.done))+" frames, mean latency "+
		utils.Itoa(int(sumUs/int64(len(s.done))))+" us")
}
