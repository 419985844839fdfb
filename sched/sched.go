// sched.go — the master thread.
//
// Single-threaded event loop alternating strictly between the streamer
// lanes and the worker completion lanes. Handlers never block and never
// compute: they update counters and emit events. The master owns the
// frame window (cur_sche / cur_proc cursors), the per-slot FFT batching
// queues, and the downlink deferral FIFO.

package sched

import (
	"main/buffer"
	"main/config"
	"main/constants"
	"main/control"
	"main/counter"
	"main/dedupe"
	"main/fabric"
	"main/mac"
	"main/message"
	"main/stats"
	"main/worker"
)

// Scheduler is the master's whole state. Everything in here is touched by
// the master thread only; cross-thread traffic rides the fabric and the
// tracker's atomics.
type Scheduler struct {
	cfg  *config.Config
	pool *buffer.Pool
	fab  *fabric.Fabric
	wrk  *worker.Pool
	st   *stats.Stats
	gd   *dedupe.Guard
	macQ *mac.Queues // nil when MAC is disabled

	tracker counter.Tracker

	// Per-stage counter grids.
	pilotFft  counter.FrameCounters
	uplinkFft counter.FrameCounters
	rc        counter.FrameCounters
	beam      counter.FrameCounters
	demul     counter.FrameCounters
	decode    counter.FrameCounters
	tomac     counter.FrameCounters
	macToPhy  counter.FrameCounters
	encode    counter.FrameCounters
	precode   counter.FrameCounters
	ifft      counter.FrameCounters
	tx        counter.FrameCounters
	rxC       counter.RxCounters

	// FFT batching: per-slot FIFO of RX tags awaiting an FFT block.
	fftQ       [constants.FrameWnd][]message.Tag
	fftHead    [constants.FrameWnd]int
	fftCreated uint32

	// Scheduling-direction flags for the cur_sche cursor.
	scheduleFlags uint8

	// Cross-stage latches (frame ids; -1 = never).
	fftCurFrameForSymbol    []int64 // per UL ordinal: last frame with FFT closed
	encodeCurFrameForSymbol []int64 // per DL ordinal: last frame fully encoded
	ifftCurFrameForSymbol   []int64 // per DL ordinal: last frame with IFFT closed
	ifftNextSymbol          int
	beamLastFrame           int64
	rcLastFrame             int64

	// Downlink deferral FIFO.
	deferral      [constants.DeferralCap]uint32
	deferHead     int
	deferLen      int
	deferralClamp int

	// TX ordinal per symbol id (control + data downlink symbols).
	txIdx []int

	// Runtime MCS index as last announced by MAC (RANUpdate). Kept off the
	// immutable Config; informational until MCS switching reaches the
	// doers.
	ulMcsIndex uint32

	finish bool
}

// New wires a scheduler over the shared state. The worker pool is built
// here so it shares the tracker.
func New(cfg *config.Config, pool *buffer.Pool, fab *fabric.Fabric,
	st *stats.Stats, macQ *mac.Queues) *Scheduler {
	s := &Scheduler{
		cfg:  cfg,
		pool: pool,
		fab:  fab,
		st:   st,
		gd:   dedupe.New(cfg.RxPacketsPerFrame()),
		macQ: macQ,
	}
	s.wrk = worker.NewPool(cfg, pool, fab, &s.tracker)
	s.initCounters()
	s.initLatches()
	// Pre-assert the direction flags for whichever direction has zero
	// symbols; the cursor then advances on the live direction alone.
	if cfg.Frame.NumULSyms() == 0 {
		s.scheduleFlags |= counter.ScheduleUplinkDone
	}
	if cfg.Frame.NumDLSyms() == 0 {
		s.scheduleFlags |= counter.ScheduleDownlink
	}
	return s
}

func (s *Scheduler) initCounters() {
	f := &s.cfg.Frame
	s.pilotFft.Init("fft_pilot", f.NumPilotSyms(), s.cfg.BsAntNum)
	s.uplinkFft.Init("fft_data", f.NumULSyms(), s.cfg.BsAntNum)
	s.rc.InitSingle("fft_cal", s.cfg.CalPacketsPerFrame())
	s.beam.InitSingle("beam", s.cfg.BeamEventsPerSymbol())
	s.demul.Init("demul", f.NumULSyms(), s.cfg.DemulEventsPerSymbol())
	s.decode.Init("decode", f.NumULSyms(), s.cfg.CodeBlockTasks(false))
	s.tomac.Init("to_mac", f.NumULSyms(), s.cfg.UeAntNum)
	s.macToPhy.InitSingle("from_mac", s.cfg.UeAntNum)
	s.encode.Init("encode", f.NumDLSyms(), s.cfg.CodeBlockTasks(true))
	s.precode.Init("precode", f.NumDLSyms(), s.cfg.DemulEventsPerSymbol())
	s.ifft.Init("ifft", f.NumDLSyms(), s.cfg.BsAntNum)
	s.tx.Init("tx", f.NumDlControlSyms()+f.NumDLSyms(), s.cfg.BsAntNum)
	s.rxC.Init(s.cfg.RxPacketsPerFrame(), s.cfg.PilotPacketsPerFrame(), s.cfg.CalPacketsPerFrame())
}

func (s *Scheduler) initLatches() {
	f := &s.cfg.Frame
	s.fftCurFrameForSymbol = makeLatch(f.NumULSyms())
	s.encodeCurFrameForSymbol = makeLatch(f.NumDLSyms())
	s.ifftCurFrameForSymbol = makeLatch(f.NumDLSyms())
	s.beamLastFrame = -1
	s.rcLastFrame = -1

	s.txIdx = make([]int, f.NumTotalSyms())
	next := 0
	for sym := 0; sym < f.NumTotalSyms(); sym++ {
		switch f.Type(uint32(sym)) {
		case config.SymbolDL, config.SymbolDLControl:
			s.txIdx[sym] = next
			next++
		default:
			s.txIdx[sym] = -1
		}
	}
}

func makeLatch(n int) []int64 {
	l := make([]int64, n)
	for i := range l {
		l[i] = -1
	}
	return l
}

// Tracker exposes the window cursors (streamers pace against cur_proc).
func (s *Scheduler) Tracker() *counter.Tracker { return &s.tracker }

// Workers exposes the pool for lifecycle management by main.
func (s *Scheduler) Workers() *worker.Pool { return s.wrk }

// Run is the master loop. It returns when frames_to_test frames have
// retired or the stop flag fell.
func (s *Scheduler) Run() {
	s.wrk.Start()

	maxEvents := constants.DequeueBulkSizeTXRX * (s.cfg.SocketThreadNum + 1)
	if w := constants.DequeueBulkSizeWorker * s.cfg.WorkerThreadNum; w > maxEvents {
		maxEvents = w
	}
	events := make([]message.Event, maxEvents)

	ioTurn := true
	for control.Running() && !s.finish {
		var n int
		if ioTurn {
			n = s.fetchStreamerEvents(events)
		} else {
			n = s.fab.DequeueCompBulk(s.tracker.CurProc()&1, events)
		}
		ioTurn = !ioTurn

		for i := 0; i < n; i++ {
			s.HandleEvent(&events[i])
			if s.finish {
				break
			}
			if s.cfg.SingleThread {
				s.wrk.RunInline()
			}
		}
		if n == 0 && s.cfg.SingleThread {
			s.wrk.RunInline()
		}
	}
}

// fetchStreamerEvents drains the streamer lanes and, when MAC is on, the
// MAC response lane.
func (s *Scheduler) fetchStreamerEvents(out []message.Event) int {
	n := s.fab.DequeueRxBulk(out)
	if s.macQ != nil && n < len(out) {
		n += s.macQ.Resp.PopBulk(out[n:])
	}
	return n
}

// Finished reports whether the run completed its configured frame count.
func (s *Scheduler) Finished() bool { return s.finish }

// Guard exposes the duplicate-suspicion counter for the shutdown report.
func (s *Scheduler) Guard() *dedupe.Guard { return s.gd }
