// sim.go — in-process radio simulator.
//
// Plays the data-generator role: synthesizes RX packets for
// frames_to_test frames straight into the RX socket buffers and swallows
// TX orders after reading the transmit buffers like a radio would. Each
// simulated socket thread owns the antennas with ant % threads == tid and
// paces frame emission to the processing window, the way real arrival
// rate is paced by the air interface.

package streamer

import (
	"sync"
	"sync/atomic"

	"main/affinity"
	"main/buffer"
	"main/config"
	"main/constants"
	"main/control"
	"main/counter"
	"main/fabric"
	"main/message"
	"main/ring"
)

// Sim is the simulated TxRx.
type Sim struct {
	cfg     *config.Config
	pool    *buffer.Pool
	fab     *fabric.Fabric
	tracker *counter.Tracker

	txCount atomic.Uint64
	stopped atomic.Bool
	wg      sync.WaitGroup
}

func NewSim(cfg *config.Config, pool *buffer.Pool, fab *fabric.Fabric, tr *counter.Tracker) *Sim {
	return &Sim{cfg: cfg, pool: pool, fab: fab, tracker: tr}
}

// StartTxRx launches one thread per configured socket thread.
func (s *Sim) StartTxRx() bool {
	for tid := 0; tid < s.cfg.SocketThreadNum; tid++ {
		s.wg.Add(1)
		go func(tid int) {
			defer s.wg.Done()
			affinity.PinThread(affinity.RoleStreamer, s.cfg.CoreOffset,
				s.cfg.SocketThreadNum, s.cfg.WorkerThreadNum, tid)
			s.runThread(tid)
		}(tid)
	}
	return true
}

func (s *Sim) Stop() { s.stopped.Store(true) }

func (s *Sim) Join() { s.wg.Wait() }

// TxPackets reports how many transmit orders were consumed.
func (s *Sim) TxPackets() uint64 { return s.txCount.Load() }

func (s *Sim) runThread(tid int) {
	frame := uint32(0)
	for s.running() {
		if frame < uint32(s.cfg.FramesToTest) {
			// Pace to the window: never put a frame on the air while its
			// slot's predecessor is still live.
			if frame < s.tracker.CurProc()+constants.FrameWnd {
				s.emitFrame(tid, frame)
				frame++
				control.SignalActivity()
			}
		}
		s.drainTx(tid)
		if frame >= uint32(s.cfg.FramesToTest) {
			ring.CPURelax()
		}
	}
}

func (s *Sim) running() bool { return control.Running() && !s.stopped.Load() }

// emitFrame synthesizes every RX packet this thread owns for one frame,
// in schedule order.
func (s *Sim) emitFrame(tid int, frame uint32) {
	for sym := 0; sym < s.cfg.Frame.NumTotalSyms(); sym++ {
		symbol := uint32(sym)
		switch s.cfg.Frame.Type(symbol) {
		case config.SymbolPilot, config.SymbolUL, config.SymbolCalUL:
		default:
			continue
		}
		for ant := tid; ant < s.cfg.BsAntNum; ant += s.cfg.SocketThreadNum {
			if !s.running() {
				return
			}
			s.synthesize(frame, symbol, uint32(ant))
			ev := message.NewEvent(message.KindPacketRX,
				message.TagFrmSymAnt(frame, symbol, uint32(ant)))
			s.fab.EnqueueRx(tid, &ev)
		}
		s.drainTx(tid)
	}
}

// synthesize writes a deterministic I/Q ramp keyed by (frame, symbol,
// ant) into the RX socket buffer.
func (s *Sim) synthesize(frame, symbol, ant uint32) {
	iq := s.pool.RxIQ(frame, symbol, ant)
	seed := int(frame*31 + symbol*7 + ant*3)
	for i := range iq {
		iq[i] = int16((seed + i) % 1024)
	}
}

// drainTx consumes pending transmit orders: read the wire packet the way
// a radio DMA would, then report the antenna transmitted.
func (s *Sim) drainTx(tid int) {
	var ev message.Event
	for i := 0; i < constants.DequeueBulkSizeTXRX; i++ {
		if !s.fab.DequeueTx(&ev) {
			return
		}
		tag := ev.Tags[0]
		pkt := message.PacketView(s.pool.DlSocket(tag.Frame(), tag.Symbol(), tag.Ant()))
		_ = pkt.FrameID() // touch the buffer: the "transmission"
		s.txCount.Add(1)

		done := message.NewEvent(message.KindPacketTX, tag)
		s.fab.EnqueueRx(tid, &done)
	}
}
