// mac.go — the MAC-side event loop.
//
// The core and MAC exchange events over two SPSC lanes: the request lane
// carries decoded-payload hand-offs (PacketToMac) and SNR reports from
// the master; the response lane carries downlink payload announcements
// (PacketFromMac) and MCS updates (RANUpdate) back. This reference MAC
// acks every uplink hand-off, stages downlink payloads as soon as a
// frame's staging slot frees up, and re-evaluates the uplink MCS from the
// reported SNR.

package mac

import (
	"math"

	"main/affinity"
	"main/buffer"
	"main/config"
	"main/control"
	"main/message"
	"main/ring"
	"main/utils"
)

// laneSize bounds both MAC lanes; a power of two well above one frame's
// hand-offs.
const laneSize = 1 << 12

// Queues is the pair the core sees. Request: core → MAC. Response:
// MAC → core.
type Queues struct {
	Req  *ring.Ring
	Resp *ring.Ring
}

// Thread is the MAC loop state.
type Thread struct {
	cfg  *config.Config
	pool *buffer.Pool
	q    Queues

	nextDl   uint32
	lastSnr  float32
	mcsIndex uint32
	done     chan struct{}
}

// New builds the MAC thread and its queue pair.
func New(cfg *config.Config, pool *buffer.Pool) *Thread {
	return &Thread{
		cfg:  cfg,
		pool: pool,
		q:    Queues{Req: ring.New(laneSize), Resp: ring.New(laneSize)},
		done: make(chan struct{}),
	}
}

// Q returns the queue pair for wiring into the scheduler.
func (t *Thread) Q() *Queues { return &t.q }

// Start runs the event loop on its own pinned thread.
func (t *Thread) Start() {
	go func() {
		defer close(t.done)
		affinity.PinThread(affinity.RoleMac, t.cfg.CoreOffset,
			t.cfg.SocketThreadNum, t.cfg.WorkerThreadNum, 0)
		t.run()
	}()
}

// Join blocks until the loop observed the stop flag.
func (t *Thread) Join() { <-t.done }

func (t *Thread) run() {
	var ev message.Event
	for control.Running() {
		worked := false
		for t.q.Req.Pop(&ev) {
			worked = true
			switch ev.Kind {
			case message.KindPacketToMac:
				t.handleToMac(&ev)
			case message.KindSNRReport:
				t.handleSnr(&ev)
			default:
				panic("mac: unexpected request kind " + ev.Kind.String())
			}
		}
		if t.stageDownlink() {
			worked = true
		}
		if !worked {
			ring.CPURelax()
		}
	}
}

// handleToMac consumes one UE's decoded symbol and acks it so the master
// can close its hand-off counters.
func (t *Thread) handleToMac(ev *message.Event) {
	tag := ev.Tags[0]
	ulIdx := t.cfg.Frame.GetULSymbolIdx(tag.Symbol())
	payload := t.pool.Decoded(tag.Frame(), ulIdx, tag.Ue())
	_ = payload[0] // consumed; a real MAC would forward upward here

	ack := *ev
	t.q.Resp.PushWait(&ack)
}

// handleSnr tracks the reported SNR and, on a large swing, emits a
// RANUpdate carrying the re-selected MCS index.
func (t *Thread) handleSnr(ev *message.Event) {
	snr := math.Float32frombits(uint32(uint64(ev.Tags[1])))
	if t.lastSnr != 0 && abs32(snr-t.lastSnr) < 6.0 {
		t.lastSnr = snr
		return
	}
	t.lastSnr = snr
	idx := mcsFromSnr(snr)
	if idx == t.mcsIndex {
		return
	}
	t.mcsIndex = idx
	upd := message.Event{Kind: message.KindRANUpdate, NumTags: 2}
	upd.Tags[0] = message.Tag(ev.Tags[0].Frame())
	upd.Tags[1] = message.Tag(idx)
	t.q.Resp.PushWait(&upd)
}

// stageDownlink fills the next frame's downlink payload as soon as its
// window slot is free, then announces it per UE. Returns whether a frame
// was staged.
func (t *Thread) stageDownlink() bool {
	if t.cfg.Frame.NumDLSyms() == 0 || t.nextDl >= uint32(t.cfg.FramesToTest) {
		return false
	}
	for ue := 0; ue < t.cfg.UeAntNum; ue++ {
		if t.pool.DlBitsReady(t.nextDl, uint32(ue)) {
			return false // slot still owned by an unretired frame
		}
	}
	frame := t.nextDl
	for ue := 0; ue < t.cfg.UeAntNum; ue++ {
		b := t.pool.DlBits(frame, uint32(ue))
		for i := range b {
			b[i] = byte(int(frame) + ue + i)
		}
		t.pool.SetDlBitsReady(frame, uint32(ue))
		ev := message.NewEvent(message.KindPacketFromMac, message.TagFrmSymUe(frame, 0, uint32(ue)))
		t.q.Resp.PushWait(&ev)
	}
	t.nextDl++
	if frame < 3 {
		// First frames only; steady state is silent.
		printStaged(frame)
	}
	return true
}

func printStaged(frame uint32) {
	utils.PrintWarning("MAC: staged downlink frame " + utils.Utoa(uint64(frame)) + "\n")
}

//go:inline
func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// mcsFromSnr is a coarse SNR → MCS table.
func mcsFromSnr(snr float32) uint32 {
	switch {
	case snr > 22:
		return 3 // 256-QAM class
	case snr > 15:
		return 2
	case snr > 8:
		return 1
	default:
		return 0
	}
}
