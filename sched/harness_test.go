package sched

import (
	"math/rand"
	"testing"

	"main/buffer"
	"main/config"
	"main/control"
	"main/fabric"
	"main/message"
	"main/stats"
)

// harness drives the scheduler deterministically: tests inject streamer
// events straight into HandleEvent and play the role of a perfect worker
// pool, draining task queues and feeding completions back. No goroutines,
// no timing.
type harness struct {
	t    *testing.T
	cfg  *config.Config
	pool *buffer.Pool
	fab  *fabric.Fabric
	st   *stats.Stats
	s    *Scheduler

	// handled records every completion fed back, in order.
	handled []message.Event
	// held stashes task events whose kinds the test wants to stall.
	held map[message.EventKind][]message.Event

	// dependency bookkeeping for the property tests
	fftFed   map[uint64]int // (frame,symbol) → FFT completions fed
	demulFed map[uint64]int
	beamDone map[uint32]bool
}

var pumpKinds = []message.EventKind{
	message.KindFFT, message.KindBeam, message.KindDemul, message.KindDecode,
	message.KindEncode, message.KindPrecode, message.KindIFFT, message.KindBroadcast,
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	control.Reset()

	cfg := config.Default()
	cfg.WorkerThreadNum = 1
	cfg.SocketThreadNum = 1
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	h := &harness{
		t:        t,
		cfg:      cfg,
		pool:     buffer.New(cfg),
		fab:      fabric.New(cfg),
		st:       stats.New(),
		held:     make(map[message.EventKind][]message.Event),
		fftFed:   make(map[uint64]int),
		demulFed: make(map[uint64]int),
		beamDone: make(map[uint32]bool),
	}
	if !cfg.EnableMac && cfg.Frame.NumDLSyms() > 0 {
		h.pool.StageDlPattern()
	}
	h.s = New(cfg, h.pool, h.fab, h.st, nil)
	return h
}

func key(frame, symbol uint32) uint64 { return uint64(frame)<<32 | uint64(symbol) }

// rx injects one PacketRX event.
func (h *harness) rx(frame, symbol, ant uint32) {
	ev := message.NewEvent(message.KindPacketRX, message.TagFrmSymAnt(frame, symbol, ant))
	h.s.HandleEvent(&ev)
}

// rxFrame injects every receivable packet of a frame, schedule order,
// antennas ascending.
func (h *harness) rxFrame(frame uint32) {
	for sym := 0; sym < h.cfg.Frame.NumTotalSyms(); sym++ {
		symbol := uint32(sym)
		switch h.cfg.Frame.Type(symbol) {
		case config.SymbolPilot, config.SymbolUL, config.SymbolCalUL:
		default:
			continue
		}
		for ant := 0; ant < h.cfg.BsAntNum; ant++ {
			h.rx(frame, symbol, uint32(ant))
		}
	}
}

// drainOne pops one task event from any queue, preferring the given
// order. Returns false when everything is empty.
func (h *harness) drainOne(out *message.Event) (message.EventKind, bool) {
	for _, kind := range pumpKinds {
		for qid := uint32(0); qid < 2; qid++ {
			if h.fab.DequeueTask(kind, qid, out) {
				return kind, true
			}
		}
	}
	if h.fab.DequeueTx(out) {
		return message.KindPacketTX, true
	}
	return message.KindInvalid, false
}

// feed completes one task event back into the scheduler, after recording
// dependency bookkeeping.
func (h *harness) feed(kind message.EventKind, ev *message.Event) {
	h.checkDependencies(kind, ev)
	done := *ev
	if kind == message.KindPacketTX {
		done = message.NewEvent(message.KindPacketTX, ev.Tags[0])
	}
	h.handled = append(h.handled, done)
	h.s.HandleEvent(&done)
}

// checkDependencies asserts the dependency graph at the moment a task is
// observed on a queue: no downstream task before upstream closure.
func (h *harness) checkDependencies(kind message.EventKind, ev *message.Event) {
	switch kind {
	case message.KindFFT:
		for _, tag := range ev.TagSlice() {
			h.fftFed[key(tag.Frame(), tag.Symbol())]++
		}
	case message.KindBeam:
		h.beamDone[ev.Tags[0].Frame()] = true
	case message.KindDemul:
		tag := ev.Tags[0]
		if h.fftFed[key(tag.Frame(), tag.Symbol())] != h.cfg.BsAntNum {
			h.t.Fatalf("demul scheduled before FFT closure of frame %d symbol %d",
				tag.Frame(), tag.Symbol())
		}
		if !h.beamDone[tag.Frame()] {
			h.t.Fatalf("demul scheduled before beam closure of frame %d", tag.Frame())
		}
		h.demulFed[key(tag.Frame(), tag.Symbol())]++
	case message.KindDecode:
		tag := ev.Tags[0]
		if h.demulFed[key(tag.Frame(), tag.Symbol())] != h.cfg.DemulEventsPerSymbol() {
			h.t.Fatalf("decode scheduled before demul closure of frame %d symbol %d",
				tag.Frame(), tag.Symbol())
		}
	case message.KindPrecode:
		tag := ev.Tags[0]
		if !h.beamDone[tag.Frame()] {
			h.t.Fatalf("precode scheduled before beam closure of frame %d", tag.Frame())
		}
	}
}

// pump plays the perfect worker until quiescence. hold (optional) stalls
// matching task events: they are stashed instead of completed.
func (h *harness) pump(hold func(message.EventKind, *message.Event) bool) {
	var ev message.Event
	for {
		kind, ok := h.drainOne(&ev)
		if !ok {
			return
		}
		if hold != nil && hold(kind, &ev) {
			h.held[kind] = append(h.held[kind], ev)
			continue
		}
		h.feed(kind, &ev)
	}
}

// pumpShuffled is pump with randomized service order: it drains the whole
// ready set, shuffles, feeds, repeats. Exercises the dependency property
// under arbitrary interleavings.
func (h *harness) pumpShuffled(rng *rand.Rand) {
	var ev message.Event
	for {
		var batchKinds []message.EventKind
		var batch []message.Event
		for {
			kind, ok := h.drainOne(&ev)
			if !ok {
				break
			}
			batchKinds = append(batchKinds, kind)
			batch = append(batch, ev)
		}
		if len(batch) == 0 {
			return
		}
		rng.Shuffle(len(batch), func(i, j int) {
			batch[i], batch[j] = batch[j], batch[i]
			batchKinds[i], batchKinds[j] = batchKinds[j], batchKinds[i]
		})
		for i := range batch {
			h.feed(batchKinds[i], &batch[i])
		}
	}
}

// releaseHeld feeds back previously held task events of one kind.
func (h *harness) releaseHeld(kind message.EventKind) {
	evs := h.held[kind]
	h.held[kind] = nil
	for i := range evs {
		h.feed(kind, &evs[i])
	}
}

// firstSeen returns, per frame, the index in h.handled of the first
// completion of the given kind, -1 when never seen.
func (h *harness) firstSeen(kind message.EventKind) map[uint32]int {
	out := make(map[uint32]int)
	for i := range h.handled {
		if h.handled[i].Kind != kind {
			continue
		}
		f := h.handled[i].Tags[0].Frame()
		if _, ok := out[f]; !ok {
			out[f] = i
		}
	}
	return out
}
