// fabric.go — the message fabric between master, workers and streamers.
//
// Three families of channels, all bounded and lock-free:
//
//   task queues    master → workers, one MPMC queue per (doer kind ×
//                  parity bucket). Parity is frame_id & 1: workers drain
//                  one bucket while the master fills the other.
//   token lanes    producers → master. Each worker gets one SPSC lane per
//                  parity bucket for completions; each streamer thread
//                  gets one lane for RX events. Dedicated lanes are the
//                  producer tokens: bulk enqueue without CAS contention.
//   tx queue       master → streamers, one MPMC queue drained by the
//                  transmit threads.
//
// Overflow policy: a failed try-enqueue falls back to a spinning
// enqueue and logs the capacity signal — it must be rare enough that the
// log line is the tell of a misconfigured queue size.

package fabric

import (
	"sync/atomic"

	"main/config"
	"main/constants"
	"main/debug"
	"main/message"
	"main/ring"
	"main/utils"
)

// Fabric owns every queue in the pipeline.
type Fabric struct {
	task [message.NumEventKinds][2]*Queue
	comp [2][]*ring.Ring // [parity][worker]
	rx   []*ring.Ring    // [streamer thread]
	tx   *Queue

	fallbacks atomic.Uint64
}

// taskKinds lists the event kinds that travel master → workers.
var taskKinds = []message.EventKind{
	message.KindFFT, message.KindBeam, message.KindDemul, message.KindDecode,
	message.KindEncode, message.KindPrecode, message.KindIFFT, message.KindBroadcast,
}

// New sizes every queue from the configuration: task queues absorb a full
// frame of work plus slack, lanes absorb a full frame of completions.
func New(cfg *config.Config) *Fabric {
	dataSyms := cfg.Frame.NumDataSyms()
	taskSize := utils.NextPow2(constants.WorkerQueueSize * dataSyms)
	laneSize := utils.NextPow2(constants.MessageQueueSize * dataSyms)

	f := &Fabric{tx: NewQueue(taskSize)}
	for _, k := range taskKinds {
		f.task[k][0] = NewQueue(taskSize)
		f.task[k][1] = NewQueue(taskSize)
	}
	for qid := 0; qid < 2; qid++ {
		f.comp[qid] = make([]*ring.Ring, cfg.WorkerThreadNum)
		for w := 0; w < cfg.WorkerThreadNum; w++ {
			f.comp[qid][w] = ring.New(laneSize)
		}
	}
	f.rx = make([]*ring.Ring, cfg.SocketThreadNum)
	for s := 0; s < cfg.SocketThreadNum; s++ {
		f.rx[s] = ring.New(laneSize)
	}
	return f
}

// ─────────────────────────────── Task path ─────────────────────────────────

// EnqueueTask places a task event on the (kind, parity) queue, spinning
// with a logged warning if the try fails.
func (f *Fabric) EnqueueTask(kind message.EventKind, qid uint32, ev *message.Event) {
	q := f.task[kind][qid&1]
	if q == nil {
		panic("fabric: no task queue for kind " + kind.String())
	}
	if !q.TryEnqueue(ev) {
		f.warn(kind)
		q.EnqueueSpin(ev)
	}
}

// DequeueTask pops one task of the given kind from a parity bucket.
//
//go:nosplit
func (f *Fabric) DequeueTask(kind message.EventKind, qid uint32, out *message.Event) bool {
	return f.task[kind][qid&1].TryDequeue(out)
}

// ───────────────────────────── Completion path ─────────────────────────────

// EnqueueComp publishes a worker completion on its token lane.
func (f *Fabric) EnqueueComp(qid uint32, worker int, ev *message.Event) {
	lane := f.comp[qid&1][worker]
	if !lane.Push(ev) {
		f.warn(ev.Kind)
		lane.PushWait(ev)
	}
}

// DequeueCompBulk drains the parity bucket's worker lanes round-robin,
// at most DequeueBulkSizeWorker events per lane, into out. Returns the
// event count.
func (f *Fabric) DequeueCompBulk(qid uint32, out []message.Event) int {
	total := 0
	for _, lane := range f.comp[qid&1] {
		limit := total + constants.DequeueBulkSizeWorker
		if limit > len(out) {
			limit = len(out)
		}
		total += lane.PopBulk(out[total:limit])
		if total == len(out) {
			break
		}
	}
	return total
}

// ──────────────────────────────── RX path ──────────────────────────────────

// EnqueueRx publishes a packet-arrival event on a streamer's token lane.
func (f *Fabric) EnqueueRx(streamer int, ev *message.Event) {
	lane := f.rx[streamer]
	if !lane.Push(ev) {
		f.warn(message.KindPacketRX)
		lane.PushWait(ev)
	}
}

// DequeueRxBulk drains every streamer lane round-robin, at most
// DequeueBulkSizeTXRX events per lane.
func (f *Fabric) DequeueRxBulk(out []message.Event) int {
	total := 0
	for _, lane := range f.rx {
		limit := total + constants.DequeueBulkSizeTXRX
		if limit > len(out) {
			limit = len(out)
		}
		total += lane.PopBulk(out[total:limit])
		if total == len(out) {
			break
		}
	}
	return total
}

// ──────────────────────────────── TX path ──────────────────────────────────

// EnqueueTx hands a transmit order to the streamer pool.
func (f *Fabric) EnqueueTx(ev *message.Event) {
	if !f.tx.TryEnqueue(ev) {
		f.warn(message.KindPacketTX)
		f.tx.EnqueueSpin(ev)
	}
}

// DequeueTx pops one transmit order; safe from multiple streamer threads.
func (f *Fabric) DequeueTx(out *message.Event) bool { return f.tx.TryDequeue(out) }

// ─────────────────────────────── Diagnostics ───────────────────────────────

func (f *Fabric) warn(kind message.EventKind) {
	n := f.fallbacks.Add(1)
	// Log the first few and then every 1024th; a steady stream means the
	// queues are under-provisioned, not that logging should melt.
	if n <= 4 || n&1023 == 0 {
		debug.DropMessage("QUEUE", "fallback enqueue on "+kind.String()+
			" (count "+utils.Utoa(n)+") — queue capacity misconfigured?")
	}
}

// Fallbacks reports how many enqueues missed the fast path.
func (f *Fabric) Fallbacks() uint64 { return f.fallbacks.Load() }
