// worker.go — the pinned worker pool.
//
// Each worker owns a private instance of every doer kernel and polls the
// task queues in a fixed kind order, one task per pass. Completions go
// out on the worker's own token lane; the queues are the only
// synchronization a worker has with the master. After
// WorkerFlipThreshold consecutive all-empty passes a worker changes
// bucket: to the other parity bucket when cur_sche and cur_proc differ,
// to cur_sche's bucket when they agree. Before that threshold it stays on
// its bucket, even while the cursors differ.
//
// Single-thread mode runs the same poll inline from the master loop.

package worker

import (
	"sync"

	"main/affinity"
	"main/buffer"
	"main/config"
	"main/constants"
	"main/control"
	"main/counter"
	"main/fabric"
	"main/message"
	"main/phy"
	"main/ring"
)

type kernelSlot struct {
	kind message.EventKind
	doer phy.Doer
}

// Worker is one pinned consumer's state.
type Worker struct {
	tid        int
	kernels    []kernelSlot
	curQID     uint32
	emptyIters int
}

func newWorker(cfg *config.Config, pool *buffer.Pool, tid int) *Worker {
	w := &Worker{tid: tid}
	// Fixed polling order; uplink and downlink kinds appear only when the
	// schedule has symbols for them.
	w.kernels = append(w.kernels,
		kernelSlot{message.KindBeam, phy.NewBeamWeights(cfg, pool, tid)},
		kernelSlot{message.KindFFT, phy.NewFFT(cfg, pool, tid)},
	)
	if cfg.Frame.NumULSyms() > 0 {
		w.kernels = append(w.kernels,
			kernelSlot{message.KindDecode, phy.NewDecode(cfg, pool, tid)},
			kernelSlot{message.KindDemul, phy.NewDemul(cfg, pool, tid)},
		)
	}
	if cfg.Frame.NumDLSyms() > 0 {
		w.kernels = append(w.kernels,
			kernelSlot{message.KindIFFT, phy.NewIFFT(cfg, pool, tid)},
			kernelSlot{message.KindPrecode, phy.NewPrecode(cfg, pool, tid)},
			kernelSlot{message.KindEncode, phy.NewEncode(cfg, pool, tid)},
		)
	}
	if cfg.Frame.NumDlControlSyms() > 0 {
		w.kernels = append(w.kernels, kernelSlot{message.KindBroadcast, phy.NewBroadcast(cfg, pool, tid)})
	}
	return w
}

// poll tries one task from each kind's queue in order; on the first hit
// it runs every tag and publishes the completion. Reports whether any
// work was found.
func (w *Worker) poll(fab *fabric.Fabric) bool {
	var ev message.Event
	for i := range w.kernels {
		k := &w.kernels[i]
		if fab.DequeueTask(k.kind, w.curQID, &ev) {
			for _, tag := range ev.TagSlice() {
				k.doer.Launch(tag)
			}
			fab.EnqueueComp(w.curQID, w.tid, &ev)
			return true
		}
	}
	return false
}

// step is one scheduler-visible iteration: poll, then parity
// bookkeeping.
func (w *Worker) step(fab *fabric.Fabric, tr *counter.Tracker) {
	if w.poll(fab) {
		w.emptyIters = 0
		return
	}
	w.emptyIters++
	if w.emptyIters == constants.WorkerFlipThreshold {
		if tr.CurSche() != tr.CurProc() {
			w.curQID ^= 1
		} else {
			w.curQID = tr.CurSche() & 1
		}
		w.emptyIters = 0
	}
}

// Pool owns every worker.
type Pool struct {
	cfg     *config.Config
	fab     *fabric.Fabric
	tracker *counter.Tracker
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool builds the workers (and their private kernels) without starting
// threads.
func NewPool(cfg *config.Config, buf *buffer.Pool, fab *fabric.Fabric, tr *counter.Tracker) *Pool {
	p := &Pool{cfg: cfg, fab: fab, tracker: tr}
	for tid := 0; tid < cfg.WorkerThreadNum; tid++ {
		p.workers = append(p.workers, newWorker(cfg, buf, tid))
	}
	return p
}

// Start spawns one pinned thread per worker. In single-thread mode it is
// a no-op: the master drives RunInline between events.
func (p *Pool) Start() {
	if p.cfg.SingleThread {
		return
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			affinity.PinThread(affinity.RoleWorker, p.cfg.CoreOffset,
				p.cfg.SocketThreadNum, p.cfg.WorkerThreadNum, w.tid)
			for control.Running() {
				w.step(p.fab, p.tracker)
				if w.emptyIters != 0 && !control.Hot() {
					ring.CPURelax()
				}
			}
		}(w)
	}
}

// RunInline performs one worker step on the caller's thread
// (single-thread mode's task/completion "queues" collapse to this call).
func (p *Pool) RunInline() {
	p.workers[0].step(p.fab, p.tracker)
}

// Join waits for every worker thread to observe the stop flag and exit.
func (p *Pool) Join() { p.wg.Wait() }
