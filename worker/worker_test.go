package worker

import (
	"testing"

	"main/buffer"
	"main/config"
	"main/control"
	"main/counter"
	"main/fabric"
	"main/message"
)

func workerFixture(t *testing.T) (*config.Config, *buffer.Pool, *fabric.Fabric, *Pool) {
	t.Helper()
	control.Reset()
	cfg := config.Default()
	cfg.BsAntNum = 2
	cfg.BsRadioNum = 2
	cfg.UeAntNum = 2
	cfg.UeRadioNum = 2
	cfg.FrameScheduleStr = "PPU"
	cfg.WorkerThreadNum = 1
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	buf := buffer.New(cfg)
	fab := fabric.New(cfg)
	var tr counter.Tracker
	return cfg, buf, fab, NewPool(cfg, buf, fab, &tr)
}

// TestPollRunsTaskAndCompletes feeds one FFT task and checks the worker
// runs every tag and publishes exactly one completion on its lane.
func TestPollRunsTaskAndCompletes(t *testing.T) {
	cfg, buf, fab, pool := workerFixture(t)

	// Give the FFT something to read.
	iq := buf.RxIQ(0, 0, 0)
	for i := range iq {
		iq[i] = int16(i % 256)
	}

	task := message.Event{Kind: message.KindFFT, NumTags: 2}
	task.Tags[0] = message.TagFrmSymAnt(0, 0, 0)
	task.Tags[1] = message.TagFrmSymAnt(0, 0, 1)
	fab.EnqueueTask(message.KindFFT, 0, &task)

	if !pool.workers[0].poll(fab) {
		t.Fatal("poll should find the task")
	}

	out := make([]message.Event, 4)
	if n := fab.DequeueCompBulk(0, out); n != 1 {
		t.Fatalf("expected 1 completion, got %d", n)
	}
	if out[0].Kind != message.KindFFT || out[0].NumTags != 2 {
		t.Fatalf("completion should mirror the task: %+v", out[0])
	}
	// Pilot FFT of symbol 0 (UE 0) must have landed in the CSI grid.
	csi := buf.Csi(0, 0)
	if csi[0] == 0 && csi[1] == 0 && csi[cfg.OfdmDataNum] == 0 {
		t.Fatal("pilot FFT did not populate CSI")
	}
}

// TestPollEmptyReturnsFalse: nothing queued, nothing completed.
func TestPollEmptyReturnsFalse(t *testing.T) {
	_, _, fab, pool := workerFixture(t)
	if pool.workers[0].poll(fab) {
		t.Fatal("poll on empty queues should return false")
	}
	out := make([]message.Event, 4)
	if fab.DequeueCompBulk(0, out) != 0 {
		t.Fatal("no completions expected")
	}
}

// TestParityFlip: after WorkerFlipThreshold empty steps with diverging
// cursors the worker flips buckets; with agreeing cursors it snaps to the
// scheduler's bucket.
func TestParityFlip(t *testing.T) {
	_, _, fab, pool := workerFixture(t)
	w := pool.workers[0]
	tr := pool.tracker

	// Cursors agree at 0: five empty steps leave the worker on bucket 0.
	for i := 0; i < 5; i++ {
		w.step(fab, tr)
	}
	if w.curQID != 0 {
		t.Fatalf("curQID = %d, want 0", w.curQID)
	}

	// Diverge the cursors: the worker should flip on the next threshold.
	tr.AdvanceSche()
	for i := 0; i < 5; i++ {
		w.step(fab, tr)
	}
	if w.curQID != 1 {
		t.Fatalf("curQID = %d, want 1 after flip", w.curQID)
	}
	for i := 0; i < 5; i++ {
		w.step(fab, tr)
	}
	if w.curQID != 0 {
		t.Fatalf("curQID = %d, want 0 after second flip", w.curQID)
	}
}

// TestKernelOrder pins the fixed polling order the workers use.
func TestKernelOrder(t *testing.T) {
	control.Reset()
	cfg := config.Default()
	cfg.FrameScheduleStr = "PUDC"
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	buf := buffer.New(cfg)
	fab := fabric.New(cfg)
	var tr counter.Tracker
	pool := NewPool(cfg, buf, fab, &tr)

	want := []message.EventKind{
		message.KindBeam, message.KindFFT,
		message.KindDecode, message.KindDemul,
		message.KindIFFT, message.KindPrecode, message.KindEncode,
		message.KindBroadcast,
	}
	got := pool.workers[0].kernels
	if len(got) != len(want) {
		t.Fatalf("kernel count %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].kind != want[i] {
			t.Fatalf("kernel %d is %s, want %s", i, got[i].kind, want[i])
		}
	}
}
