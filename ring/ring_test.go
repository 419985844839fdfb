package ring

import (
	"testing"

	"main/message"
)

// TestNewPanicsOnBadSize verifies the constructor rejects sizes that are
// either non-power-of-two or ≤ 0.
func TestNewPanicsOnBadSize(t *testing.T) {
	bad := []int{0, 3, 1000}
	for _, sz := range bad {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) should panic", sz)
				}
			}()
			_ = New(sz)
		}()
	}
}

// TestPushPopRoundTrip performs a minimal sanity round-trip on a size-8
// lane.
func TestPushPopRoundTrip(t *testing.T) {
	r := New(8)
	ev := message.NewEvent(message.KindFFT, message.NewTag(1, 2, 3))

	if !r.Push(&ev) {
		t.Fatal("first push must succeed")
	}
	var got message.Event
	if !r.Pop(&got) {
		t.Fatal("pop must succeed")
	}
	if got != ev {
		t.Fatalf("got %+v, want %+v", got, ev)
	}
	if r.Pop(&got) {
		t.Fatal("lane should now be empty")
	}
}

// TestPushFailsWhenFull fills the lane to capacity and checks the
// non-blocking back-pressure signal.
func TestPushFailsWhenFull(t *testing.T) {
	r := New(4)
	ev := message.NewEvent(message.KindBeam, 0)
	for i := 0; i < 4; i++ {
		if !r.Push(&ev) {
			t.Fatalf("push %d unexpectedly failed", i)
		}
	}
	if r.Push(&ev) {
		t.Fatal("push into full lane should return false")
	}
}

// TestFIFOOrder pushes a run of tagged events and checks ordering through
// wrap-around.
func TestFIFOOrder(t *testing.T) {
	r := New(4)
	var got message.Event
	next := uint32(0)
	for round := 0; round < 3; round++ {
		for i := 0; i < 4; i++ {
			ev := message.NewEvent(message.KindDemul, message.NewTag(next+uint32(i), 0, 0))
			if !r.Push(&ev) {
				t.Fatal("push failed on non-full lane")
			}
		}
		for i := 0; i < 4; i++ {
			if !r.Pop(&got) {
				t.Fatal("pop failed on non-empty lane")
			}
			if got.Tags[0].Frame() != next+uint32(i) {
				t.Fatalf("order broken: got %d want %d", got.Tags[0].Frame(), next+uint32(i))
			}
		}
		next += 4
	}
}

// TestPopBulk drains a partially filled lane in one call.
func TestPopBulk(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		ev := message.NewEvent(message.KindDecode, message.NewTag(uint32(i), 0, 0))
		r.Push(&ev)
	}
	out := make([]message.Event, 8)
	if n := r.PopBulk(out); n != 5 {
		t.Fatalf("PopBulk = %d, want 5", n)
	}
	for i := 0; i < 5; i++ {
		if out[i].Tags[0].Frame() != uint32(i) {
			t.Fatal("bulk drain out of order")
		}
	}
}

// TestSPSCConcurrent hands 10k events across two goroutines and checks
// nothing is lost or reordered.
func TestSPSCConcurrent(t *testing.T) {
	r := New(64)
	const total = 10000
	done := make(chan struct{})

	go func() {
		defer close(done)
		var ev message.Event
		for i := 0; i < total; {
			if r.Pop(&ev) {
				if ev.Tags[0].Frame() != uint32(i) {
					t.Errorf("reorder at %d", i)
					return
				}
				i++
			}
		}
	}()

	for i := 0; i < total; i++ {
		ev := message.NewEvent(message.KindFFT, message.NewTag(uint32(i), 0, 0))
		r.PushWait(&ev)
	}
	<-done
}
