package dedupe

import (
	"testing"

	"main/message"
)

// TestObserveCountsReplays: a repeated tag is suspected, distinct tags
// are not (with the filter sized for 64 tags, the 8 distinct tags here
// stay clean in practice).
func TestObserveCountsReplays(t *testing.T) {
	g := New(64)
	for ant := uint32(0); ant < 8; ant++ {
		if g.Observe(message.TagFrmSymAnt(0, 0, ant)) {
			t.Fatalf("fresh tag ant %d flagged", ant)
		}
	}
	if !g.Observe(message.TagFrmSymAnt(0, 0, 3)) {
		t.Fatal("replayed tag not flagged")
	}
	if g.Suspected() != 1 {
		t.Fatalf("suspected = %d", g.Suspected())
	}
}

// TestResetSlotClears: after a slot reset the same tags read as fresh;
// other slots are untouched.
func TestResetSlotClears(t *testing.T) {
	g := New(64)
	g.Observe(message.TagFrmSymAnt(1, 0, 0))
	g.Observe(message.TagFrmSymAnt(2, 0, 0))

	g.ResetSlot(1)
	if g.Observe(message.TagFrmSymAnt(1, 0, 0)) {
		t.Fatal("slot 1 should be clean after reset")
	}
	if !g.Observe(message.TagFrmSymAnt(2, 0, 0)) {
		t.Fatal("slot 2 should still remember its tag")
	}
}
