// dedupe.go — RX duplicate suspicion.
//
// The radio boundary can replay a datagram (driver retry, switch
// flooding). A per-slot bloom filter over packed RX tags counts suspected
// duplicates for the shutdown report. Suspects are never dropped: a bloom
// false positive that discarded a real packet would leave a counter open
// and stall the frame, so the guard observes and counts only.

package dedupe

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"

	"main/constants"
	"main/message"
)

// Guard is master-thread only.
type Guard struct {
	filters   [constants.FrameWnd]*bloom.BloomFilter
	suspected uint64
}

// New sizes each slot's filter for the expected packets per frame.
func New(pktsPerFrame int) *Guard {
	g := &Guard{}
	if pktsPerFrame < 1 {
		pktsPerFrame = 1
	}
	for i := range g.filters {
		g.filters[i] = bloom.NewWithEstimates(uint(pktsPerFrame), 0.001)
	}
	return g
}

// Observe records an RX tag and reports whether it looks like a replay.
func (g *Guard) Observe(tag message.Tag) bool {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(tag))
	dup := g.filters[tag.Frame()%constants.FrameWnd].TestOrAdd(key[:])
	if dup {
		g.suspected++
	}
	return dup
}

// ResetSlot clears a retiring frame's filter for slot reuse.
func (g *Guard) ResetSlot(frame uint32) {
	g.filters[frame%constants.FrameWnd].ClearAll()
}

// Suspected returns the run's replay-suspect count.
func (g *Guard) Suspected() uint64 { return g.suspected }
