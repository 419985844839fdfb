// ring.go — Lock-free single-producer/single-consumer event lane.
//
// The fabric's producer-token lanes (worker→master completions,
// streamer→master RX, core↔MAC) are each one of these: a fixed-capacity
// circular buffer whose slots carry a 64-byte event inline, with a
// sequence stamp per slot so Push/Pop stay wait-free with one atomic each.
// Producer and consumer cursors live on separate cache lines.
//
// Assumptions:
//   - Single writer, single reader. Capacity is a power of two.
//   - Push returns false when full; Pop returns false when empty.
//     Overflow policy is the caller's problem (the fabric spins + warns).

package ring

import (
	"sync/atomic"

	"main/message"
)

type slot struct {
	seq uint64
	ev  message.Event
}

// Ring is one SPSC event lane.
type Ring struct {
	_    [64]byte // consumer head isolated on its own cache line
	head uint64

	_    [56]byte
	tail uint64

	_    [56]byte
	mask uint64
	step uint64
	buf  []slot
}

// New constructs a lane with power-of-two capacity; panics otherwise so
// the masking arithmetic stays valid.
func New(size int) *Ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("ring: size must be >0 and a power of two")
	}
	r := &Ring{
		mask: uint64(size - 1),
		step: uint64(size),
		buf:  make([]slot, size),
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
	}
	return r
}

// Push enqueues one event by value, returning false if the lane is full.
//
//go:nosplit
func (r *Ring) Push(ev *message.Event) bool {
	t := r.tail
	s := &r.buf[t&r.mask]
	if atomic.LoadUint64(&s.seq) != t {
		return false // consumer has not yet reclaimed the slot
	}
	s.ev = *ev
	atomic.StoreUint64(&s.seq, t+1)
	r.tail = t + 1
	return true
}

// Pop copies the next event into out, returning false if the lane is
// empty.
//
//go:nosplit
func (r *Ring) Pop(out *message.Event) bool {
	h := r.head
	s := &r.buf[h&r.mask]
	if atomic.LoadUint64(&s.seq) != h+1 {
		return false // producer has not yet published the slot
	}
	*out = s.ev
	atomic.StoreUint64(&s.seq, h+r.step)
	r.head = h + 1
	return true
}

// PopBulk drains up to len(out) events, returning the count.
func (r *Ring) PopBulk(out []message.Event) int {
	n := 0
	for n < len(out) && r.Pop(&out[n]) {
		n++
	}
	return n
}

// PushWait busy-spins until the event lands. Cold paths only.
func (r *Ring) PushWait(ev *message.Event) {
	for !r.Push(ev) {
		CPURelax()
	}
}
