// queue.go — bounded lock-free multi-producer/multi-consumer event queue.
//
// Same seq-slot scheme as the SPSC lane in ring/, generalized: both
// cursors are CAS-claimed, so any number of producers and consumers may
// touch one queue. The task queues are MPMC-capable even though today's
// design has a single producer (the master); the capability costs one CAS
// and keeps the fabric symmetric.

package fabric

import (
	"sync/atomic"

	"main/message"
	"main/ring"
)

type qslot struct {
	seq uint64
	ev  message.Event
}

// Queue is one bounded MPMC event queue.
type Queue struct {
	_    [64]byte
	enq  uint64
	_    [56]byte
	deq  uint64
	_    [56]byte
	mask uint64
	buf  []qslot
}

// NewQueue constructs a queue with power-of-two capacity.
func NewQueue(size int) *Queue {
	if size <= 0 || size&(size-1) != 0 {
		panic("fabric: queue size must be >0 and a power of two")
	}
	q := &Queue{mask: uint64(size - 1), buf: make([]qslot, size)}
	for i := range q.buf {
		q.buf[i].seq = uint64(i)
	}
	return q
}

// TryEnqueue claims a slot and publishes ev, returning false if the queue
// is full.
//
//go:nosplit
func (q *Queue) TryEnqueue(ev *message.Event) bool {
	for {
		pos := atomic.LoadUint64(&q.enq)
		s := &q.buf[pos&q.mask]
		seq := atomic.LoadUint64(&s.seq)
		switch {
		case seq == pos:
			if atomic.CompareAndSwapUint64(&q.enq, pos, pos+1) {
				s.ev = *ev
				atomic.StoreUint64(&s.seq, pos+1)
				return true
			}
		case seq < pos:
			return false // slot not yet reclaimed: full
		}
		// seq > pos: another producer won the slot; retry on the new cursor.
	}
}

// TryDequeue claims the head slot and copies it out, returning false if
// the queue is empty.
//
//go:nosplit
func (q *Queue) TryDequeue(out *message.Event) bool {
	for {
		pos := atomic.LoadUint64(&q.deq)
		s := &q.buf[pos&q.mask]
		seq := atomic.LoadUint64(&s.seq)
		switch {
		case seq == pos+1:
			if atomic.CompareAndSwapUint64(&q.deq, pos, pos+1) {
				*out = s.ev
				atomic.StoreUint64(&s.seq, pos+uint64(len(q.buf)))
				return true
			}
		case seq < pos+1:
			return false // slot not yet published: empty
		}
	}
}

// EnqueueSpin pushes with busy-wait back-off. Used by the fallback path
// after TryEnqueue failed; the caller is responsible for logging the
// capacity signal.
func (q *Queue) EnqueueSpin(ev *message.Event) {
	for !q.TryEnqueue(ev) {
		ring.CPURelax()
	}
}
