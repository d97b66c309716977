// Package serial implements the TbO2 serial console: a lock-free
// interrupt-fed input queue, a memory-mapped register file, and the
// guest-side driver that ties them to a handshake output channel.
package serial

import (
	"fmt"
	"sync/atomic"
)

// Policy selects what Put does when the ring is full.
type Policy int

const (
	// Overwrite drops the oldest unread byte to make room.
	Overwrite Policy = iota
	// Reject refuses the new byte and leaves the ring untouched.
	Reject
)

func (p Policy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Ring is a single-producer single-consumer byte queue. One goroutine may
// call Put and another Get without further synchronization; head is written
// only by the producer and tail (almost) only by the consumer. The counters
// run free and wrap, so Len is head-tail and the buffer index is the
// counter masked by the power-of-two capacity.
//
// In Overwrite mode a full Put advances tail past the oldest byte. That is
// the one place the producer touches the consumer's counter, so it goes
// through a CAS: if the consumer freed the slot first, the CAS fails and
// the byte is no longer oldest. An overwriting Put also stores into the
// slot the consumer may be reading, so the slots themselves are atomic.
type Ring struct {
	buf    []atomic.Uint32
	mask   uint32
	head   atomic.Uint32 // producer
	tail   atomic.Uint32 // consumer
	policy Policy
}

// NewRing returns a ring with the given capacity, which must be a power of
// two between 1 and 65536.
func NewRing(capacity int, policy Policy) (*Ring, error) {
	if capacity < 1 || capacity > 1<<16 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring capacity %d is not a power of two in [1, 65536]", capacity)
	}
	return &Ring{
		buf:    make([]atomic.Uint32, capacity),
		mask:   uint32(capacity - 1),
		policy: policy,
	}, nil
}

// Reset empties the ring. It must not race either endpoint; the machine
// calls it once at reset before any goroutine touches the queue.
func (r *Ring) Reset() {
	r.head.Store(0)
	r.tail.Store(0)
}

// Cap returns the ring's capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the count of unread bytes.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Put stores b, reporting whether it was kept. Under the Overwrite policy
// it always reports true; under Reject it reports false when full.
// Producer side only.
func (r *Ring) Put(b byte) bool {
	head := r.head.Load()
	if tail := r.tail.Load(); head-tail == uint32(len(r.buf)) {
		if r.policy == Reject {
			return false
		}
		r.tail.CompareAndSwap(tail, tail+1)
	}
	r.buf[head&r.mask].Store(uint32(b))
	r.head.Store(head + 1)
	return true
}

// Get removes and returns the oldest unread byte. Consumer side only.
func (r *Ring) Get() (byte, bool) {
	for {
		tail := r.tail.Load()
		if r.head.Load() == tail {
			return 0, false
		}
		b := byte(r.buf[tail&r.mask].Load())
		// A failed CAS means an Overwrite-mode producer dropped this
		// byte while we were reading it; take the next oldest.
		if r.tail.CompareAndSwap(tail, tail+1) {
			return b, true
		}
	}
}
