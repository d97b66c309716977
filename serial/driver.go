package serial

import "runtime"

// Bus is the view of the memory fabric the driver works through. bus.Layout
// satisfies it.
type Bus interface {
	ReadByte(addr int) byte
	WriteByte(addr int, b byte)
}

// Driver is the guest side of the serial console. It owns the input queue
// and talks to the Port purely through memory-mapped register accesses at
// a configured base address, the way the machine-code driver it models did.
//
// Exactly two goroutines may use a Driver: one servicing interrupts
// (HandleInterrupt) and one foreground consumer (GetKey, Send). That
// discipline is what makes the queue safe; see Ring.
type Driver struct {
	bus   Bus
	base  int
	q     *Ring
	ready chan struct{}
}

// NewDriver returns a driver for a port mapped at base, with an input
// queue of the given capacity and overflow policy.
func NewDriver(b Bus, base, queueSize int, policy Policy) (*Driver, error) {
	q, err := NewRing(queueSize, policy)
	if err != nil {
		return nil, err
	}
	return &Driver{
		bus:   b,
		base:  base,
		q:     q,
		ready: make(chan struct{}, 1),
	}, nil
}

// Reset empties the input queue. Called once at machine reset, before the
// interrupt and consumer goroutines start.
func (d *Driver) Reset() {
	d.q.Reset()
	select {
	case <-d.ready:
	default:
	}
}

// HandleInterrupt services one input interrupt: it reads the RX data
// register exactly once and queues the byte. It never blocks, which keeps
// handler occupancy short enough that interrupts need not nest.
func (d *Driver) HandleInterrupt() {
	d.q.Put(d.bus.ReadByte(d.base + RegRxData))
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// Ready is pulsed whenever HandleInterrupt queues a byte, so a consumer
// can sleep between polls instead of spinning.
func (d *Driver) Ready() <-chan struct{} { return d.ready }

// Buffered returns the count of queued, unread bytes.
func (d *Driver) Buffered() int { return d.q.Len() }

// Send transmits one byte: it writes the TX data register, raises the ack
// flag, and spins until the receiving device clears it. The spin is the
// output channel's backpressure; a second Send cannot begin before the
// first byte has been consumed, so the single data register is never
// overwritten in flight. There is no timeout: an uncooperative receiver
// blocks Send forever.
func (d *Driver) Send(b byte) {
	d.bus.WriteByte(d.base+RegTxData, b)
	d.bus.WriteByte(d.base+RegTxCtrl, AckPending)
	for d.bus.ReadByte(d.base+RegTxCtrl) != AckClear {
		runtime.Gosched()
	}
}

// GetKey polls the input queue. With nothing buffered it reports false;
// otherwise it drains exactly one byte, echoes it via Send, and returns
// it.
func (d *Driver) GetKey() (byte, bool) {
	b, ok := d.q.Get()
	if !ok {
		return 0, false
	}
	d.Send(b)
	return b, true
}
