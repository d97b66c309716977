package serial

import "sync"

// Register offsets within the port's mapped range.
const (
	RegRxData = 0 // guest reads the latest host byte here
	RegTxData = 1 // guest writes the byte to send here
	RegTxCtrl = 2 // handshake flag: AckPending after a send, AckClear once consumed

	NumRegs = 3
)

// TX control register values.
const (
	AckClear   = 0
	AckPending = 1
)

// Port is the serial register file. The guest side sees it as three bytes
// of memory-mapped I/O (it implements bus.Memory); the host side delivers
// input with Deliver and services output through Pending and Complete.
//
// The RX register is a plain latch with no ack: it always holds the most
// recent host byte, and a host that outruns the interrupt handler simply
// replaces it. The TX registers carry the explicit handshake that gives
// Send its backpressure.
type Port struct {
	mu  sync.Mutex
	rx  byte
	tx  byte
	ack byte

	irq chan struct{}
	out chan byte
}

// NewPort returns a quiescent port.
func NewPort() *Port {
	return &Port{
		irq: make(chan struct{}, 1),
		out: make(chan byte, 1),
	}
}

// ReadByte implements bus.Memory.
func (p *Port) ReadByte(addr int) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch addr % NumRegs {
	case RegRxData:
		return p.rx
	case RegTxData:
		return p.tx
	default:
		return p.ack
	}
}

// WriteByte implements bus.Memory.
func (p *Port) WriteByte(addr int, b byte) {
	p.mu.Lock()
	switch addr % NumRegs {
	case RegRxData:
		p.rx = b
	case RegTxData:
		p.tx = b
	case RegTxCtrl:
		p.ack = b
		if b != AckClear {
			tx := p.tx
			p.mu.Unlock()
			// Send's spin on the ack flag means at most one byte is
			// ever in flight, so this never blocks.
			select {
			case p.out <- tx:
			default:
			}
			return
		}
	}
	p.mu.Unlock()
}

// Size implements bus.Memory.
func (p *Port) Size() int { return NumRegs }

// Reset clears the registers and drains stale signals. Implements
// bus.Resetter.
func (p *Port) Reset() {
	p.mu.Lock()
	p.rx, p.tx, p.ack = 0, 0, AckClear
	p.mu.Unlock()
	select {
	case <-p.irq:
	default:
	}
	select {
	case <-p.out:
	default:
	}
}

// Deliver latches b into the RX data register and asserts the interrupt
// line. Host side.
func (p *Port) Deliver(b byte) {
	p.mu.Lock()
	p.rx = b
	p.mu.Unlock()
	select {
	case p.irq <- struct{}{}:
	default:
	}
}

// IRQ is the interrupt line: one pulse per Deliver, edge-triggered with a
// depth of one so back-to-back deliveries coalesce the way a level line
// would while the handler is busy.
func (p *Port) IRQ() <-chan struct{} { return p.irq }

// Pending yields the TX byte each time the guest raises the ack flag. The
// receiver must call Complete once it has consumed the byte.
func (p *Port) Pending() <-chan byte { return p.out }

// Complete clears the ack flag, releasing the guest's Send.
func (p *Port) Complete() {
	p.mu.Lock()
	p.ack = AckClear
	p.mu.Unlock()
}
