// Package machine assembles a TbO2 system: a 64K memory layout with RAM
// low, the serial console registers at a configurable base, and a 32K ROM
// high, plus the run loop that services input interrupts and drives the
// echo monitor.
package machine

import (
	"fmt"
	"sync"

	"github.com/rknit/TbO2/bus"
	"github.com/rknit/TbO2/serial"
)

const (
	addrSpace = 1 << 16
	romStart  = 0x8000
	// ROMSize is the exact image size LoadROM accepts.
	ROMSize = addrSpace - romStart
)

// Config describes the configurable parts of the memory map and the input
// queue. Zero values select the defaults.
type Config struct {
	// SerialBase is the bus address of the first serial register.
	// Default 0x7f00.
	SerialBase int
	// QueueSize is the input queue capacity, a power of two.
	// Default 256.
	QueueSize int
	// Overflow selects what happens to input arriving on a full queue.
	// Default serial.Overwrite, matching the original driver.
	Overflow serial.Policy
}

func (c *Config) setDefaults() {
	if c.SerialBase == 0 {
		c.SerialBase = 0x7f00
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
}

// Machine is a runnable TbO2 system.
type Machine struct {
	layout *bus.Layout
	port   *serial.Port
	drv    *serial.Driver
	rom    *bus.ROM
	cfg    Config

	mu      sync.Mutex
	halt    chan struct{}
	done    chan struct{}
	running bool
}

// New builds a machine from cfg and validates its memory map.
func New(cfg Config) (*Machine, error) {
	cfg.setDefaults()
	if cfg.SerialBase < 1 || cfg.SerialBase+serial.NumRegs > romStart {
		return nil, fmt.Errorf("serial base %#06x does not fit below ROM at %#06x", cfg.SerialBase, romStart)
	}

	m := &Machine{
		layout: bus.NewLayout(addrSpace),
		port:   serial.NewPort(),
		rom:    bus.NewROM(ROMSize),
		cfg:    cfg,
		done:   closedChan(),
	}
	type mapping struct {
		start, end int
		mem        bus.Memory
	}
	regEnd := cfg.SerialBase + serial.NumRegs - 1
	regions := []mapping{
		{0, cfg.SerialBase - 1, bus.NewRAM(cfg.SerialBase)},
		{cfg.SerialBase, regEnd, m.port},
		{romStart, addrSpace - 1, m.rom},
	}
	if regEnd+1 < romStart {
		regions = append(regions, mapping{regEnd + 1, romStart - 1, bus.NewRAM(romStart - regEnd - 1)})
	}
	for _, r := range regions {
		if err := m.layout.Map(r.start, r.end, r.mem); err != nil {
			return nil, err
		}
	}
	if err := m.layout.Validate(); err != nil {
		return nil, err
	}

	drv, err := serial.NewDriver(m.layout, cfg.SerialBase, cfg.QueueSize, cfg.Overflow)
	if err != nil {
		return nil, err
	}
	m.drv = drv
	return m, nil
}

// LoadROM installs image, which must exactly fill the ROM region.
func (m *Machine) LoadROM(image []byte) error {
	if len(image) != ROMSize {
		return fmt.Errorf("ROM image is %d bytes, want exactly %d", len(image), ROMSize)
	}
	return m.rom.Load(0, image)
}

// Reset returns the machine to its power-on state: device registers
// cleared and the input queue initialized to empty. Start calls it before
// anything else, per the reset-entry contract.
func (m *Machine) Reset() {
	m.layout.Reset()
	m.drv.Reset()
}

// Start resets the machine and brings it online: an interrupt-service
// goroutine feeds the input queue, and a foreground goroutine plays the
// monitor's part, echoing every received byte back out the serial port.
// Start returns with the reset done and both goroutines listening, so the
// host may Deliver immediately afterwards without losing the byte. The
// machine stops when Halt is called, which Done reports.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("machine is already running")
	}
	m.running = true
	m.halt = make(chan struct{})
	m.done = make(chan struct{})
	halt, done := m.halt, m.done
	m.mu.Unlock()

	m.Reset()

	// Interrupt context: sole producer for the input queue.
	go func() {
		for {
			select {
			case <-halt:
				return
			case <-m.port.IRQ():
				m.drv.HandleInterrupt()
			}
		}
	}()

	// Foreground context: sole consumer.
	go func() {
		defer func() {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			close(done)
		}()
		for {
			select {
			case <-halt:
				return
			case <-m.drv.Ready():
				for {
					if _, ok := m.drv.GetKey(); !ok {
						break
					}
				}
			}
		}
	}()
	return nil
}

// Done is closed once a started machine has stopped.
func (m *Machine) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Halt stops a running machine. A consumer blocked in a send handshake
// stays blocked until its receiver cooperates; Halt does not cancel it.
func (m *Machine) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		select {
		case <-m.halt:
		default:
			close(m.halt)
		}
	}
}

// Deliver hands one host byte to the serial port, raising the input
// interrupt.
func (m *Machine) Deliver(b byte) { m.port.Deliver(b) }

// Output yields each byte the guest sends. The host must call AckOutput
// after consuming one; until then the guest's send stays blocked.
func (m *Machine) Output() <-chan byte { return m.port.Pending() }

// AckOutput completes the output handshake.
func (m *Machine) AckOutput() { m.port.Complete() }

// SerialBase returns the bus address of the first serial register.
func (m *Machine) SerialBase() int { return m.cfg.SerialBase }

// Buffered returns the count of queued, unread input bytes.
func (m *Machine) Buffered() int { return m.drv.Buffered() }

// Peek reads the bus from the host side, for the monitor UI. It snoops a
// live bus, so values race the guest by nature.
func (m *Machine) Peek(addr int) byte {
	return m.layout.ReadByte(addr & (addrSpace - 1))
}

// Poke writes the bus from the host side.
func (m *Machine) Poke(addr int, b byte) {
	m.layout.WriteByte(addr&(addrSpace-1), b)
}
