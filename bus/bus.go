// Package bus provides the TbO2 byte-addressable memory fabric: the Memory
// cell interface, RAM and ROM backings, and the Layout that maps them (and
// memory-mapped devices) onto configurable address ranges.
package bus

import "fmt"

// Memory is a byte-addressable cell array. Addresses given to ReadByte and
// WriteByte are relative to the start of the region the Memory is mapped
// at, never absolute bus addresses.
type Memory interface {
	ReadByte(addr int) byte
	WriteByte(addr int, b byte)
	// Size returns the number of addressable bytes.
	Size() int
}

// Resetter is implemented by Memory regions that hold state beyond plain
// storage and need clearing at machine reset.
type Resetter interface {
	Reset()
}

// RAM is read-write storage. Addresses wrap modulo the size, so a RAM
// mapped over a range larger than itself mirrors.
type RAM struct {
	data []byte
}

// NewRAM returns a zeroed RAM of size bytes.
func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) ReadByte(addr int) byte     { return r.data[addr%len(r.data)] }
func (r *RAM) WriteByte(addr int, b byte) { r.data[addr%len(r.data)] = b }
func (r *RAM) Size() int                  { return len(r.data) }

// Load copies data into the RAM starting at start.
func (r *RAM) Load(start int, data []byte) error {
	return load(r.data, start, data)
}

// ROM is read-only storage: reads behave like RAM, bus writes are ignored.
// Images are installed with Load.
type ROM struct {
	data []byte
}

// NewROM returns a zeroed ROM of size bytes.
func NewROM(size int) *ROM {
	return &ROM{data: make([]byte, size)}
}

func (r *ROM) ReadByte(addr int) byte     { return r.data[addr%len(r.data)] }
func (r *ROM) WriteByte(addr int, b byte) {}
func (r *ROM) Size() int                  { return len(r.data) }

// Load copies data into the ROM starting at start.
func (r *ROM) Load(start int, data []byte) error {
	return load(r.data, start, data)
}

func load(dst []byte, start int, data []byte) error {
	if start < 0 || start+len(data) > len(dst) {
		return fmt.Errorf("load of %d bytes at %#06x exceeds capacity %d", len(data), start, len(dst))
	}
	copy(dst[start:], data)
	return nil
}
