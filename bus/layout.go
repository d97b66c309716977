package bus

import (
	"fmt"
	"sort"
)

// Layout maps Memory regions onto a fixed-size address space. Regions are
// placed with Map, checked for coverage with Validate, and accessed with
// ReadByte and WriteByte, which dispatch to the owning region with the
// region's start address subtracted. The addresses at which devices appear
// are therefore configuration, not constants.
type Layout struct {
	size    int
	regions []region // sorted by start
}

type region struct {
	start, end int // inclusive
	mem        Memory
}

// NewLayout returns an empty layout addressing size bytes.
func NewLayout(size int) *Layout {
	return &Layout{size: size}
}

// Size returns the number of addressable bytes.
func (l *Layout) Size() int { return l.size }

// Map places mem over the inclusive address range [start, end].
func (l *Layout) Map(start, end int, mem Memory) error {
	if start > end {
		return fmt.Errorf("region end %#06x is below start %#06x", end, start)
	}
	if end >= l.size {
		return fmt.Errorf("region end %#06x exceeds layout size %#06x", end, l.size)
	}
	if n := end - start + 1; n > mem.Size() {
		return fmt.Errorf("region %#06x-%#06x needs %d bytes but the memory has %d",
			start, end, n, mem.Size())
	}
	i := sort.Search(len(l.regions), func(i int) bool { return l.regions[i].start > start })
	if i > 0 && l.regions[i-1].end >= start {
		return fmt.Errorf("region %#06x-%#06x overlaps %#06x-%#06x",
			start, end, l.regions[i-1].start, l.regions[i-1].end)
	}
	if i < len(l.regions) && l.regions[i].start <= end {
		return fmt.Errorf("region %#06x-%#06x overlaps %#06x-%#06x",
			start, end, l.regions[i].start, l.regions[i].end)
	}
	l.regions = append(l.regions, region{})
	copy(l.regions[i+1:], l.regions[i:])
	l.regions[i] = region{start: start, end: end, mem: mem}
	return nil
}

// Validate reports an error if any part of the address space is unmapped.
func (l *Layout) Validate() error {
	next := 0
	for _, r := range l.regions {
		if r.start > next {
			return fmt.Errorf("undefined memory from %#06x to %#06x", next, r.start-1)
		}
		next = r.end + 1
	}
	if next < l.size {
		return fmt.Errorf("undefined memory from %#06x to %#06x", next, l.size-1)
	}
	return nil
}

// ReadByte reads the byte at addr. Reading an unmapped address is a bug in
// the machine configuration and panics; Validate catches it up front.
func (l *Layout) ReadByte(addr int) byte {
	r := l.at(addr)
	return r.mem.ReadByte(addr - r.start)
}

// WriteByte writes b to addr.
func (l *Layout) WriteByte(addr int, b byte) {
	r := l.at(addr)
	r.mem.WriteByte(addr-r.start, b)
}

func (l *Layout) at(addr int) *region {
	i := sort.Search(len(l.regions), func(i int) bool { return l.regions[i].start > addr })
	if i == 0 || addr > l.regions[i-1].end {
		panic(fmt.Sprintf("bus: access to unmapped address %#06x", addr))
	}
	return &l.regions[i-1]
}

// Reset forwards to every mapped region that implements Resetter.
func (l *Layout) Reset() {
	for _, r := range l.regions {
		if rs, ok := r.mem.(Resetter); ok {
			rs.Reset()
		}
	}
}
