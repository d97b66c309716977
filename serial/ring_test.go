package serial

import (
	"fmt"
	"testing"
)

func TestNewRing(t *testing.T) {
	for _, c := range []struct {
		capacity int
		ok       bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{100, false},
		{256, true},
		{1 << 16, true},
		{1 << 17, false},
		{-8, false},
	} {
		t.Run(fmt.Sprint(c.capacity), func(t *testing.T) {
			r, err := NewRing(c.capacity, Overwrite)
			if c.ok != (err == nil) {
				t.Fatalf("NewRing(%d) error = %v, want ok = %v", c.capacity, err, c.ok)
			}
			if err == nil && r.Cap() != c.capacity {
				t.Errorf("Cap() = %d, want %d", r.Cap(), c.capacity)
			}
		})
	}
}

func TestRingFIFO(t *testing.T) {
	for _, n := range []int{1, 7, 100, 255, 256} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			r, err := NewRing(256, Overwrite)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < n; i++ {
				r.Put(byte(i))
			}
			for i := 0; i < n; i++ {
				b, ok := r.Get()
				if !ok {
					t.Fatalf("Get %d: empty, want %#02x", i, byte(i))
				}
				if b != byte(i) {
					t.Fatalf("Get %d = %#02x, want %#02x", i, b, byte(i))
				}
			}
			if b, ok := r.Get(); ok {
				t.Fatalf("Get on drained ring = %#02x, want empty", b)
			}
		})
	}
}

func TestRingLen(t *testing.T) {
	r, err := NewRing(256, Overwrite)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		put, get int
		want     int
	}{
		{put: 10, want: 10},
		{get: 3, want: 7},
		{put: 249, want: 256}, // exactly full
		{get: 256, want: 0},
		{put: 1, want: 1},
	} {
		for i := 0; i < c.put; i++ {
			r.Put(0xaa)
		}
		for i := 0; i < c.get; i++ {
			if _, ok := r.Get(); !ok {
				t.Fatal("Get: unexpectedly empty")
			}
		}
		if got := r.Len(); got != c.want {
			t.Fatalf("after %d puts, %d gets: Len() = %d, want %d", c.put, c.get, got, c.want)
		}
	}
}

// TestRingOverwrite checks that the 257th byte into a full 256-byte ring
// displaces the oldest: the drain starts at the second byte ever queued and
// ends with the newcomer.
func TestRingOverwrite(t *testing.T) {
	r, err := NewRing(256, Overwrite)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 257; i++ {
		if !r.Put(byte(i)) {
			t.Fatalf("Put %d rejected under Overwrite", i)
		}
	}
	if got := r.Len(); got != 256 {
		t.Fatalf("Len() = %d, want 256", got)
	}
	for i := 1; i < 257; i++ {
		b, ok := r.Get()
		if !ok {
			t.Fatalf("Get %d: empty", i)
		}
		if b != byte(i) {
			t.Fatalf("Get %d = %#02x, want %#02x", i, b, byte(i))
		}
	}
	if _, ok := r.Get(); ok {
		t.Fatal("ring not empty after full drain")
	}
}

func TestRingReject(t *testing.T) {
	r, err := NewRing(8, Reject)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		if !r.Put(byte(i)) {
			t.Fatalf("Put %d rejected before full", i)
		}
	}
	if r.Put(0xff) {
		t.Fatal("Put accepted on a full ring under Reject")
	}
	for i := 0; i < 8; i++ {
		b, ok := r.Get()
		if !ok || b != byte(i) {
			t.Fatalf("Get %d = %#02x, %v, want %#02x, true", i, b, ok, byte(i))
		}
	}
}

// TestRingWrap pushes the counters through many laps of the buffer.
func TestRingWrap(t *testing.T) {
	r, err := NewRing(16, Overwrite)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		r.Put(byte(i))
		b, ok := r.Get()
		if !ok || b != byte(i) {
			t.Fatalf("lap %d: Get = %#02x, %v, want %#02x, true", i, b, ok, byte(i))
		}
	}
}

func TestRingReset(t *testing.T) {
	r, err := NewRing(8, Overwrite)
	if err != nil {
		t.Fatal(err)
	}
	r.Put(1)
	r.Put(2)
	r.Reset()
	if got := r.Len(); got != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", got)
	}
	if _, ok := r.Get(); ok {
		t.Fatal("Get after Reset returned data")
	}
}

// TestRingSPSC runs a real producer and consumer against each other and
// checks that what comes out is what went in, in order.
func TestRingSPSC(t *testing.T) {
	r, err := NewRing(64, Reject)
	if err != nil {
		t.Fatal(err)
	}
	const n = 100000
	done := make(chan bool)
	go func() {
		for i := 0; i < n; i++ {
			for !r.Put(byte(i)) {
			}
		}
		done <- true
	}()
	for i := 0; i < n; {
		b, ok := r.Get()
		if !ok {
			continue
		}
		if b != byte(i) {
			t.Fatalf("byte %d = %#02x, want %#02x", i, b, byte(i))
		}
		i++
	}
	<-done
}

// TestRingSPSCOverwrite keeps a small ring saturated so the producer's
// overwrite path races a live consumer. Dropped bytes are legal here, but
// the drain must still end on the newest byte ever queued.
func TestRingSPSCOverwrite(t *testing.T) {
	r, err := NewRing(4, Overwrite)
	if err != nil {
		t.Fatal(err)
	}
	n := 100000
	done := make(chan bool, 1)
	go func() {
		for i := 0; i < n; i++ {
			if !r.Put(byte(i)) {
				t.Errorf("Put %d rejected under Overwrite", i)
				break
			}
		}
		done <- true
	}()
	count := 0
	var last byte
	running := true
	for running || r.Len() > 0 {
		b, ok := r.Get()
		if !ok {
			select {
			case <-done:
				running = false
			default:
			}
			continue
		}
		last = b
		count++
	}
	if count == 0 || count > n {
		t.Fatalf("received %d bytes, want between 1 and %d", count, n)
	}
	if last != byte(n-1) {
		t.Fatalf("final byte = %#02x, want %#02x", last, byte(n-1))
	}
}
