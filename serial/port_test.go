package serial

import "testing"

func TestPortRegisters(t *testing.T) {
	p := NewPort()
	if got := p.Size(); got != NumRegs {
		t.Fatalf("Size() = %d, want %d", got, NumRegs)
	}
	p.WriteByte(RegTxData, 0x42)
	if got := p.ReadByte(RegTxData); got != 0x42 {
		t.Errorf("TX data = %#02x, want 0x42", got)
	}
	if got := p.ReadByte(RegTxCtrl); got != AckClear {
		t.Errorf("TX ctrl = %#02x, want clear", got)
	}
}

func TestPortDeliver(t *testing.T) {
	p := NewPort()
	p.Deliver('x')
	select {
	case <-p.IRQ():
	default:
		t.Fatal("Deliver did not assert the interrupt line")
	}
	if got := p.ReadByte(RegRxData); got != 'x' {
		t.Errorf("RX data = %#02x, want 'x'", got)
	}
}

// A second delivery before the handler runs replaces the latch and
// coalesces into the already-pending interrupt.
func TestPortDeliverCoalesce(t *testing.T) {
	p := NewPort()
	p.Deliver('a')
	p.Deliver('b')
	if got := p.ReadByte(RegRxData); got != 'b' {
		t.Errorf("RX data = %#02x, want 'b'", got)
	}
	<-p.IRQ()
	select {
	case <-p.IRQ():
		t.Fatal("two interrupt pulses for coalesced deliveries")
	default:
	}
}

func TestPortHandshake(t *testing.T) {
	p := NewPort()
	p.WriteByte(RegTxData, 'H')
	p.WriteByte(RegTxCtrl, AckPending)
	if got := p.ReadByte(RegTxCtrl); got != AckPending {
		t.Fatalf("TX ctrl = %#02x, want pending", got)
	}
	select {
	case b := <-p.Pending():
		if b != 'H' {
			t.Fatalf("Pending byte = %#02x, want 'H'", b)
		}
	default:
		t.Fatal("no pending output after raising the ack flag")
	}
	if got := p.ReadByte(RegTxCtrl); got != AckPending {
		t.Fatalf("TX ctrl cleared before Complete")
	}
	p.Complete()
	if got := p.ReadByte(RegTxCtrl); got != AckClear {
		t.Fatalf("TX ctrl = %#02x after Complete, want clear", got)
	}
}

func TestPortReset(t *testing.T) {
	p := NewPort()
	p.Deliver('x')
	p.WriteByte(RegTxData, 'y')
	p.WriteByte(RegTxCtrl, AckPending)
	p.Reset()
	for reg, want := range map[int]byte{
		RegRxData: 0,
		RegTxData: 0,
		RegTxCtrl: AckClear,
	} {
		if got := p.ReadByte(reg); got != want {
			t.Errorf("register %d = %#02x after Reset, want %#02x", reg, got, want)
		}
	}
	select {
	case <-p.IRQ():
		t.Error("stale interrupt survived Reset")
	default:
	}
	select {
	case <-p.Pending():
		t.Error("stale output survived Reset")
	default:
	}
}
