package main

import (
	"log"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/rknit/TbO2/machine"
)

// runConsole drives a glass terminal over the machine's serial port: each
// keystroke is delivered to the input register, and each byte the guest
// sends is drawn before the handshake is acknowledged. Ctrl-C exits.
func runConsole(m *machine.Machine) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	s.Clear()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := s.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	t := newTermView(s)
	for {
		select {
		case b := <-m.Output():
			t.putByte(b)
			m.AckOutput()
			t.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyCtrlC:
					return nil
				case ev.Key() == tcell.KeyEnter:
					m.Deliver('\r')
				case ev.Key() == tcell.KeyBackspace || ev.Key() == tcell.KeyBackspace2:
					m.Deliver(0x08)
				case ev.Key() == tcell.KeyRune:
					if r := ev.Rune(); r < 0x80 {
						m.Deliver(byte(r))
					}
				}
			case *tcell.EventResize:
				t.resize()
				s.Sync()
			}
		}
	}
}

// termView is the bare minimum of a glass terminal: a scrollback of lines,
// a cursor, and CR/LF/backspace handling. Bytes outside the printable
// range are dropped.
type termView struct {
	s     tcell.Screen
	w, h  int
	lines [][]rune
	col   int
}

func newTermView(s tcell.Screen) *termView {
	t := &termView{s: s, lines: [][]rune{nil}}
	t.w, t.h = s.Size()
	return t
}

func (t *termView) resize() {
	t.w, t.h = t.s.Size()
	t.draw()
}

func (t *termView) putByte(b byte) {
	last := len(t.lines) - 1
	switch {
	case b == '\r':
		t.col = 0
	case b == '\n':
		t.lines = append(t.lines, nil)
		t.col = 0
	case b == 0x08:
		if t.col > 0 {
			t.col--
			t.lines[last] = t.lines[last][:t.col]
		}
	case b >= 0x20 && b < 0x7f:
		line := t.lines[last]
		for len(line) <= t.col {
			line = append(line, ' ')
		}
		line[t.col] = rune(b)
		t.lines[last] = line
		t.col++
		if t.w > 0 && t.col >= t.w {
			t.lines = append(t.lines, nil)
			t.col = 0
		}
	}
	if max := t.h + 1; t.h > 0 && len(t.lines) > max {
		t.lines = t.lines[len(t.lines)-max:]
	}
}

func (t *termView) draw() {
	t.s.Clear()
	first := 0
	if t.h > 0 && len(t.lines) > t.h {
		first = len(t.lines) - t.h
	}
	for y, line := range t.lines[first:] {
		for x, r := range line {
			t.s.SetContent(x, y, r, nil, tcell.StyleDefault)
		}
	}
	t.s.ShowCursor(t.col, len(t.lines)-1-first)
	t.s.Show()
}

// runCLI is the no-UI host: raw stdin bytes in, serial output straight to
// stdout. Ctrl-C (delivered as a raw 0x03 byte) exits.
func runCLI(m *machine.Machine) error {
	fd := os.Stdin.Fd()
	if saved, err := makeRaw(fd); err != nil {
		log.Printf("raw mode: %v", err)
	} else {
		defer tcset(fd, saved)
	}

	input := make(chan byte)
	go func() {
		var b [1]byte
		for {
			if _, err := os.Stdin.Read(b[:]); err != nil {
				close(input)
				return
			}
			input <- b[0]
		}
	}()

	for {
		select {
		case b := <-m.Output():
			if b == '\n' {
				os.Stdout.Write([]byte{'\r', '\n'})
			} else {
				os.Stdout.Write([]byte{b})
			}
			m.AckOutput()
		case b, ok := <-input:
			if !ok || b == 0x03 {
				return nil
			}
			m.Deliver(b)
		}
	}
}
