package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rknit/TbO2/machine"
	"github.com/rknit/TbO2/serial"
)

// monitor is the tview machine monitor used by --debug: the serial console
// stream on the left, the log on the right, a watch column, a state line
// sampling the serial registers and queue depth, and a command input.
type monitor struct {
	m    *machine.Machine
	swap func() error

	log     *tview.TextView
	console *tview.TextView
	watch   *tview.TextView
	state   *tview.TextView
	input   *tview.InputField
	cols    *tview.Flex
	rows    *tview.Flex
	app     *tview.Application

	mu      sync.Mutex
	watches []int
}

func newMonitor(m *machine.Machine, swap func() error) *monitor {
	d := &monitor{
		m:    m,
		swap: swap,
		log: tview.NewTextView().
			SetMaxLines(1000),
		console: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.console.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.state.SetTextColor(tcell.ColorBlack)
	d.cols.
		AddItem(d.console, 0, 2, false).
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 1, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := d.input.GetText()
		if line == "" {
			return
		}
		d.input.SetText("")
		d.command(line)
	})
	return d
}

func (d *monitor) command(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "exit":
		d.app.Stop()
	case "reset":
		go func() {
			if err := d.swap(); err != nil {
				log.Printf("reset: %v", err)
			}
		}()
	case "send":
		// Paced like typing: the RX latch has no ack, so bytes delivered
		// back to back would overrun it.
		go func() {
			for i := 0; i < len(arg); i++ {
				d.m.Deliver(arg[i])
				time.Sleep(time.Millisecond)
			}
			d.m.Deliver('\r')
		}()
	case "w", "watch":
		addr, err := parseAddr(arg)
		if err != nil {
			log.Printf("watch: %v", err)
			return
		}
		d.mu.Lock()
		d.watches = append(d.watches, addr)
		d.mu.Unlock()
		log.Printf("watching %.4x", addr)
	case "p", "peek":
		addr, err := parseAddr(arg)
		if err != nil {
			log.Printf("peek: %v", err)
			return
		}
		log.Printf("%.4x  %.2x", addr, d.m.Peek(addr))
	case "poke":
		addrStr, valStr, ok := strings.Cut(arg, " ")
		if !ok {
			log.Printf("usage: poke addr value")
			return
		}
		addr, err := parseAddr(addrStr)
		if err != nil {
			log.Printf("poke: %v", err)
			return
		}
		val, err := strconv.ParseUint(valStr, 16, 8)
		if err != nil {
			log.Printf("poke: bad value %q", valStr)
			return
		}
		d.m.Poke(addr, byte(val))
		log.Printf("%.4x <- %.2x", addr, byte(val))
	default:
		log.Printf("commands: send TEXT | w ADDR | p ADDR | poke ADDR VAL | reset | exit")
	}
}

func parseAddr(s string) (int, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return int(v), nil
}

func (d *monitor) Run() error {
	stop := make(chan struct{})
	defer close(stop)
	go d.consoleLoop(stop)
	go d.refreshLoop(stop)
	return d.app.Run()
}

// consoleLoop plays the receiving device: it draws each serial output byte
// into the console view and only then acknowledges the handshake.
func (d *monitor) consoleLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case b := <-d.m.Output():
			switch {
			case b == '\r':
				// skip
			case b == '\n' || b >= 0x20 && b < 0x7f:
				fmt.Fprintf(d.console, "%c", b)
			}
			d.m.AckOutput()
		}
	}
}

func (d *monitor) refreshLoop(stop <-chan struct{}) {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			state := d.stateContent()
			watch := d.watchContent()
			d.app.QueueUpdateDraw(func() {
				d.state.SetText(state)
				d.watch.SetText(watch)
			})
		}
	}
}

func (d *monitor) stateContent() string {
	base := d.m.SerialBase()
	return fmt.Sprintf("queue %3d   rx %.2x  tx %.2x  ack %.2x",
		d.m.Buffered(),
		d.m.Peek(base+serial.RegRxData),
		d.m.Peek(base+serial.RegTxData),
		d.m.Peek(base+serial.RegTxCtrl))
}

func (d *monitor) watchContent() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for _, addr := range d.watches {
		fmt.Fprintf(&b, "[%.4x] %.2x\n", addr, d.m.Peek(addr))
	}
	return b.String()
}
