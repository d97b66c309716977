// Command tbo2 runs the TbO2 serial console machine: host keystrokes fan
// in through an interrupt-fed input queue, and everything the guest sends
// back comes out through the handshake output channel onto the terminal.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"

	"github.com/rknit/TbO2/machine"
	"github.com/rknit/TbO2/serial"
)

func main() {
	log.SetPrefix("tbo2: ")
	log.SetFlags(0)

	var cli struct {
		Run runCmd `cmd default:"1" help:"run the machine"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	ROM   string `arg optional name:"rom" type:"existingfile" help:"32K ROM image to install"`
	CLI   bool   `help:"use raw stdin/stdout instead of the terminal UI"`
	Dev   bool   `help:"reload and restart when the ROM image changes on disk"`
	Debug bool   `help:"open the monitor UI (implies --dev)"`

	SerialBase int    `default:"32512" help:"bus address of the serial registers"`
	QueueSize  int    `default:"256" help:"input queue capacity (power of two)"`
	Overflow   string `default:"overwrite" enum:"overwrite,reject" help:"input queue overflow policy"`
}

func (r *runCmd) Run(ctx *kong.Context) error {
	policy := serial.Overwrite
	if r.Overflow == "reject" {
		policy = serial.Reject
	}
	m, err := machine.New(machine.Config{
		SerialBase: r.SerialBase,
		QueueSize:  r.QueueSize,
		Overflow:   policy,
	})
	if err != nil {
		return err
	}
	if r.ROM != "" {
		image, err := os.ReadFile(r.ROM)
		if err != nil {
			return err
		}
		if err := m.LoadROM(image); err != nil {
			return err
		}
	}

	if r.Dev || r.Debug {
		if r.ROM == "" {
			return fmt.Errorf("dev mode needs a ROM image to watch")
		}
		return devMode(m, r.ROM, r.Debug, r.CLI)
	}

	if err := m.Start(); err != nil {
		return err
	}
	defer m.Halt()
	if r.CLI {
		return runCLI(m)
	}
	return runConsole(m)
}
