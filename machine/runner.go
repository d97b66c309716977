package machine

import "log"

// Runner runs a Machine and, in dev mode, hot-swaps its ROM image while
// the frontends stay attached.
type Runner struct {
	swap     chan []byte
	swapDone chan error
}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{
		swap:     make(chan []byte),
		swapDone: make(chan error),
	}
}

// Swap halts the machine, installs rom, and restarts it. It must only be
// called while Run is active. When Swap returns the machine is running
// again, so the caller may Deliver right away.
func (r *Runner) Swap(rom []byte) error {
	r.swap <- rom
	return <-r.swapDone
}

// Run drives m until it halts for a reason other than a pending swap.
func (r *Runner) Run(m *Machine) error {
	if err := m.Start(); err != nil {
		return err
	}
	for {
		select {
		case rom := <-r.swap:
			m.Halt()
			<-m.Done()
			err := m.LoadROM(rom)
			if err != nil {
				log.Printf("swap: %v", err)
			} else {
				log.Printf("swap: new ROM installed, restarting")
			}
			if serr := m.Start(); serr != nil {
				r.swapDone <- serr
				return serr
			}
			r.swapDone <- err
		case <-m.Done():
			return nil
		}
	}
}
