package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/rknit/TbO2/machine"
)

// devMode runs m under a Runner and reloads the ROM image whenever it
// changes on disk. With monitor set, the tview monitor owns the terminal
// and the log; otherwise the regular console (or raw CLI) host runs.
func devMode(m *machine.Machine, romFile string, monitor, cli bool) error {
	romFile = filepath.Clean(romFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory, not the file: editors and assemblers tend to
	// replace the image rather than rewrite it in place.
	if err := watcher.Watch(filepath.Dir(romFile)); err != nil {
		return err
	}

	runner := machine.NewRunner()
	swap := func() error {
		image, err := os.ReadFile(romFile)
		if err != nil {
			return err
		}
		return runner.Swap(image)
	}

	go func() {
		var reload <-chan time.Time
		for {
			select {
			case <-reload:
				log.Printf("dev: reload %s", filepath.Base(romFile))
				if err := swap(); err != nil {
					log.Printf("dev: %v", err)
				}
			case ev := <-watcher.Event:
				if ev.Name == romFile && !ev.IsAttrib() {
					reload = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()

	go runner.Run(m)
	defer m.Halt()

	if monitor {
		mon := newMonitor(m, swap)
		log.SetOutput(mon.log)
		err := mon.Run()
		log.SetOutput(os.Stderr)
		return err
	}
	if cli {
		return runCLI(m)
	}
	return runConsole(m)
}
