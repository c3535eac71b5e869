//go:build linux

package offload

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cilium/ebpf"
	"github.com/rjeczalik/notify"
)

// waitForPin blocks until path shows up in the BPF filesystem or the
// timeout runs out. The loader daemon pins the translation programs on
// its own schedule, so on boot we may well get here first.
func waitForPin(path string, timeout time.Duration) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	events := make(chan notify.EventInfo, 16)
	if err := notify.Watch(filepath.Dir(path), events, notify.InCreate, notify.InMovedTo); err != nil {
		return fmt.Errorf("couldn't watch %q: %w", filepath.Dir(path), err)
	}
	defer notify.Stop(events)

	// The pin might have appeared between the stat and the watch.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	slog.Info("waiting for pinned program", "path", path, "timeout", timeout)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-events:
			if ev.Path() == path {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for pinned program %q", path)
		}
	}
}

// openPinnedProgram picks up an already loaded classifier program by its
// pin. The fd we get back is what the filter requests hand to the kernel.
func openPinnedProgram(path string, wait time.Duration) (*ebpf.Program, error) {
	if err := waitForPin(path, wait); err != nil {
		return nil, err
	}

	prog, err := ebpf.LoadPinnedProgram(path, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't open pinned program %q: %w", path, err)
	}

	if t := prog.Type(); t != ebpf.SchedCLS {
		prog.Close()
		return nil, fmt.Errorf("pinned program %q is a %v program, not a TC classifier", path, t)
	}

	slog.Debug("opened pinned program", "path", path, "fd", prog.FD())

	return prog, nil
}
