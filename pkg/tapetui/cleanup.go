package tapetui

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// restoreSequence is the byte sequence that undoes every protocol
// negotiation the runtime performs at Start, in reverse order (spec
// SPEC_FULL.md supplement 5: crash/signal cleanup must not depend on
// the normal Stop path having run).
const restoreSequence = "\x1b[<u\x1b[?2004l\x1b[?25h"

// panicCleanup installs a process-wide signal handler that writes
// restoreSequence directly to the controlling terminal (preferring
// /dev/tty, falling back to stdout) the first time the process
// receives SIGINT/SIGTERM/SIGHUP after a runtime has started; Run
// also fires it when a panic escapes a tick. It is idempotent: only
// the first trigger writes anything. uninstall stops listening for
// signals without writing.
type panicCleanup struct {
	fired  atomic.Bool
	sigCh  chan os.Signal
	notify chan struct{}
}

func newPanicCleanup() *panicCleanup {
	return &panicCleanup{sigCh: make(chan os.Signal, 1), notify: make(chan struct{})}
}

func (c *panicCleanup) install() {
	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case <-c.sigCh:
			c.fire()
			os.Exit(1)
		case <-c.notify:
		}
	}()
}

func (c *panicCleanup) uninstall() {
	signal.Stop(c.sigCh)
	select {
	case <-c.notify:
	default:
		close(c.notify)
	}
}

// fire writes restoreSequence exactly once, regardless of how many
// times it is called or from how many goroutines.
func (c *panicCleanup) fire() {
	if !c.fired.CompareAndSwap(false, true) {
		return
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		_, _ = os.Stdout.WriteString(restoreSequence)
		return
	}
	defer tty.Close()
	_, _ = tty.WriteString(restoreSequence)
}
