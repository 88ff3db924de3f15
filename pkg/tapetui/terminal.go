package tapetui

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Terminal abstracts the sink/source the runtime drives: it writes
// bytes, receives decoded input strings and resize notifications, and
// reports its current dimensions. Spec §6.
type Terminal interface {
	// Start puts the terminal into raw mode and begins listening for
	// input and resize events. onInput receives raw input chunks as
	// strings (not validated and not necessarily UTF-8 text, since raw
	// escape sequences pass through verbatim). onResize is called
	// whenever dimensions change.
	Start(onInput func(string), onResize func()) error

	// Stop restores the terminal to its original (cooked) state.
	// Idempotent after the first call.
	Stop() error

	// DrainInput blocks until input has been idle for idle for the
	// stop-time sequencing described in spec §5/§6, or until max total
	// time has elapsed, whichever comes first.
	DrainInput(maxWait, idle time.Duration)

	// Write sends raw bytes to the terminal in a single write.
	Write(p []byte)

	// Columns returns the current terminal width.
	Columns() int

	// Rows returns the current terminal height.
	Rows() int
}

// ProcessTerminal is a Terminal backed by os.Stdin/os.Stdout, the
// production implementation. Dimensions are cached and refreshed on
// SIGWINCH to avoid a syscall on every render.
type ProcessTerminal struct {
	origTermios *unix.Termios
	onInput     func(string)
	onResize    func()

	sigCh chan os.Signal
	done  chan struct{}

	sizeMu sync.RWMutex
	cols   int
	rows   int

	lastInputMu sync.Mutex
	lastInput   time.Time
}

// NewProcessTerminal creates a ProcessTerminal. Call Start to begin
// raw mode and event delivery.
func NewProcessTerminal() *ProcessTerminal {
	return &ProcessTerminal{}
}

func (t *ProcessTerminal) Start(onInput func(string), onResize func()) error {
	t.onInput = onInput
	t.onResize = onResize
	t.done = make(chan struct{})

	fd := int(os.Stdin.Fd())
	orig, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return errors.Wrap(err, "get termios")
	}
	t.origTermios = orig

	raw := *orig
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return errors.Wrap(err, "set raw mode")
	}

	t.refreshSize()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				t.lastInputMu.Lock()
				t.lastInput = time.Now()
				t.lastInputMu.Unlock()
				t.onInput(string(data))
			}
			if err != nil {
				return
			}
		}
	}()

	t.sigCh = make(chan os.Signal, 1)
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-t.sigCh:
				t.refreshSize()
				if t.onResize != nil {
					t.onResize()
				}
			case <-t.done:
				return
			}
		}
	}()

	return nil
}

func (t *ProcessTerminal) Stop() error {
	if t.done != nil {
		select {
		case <-t.done:
		default:
			close(t.done)
		}
	}
	if t.sigCh != nil {
		signal.Stop(t.sigCh)
	}
	if t.origTermios != nil {
		fd := int(os.Stdin.Fd())
		if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, t.origTermios); err != nil {
			return errors.Wrap(err, "restore termios")
		}
	}
	return nil
}

// DrainInput waits until no input has arrived for idle, or until
// maxWait has elapsed in total, whichever is sooner. This lets Stop
// flush a final pasted/typed burst before teardown bytes are written
// (spec §5, §6; see SPEC_FULL.md supplement 6).
func (t *ProcessTerminal) DrainInput(maxWait, idle time.Duration) {
	deadline := time.Now().Add(maxWait)
	poll := idle / 4
	if poll <= 0 {
		poll = time.Millisecond
	}
	for {
		t.lastInputMu.Lock()
		last := t.lastInput
		t.lastInputMu.Unlock()
		if last.IsZero() || time.Since(last) >= idle {
			return
		}
		if time.Now().Add(poll).After(deadline) {
			return
		}
		time.Sleep(poll)
	}
}

func (t *ProcessTerminal) Write(p []byte) {
	_, _ = os.Stdout.Write(p)
}

func (t *ProcessTerminal) Columns() int {
	t.sizeMu.RLock()
	c := t.cols
	t.sizeMu.RUnlock()
	if c == 0 {
		return 80
	}
	return c
}

func (t *ProcessTerminal) Rows() int {
	t.sizeMu.RLock()
	r := t.rows
	t.sizeMu.RUnlock()
	if r == 0 {
		return 24
	}
	return r
}

// refreshSize queries the kernel for current terminal dimensions.
// Called once at Start and on every SIGWINCH.
func (t *ProcessTerminal) refreshSize() {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return
	}
	t.sizeMu.Lock()
	if ws.Col > 0 {
		t.cols = int(ws.Col)
	}
	if ws.Row > 0 {
		t.rows = int(ws.Row)
	}
	t.sizeMu.Unlock()
}
