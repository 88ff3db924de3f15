package tapetui

import "sync"

// WakeBus is the single coalescing wake-up point for the runtime's
// event loop (spec §5). Any number of goroutines (stdin reader,
// SIGWINCH handler, component callbacks, custom commands) may post
// work; the loop's single waiter wakes at most once per batch and
// drains everything pending.
type WakeBus struct {
	mu   sync.Mutex
	cond *sync.Cond

	nextSurfaceId SurfaceId

	pendingInputs   []string
	pendingResize   bool
	pendingCommands []Command
	renderRequested bool
	stopRequested   bool
}

// NewWakeBus creates an idle WakeBus.
func NewWakeBus() *WakeBus {
	b := &WakeBus{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// AllocSurfaceId returns a fresh, never-reused SurfaceId.
func (b *WakeBus) AllocSurfaceId() SurfaceId {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSurfaceId++
	return b.nextSurfaceId
}

// PostInput enqueues a raw input chunk and wakes the loop.
func (b *WakeBus) PostInput(raw string) {
	b.mu.Lock()
	b.pendingInputs = append(b.pendingInputs, raw)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// PostResize marks a resize as pending and wakes the loop.
func (b *WakeBus) PostResize() {
	b.mu.Lock()
	b.pendingResize = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// PostCommand enqueues a command and wakes the loop.
func (b *WakeBus) PostCommand(cmd Command) {
	b.mu.Lock()
	b.pendingCommands = append(b.pendingCommands, cmd)
	b.mu.Unlock()
	b.cond.Broadcast()
}

// RequestRender marks a render as pending and wakes the loop. Coalesces:
// any number of calls between ticks produce exactly one render.
func (b *WakeBus) RequestRender() {
	b.mu.Lock()
	b.renderRequested = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// RequestStop marks the loop for termination and wakes it.
func (b *WakeBus) RequestStop() {
	b.mu.Lock()
	b.stopRequested = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// pendingSnapshot is everything the loop drains in one tick.
type pendingSnapshot struct {
	inputs   []string
	resize   bool
	commands []Command
	render   bool
	stop     bool
}

// WaitForTick blocks until any work is pending, then atomically drains
// and returns it. It never returns an empty, non-stop snapshot.
func (b *WakeBus) WaitForTick() pendingSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.hasPendingLocked() {
		b.cond.Wait()
	}
	snap := pendingSnapshot{
		inputs:   b.pendingInputs,
		resize:   b.pendingResize,
		commands: b.pendingCommands,
		render:   b.renderRequested,
		stop:     b.stopRequested,
	}
	b.pendingInputs = nil
	b.pendingResize = false
	b.pendingCommands = nil
	b.renderRequested = false
	return snap
}

func (b *WakeBus) hasPendingLocked() bool {
	return len(b.pendingInputs) > 0 || b.pendingResize || len(b.pendingCommands) > 0 ||
		b.renderRequested || b.stopRequested
}
