package tapetui

import (
	"bytes"
	"strconv"
	"time"
)

// Runtime is the single-threaded cooperative event loop tying together
// every other piece of this package: the component registry, the wake
// bus, the output gate, the diff renderer, the inline viewport, the
// surface compositor, the terminal port, and the structured input
// parser (spec §2, §5).
//
// All state below is owned exclusively by the goroutine running Start
// (the "UI goroutine"); everything reachable from other goroutines —
// stdin, SIGWINCH, component callbacks — only ever touches the bus.
type Runtime struct {
	registry   *ComponentRegistry
	bus        *WakeBus
	gate       *OutputGate
	renderer   *DiffRenderer
	viewport   *InlineViewport
	compositor *SurfaceCompositor
	term       Terminal
	parser     KeyParser
	diag       Diagnostics

	roots   []ComponentId
	focused ComponentId

	surfaceOrder []SurfaceId
	surfaces     map[SurfaceId]*surfaceEntry

	kittyActive  bool
	kittyPending bool

	cellSizePending bool
	cellSizeBuf     []byte
	imageCap        ImageCapability

	cleanup *panicCleanup
	running bool
}

// ImageCapability records the terminal's reported cell pixel size, as
// resolved by the CmdQueryCellSize round trip started in Start (spec
// §4.7: "store {width_px=W, height_px=H} into the image-capability
// service").
type ImageCapability struct {
	WidthPx  int
	HeightPx int
}

// ImageCapability returns the most recently resolved cell pixel size,
// or the zero value if the query hasn't completed yet.
func (r *Runtime) ImageCapability() ImageCapability { return r.imageCap }

// RuntimeOption configures optional dependencies at construction time.
type RuntimeOption func(*Runtime)

// WithDiagnostics overrides the default slog-backed Diagnostics sink.
func WithDiagnostics(d Diagnostics) RuntimeOption {
	return func(r *Runtime) { r.diag = d }
}

// WithKeyParser overrides the default ultraviolet-backed KeyParser.
func WithKeyParser(p KeyParser) RuntimeOption {
	return func(r *Runtime) { r.parser = p }
}

// NewRuntime wires a Runtime around term, which must not yet have had
// Start called on it.
func NewRuntime(term Terminal, opts ...RuntimeOption) *Runtime {
	registry := NewComponentRegistry()
	r := &Runtime{
		registry:   registry,
		bus:        NewWakeBus(),
		gate:       &OutputGate{},
		renderer:   NewDiffRenderer(),
		viewport:   &InlineViewport{},
		compositor: NewSurfaceCompositor(registry),
		term:       term,
		parser:     NewUVKeyParser(),
		diag:       NewSlogDiagnostics(nil),
		surfaces:   make(map[SurfaceId]*surfaceEntry),
		cleanup:    newPanicCleanup(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the component registry so callers can register
// components before the first root is set.
func (r *Runtime) Registry() *ComponentRegistry { return r.registry }

// AllocSurfaceId hands out a fresh SurfaceId for a caller intending to
// show a new surface.
func (r *Runtime) AllocSurfaceId() SurfaceId { return r.bus.AllocSurfaceId() }

// Dispatch enqueues cmd for processing on the next tick. Safe to call
// from any goroutine.
func (r *Runtime) Dispatch(cmd Command) { r.bus.PostCommand(cmd) }

// enqueue is the internal alias Dispatch delegates to; kept distinct
// so CustomCommandContext's intent reads as "queue a follow-up", not
// "accept arbitrary external input".
func (r *Runtime) enqueue(cmd Command) { r.bus.PostCommand(cmd) }

// RequestRender schedules a render after the current tick, coalescing
// with any other pending render request.
func (r *Runtime) RequestRender() { r.bus.RequestRender() }

// RequestStop requests the event loop to exit after completing the current
// tick. Safe to call from any goroutine, including from inside a
// Component's own callback.
func (r *Runtime) RequestStop() { r.bus.RequestStop() }

// Start negotiates protocols in the order bracketed paste enable ->
// kitty enable -> kitty query -> cell-size query -> first render
// (SPEC_FULL.md supplement 7; spec §4.7 for the cell-size round trip).
func (r *Runtime) Start() error {
	if err := r.term.Start(r.onInput, r.onResize); err != nil {
		return startError(err, "terminal raw mode")
	}
	r.cleanup.install()
	r.running = true

	r.viewport.NoteTerminalHeight(r.term.Rows())

	r.gate.Push(GateCommand{Kind: CmdBracketedPasteEnable})
	r.gate.Push(GateCommand{Kind: CmdKittyEnable})
	r.gate.Push(GateCommand{Kind: CmdKittyQuery})
	r.gate.Push(GateCommand{Kind: CmdQueryCellSize})
	r.kittyPending = true
	r.cellSizePending = true
	r.gate.Flush(r.term)

	r.renderTick()
	return nil
}

// Stop tears the runtime down: it drains any in-flight input burst,
// disables every negotiated protocol in reverse order, restores the
// cursor, and returns the terminal to cooked mode.
func (r *Runtime) Stop() error {
	r.running = false
	r.cleanup.uninstall()
	r.term.DrainInput(200*time.Millisecond, 20*time.Millisecond)

	r.gate.Push(GateCommand{Kind: CmdKittyDisable})
	r.gate.Push(GateCommand{Kind: CmdBracketedPasteDisable})
	r.gate.Push(GateCommand{Kind: CmdShowCursor})
	r.gate.Flush(r.term)

	if err := r.term.Stop(); err != nil {
		return stopError(err, "terminal restore")
	}
	return nil
}

// Run blocks, processing ticks until a stop is requested (via
// RequestStop, a CustomCommand, or RequestStopCommand()). It is the
// normal way to drive the runtime after Start.
//
// A panic escaping a tick still leaves the terminal in raw/kitty/
// bracketed-paste mode unless something restores it first, so Run
// fires the same cleanup a fatal signal would before re-panicking
// (spec.md:222, SPEC_FULL.md supplement 5).
func (r *Runtime) Run() {
	defer func() {
		if rec := recover(); rec != nil {
			r.cleanup.fire()
			panic(rec)
		}
	}()
	for r.running {
		snap := r.bus.WaitForTick()
		if snap.stop {
			r.running = false
			return
		}
		r.processTick(snap)
	}
}

// FlushPendingOutput writes whatever the output gate is holding —
// e.g. a SetTitle or Terminal(op) command — without rendering a
// frame. processTick calls this itself when a tick's commands queued
// bytes but none required a render; a host driving the runtime by
// hand (outside Run) can call it directly (spec §5: "a host may call
// flush_pending_output to emit without a render").
func (r *Runtime) FlushPendingOutput() { r.gate.Flush(r.term) }

// onInput is the stdin-reader callback registered with Terminal.Start.
func (r *Runtime) onInput(raw string) { r.bus.PostInput(raw) }

// onResize is the SIGWINCH callback registered with Terminal.Start.
func (r *Runtime) onResize() { r.bus.PostResize() }

// processTick applies one drained wake-bus snapshot. Only work that
// can actually change what's on screen forces a renderTick; a batch
// made up solely of gate-only commands (SetTitle, Terminal ops like
// ShowCursor/MoveBy) still gets flushed this tick, just without
// paying for a full render (spec §5: "SetTitle... never forces a
// render" and the Terminal(op) cursor/move helpers, generalized to
// the same rule).
func (r *Runtime) processTick(snap pendingSnapshot) {
	needsRender := snap.render || snap.resize || len(snap.inputs) > 0

	for _, cmd := range snap.commands {
		if r.applyCommand(cmd) {
			needsRender = true
		}
	}

	if snap.resize {
		r.viewport.NoteTerminalHeight(r.term.Rows())
		r.renderer.RequestFullRedrawNext()
	}

	for _, raw := range snap.inputs {
		r.routeRaw([]byte(raw))
	}

	r.reconcileFocus()

	if needsRender {
		r.renderTick()
		return
	}
	if r.gate.Len() > 0 {
		r.FlushPendingOutput()
	}
}

// applyCommand applies cmd and reports whether it requires a render
// this tick, as opposed to merely queuing bytes on the output gate.
func (r *Runtime) applyCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdRequestRender:
		return true
	case CmdRequestStop:
		r.running = false
		return false
	case CmdSetTitle:
		r.gate.PushBytes([]byte("\x1b]0;" + cmd.Title + "\x07"))
		return false
	case CmdRootSet:
		r.roots = append([]ComponentId(nil), cmd.RootIds...)
		return true
	case CmdRootPush:
		r.roots = append(r.roots, cmd.ComponentId)
		return true
	case CmdFocusSet:
		r.setFocus(cmd.ComponentId)
		return true
	case CmdFocusClear:
		r.setFocus(0)
		return true
	case CmdShowSurface:
		r.showSurface(cmd.SurfaceId, cmd.ComponentId, cmd.Options, cmd.Hidden)
		return true
	case CmdHideSurface:
		r.removeSurface(cmd.SurfaceId)
		return true
	case CmdSetSurfaceHidden:
		r.setSurfaceHidden(cmd.SurfaceId, cmd.Hidden)
		return true
	case CmdUpdateSurfaceOptions:
		if e, ok := r.surfaces[cmd.SurfaceId]; ok {
			e.options = cmd.Options
			return true
		}
		r.diag.Report(DiagMissingSurfaceId, "update options on unknown surface", "surface_id", cmd.SurfaceId)
		return false
	case CmdTerminalOp:
		r.applyTerminalOp(cmd.Op, cmd.MoveDelta)
		return false
	case CmdCustom:
		if cmd.Custom != nil {
			if err := cmd.Custom.Run(&CustomCommandContext{rt: r}); err != nil {
				r.diag.Report(DiagCustomCommandError, err.Error())
			}
		}
		return true
	default:
		return false
	}
}

func (r *Runtime) applyTerminalOp(op TerminalOp, delta int) {
	switch op {
	case OpShowCursor:
		r.gate.Push(GateCommand{Kind: CmdShowCursor})
	case OpHideCursor:
		r.gate.Push(GateCommand{Kind: CmdHideCursor})
	case OpClearLine:
		r.gate.Push(GateCommand{Kind: CmdClearLine})
	case OpClearFromCursor:
		r.gate.Push(GateCommand{Kind: CmdClearFromCursor})
	case OpClearScreen:
		r.gate.Push(GateCommand{Kind: CmdClearScreen})
		r.renderer.ResetForExternalClearScreen()
	case OpMoveBy:
		if delta < 0 {
			r.gate.Push(GateCommand{Kind: CmdMoveUp, N: -delta})
		} else {
			r.gate.Push(GateCommand{Kind: CmdMoveDown, N: delta})
		}
		r.renderer.ApplyOutOfBandMoveBy(delta, r.term.Rows())
	case OpRequestFullRedraw:
		r.renderer.RequestFullRedrawNext()
	}
}

func (r *Runtime) setFocus(id ComponentId) {
	if r.focused == id {
		return
	}
	if comp, ok := r.registry.Get(r.focused); ok {
		if f, ok := comp.(Focusable); ok {
			f.SetFocused(false)
		}
	}
	r.focused = id
	if comp, ok := r.registry.Get(id); ok {
		if f, ok := comp.(Focusable); ok {
			f.SetFocused(true)
		}
	}
}

// showSurface creates or replaces the entry for id, pushing it to the
// top of the stack. Replacing an already-visible surface preserves its
// stack position rather than re-promoting it, so only a genuinely new
// id (or one shown after being hidden) moves to the top — except
// through SetSurfaceHidden(false), which always promotes (Open
// Question #2 decision, recorded in SPEC_FULL.md).
func (r *Runtime) showSurface(id SurfaceId, componentId ComponentId, options *SurfaceOptions, hidden bool) {
	entry, existed := r.surfaces[id]
	if !existed {
		entry = &surfaceEntry{id: id}
		r.surfaces[id] = entry
		r.surfaceOrder = append(r.surfaceOrder, id)
	}
	entry.componentId = componentId
	entry.options = options
	entry.hidden = hidden

	if !hidden && effectiveOptions(options).Input == InputCapture {
		entry.preFocus = r.focused
		r.setFocus(componentId)
	}
}

func (r *Runtime) removeSurface(id SurfaceId) {
	entry, ok := r.surfaces[id]
	if !ok {
		r.diag.Report(DiagMissingSurfaceId, "hide unknown surface", "surface_id", id)
		return
	}
	if r.focused == entry.componentId {
		r.setFocus(entry.preFocus)
	}
	delete(r.surfaces, id)
	for i, sid := range r.surfaceOrder {
		if sid == id {
			r.surfaceOrder = append(r.surfaceOrder[:i], r.surfaceOrder[i+1:]...)
			break
		}
	}
}

// setSurfaceHidden toggles visibility without reconstructing the
// entry's component/options. Hiding keeps the entry's stack position;
// un-hiding always
// promotes the surface to the top of the stack and, for a capture
// surface, to focus (Open Question #2 decision).
func (r *Runtime) setSurfaceHidden(id SurfaceId, hidden bool) {
	entry, ok := r.surfaces[id]
	if !ok {
		r.diag.Report(DiagMissingSurfaceId, "set-hidden on unknown surface", "surface_id", id)
		return
	}
	wasHidden := entry.hidden
	entry.hidden = hidden
	if hidden && !wasHidden {
		if r.focused == entry.componentId {
			r.setFocus(entry.preFocus)
		}
		return
	}
	if !hidden && wasHidden {
		for i, sid := range r.surfaceOrder {
			if sid == id {
				r.surfaceOrder = append(append(r.surfaceOrder[:i], r.surfaceOrder[i+1:]...), id)
				break
			}
		}
		if effectiveOptions(entry.options).Input == InputCapture {
			entry.preFocus = r.focused
			r.setFocus(entry.componentId)
		}
	}
}

// reconcileFocus runs once per tick after command/input processing:
// if the focused component no longer exists, focus falls back to the
// topmost visible capture surface, or else is cleared.
func (r *Runtime) reconcileFocus() {
	if r.focused != 0 {
		if _, ok := r.registry.Get(r.focused); ok {
			return
		}
	}
	if target, ok := r.topmostCaptureTarget(); ok {
		r.setFocus(target)
		return
	}
	r.focused = 0
}

func (r *Runtime) topmostCaptureTarget() (ComponentId, bool) {
	if e, ok := r.topmostCaptureEntry(); ok {
		return e.componentId, true
	}
	return 0, false
}

func (r *Runtime) topmostCaptureEntry() (*surfaceEntry, bool) {
	for i := len(r.surfaceOrder) - 1; i >= 0; i-- {
		e := r.surfaces[r.surfaceOrder[i]]
		if e.hidden {
			continue
		}
		if effectiveOptions(e.options).Input == InputCapture {
			return e, true
		}
	}
	return nil, false
}

// routeRaw demultiplexes one raw input chunk: protocol responses
// (kitty capability query, cell-size query) are intercepted before
// ever reaching the structured parser; everything else is decoded and
// dispatched event by event (spec §4.7).
func (r *Runtime) routeRaw(data []byte) {
	if r.kittyPending && r.parser.IsKittyQueryResponse(data) {
		r.kittyActive = true
		r.kittyPending = false
		return
	}
	if r.cellSizePending {
		data = r.filterCellSizeResponse(data)
		if len(data) == 0 {
			return
		}
	}
	for _, ev := range r.parser.Parse(data, r.kittyActive) {
		r.dispatchEvent(ev)
	}
}

// isCellSizeResponse recognizes CSI 6 ; height ; width t, the reply to
// CmdQueryCellSize, which must never be routed to components.
func isCellSizeResponse(data []byte) bool {
	const prefix = "\x1b[6;"
	if len(data) < len(prefix)+1 || string(data[:len(prefix)]) != prefix {
		return false
	}
	return data[len(data)-1] == 't'
}

// cellSizeMarker is the fixed prefix of a cell-size reply; everything
// between it and the first 't' byte is "H;W".
const cellSizeMarker = "\x1b[6;"

// filterCellSizeResponse strips a CSI 6;H;Wt reply from data wherever
// it appears in the chunk, buffering a reply that hasn't fully arrived
// yet so it can be completed from the next chunk (spec §4.7: "Partial
// sequences remain buffered"). On a complete match it records the
// reported cell size, invalidates every root component, and requests a
// render before the response bytes are stripped from what's returned.
func (r *Runtime) filterCellSizeResponse(data []byte) []byte {
	buf := data
	if len(r.cellSizeBuf) > 0 {
		buf = append(r.cellSizeBuf, data...)
		r.cellSizeBuf = nil
	}

	idx := bytes.Index(buf, []byte(cellSizeMarker))
	if idx < 0 {
		return buf
	}

	end := bytes.IndexByte(buf[idx+len(cellSizeMarker):], 't')
	if end < 0 {
		r.cellSizeBuf = append([]byte(nil), buf[idx:]...)
		return buf[:idx]
	}
	end += idx + len(cellSizeMarker)

	rest := append(append([]byte(nil), buf[:idx]...), buf[end+1:]...)
	if w, h, ok := parseCellSizeBody(buf[idx+len(cellSizeMarker) : end]); ok {
		r.cellSizePending = false
		r.imageCap = ImageCapability{WidthPx: w, HeightPx: h}
		r.invalidateRoots()
		r.bus.RequestRender()
	}
	return rest
}

// parseCellSizeBody parses the "H;W" body of a CSI 6;H;Wt reply.
func parseCellSizeBody(body []byte) (widthPx, heightPx int, ok bool) {
	parts := bytes.SplitN(body, []byte{';'}, 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, errH := strconv.Atoi(string(parts[0]))
	w, errW := strconv.Atoi(string(parts[1]))
	if errH != nil || errW != nil {
		return 0, 0, false
	}
	return w, h, true
}

// invalidateRoots discards cached render state on every root component,
// forcing each to rebuild its output from scratch on the next render.
func (r *Runtime) invalidateRoots() {
	for _, id := range r.roots {
		if comp, ok := r.registry.Get(id); ok {
			comp.Invalidate()
		}
	}
}

// dispatchEvent routes one decoded InputEvent to the capture target
// if a capture surface is visible, falling back to the focused
// component, per spec §4.7.
func (r *Runtime) dispatchEvent(ev InputEvent) {
	isRelease := false
	if k, ok := ev.(KeyInputEvent); ok && k.Type == KeyRelease {
		isRelease = true
	}

	target := r.currentTarget()
	if target != 0 && (!isRelease || r.targetWantsKeyRelease(target)) {
		if comp, ok := r.registry.Get(target); ok {
			if ih, ok := comp.(InputHandler); ok {
				if ih.HandleInput(EventContext{Runtime: r, Source: target}, ev) {
					return
				}
			}
		}
	}
	if fallback, ok := r.fallbackTarget(); ok && fallback != target && (!isRelease || r.targetWantsKeyRelease(fallback)) {
		if comp, ok := r.registry.Get(fallback); ok {
			if ih, ok := comp.(InputHandler); ok {
				ih.HandleInput(EventContext{Runtime: r, Source: fallback}, ev)
			}
		}
	}
}

func (r *Runtime) currentTarget() ComponentId {
	if target, ok := r.topmostCaptureTarget(); ok {
		return target
	}
	return r.focused
}

// fallbackTarget is who would handle an event a capture surface
// declines: the component that held focus before that surface
// captured it, or else whatever currently holds focus, or else the
// topmost root (spec §4.7).
func (r *Runtime) fallbackTarget() (ComponentId, bool) {
	if e, ok := r.topmostCaptureEntry(); ok && e.preFocus != 0 {
		return e.preFocus, true
	}
	if r.focused != 0 {
		return r.focused, true
	}
	if len(r.roots) > 0 {
		return r.roots[len(r.roots)-1], true
	}
	return 0, false
}

func (r *Runtime) targetWantsKeyRelease(id ComponentId) bool {
	comp, ok := r.registry.Get(id)
	if !ok {
		return false
	}
	kra, ok := comp.(KeyReleaseAware)
	return ok && kra.WantsKeyRelease()
}

// renderTick renders every root, composites visible surfaces over the
// result, clamps the cursor to the inline viewport, and flushes a
// diff against the previous frame through the output gate. This is
// the only place a frame is produced; it runs at most once per tick
// regardless of how many inputs/commands triggered it (spec §4.5, §8).
func (r *Runtime) renderTick() {
	width := r.term.Columns()
	height := r.term.Rows()

	var lines []Line
	for _, id := range r.roots {
		comp, ok := r.registry.Get(id)
		if !ok {
			r.diag.Report(DiagMissingComponentId, "root references unknown component", "component_id", id)
			continue
		}
		result := comp.Render(width)
		lines = append(lines, result.Lines...)
	}

	r.viewport.UpdateTotalLines(len(lines))
	frame := Frame{Lines: lines}

	visible := r.visibleSurfaces()
	hasSurfaces := len(visible) > 0
	if hasSurfaces {
		composited, cursor := r.compositor.Composite(frame.Lines, frame.Cursor, visible, width, height, r.renderer.MaxLinesRendered())
		frame.Lines = composited
		frame.Cursor = cursor
	}
	frame.Cursor = r.viewport.ClampCursor(frame.Cursor)

	r.renderer.Render(r.gate, frame, width, height, hasSurfaces)
	r.FlushPendingOutput()
}

func (r *Runtime) visibleSurfaces() []*surfaceEntry {
	var out []*surfaceEntry
	for _, id := range r.surfaceOrder {
		e := r.surfaces[id]
		if !e.hidden {
			out = append(out, e)
		}
	}
	return out
}
