package tapetui

import (
	"fmt"
	"strings"
)

const (
	escSyncBegin       = "\x1b[?2026h"
	escSyncEnd         = "\x1b[?2026l"
	escClearScrollback = "\x1b[3J"
	escClearScreen     = "\x1b[2J"
	escCursorHome      = "\x1b[H"
	escClearLine       = "\x1b[2K"
)

func cursorUp(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("\x1b[%dA", n)
}

func cursorDown(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("\x1b[%dB", n)
}

func cursorVertical(delta int) string {
	if delta > 0 {
		return cursorDown(delta)
	}
	return cursorUp(-delta)
}

func cursorColumn(col int) string {
	return fmt.Sprintf("\x1b[%dG", col)
}

// DiffRenderer converts a new Frame plus terminal dimensions into bytes
// pushed onto an OutputGate that transform the terminal from its
// previous rendered state to match the new frame, while preserving
// scrollback, minimizing bytes written, and maintaining an accurate
// model of where the hardware cursor actually is. Spec §4.2.
type DiffRenderer struct {
	previousLines    []string // post segment-reset, flat
	previousIsImage  []bool
	previousWidth    int
	maxLinesRendered int

	logicalCursorRow  int
	hardwareCursorRow int

	previousViewportTop int

	forceFullRedrawNext bool

	// Environment-flag-controlled behavior (spec §6).
	ClearOnShrink      bool
	ShowHardwareCursor bool
	StrictWidth        bool
}

// NewDiffRenderer creates a renderer with defaults taken from the
// environment flags (spec §6); callers may override the fields after
// construction.
func NewDiffRenderer() *DiffRenderer {
	return &DiffRenderer{
		ClearOnShrink:      envBool("TAPE_CLEAR_ON_SHRINK", false),
		ShowHardwareCursor: envBool("TAPE_HARDWARE_CURSOR", false),
		StrictWidth:        envBool("TAPE_STRICT_WIDTH", false),
	}
}

// RequestFullRedrawNext marks that the next Render call must rewrite
// the entire viewport in place (per-line CSI 2K, no CSI 3J/2J),
// preserving scrollback.
func (r *DiffRenderer) RequestFullRedrawNext() {
	r.forceFullRedrawNext = true
}

// ResetForExternalClearScreen zeroes all renderer state without
// enqueuing any bytes. The next Render call then behaves like a first
// render, since an external actor (e.g. a Terminal(ClearScreen)
// command) already cleared the screen out from under the renderer.
func (r *DiffRenderer) ResetForExternalClearScreen() {
	r.previousLines = nil
	r.previousIsImage = nil
	r.previousWidth = 0
	r.maxLinesRendered = 0
	r.logicalCursorRow = 0
	r.hardwareCursorRow = 0
	r.previousViewportTop = 0
	r.forceFullRedrawNext = false
}

// ApplyOutOfBandMoveBy adjusts the renderer's hardware-cursor model
// after a command-driven cursor move that bypassed a full render
// (e.g. Terminal(MoveBy(delta))). The row is clamped to the current
// viewport, never to terminal_rows — see SPEC_FULL.md Open Question 1.
// previousLines is never mutated.
func (r *DiffRenderer) ApplyOutOfBandMoveBy(delta, height int) {
	lo := r.previousViewportTop
	hi := r.previousViewportTop + height - 1
	r.hardwareCursorRow = clamp(r.hardwareCursorRow+delta, lo, hi)
}

// MaxLinesRendered returns the largest line count ever rendered, used
// by the surface compositor to decide how much it may expand the
// working frame (spec §4.3).
func (r *DiffRenderer) MaxLinesRendered() int { return r.maxLinesRendered }

// HardwareCursorRow returns the renderer's current model of where the
// hardware cursor sits (absolute row index).
func (r *DiffRenderer) HardwareCursorRow() int { return r.hardwareCursorRow }

// PreviousViewportTop returns previousViewportTop, maintained as the
// invariant previousViewportTop + min(height, maxLinesRendered) ==
// maxLinesRendered (spec §3, §8).
func (r *DiffRenderer) PreviousViewportTop() int { return r.previousViewportTop }

// Render is the entry point: it compares the new frame against the
// previous render and pushes the minimal set of bytes onto gate to
// bring the terminal up to date.
func (r *DiffRenderer) Render(gate *OutputGate, frame Frame, width, height int, hasSurfaces bool) {
	lines, isImage := r.prepareLines(frame.Lines, width)

	widthChanged := r.previousWidth != 0 && r.previousWidth != width

	switch {
	case len(r.previousLines) == 0 && !widthChanged:
		r.writeFullRedraw(gate, lines, isImage, width, height, frame.Cursor, false)
		return
	case widthChanged:
		r.writeFullRedraw(gate, lines, isImage, width, height, frame.Cursor, true)
		return
	case r.ClearOnShrink && len(lines) < r.maxLinesRendered && !hasSurfaces:
		r.writeFullRedraw(gate, lines, isImage, width, height, frame.Cursor, true)
		return
	case r.forceFullRedrawNext:
		r.forceFullRedrawNext = false
		r.writeFullRedraw(gate, lines, isImage, width, height, frame.Cursor, false)
		return
	}

	if r.tryInsertBefore(gate, lines, isImage, width, height, frame.Cursor, hasSurfaces) {
		return
	}

	dr := diffLines(r.previousLines, lines)

	if dr.firstChanged == -1 {
		r.positionHardwareCursor(gate, frame.Cursor, len(lines))
		r.previousViewportTop = max(0, r.maxLinesRendered-height)
		r.previousLines = lines
		r.previousIsImage = isImage
		return
	}

	r.writeGeneralDiff(gate, lines, isImage, width, height, frame.Cursor, dr)
}

// prepareLines extracts text from each Line, clamping (or, in strict
// mode, panicking on) width overflow for non-image lines, and appends
// the segment reset to every non-image line (spec §4.2 step 1, 8).
func (r *DiffRenderer) prepareLines(lines []Line, width int) ([]string, []bool) {
	out := make([]string, len(lines))
	isImage := make([]bool, len(lines))
	for i, l := range lines {
		isImage[i] = l.IsImage
		text := l.Text()
		if l.IsImage {
			out[i] = text
			continue
		}
		if VisibleWidth(text) > width {
			if r.StrictWidth {
				panic(fmt.Sprintf("tapetui: line %d exceeds width %d in strict-width mode", i, width))
			}
			text = SliceByColumn(text, 0, width)
		}
		out[i] = text + segmentReset
	}
	return out, isImage
}

// diffResult holds the output of diffLines.
type diffResult struct {
	firstChanged int
	lastChanged  int
}

// diffLines compares old and new line slices and returns the range of
// changed lines. Extra trailing lines in prev (a pure shrink) count as
// changed too, per spec §4.2 step 5.
func diffLines(prev, next []string) diffResult {
	firstChanged := -1
	lastChanged := -1
	n := max(len(next), len(prev))
	for i := range n {
		var oldLine, newLine string
		haveOld := i < len(prev)
		haveNew := i < len(next)
		if haveOld {
			oldLine = prev[i]
		}
		if haveNew {
			newLine = next[i]
		}
		if !haveOld || !haveNew || oldLine != newLine {
			if firstChanged == -1 {
				firstChanged = i
			}
			lastChanged = i
		}
	}
	return diffResult{firstChanged: firstChanged, lastChanged: lastChanged}
}

func (r *DiffRenderer) writeFullRedraw(gate *OutputGate, lines []string, isImage []bool, width, height int, cursor *CursorPos, clear bool) {
	var buf strings.Builder
	buf.WriteString(escSyncBegin)
	if clear {
		buf.WriteString(escClearScrollback)
		buf.WriteString(escClearScreen)
		buf.WriteString(escCursorHome)
	}
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		if !clear {
			buf.WriteString(escClearLine)
		}
		buf.WriteString(line)
	}
	buf.WriteString(escSyncEnd)
	gate.PushBytes([]byte(buf.String()))

	cr := max(0, len(lines)-1)
	ml := r.maxLinesRendered
	if clear {
		ml = len(lines)
	} else {
		ml = max(ml, len(lines))
	}

	r.logicalCursorRow = cr
	r.hardwareCursorRow = cr
	r.maxLinesRendered = ml
	r.previousViewportTop = max(0, ml-height)

	r.positionHardwareCursor(gate, cursor, len(lines))

	r.previousLines = lines
	r.previousIsImage = isImage
	r.previousWidth = width
}

// tryInsertBefore attempts the insert-before fast path (spec §4.2 step
// 6): lines were purely prepended ahead of an anchored-to-tail
// viewport, so the prepended history can be written above the
// viewport without touching (or clearing) anything already on screen.
// Returns false (no bytes written) if any precondition fails.
func (r *DiffRenderer) tryInsertBefore(gate *OutputGate, lines []string, isImage []bool, width, height int, cursor *CursorPos, hasSurfaces bool) bool {
	prev := r.previousLines
	if len(prev) == 0 || len(lines) <= len(prev) {
		return false
	}
	if width != r.previousWidth {
		return false
	}
	if hasSurfaces {
		return false
	}
	if r.maxLinesRendered != len(prev) {
		return false
	}
	if r.previousViewportTop <= 0 || r.previousViewportTop != len(prev)-height {
		return false
	}
	for _, im := range r.previousIsImage {
		if im {
			return false
		}
	}
	for _, im := range isImage {
		if im {
			return false
		}
	}
	if r.hardwareCursorRow < r.previousViewportTop || r.hardwareCursorRow > r.previousViewportTop+height-1 {
		return false
	}

	inserted := len(lines) - len(prev)
	k, ok := findInsertIndex(prev, lines, inserted, r.previousViewportTop)
	if !ok {
		return false
	}

	var buf strings.Builder
	buf.WriteString(escSyncBegin)

	// Move cursor to previous viewport bottom.
	bottomRow := r.previousViewportTop + height - 1
	buf.WriteString(cursorVertical(bottomRow - r.hardwareCursorRow))
	hw := bottomRow

	for i := 0; i < inserted; i++ {
		buf.WriteString("\r")
		buf.WriteString(escClearLine)
		buf.WriteString(lines[k+i])
		buf.WriteString("\r\n")
		hw++
	}

	buf.WriteString(cursorUp(height - 1))

	newViewportTop := len(lines) - height
	for i := 0; i < height; i++ {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		buf.WriteString("\r")
		buf.WriteString(escClearLine)
		buf.WriteString(lines[newViewportTop+i])
	}

	buf.WriteString(escSyncEnd)
	gate.PushBytes([]byte(buf.String()))

	r.maxLinesRendered += inserted
	r.logicalCursorRow = len(lines) - 1
	r.hardwareCursorRow = len(lines) - 1
	r.previousViewportTop = max(0, r.maxLinesRendered-height)

	r.positionHardwareCursor(gate, cursor, len(lines))

	r.previousLines = lines
	r.previousIsImage = isImage
	r.previousWidth = width
	return true
}

// findInsertIndex searches for an index k < limit such that
// next[0:k] == prev[0:k] and next[k+inserted:] == prev[k:]. It tries
// the longest common prefix first (the common case of history
// prepended as a single block), then falls back to k=0.
func findInsertIndex(prev, next []string, inserted, limit int) (int, bool) {
	if limit <= 0 {
		limit = 1
	}
	l := 0
	for l < len(prev) && l < limit && prev[l] == next[l] {
		l++
	}
	candidates := []int{l, 0}
	for _, k := range candidates {
		if k < 0 || k >= limit {
			continue
		}
		if suffixMatches(prev, next, k, inserted) {
			return k, true
		}
	}
	return 0, false
}

func suffixMatches(prev, next []string, k, inserted int) bool {
	if len(prev)-k != len(next)-(k+inserted) {
		return false
	}
	for i := k; i < len(prev); i++ {
		if prev[i] != next[i+inserted] {
			return false
		}
	}
	return true
}

// writeGeneralDiff handles everything that isn't a full redraw or the
// insert-before fast path: scrolling the viewport as needed, rewriting
// only the changed lines, and clearing any deleted trailing lines
// (spec §4.2 step 7).
func (r *DiffRenderer) writeGeneralDiff(gate *OutputGate, lines []string, isImage []bool, width, height int, cursor *CursorPos, dr diffResult) {
	var buf strings.Builder
	buf.WriteString(escSyncBegin)

	hardwareCursorRow := r.hardwareCursorRow
	prevViewportTop := r.previousViewportTop
	prevViewportBottom := prevViewportTop + height - 1
	viewportTop := max(0, r.maxLinesRendered-height)

	moveTargetRow := dr.firstChanged

	if moveTargetRow > prevViewportBottom {
		currentScreen := clamp(hardwareCursorRow-prevViewportTop, 0, height-1)
		moveToBottom := height - 1 - currentScreen
		buf.WriteString(cursorDown(moveToBottom))
		scroll := moveTargetRow - prevViewportBottom
		for range scroll {
			buf.WriteString("\r\n")
		}
		prevViewportTop += scroll
		viewportTop += scroll
		hardwareCursorRow = moveTargetRow
	}

	currentScreen := hardwareCursorRow - prevViewportTop
	targetScreen := moveTargetRow - viewportTop
	buf.WriteString(cursorVertical(targetScreen - currentScreen))
	buf.WriteString("\r")

	renderEnd := min(dr.lastChanged, len(lines)-1)
	if renderEnd < dr.firstChanged {
		renderEnd = dr.firstChanged - 1 // nothing in-bounds to rewrite (pure tail shrink)
	}
	for i := dr.firstChanged; i <= renderEnd; i++ {
		if i > dr.firstChanged {
			buf.WriteString("\r\n")
		}
		buf.WriteString(escClearLine)
		buf.WriteString(lines[i])
	}

	finalCursorRow := renderEnd
	if finalCursorRow < dr.firstChanged {
		finalCursorRow = dr.firstChanged
	}

	if len(r.previousLines) > len(lines) {
		if renderEnd < len(lines)-1 {
			moveDown := len(lines) - 1 - renderEnd
			buf.WriteString(cursorDown(moveDown))
			finalCursorRow = len(lines) - 1
		}
		extra := len(r.previousLines) - len(lines)
		for range extra {
			buf.WriteString("\r\n")
			buf.WriteString(escClearLine)
		}
		buf.WriteString(cursorUp(extra))
	}

	buf.WriteString(escSyncEnd)
	gate.PushBytes([]byte(buf.String()))

	cr := max(0, len(lines)-1)
	ml := max(r.maxLinesRendered, len(lines))

	r.logicalCursorRow = cr
	r.hardwareCursorRow = finalCursorRow
	r.maxLinesRendered = ml
	r.previousViewportTop = max(0, ml-height)

	r.positionHardwareCursor(gate, cursor, len(lines))

	r.previousLines = lines
	r.previousIsImage = isImage
	r.previousWidth = width
}

// positionHardwareCursor moves the hardware cursor to the frame's
// reported cursor position (if any) and sets cursor visibility
// according to ShowHardwareCursor.
func (r *DiffRenderer) positionHardwareCursor(gate *OutputGate, pos *CursorPos, totalLines int) {
	if pos == nil || totalLines <= 0 {
		gate.Push(GateCommand{Kind: CmdHideCursor})
		return
	}

	targetRow := clamp(pos.Row, 0, totalLines-1)
	targetCol := max(0, pos.Col)

	seq := cursorVertical(targetRow-r.hardwareCursorRow) + cursorColumn(targetCol+1)
	if seq != "" {
		gate.PushBytes([]byte(seq))
	}
	r.hardwareCursorRow = targetRow

	if r.ShowHardwareCursor {
		gate.Push(GateCommand{Kind: CmdShowCursor})
	} else {
		gate.Push(GateCommand{Kind: CmdHideCursor})
	}
}
