package tapetui

// InlineViewport tracks total rendered lines, terminal height, and a
// scroll offset measured from the tail (0 means "follow tail"). It
// exists so the runtime can clamp logical cursor positions to the
// visible window before the renderer ever sees them — cursor moves
// never exit the viewport (spec §4.4).
type InlineViewport struct {
	totalLines int
	height     int
	offset     int // scroll offset from tail
}

// NoteTerminalHeight updates the tracked terminal height and
// re-clamps the scroll offset.
func (v *InlineViewport) NoteTerminalHeight(h int) {
	v.height = h
	v.clamp()
}

// UpdateTotalLines updates the tracked total line count and re-clamps
// the scroll offset.
func (v *InlineViewport) UpdateTotalLines(n int) {
	v.totalLines = n
	v.clamp()
}

// Scroll adjusts the offset-from-tail by delta (positive scrolls back
// into history, negative scrolls toward the tail) and re-clamps.
func (v *InlineViewport) Scroll(delta int) {
	v.offset += delta
	v.clamp()
}

// SetOffset sets the offset-from-tail directly and re-clamps.
func (v *InlineViewport) SetOffset(offset int) {
	v.offset = offset
	v.clamp()
}

// Offset returns the current scroll offset from the tail.
func (v *InlineViewport) Offset() int { return v.offset }

func (v *InlineViewport) maxOffset() int {
	return max(0, v.totalLines-v.height)
}

func (v *InlineViewport) clamp() {
	v.offset = clamp(v.offset, 0, v.maxOffset())
}

// ViewportTop returns the absolute line index of the first visible
// row: max(0, total - max(1,height)) - min(offset, max(0,total-height)).
func (v *InlineViewport) ViewportTop() int {
	top := max(0, v.totalLines-max(1, v.height))
	return top - min(v.offset, v.maxOffset())
}

// ClampCursor returns pos unchanged if it sits within the visible
// window [ViewportTop(), totalLines), or nil if it falls outside it.
func (v *InlineViewport) ClampCursor(pos *CursorPos) *CursorPos {
	if pos == nil {
		return nil
	}
	top := v.ViewportTop()
	if pos.Row < top || pos.Row >= v.totalLines {
		return nil
	}
	return pos
}
