package tapetui

import "strings"

// SurfaceCompositor resolves each visible surface's geometry and
// paints it onto the root's rendered lines, returning the composited
// frame and the final cursor position (spec §4.3).
type SurfaceCompositor struct {
	registry *ComponentRegistry
}

// NewSurfaceCompositor creates a compositor that renders surface
// components by looking them up in registry.
func NewSurfaceCompositor(registry *ComponentRegistry) *SurfaceCompositor {
	return &SurfaceCompositor{registry: registry}
}

// resolvedSurface is the per-surface output of layout resolution.
type resolvedSurface struct {
	entry  *surfaceEntry
	lines  []Line
	row    int
	col    int
	width  int
	cursor *CursorPos
}

// Composite lays out and paints every visible, policy-satisfying
// surface in stack order (entries earlier in the slice are older /
// lower in the stack) onto base, returning the new line slice and the
// cursor the host should use.
func (c *SurfaceCompositor) Composite(base []Line, baseCursor *CursorPos, entries []*surfaceEntry, termW, termH, maxLinesRendered int) ([]Line, *CursorPos) {
	if len(entries) == 0 {
		return base, baseCursor
	}

	reservedTop := 0
	reservedBottom := 0

	var resolved []resolvedSurface
	minNeeded := len(base)

	for _, e := range entries {
		if e.hidden {
			continue
		}
		opts := effectiveOptions(e.options)
		if !opts.Visibility.Satisfied(termW, termH) {
			continue
		}

		margin := opts.Margin
		margin.Top += reservedTop
		margin.Bottom += reservedBottom

		comp, ok := c.registry.Get(e.componentId)
		if !ok {
			continue
		}

		width, _, _, maxH, maxHSet := resolveLayout(opts, margin, 0, termW, termH)
		renderHeight := termH
		if maxHSet {
			renderHeight = maxH
		}
		result := comp.Render(width)
		lines := result.Lines
		if maxHSet && len(lines) > maxH {
			lines = lines[:maxH]
		}
		_ = renderHeight

		_, row, col, _, _ := resolveLayout(opts, margin, len(lines), termW, termH)

		resolved = append(resolved, resolvedSurface{
			entry:  e,
			lines:  lines,
			row:    row,
			col:    col,
			width:  width,
			cursor: result.Cursor,
		})

		if row+len(lines) > minNeeded {
			minNeeded = row + len(lines)
		}

		switch opts.Kind {
		case KindToast:
			reservedTop = min(termH, reservedTop+len(lines))
		case KindDrawer, KindAttachmentRow:
			reservedBottom = min(termH, reservedBottom+len(lines))
		}
	}

	workingH := max(maxLinesRendered, minNeeded)
	result := make([]Line, len(base))
	copy(result, base)
	for len(result) < workingH {
		result = append(result, Line{})
	}

	viewportStart := max(0, workingH-termH)

	cursor := baseCursor
	for _, rs := range resolved {
		for i, ol := range rs.lines {
			idx := viewportStart + rs.row + i
			if idx < 0 || idx >= len(result) {
				continue
			}
			if result[idx].IsImage {
				continue
			}
			result[idx] = compositeLine(result[idx], ol, rs.col, rs.width, termW)
		}
	}

	// Cursor selection: last (topmost) surface wins, among those whose
	// cursor sits on a non-image surface line mapping onto a non-image
	// base row.
	for i := len(resolved) - 1; i >= 0; i-- {
		rs := resolved[i]
		if rs.cursor == nil {
			continue
		}
		if rs.cursor.Row < 0 || rs.cursor.Row >= len(rs.lines) {
			continue
		}
		if rs.lines[rs.cursor.Row].IsImage {
			continue
		}
		baseIdx := viewportStart + rs.row + rs.cursor.Row
		if baseIdx < 0 || baseIdx >= len(result) || result[baseIdx].IsImage {
			continue
		}
		cursor = &CursorPos{
			Row: viewportStart + rs.row + rs.cursor.Row,
			Col: rs.col + rs.cursor.Col,
		}
		break
	}

	return result, cursor
}

// effectiveOptions applies kind-specific anchor defaults on top of a
// (possibly nil) caller-supplied SurfaceOptions (spec §4.3 step 1).
func effectiveOptions(opts *SurfaceOptions) SurfaceOptions {
	var o SurfaceOptions
	if opts != nil {
		o = *opts
	}
	if !o.AnchorSet {
		switch o.Kind {
		case KindDrawer:
			o.Anchor = AnchorBottomCenter
		case KindCorner:
			o.Anchor = AnchorBottomRight
		case KindToast:
			o.Anchor = AnchorTopRight
		case KindAttachmentRow:
			o.Anchor = AnchorBottomLeft
		default: // Modal
			o.Anchor = AnchorCenter
		}
	}
	return o
}

// resolveLayout determines width, row, col, and maxHeight for a
// surface given its options, current lane-reservation margin, and
// terminal dimensions (spec §4.3 steps 3-5).
func resolveLayout(opts SurfaceOptions, margin SurfaceMargin, surfaceHeight, termW, termH int) (width, row, col, maxH int, maxHSet bool) {
	mTop := max(0, margin.Top)
	mRight := max(0, margin.Right)
	mBottom := max(0, margin.Bottom)
	mLeft := max(0, margin.Left)

	availW := max(1, termW-mLeft-mRight)
	availH := max(1, termH-mTop-mBottom)

	if w, ok := opts.Width.resolve(termW); ok {
		width = w
	} else {
		width = min(80, availW)
	}
	if opts.MinWidth > 0 && width < opts.MinWidth {
		width = opts.MinWidth
	}
	width = clamp(width, 1, availW)

	if mh, ok := opts.MaxHeight.resolve(termH); ok {
		maxH = clamp(mh, 1, availH)
		maxHSet = true
	}

	effectiveH := surfaceHeight
	if maxHSet && effectiveH > maxH {
		effectiveH = maxH
	}

	if opts.Row.isSet {
		if opts.Row.isPct {
			maxRow := max(0, availH-effectiveH)
			row = mTop + int(float64(maxRow)*opts.Row.pct/100)
		} else {
			row = opts.Row.abs
		}
	} else {
		row = anchorRow(opts.Anchor, effectiveH, availH, mTop)
	}

	if opts.Col.isSet {
		if opts.Col.isPct {
			maxCol := max(0, availW-width)
			col = mLeft + int(float64(maxCol)*opts.Col.pct/100)
		} else {
			col = opts.Col.abs
		}
	} else {
		col = anchorCol(opts.Anchor, width, availW, mLeft)
	}

	row += opts.OffsetY
	col += opts.OffsetX

	row = clamp(row, mTop, termH-mBottom-effectiveH)
	col = clamp(col, mLeft, termW-mRight-width)

	return
}

func anchorRow(a SurfaceAnchor, h, availH, mTop int) int {
	switch a {
	case AnchorTopLeft, AnchorTopCenter, AnchorTopRight:
		return mTop
	case AnchorBottomLeft, AnchorBottomCenter, AnchorBottomRight:
		return mTop + availH - h
	default:
		return mTop + (availH-h)/2
	}
}

func anchorCol(a SurfaceAnchor, w, availW, mLeft int) int {
	switch a {
	case AnchorTopLeft, AnchorLeftCenter, AnchorBottomLeft:
		return mLeft
	case AnchorTopRight, AnchorRightCenter, AnchorBottomRight:
		return mLeft + availW - w
	default:
		return mLeft + (availW-w)/2
	}
}

// compositeLine splices overlay (rendered at [col, col+width)) into
// base, padding any gaps with spaces and wrapping the overlay content
// in segment resets so neither side bleeds style into the other
// (spec §4.3 compositing). Truncates if the result exceeds termW.
func compositeLine(base Line, overlay Line, col, width, termW int) Line {
	if base.IsImage {
		return base
	}
	baseText := base.Text()
	overlayText := overlay.Text()

	before := SliceByColumn(baseText, 0, col)
	before = padTo(before, col)

	afterStart := col + width
	after := SliceByColumn(baseText, afterStart, max(0, termW-afterStart))

	overlayPadded := padTo(overlayText, width)

	var sb strings.Builder
	sb.WriteString(before)
	sb.WriteString(segmentReset)
	sb.WriteString(overlayPadded)
	sb.WriteString(segmentReset)
	sb.WriteString(after)

	out := sb.String()
	if VisibleWidth(out) > termW {
		out = SliceByColumn(out, 0, termW)
	}
	return NewLine(out)
}

// padTo pads s with trailing spaces until it reaches target visible
// columns. Never truncates.
func padTo(s string, target int) string {
	w := VisibleWidth(s)
	if w >= target {
		return s
	}
	return s + strings.Repeat(" ", target-w)
}
