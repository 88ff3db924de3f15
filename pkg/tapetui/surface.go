package tapetui

// SurfaceId is an opaque, stable identifier for a registered surface,
// unique per Runtime instance, allocated by the wake bus (spec §3).
type SurfaceId uint64

// SurfaceAnchor specifies where a surface is positioned relative to
// the terminal viewport when no explicit row/col is given.
type SurfaceAnchor int

const (
	AnchorCenter SurfaceAnchor = iota
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
	AnchorTopCenter
	AnchorBottomCenter
	AnchorLeftCenter
	AnchorRightCenter
)

// SurfaceKind determines default anchor, lane reservation behavior,
// and is informational for hosts deciding how to style a surface.
type SurfaceKind int

const (
	KindModal SurfaceKind = iota
	KindDrawer
	KindCorner
	KindToast
	KindAttachmentRow
)

// InputPolicy determines whether a surface receives input ahead of
// root/focused components (Capture) or is visual only (Passthrough).
type InputPolicy int

const (
	InputCapture InputPolicy = iota
	InputPassthrough
)

// VisibilityKind selects how a surface's minimum-size visibility gate
// is evaluated.
type VisibilityKind int

const (
	VisAlways VisibilityKind = iota
	VisMinCols
	VisMinSize
)

// SurfaceVisibility gates whether a surface is eligible to render at
// all for the current terminal dimensions, independent of its Hidden
// flag.
type SurfaceVisibility struct {
	Kind    VisibilityKind
	MinCols int
	MinRows int
}

// Satisfied reports whether the given terminal dimensions meet this
// visibility policy.
func (v SurfaceVisibility) Satisfied(cols, rows int) bool {
	switch v.Kind {
	case VisMinCols:
		return cols >= v.MinCols
	case VisMinSize:
		return cols >= v.MinCols && rows >= v.MinRows
	default:
		return true
	}
}

// SizeValue is either an absolute cell count or a percentage of the
// reference dimension. Use SizeAbs / SizePct to construct one.
type SizeValue struct {
	abs   int
	pct   float64
	isPct bool
	isSet bool
}

// SizeAbs returns an absolute SizeValue.
func SizeAbs(n int) SizeValue { return SizeValue{abs: n, isSet: true} }

// SizePct returns a percentage SizeValue (0-100).
func SizePct(p float64) SizeValue { return SizeValue{pct: p, isPct: true, isSet: true} }

func (v SizeValue) resolve(ref int) (int, bool) {
	if !v.isSet {
		return 0, false
	}
	if v.isPct {
		return int(float64(ref) * v.pct / 100), true
	}
	return v.abs, true
}

// SurfaceMargin specifies spacing reserved from each terminal edge.
type SurfaceMargin struct {
	Top, Right, Bottom, Left int
}

// SurfaceOptions configures a surface's geometry, visibility, kind,
// and input policy (spec §3).
type SurfaceOptions struct {
	Width     SizeValue
	MinWidth  int
	MaxHeight SizeValue

	Anchor    SurfaceAnchor
	AnchorSet bool // false => apply the kind-specific default anchor
	OffsetX   int
	OffsetY   int

	Row SizeValue
	Col SizeValue

	Margin SurfaceMargin

	Visibility SurfaceVisibility
	Kind       SurfaceKind
	Input      InputPolicy
}

// surfaceEntry is the wake-bus/runtime-owned record for one surface.
// At most one entry exists per SurfaceId at any time; registering an
// existing id replaces the entry (spec §3 invariant).
type surfaceEntry struct {
	id          SurfaceId
	componentId ComponentId
	options     *SurfaceOptions
	preFocus    ComponentId
	hidden      bool
}
