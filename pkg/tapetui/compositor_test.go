package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticComponent struct {
	lines  []string
	cursor *CursorPos
}

func (c *staticComponent) Render(width int) RenderResult {
	var lines []Line
	for _, l := range c.lines {
		lines = append(lines, NewLine(l))
	}
	return RenderResult{Lines: lines, Cursor: c.cursor}
}
func (c *staticComponent) Invalidate() {}

func TestCompositorPaintsSurfaceOntoBase(t *testing.T) {
	registry := NewComponentRegistry()
	id := registry.Register(&staticComponent{lines: []string{"OVERLAY"}})
	comp := NewSurfaceCompositor(registry)

	base := []Line{NewLine("aaaaaaaaaa"), NewLine("bbbbbbbbbb")}
	entries := []*surfaceEntry{
		{id: 1, componentId: id, options: &SurfaceOptions{
			Width: SizeAbs(7), Row: SizeAbs(0), Col: SizeAbs(0), Kind: KindModal,
		}},
	}

	out, _ := comp.Composite(base, nil, entries, 10, 5, 2)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text(), "OVERLAY")
}

func TestCompositorSkipsHiddenSurfaces(t *testing.T) {
	registry := NewComponentRegistry()
	id := registry.Register(&staticComponent{lines: []string{"OVERLAY"}})
	comp := NewSurfaceCompositor(registry)

	base := []Line{NewLine("aaaaaaaaaa")}
	entries := []*surfaceEntry{
		{id: 1, componentId: id, hidden: true, options: &SurfaceOptions{}},
	}

	out, _ := comp.Composite(base, nil, entries, 10, 5, 1)
	assert.Equal(t, "aaaaaaaaaa", out[0].Text())
}

func TestCompositorCursorSelectionLastWins(t *testing.T) {
	registry := NewComponentRegistry()
	idA := registry.Register(&staticComponent{lines: []string{"AAAA"}, cursor: &CursorPos{Row: 0, Col: 1}})
	idB := registry.Register(&staticComponent{lines: []string{"BBBB"}, cursor: &CursorPos{Row: 0, Col: 2}})
	comp := NewSurfaceCompositor(registry)

	base := []Line{NewLine("0123456789")}
	entries := []*surfaceEntry{
		{id: 1, componentId: idA, options: &SurfaceOptions{Width: SizeAbs(4), Row: SizeAbs(0), Col: SizeAbs(0)}},
		{id: 2, componentId: idB, options: &SurfaceOptions{Width: SizeAbs(4), Row: SizeAbs(0), Col: SizeAbs(5)}},
	}

	_, cursor := comp.Composite(base, nil, entries, 10, 5, 1)
	require.NotNil(t, cursor)
	assert.Equal(t, 5+2, cursor.Col) // surface B (processed last) wins
}

func TestCompositorReservesToastLane(t *testing.T) {
	registry := NewComponentRegistry()
	idToast := registry.Register(&staticComponent{lines: []string{"TOAST"}})
	idToast2 := registry.Register(&staticComponent{lines: []string{"TOAST2"}})
	comp := NewSurfaceCompositor(registry)

	base := make([]Line, 5)
	for i := range base {
		base[i] = NewLine("..........")
	}
	entries := []*surfaceEntry{
		{id: 1, componentId: idToast, options: &SurfaceOptions{Kind: KindToast, Width: SizeAbs(6)}},
		{id: 2, componentId: idToast2, options: &SurfaceOptions{Kind: KindToast, Width: SizeAbs(6)}},
	}

	out, _ := comp.Composite(base, nil, entries, 10, 5, 5)
	assert.Contains(t, out[0].Text(), "TOAST")
	assert.Contains(t, out[1].Text(), "TOAST2")
}

func TestAnchorDefaultsByKind(t *testing.T) {
	assert.Equal(t, AnchorBottomCenter, effectiveOptions(&SurfaceOptions{Kind: KindDrawer}).Anchor)
	assert.Equal(t, AnchorBottomRight, effectiveOptions(&SurfaceOptions{Kind: KindCorner}).Anchor)
	assert.Equal(t, AnchorTopRight, effectiveOptions(&SurfaceOptions{Kind: KindToast}).Anchor)
	assert.Equal(t, AnchorCenter, effectiveOptions(&SurfaceOptions{Kind: KindModal}).Anchor)
}

func TestPadToPadsShortStrings(t *testing.T) {
	assert.Equal(t, "ab   ", padTo("ab", 5))
	assert.Equal(t, "abcde", padTo("abcde", 3))
}
