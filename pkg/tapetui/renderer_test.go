package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func framesOf(lines ...string) Frame {
	f := Frame{}
	for _, l := range lines {
		f.Lines = append(f.Lines, NewLine(l))
	}
	return f
}

func TestDiffRendererFirstRender(t *testing.T) {
	r := NewDiffRenderer()
	gate := &OutputGate{}
	r.Render(gate, framesOf("hello", "world"), 80, 24, false)

	term := newMockTerminal(80, 24)
	gate.Flush(term)
	out := term.output()

	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")
	assert.Contains(t, out, escSyncBegin)
	assert.Contains(t, out, escSyncEnd)
	assert.Equal(t, 2, r.MaxLinesRendered())
}

func TestDiffRendererNoChangeEmitsNothing(t *testing.T) {
	r := NewDiffRenderer()
	gate := &OutputGate{}
	frame := framesOf("stable", "line")
	r.Render(gate, frame, 80, 24, false)

	term := newMockTerminal(80, 24)
	gate.Flush(term)
	term.reset()

	gate2 := &OutputGate{}
	r.Render(gate2, frame, 80, 24, false)
	gate2.Flush(term)

	assert.Empty(t, term.output())
}

func TestDiffRendererRewritesOnlyChangedLine(t *testing.T) {
	r := NewDiffRenderer()
	term := newMockTerminal(80, 24)

	gate := &OutputGate{}
	r.Render(gate, framesOf("line1", "line2", "line3"), 80, 24, false)
	gate.Flush(term)
	term.reset()

	gate2 := &OutputGate{}
	r.Render(gate2, framesOf("line1", "LINE2", "line3"), 80, 24, false)
	gate2.Flush(term)
	out := term.output()

	assert.Contains(t, out, "LINE2")
	assert.NotContains(t, out, "line1"+segmentReset)
	assert.NotContains(t, out, "\x1b[3J")
}

func TestDiffRendererWidthChangeForcesFullRedraw(t *testing.T) {
	r := NewDiffRenderer()
	term := newMockTerminal(80, 24)

	gate := &OutputGate{}
	r.Render(gate, framesOf("line1", "line2"), 80, 24, false)
	gate.Flush(term)
	term.reset()

	gate2 := &OutputGate{}
	r.Render(gate2, framesOf("line1", "line2"), 40, 24, false)
	gate2.Flush(term)
	out := term.output()

	assert.Contains(t, out, escClearScrollback)
	assert.Contains(t, out, escClearScreen)
}

func TestDiffRendererInsertBeforeFastPath(t *testing.T) {
	r := NewDiffRenderer()
	term := newMockTerminal(80, 5)

	var lines []string
	for i := range 7 {
		lines = append(lines, "h"+string(rune('0'+i)))
	}
	gate := &OutputGate{}
	r.Render(gate, framesOf(lines...), 80, 5, false)
	gate.Flush(term)

	require.Equal(t, 7, r.MaxLinesRendered())
	require.Equal(t, 2, r.PreviousViewportTop())

	term.reset()
	prepended := append([]string{"new1", "new2"}, lines...)
	gate2 := &OutputGate{}
	r.Render(gate2, framesOf(prepended...), 80, 5, false)
	gate2.Flush(term)
	out := term.output()

	assert.Contains(t, out, "new1")
	assert.Contains(t, out, "new2")
	assert.Equal(t, 9, r.MaxLinesRendered())
}

func TestDiffRendererAppendGrowsViewport(t *testing.T) {
	r := NewDiffRenderer()
	term := newMockTerminal(80, 3)

	gate := &OutputGate{}
	r.Render(gate, framesOf("a", "b"), 80, 3, false)
	gate.Flush(term)
	term.reset()

	gate2 := &OutputGate{}
	r.Render(gate2, framesOf("a", "b", "c"), 80, 3, false)
	gate2.Flush(term)
	out := term.output()

	assert.Contains(t, out, "c")
}

func TestDiffRendererStrictWidthPanicsOnOverflow(t *testing.T) {
	r := NewDiffRenderer()
	r.StrictWidth = true
	gate := &OutputGate{}
	assert.Panics(t, func() {
		r.Render(gate, framesOf("this line is definitely too long"), 5, 24, false)
	})
}

func TestDiffRendererHardwareCursorHiddenWithoutCursor(t *testing.T) {
	r := NewDiffRenderer()
	gate := &OutputGate{}
	r.Render(gate, framesOf("a"), 80, 24, false)
	term := newMockTerminal(80, 24)
	gate.Flush(term)
	assert.Contains(t, term.output(), "\x1b[?25l")
}
