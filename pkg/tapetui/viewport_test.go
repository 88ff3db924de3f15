package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportFollowsTailByDefault(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	assert.Equal(t, 15, v.ViewportTop())
}

func TestViewportScrollBack(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	v.Scroll(5)
	assert.Equal(t, 5, v.Offset())
	assert.Equal(t, 10, v.ViewportTop())
}

func TestViewportScrollClampsToHistory(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	v.Scroll(1000)
	assert.Equal(t, 15, v.Offset()) // maxOffset = 25-10
	assert.Equal(t, 0, v.ViewportTop())
}

func TestViewportClampsWhenContentShrinks(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	v.Scroll(15)
	v.UpdateTotalLines(12)
	assert.Equal(t, 2, v.Offset()) // maxOffset now 12-10=2
}

func TestClampCursorInsideViewport(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	pos := &CursorPos{Row: 20, Col: 3}
	assert.Equal(t, pos, v.ClampCursor(pos))
}

func TestClampCursorOutsideViewportReturnsNil(t *testing.T) {
	v := &InlineViewport{}
	v.NoteTerminalHeight(10)
	v.UpdateTotalLines(25)
	assert.Nil(t, v.ClampCursor(&CursorPos{Row: 2, Col: 0}))
}

func TestClampCursorNilPassthrough(t *testing.T) {
	v := &InlineViewport{}
	assert.Nil(t, v.ClampCursor(nil))
}
