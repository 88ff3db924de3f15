package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTextJoinsSpans(t *testing.T) {
	l := Line{Spans: []Span{"ab", "cd", "ef"}}
	assert.Equal(t, "abcdef", l.Text())
}

func TestNewLineSingleSpan(t *testing.T) {
	l := NewLine("hello")
	assert.Equal(t, "hello", l.Text())
	assert.False(t, l.IsImage)
}

func TestNewImageLineSetsFlag(t *testing.T) {
	l := NewImageLine("\x1bPq...\x1b\\")
	assert.True(t, l.IsImage)
}

func TestFrameStringsJoinsEachLine(t *testing.T) {
	f := Frame{Lines: []Line{NewLine("one"), NewLine("two")}}
	assert.Equal(t, []string{"one", "two"}, f.Strings())
}
