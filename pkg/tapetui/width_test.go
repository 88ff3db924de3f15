package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleWidthIgnoresEscapes(t *testing.T) {
	s := "\x1b[31mred\x1b[0m"
	assert.Equal(t, 3, VisibleWidth(s))
}

func TestVisibleWidthWideChars(t *testing.T) {
	assert.Equal(t, 4, VisibleWidth("你好"))
}

func TestSliceByColumnBasic(t *testing.T) {
	assert.Equal(t, "bcd", SliceByColumn("abcde", 1, 3))
}

func TestSliceByColumnPreservesActiveANSI(t *testing.T) {
	s := "\x1b[31mabcde\x1b[0m"
	got := SliceByColumn(s, 2, 2)
	assert.Contains(t, got, "\x1b[31m")
	assert.Contains(t, got, "cd")
}

func TestSliceByColumnZeroLengthIsEmpty(t *testing.T) {
	assert.Equal(t, "", SliceByColumn("abcde", 2, 0))
}

func TestSliceByColumnFromZeroUsesTruncate(t *testing.T) {
	assert.Equal(t, "abc", SliceByColumn("abcde", 0, 3))
}

func TestCutEscapeCSI(t *testing.T) {
	seq, n := cutEscape("\x1b[38;5;200mrest")
	assert.Equal(t, "\x1b[38;5;200m", seq)
	assert.Equal(t, len(seq), n)
}

func TestCutEscapeOSCWithBEL(t *testing.T) {
	seq, n := cutEscape("\x1b]8;;http://example\x07rest")
	assert.Equal(t, "\x1b]8;;http://example\x07", seq)
	assert.Equal(t, len(seq), n)
}

func TestCutEscapeAPCWithST(t *testing.T) {
	seq, n := cutEscape("\x1b_Gf=1\x1b\\rest")
	assert.Equal(t, "\x1b_Gf=1\x1b\\", seq)
	assert.Equal(t, len(seq), n)
}

func TestCutEscapeNotAnEscape(t *testing.T) {
	seq, n := cutEscape("plain text")
	assert.Empty(t, seq)
	assert.Zero(t, n)
}
