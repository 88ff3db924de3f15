package tapetui

import (
	"github.com/charmbracelet/x/ansi"
)

// segmentReset is appended to every non-image line before diffing, to
// terminate any ANSI SGR style and cancel any active OSC-8 hyperlink so
// neither bleeds into the next line on the real terminal. See spec §4.2
// step 1 and §6.
const segmentReset = "\x1b[0m\x1b]8;;\x07"

// CursorMarker is a reserved in-band marker. Spans must never contain
// it; it exists only as a last-resort fallback described in spec's
// DESIGN NOTES ("in-band cursor markers") and is used by nothing in
// this module — components report cursor position out of band via
// RenderResult.Cursor instead. Kept as a documented reserved sequence
// so a future widget adapter that only knows how to emit in-band
// markers has somewhere to strip them before they reach the renderer.
const CursorMarker = "\x1b_tape:c\x07"

// VisibleWidth returns the terminal display width of s, ignoring ANSI
// escape sequences and accounting for wide/combining characters.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate truncates s to at most maxWidth visible columns, appending
// tail if truncation occurred.
func Truncate(s string, maxWidth int, tail string) string {
	return ansi.Truncate(s, maxWidth, tail)
}

// SliceByColumn extracts the visible columns [startCol, startCol+length)
// from line, preserving any ANSI styling active at startCol.
func SliceByColumn(line string, startCol, length int) string {
	if length <= 0 {
		return ""
	}
	if startCol == 0 {
		return ansi.Truncate(line, length, "")
	}

	rest, active := skipToColumn(line, startCol)
	return active + takeColumns(rest, length)
}

// skipToColumn advances past the first startCol visible columns of
// line, returning what's left plus every escape sequence encountered
// along the way — all of it, not just the last run — since any of
// them may still be in effect at the cut point (an SGR sequence stays
// active until overridden, however many characters later that is).
func skipToColumn(line string, startCol int) (rest, active string) {
	var seen []byte
	col := 0
	remaining := line
	for col < startCol && len(remaining) > 0 {
		if seq, n := cutEscape(remaining); n > 0 {
			seen = append(seen, seq...)
			remaining = remaining[n:]
			continue
		}
		cluster, w := ansi.FirstGraphemeCluster(remaining, ansi.GraphemeWidth)
		if len(cluster) == 0 {
			break
		}
		col += w
		remaining = remaining[len(cluster):]
	}
	return remaining, string(seen)
}

// takeColumns collects up to length visible columns from the front of
// s, passing any escape sequences encountered along the way through
// untouched.
func takeColumns(s string, length int) string {
	var out []byte
	collected := 0
	remaining := s
	for len(remaining) > 0 {
		if seq, n := cutEscape(remaining); n > 0 {
			out = append(out, seq...)
			remaining = remaining[n:]
			continue
		}
		cluster, w := ansi.FirstGraphemeCluster(remaining, ansi.GraphemeWidth)
		if len(cluster) == 0 || collected+w > length {
			break
		}
		out = append(out, cluster...)
		collected += w
		remaining = remaining[len(cluster):]
	}
	return string(out)
}

// cutEscape detects a CSI/OSC/APC escape sequence at the start of s
// and returns it along with its byte length, or ("", 0) if s doesn't
// start with one it recognizes.
func cutEscape(s string) (string, int) {
	if len(s) < 2 || s[0] != '\x1b' {
		return "", 0
	}
	if s[1] == '[' {
		return cutCSI(s)
	}
	if s[1] == ']' || s[1] == '_' {
		return cutStringTerminated(s)
	}
	return "", 0
}

// cutCSI scans a CSI sequence (ESC [ ... <final byte 0x40-0x7e>).
func cutCSI(s string) (string, int) {
	for j := 2; j < len(s); j++ {
		if b := s[j]; b >= 0x40 && b <= 0x7e {
			return s[:j+1], j + 1
		}
	}
	return "", 0
}

// cutStringTerminated scans an OSC or APC sequence, both of which end
// at a BEL or an ESC \ string terminator.
func cutStringTerminated(s string) (string, int) {
	for j := 2; j < len(s); j++ {
		if s[j] == '\x07' {
			return s[:j+1], j + 1
		}
		if s[j] == '\x1b' && j+1 < len(s) && s[j+1] == '\\' {
			return s[:j+2], j + 2
		}
	}
	return "", 0
}
