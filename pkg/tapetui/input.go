package tapetui

import (
	uv "github.com/charmbracelet/ultraviolet"
)

// KeyEventType distinguishes a key press from an OS-level repeat or a
// release (only delivered under the Kitty keyboard protocol).
type KeyEventType int

const (
	KeyPress KeyEventType = iota
	KeyRepeat
	KeyRelease
)

// InputEvent is the union of structured events a Structured Input
// Parser may produce from raw bytes (spec §4.7, §6).
type InputEvent interface{ isInputEvent() }

// KeyInputEvent is a single non-text key (arrows, function keys,
// Ctrl/Alt combinations, Enter, Escape, ...).
type KeyInputEvent struct {
	Raw   []byte
	KeyID string
	Type  KeyEventType
}

// TextInputEvent is a printable character or grapheme cluster typed by
// the user.
type TextInputEvent struct {
	Raw  []byte
	Text string
	Type KeyEventType
}

// PasteInputEvent is the decoded content of a bracketed paste, with the
// CSI `200~`/`201~` markers already stripped. Nested paste markers do
// not occur (spec §6).
type PasteInputEvent struct {
	Raw  []byte
	Text string
}

// ResizeInputEvent reports a terminal size change detected from the
// input stream itself (distinct from the out-of-band SIGWINCH-driven
// resize notifier — spec §5 separates the two channels; this event
// kind exists for parsers that can also detect resizes in-band).
type ResizeInputEvent struct {
	Columns int
	Rows    int
}

// UnknownRawInputEvent is raw bytes the parser could not classify.
// Consumers are expected to ignore these (spec §7).
type UnknownRawInputEvent struct {
	Raw []byte
}

func (KeyInputEvent) isInputEvent()        {}
func (TextInputEvent) isInputEvent()       {}
func (PasteInputEvent) isInputEvent()      {}
func (ResizeInputEvent) isInputEvent()     {}
func (UnknownRawInputEvent) isInputEvent() {}

// KeyParser decodes raw terminal bytes into zero or more InputEvents.
// It is injected into the Runtime; terminal byte encoding/decoding is
// explicitly out of this module's core (spec §1) — this is the seam.
type KeyParser interface {
	// Parse decodes as much of data as it can, returning the events
	// found. kittyActive reports whether the Kitty keyboard protocol
	// (which disambiguates Press/Repeat/Release and more key
	// combinations) was successfully negotiated.
	Parse(data []byte, kittyActive bool) []InputEvent

	// IsKittyQueryResponse reports whether data is (the start of, or
	// all of) a Kitty keyboard protocol capability response, so the
	// runtime can intercept it instead of routing it as input.
	IsKittyQueryResponse(data []byte) bool

	// IsKeyRelease reports whether data decodes to a Key Release event.
	// The runtime itself does not call it: it gates releases on the
	// decoded event's Type and the target's KeyReleaseAware capability.
	IsKeyRelease(data []byte) bool
}

// UVKeyParser is the default KeyParser, built on
// github.com/charmbracelet/ultraviolet's event decoder — the same
// decoder the teacher's TUI used directly inline. This module pulls it
// out behind the KeyParser seam so tests can inject a fake.
type UVKeyParser struct {
	decoder uv.EventDecoder
}

// NewUVKeyParser creates a KeyParser backed by ultraviolet.
func NewUVKeyParser() *UVKeyParser {
	return &UVKeyParser{}
}

func (p *UVKeyParser) Parse(data []byte, kittyActive bool) []InputEvent {
	var events []InputEvent
	buf := data
	for len(buf) > 0 {
		n, ev := p.decoder.Decode(buf)
		if n == 0 {
			break
		}
		consumed := buf[:n]
		buf = buf[n:]
		if ev == nil {
			continue
		}
		events = append(events, translateUVEvent(consumed, ev))
	}
	return events
}

func translateUVEvent(raw []byte, ev uv.Event) InputEvent {
	switch e := ev.(type) {
	case uv.KeyPressEvent:
		if isTextKey(e) {
			return TextInputEvent{Raw: raw, Text: e.Text, Type: KeyPress}
		}
		return KeyInputEvent{Raw: raw, KeyID: e.String(), Type: KeyPress}
	case uv.KeyReleaseEvent:
		kp := uv.KeyPressEvent(e)
		if isTextKey(kp) {
			return TextInputEvent{Raw: raw, Text: kp.Text, Type: KeyRelease}
		}
		return KeyInputEvent{Raw: raw, KeyID: kp.String(), Type: KeyRelease}
	case uv.PasteEvent:
		return PasteInputEvent{Raw: raw, Text: string(e)}
	default:
		return UnknownRawInputEvent{Raw: raw}
	}
}

func isTextKey(e uv.KeyPressEvent) bool {
	return e.Text != "" && e.Mod == 0
}

func (p *UVKeyParser) IsKittyQueryResponse(data []byte) bool {
	return isKittyQueryResponse(data)
}

func (p *UVKeyParser) IsKeyRelease(data []byte) bool {
	var probe uv.EventDecoder
	_, ev := probe.Decode(data)
	_, ok := ev.(uv.KeyReleaseEvent)
	return ok
}

// isKittyQueryResponse recognizes a Kitty keyboard protocol capability
// response: CSI ? <flags> u.
func isKittyQueryResponse(data []byte) bool {
	if len(data) < 3 || data[0] != 0x1b || data[1] != '[' || data[2] != '?' {
		return false
	}
	for i := 3; i < len(data); i++ {
		if data[i] == 'u' {
			return true
		}
		if data[i] < '0' || data[i] > '9' {
			return false
		}
	}
	return false
}
