package tapetui

import (
	"fmt"
	"strings"
)

// GateCommandKind identifies a terminal command queued on the output gate.
type GateCommandKind int

const (
	CmdBytes GateCommandKind = iota
	CmdHideCursor
	CmdShowCursor
	CmdClearLine
	CmdClearFromCursor
	CmdClearScreen
	CmdMoveUp
	CmdMoveDown
	CmdColumnAbs
	CmdBracketedPasteEnable
	CmdBracketedPasteDisable
	CmdKittyQuery
	CmdKittyEnable
	CmdKittyDisable
	CmdQueryCellSize
)

// GateCommand is one queued terminal command. N is the operand for
// MoveUp/MoveDown (row count) and ColumnAbs (1-based column); Bytes
// holds the payload for CmdBytes.
type GateCommand struct {
	Kind  GateCommandKind
	N     int
	Bytes []byte
}

// OutputGate buffers terminal commands and flushes them as a single
// atomic write. It is the sole path through which the runtime emits
// bytes to the terminal (spec §4.1: "all terminal output must go
// through this gate"), which is what makes the diff renderer's
// bookkeeping tractable — nothing else can race a partial write in
// between two of the renderer's own writes.
type OutputGate struct {
	queue []GateCommand
}

// Push appends cmd to the queue. Commands are never reordered.
func (g *OutputGate) Push(cmd GateCommand) {
	g.queue = append(g.queue, cmd)
}

// PushBytes is a convenience for Push(GateCommand{Kind: CmdBytes, ...}).
func (g *OutputGate) PushBytes(b []byte) {
	g.Push(GateCommand{Kind: CmdBytes, Bytes: b})
}

// Len reports how many commands are queued.
func (g *OutputGate) Len() int { return len(g.queue) }

// Flush serializes all queued commands into one byte string and issues
// exactly one Terminal.Write call with the concatenated bytes, then
// clears the queue. A successful tick always ends with an empty gate
// (spec §8 invariant).
func (g *OutputGate) Flush(term Terminal) {
	if len(g.queue) == 0 {
		return
	}
	var sb strings.Builder
	for _, cmd := range g.queue {
		sb.WriteString(renderGateCommand(cmd))
	}
	g.queue = g.queue[:0]
	term.Write([]byte(sb.String()))
}

func renderGateCommand(cmd GateCommand) string {
	switch cmd.Kind {
	case CmdBytes:
		return string(cmd.Bytes)
	case CmdHideCursor:
		return "\x1b[?25l"
	case CmdShowCursor:
		return "\x1b[?25h"
	case CmdClearLine:
		return "\x1b[K"
	case CmdClearFromCursor:
		return "\x1b[J"
	case CmdClearScreen:
		return "\x1b[2J\x1b[H"
	case CmdMoveUp:
		if cmd.N <= 0 {
			return ""
		}
		return fmt.Sprintf("\x1b[%dA", cmd.N)
	case CmdMoveDown:
		if cmd.N <= 0 {
			return ""
		}
		return fmt.Sprintf("\x1b[%dB", cmd.N)
	case CmdColumnAbs:
		return fmt.Sprintf("\x1b[%dG", cmd.N)
	case CmdBracketedPasteEnable:
		return "\x1b[?2004h"
	case CmdBracketedPasteDisable:
		return "\x1b[?2004l"
	case CmdKittyQuery:
		return "\x1b[?u"
	case CmdKittyEnable:
		return "\x1b[>7u"
	case CmdKittyDisable:
		return "\x1b[<u"
	case CmdQueryCellSize:
		return "\x1b[16t"
	default:
		return ""
	}
}
