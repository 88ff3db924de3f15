package tapetui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gotest.tools/v3/golden"
)

func TestOutputGateFlushesAsSingleWrite(t *testing.T) {
	gate := &OutputGate{}
	gate.Push(GateCommand{Kind: CmdHideCursor})
	gate.PushBytes([]byte("hello"))
	gate.Push(GateCommand{Kind: CmdMoveUp, N: 3})
	gate.Push(GateCommand{Kind: CmdMoveUp, N: 0}) // should emit nothing

	term := newMockTerminal(80, 24)
	gate.Flush(term)

	assert.Equal(t, "\x1b[?25lhello\x1b[3A", term.output())
	assert.Equal(t, 0, gate.Len())
}

func TestOutputGateFlushMatchesGolden(t *testing.T) {
	gate := &OutputGate{}
	gate.Push(GateCommand{Kind: CmdHideCursor})
	gate.PushBytes([]byte("hello"))
	gate.Push(GateCommand{Kind: CmdMoveUp, N: 3})

	term := newMockTerminal(80, 24)
	gate.Flush(term)

	golden.Assert(t, term.output(), "gate_basic.golden")
}

func TestOutputGateEmptyFlushWritesNothing(t *testing.T) {
	gate := &OutputGate{}
	term := newMockTerminal(80, 24)
	gate.Flush(term)
	assert.Empty(t, term.output())
}

func TestRenderGateCommandEscapes(t *testing.T) {
	cases := []struct {
		cmd  GateCommand
		want string
	}{
		{GateCommand{Kind: CmdShowCursor}, "\x1b[?25h"},
		{GateCommand{Kind: CmdClearLine}, "\x1b[K"},
		{GateCommand{Kind: CmdClearFromCursor}, "\x1b[J"},
		{GateCommand{Kind: CmdClearScreen}, "\x1b[2J\x1b[H"},
		{GateCommand{Kind: CmdColumnAbs, N: 5}, "\x1b[5G"},
		{GateCommand{Kind: CmdBracketedPasteEnable}, "\x1b[?2004h"},
		{GateCommand{Kind: CmdKittyEnable}, "\x1b[>7u"},
		{GateCommand{Kind: CmdKittyQuery}, "\x1b[?u"},
		{GateCommand{Kind: CmdQueryCellSize}, "\x1b[16t"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, renderGateCommand(c.cmd))
	}
}
