package tapetui

import "github.com/pkg/errors"

// TerminalOp is a direct, low-level terminal side effect requested
// through Command.Terminal (spec §4.1, §6).
type TerminalOp int

const (
	OpShowCursor TerminalOp = iota
	OpHideCursor
	OpClearLine
	OpClearFromCursor
	OpClearScreen
	OpMoveBy
	OpRequestFullRedraw
)

// Command is the closed set of effects a component, custom command,
// or the runtime itself can request. Only the fields the Kind's
// constructor sets are meaningful; the rest are left zero.
type Command struct {
	Kind CommandKind

	SurfaceId   SurfaceId
	ComponentId ComponentId
	Options     *SurfaceOptions
	Hidden      bool
	Title       string
	RootIds     []ComponentId
	MoveDelta   int
	Op          TerminalOp
	Custom      CustomCommand
}

// CommandKind distinguishes the variant of Command in play.
type CommandKind int

const (
	CmdRequestRender CommandKind = iota
	CmdRequestStop
	CmdSetTitle
	CmdRootSet
	CmdRootPush
	CmdFocusSet
	CmdFocusClear
	CmdShowSurface
	CmdHideSurface
	CmdSetSurfaceHidden
	CmdUpdateSurfaceOptions
	CmdTerminalOp
	CmdCustom
)

// Constructors mirror spec §4.1's command taxonomy one-to-one.

func RequestRenderCommand() Command { return Command{Kind: CmdRequestRender} }
func RequestStopCommand() Command   { return Command{Kind: CmdRequestStop} }

func SetTitleCommand(title string) Command {
	return Command{Kind: CmdSetTitle, Title: title}
}

func RootSetCommand(ids []ComponentId) Command {
	return Command{Kind: CmdRootSet, RootIds: ids}
}

func RootPushCommand(id ComponentId) Command {
	return Command{Kind: CmdRootPush, ComponentId: id}
}

func FocusSetCommand(id ComponentId) Command {
	return Command{Kind: CmdFocusSet, ComponentId: id}
}

func FocusClearCommand() Command { return Command{Kind: CmdFocusClear} }

func ShowSurfaceCommand(id SurfaceId, componentId ComponentId, options *SurfaceOptions, hidden bool) Command {
	return Command{Kind: CmdShowSurface, SurfaceId: id, ComponentId: componentId, Options: options, Hidden: hidden}
}

func HideSurfaceCommand(id SurfaceId) Command {
	return Command{Kind: CmdHideSurface, SurfaceId: id}
}

func SetSurfaceHiddenCommand(id SurfaceId, hidden bool) Command {
	return Command{Kind: CmdSetSurfaceHidden, SurfaceId: id, Hidden: hidden}
}

func UpdateSurfaceOptionsCommand(id SurfaceId, options *SurfaceOptions) Command {
	return Command{Kind: CmdUpdateSurfaceOptions, SurfaceId: id, Options: options}
}

func TerminalOpCommand(op TerminalOp, delta int) Command {
	return Command{Kind: CmdTerminalOp, Op: op, MoveDelta: delta}
}

func CustomCommandOf(c CustomCommand) Command {
	return Command{Kind: CmdCustom, Custom: c}
}

// CustomCommand is an extension point: host code implements Run to
// perform an arbitrary, possibly multi-step mutation against the
// runtime under CustomCommandContext (spec §4.1 custom command API).
type CustomCommand interface {
	Run(ctx *CustomCommandContext) error
}

// CustomCommandContext is the capability handed to a CustomCommand. It
// is valid only for the duration of Run.
type CustomCommandContext struct {
	rt       *Runtime
	borrowed map[ComponentId]bool
}

// RequestRender schedules a render after this tick.
func (c *CustomCommandContext) RequestRender() { c.rt.bus.RequestRender() }

// SetTitle queues a terminal title change.
func (c *CustomCommandContext) SetTitle(title string) {
	c.rt.enqueue(SetTitleCommand(title))
}

// SetFocus queues a focus change to the given component.
func (c *CustomCommandContext) SetFocus(id ComponentId) {
	c.rt.enqueue(FocusSetCommand(id))
}

// ShowSurface queues a surface to be shown (created or replaced).
func (c *CustomCommandContext) ShowSurface(id SurfaceId, componentId ComponentId, options *SurfaceOptions) {
	c.rt.enqueue(ShowSurfaceCommand(id, componentId, options, false))
}

// HideSurface queues removal of a surface.
func (c *CustomCommandContext) HideSurface(id SurfaceId) {
	c.rt.enqueue(HideSurfaceCommand(id))
}

// WithComponent borrows the component registered under id for the
// duration of fn. The borrow is exclusive: a component may only be
// borrowed once per CustomCommand.Run call; a second attempt returns
// a MissingComponentId-flavored error.
func (c *CustomCommandContext) WithComponent(id ComponentId, fn func(Component) error) error {
	if c.borrowed[id] {
		return &CustomCommandError{Kind: ErrMissingComponentId, ComponentId: id}
	}
	comp, ok := c.rt.registry.Get(id)
	if !ok {
		return &CustomCommandError{Kind: ErrMissingComponentId, ComponentId: id}
	}
	if c.borrowed == nil {
		c.borrowed = make(map[ComponentId]bool)
	}
	c.borrowed[id] = true
	return fn(comp)
}

// CustomCommandErrorKind enumerates the structured failure modes a
// CustomCommand can report (spec §7).
type CustomCommandErrorKind int

const (
	ErrMissingComponentId CustomCommandErrorKind = iota
	ErrMissingSurfaceId
	ErrInvalidState
	ErrMessage
)

// CustomCommandError is the structured error type CustomCommand.Run
// returns for referential and state-validation failures.
type CustomCommandError struct {
	Kind        CustomCommandErrorKind
	ComponentId ComponentId
	SurfaceId   SurfaceId
	Text        string
	cause       error
}

func (e *CustomCommandError) Error() string {
	switch e.Kind {
	case ErrMissingComponentId:
		return errors.Errorf("tapetui: no component registered with id %d", e.ComponentId).Error()
	case ErrMissingSurfaceId:
		return errors.Errorf("tapetui: no surface registered with id %d", e.SurfaceId).Error()
	case ErrInvalidState:
		return errors.Errorf("tapetui: invalid state: %s", e.Text).Error()
	default:
		return e.Text
	}
}

func (e *CustomCommandError) Unwrap() error { return e.cause }

// InvalidStateError reports a custom command precondition failure.
func InvalidStateError(msg string) *CustomCommandError {
	return &CustomCommandError{Kind: ErrInvalidState, Text: msg}
}

// MessageError wraps an arbitrary cause as a CustomCommandError,
// preserving it for errors.Is/As via Unwrap.
func MessageError(msg string, cause error) *CustomCommandError {
	return &CustomCommandError{Kind: ErrMessage, Text: msg, cause: errors.WithStack(cause)}
}
