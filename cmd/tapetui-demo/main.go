// Command tapetui-demo exercises the runtime with a couple of
// illustrative components: a scrolling log and a one-line status
// surface, driven entirely by key input.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/Gurpartap/tape-tui-sub000/pkg/tapetui"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Config holds the demo's command-line configuration.
type Config struct {
	Debug bool
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "tapetui-demo",
		Short: "Demonstrates the tape_tui runtime",
		Long: `tapetui-demo drives a minimal tape_tui runtime against your real
terminal: a scrolling log component as the root, and a toast surface
triggered by pressing 't'. Press 'q' or ctrl+c to exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	rootCmd.Flags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")

	ctx := context.Background()
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			fmt.Fprintln(w, styles.ErrorText.Render(err.Error()))
		}),
	); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) error {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	term := tapetui.NewProcessTerminal()
	rt := tapetui.NewRuntime(term, tapetui.WithDiagnostics(tapetui.NewSlogDiagnostics(logger)))

	log := newLogComponent()
	logId := rt.Registry().Register(log)

	toast := newToastComponent("")
	toastId := rt.Registry().Register(toast)

	rt.Dispatch(tapetui.RootSetCommand([]tapetui.ComponentId{logId}))
	rt.Dispatch(tapetui.FocusSetCommand(logId))

	surfaceId := rt.AllocSurfaceId()

	log.onKey = func(key string) bool {
		switch key {
		case "q", "ctrl+c":
			rt.RequestStop()
			return true
		case "t":
			toast.setText(fmt.Sprintf("toast #%d", log.counter))
			rt.Dispatch(tapetui.ShowSurfaceCommand(surfaceId, toastId, toastOptions(), false))
			return true
		}
		return false
	}

	if err := rt.Start(); err != nil {
		return err
	}
	rt.Run()
	return rt.Stop()
}

func toastOptions() *tapetui.SurfaceOptions {
	return &tapetui.SurfaceOptions{
		Width:     tapetui.SizeAbs(20),
		MaxHeight: tapetui.SizeAbs(1),
		Kind:      tapetui.KindToast,
		Input:     tapetui.InputPassthrough,
	}
}

// logComponent renders an append-only scrolling log and forwards
// unhandled key presses to onKey.
type logComponent struct {
	lines   []string
	counter int
	onKey   func(key string) bool
}

func newLogComponent() *logComponent {
	return &logComponent{lines: []string{"tapetui-demo started. press t to toast, q to quit."}}
}

func (c *logComponent) Render(width int) tapetui.RenderResult {
	var lines []tapetui.Line
	for _, l := range c.lines {
		lines = append(lines, tapetui.NewLine(l))
	}
	return tapetui.RenderResult{Lines: lines}
}

func (c *logComponent) Invalidate() {}

func (c *logComponent) HandleInput(ctx tapetui.EventContext, ev tapetui.InputEvent) bool {
	switch e := ev.(type) {
	case tapetui.KeyInputEvent:
		if c.onKey != nil && c.onKey(e.KeyID) {
			c.counter++
			c.lines = append(c.lines, "["+strconv.Itoa(c.counter)+"] key "+e.KeyID)
			ctx.Runtime.RequestRender()
			return true
		}
	case tapetui.TextInputEvent:
		if c.onKey != nil && c.onKey(e.Text) {
			c.counter++
			c.lines = append(c.lines, "["+strconv.Itoa(c.counter)+"] key "+e.Text)
			ctx.Runtime.RequestRender()
			return true
		}
		c.counter++
		c.lines = append(c.lines, "["+strconv.Itoa(c.counter)+"] text "+e.Text)
		ctx.Runtime.RequestRender()
		return true
	}
	return false
}

// toastComponent is a single-line status surface. It has no timer:
// once shown it stays visible.
type toastComponent struct {
	text string
}

func newToastComponent(text string) *toastComponent {
	return &toastComponent{text: text}
}

func (c *toastComponent) setText(text string) { c.text = text }

func (c *toastComponent) Render(width int) tapetui.RenderResult {
	return tapetui.RenderResult{Lines: []tapetui.Line{tapetui.NewLine(c.text)}}
}

func (c *toastComponent) Invalidate() {}
