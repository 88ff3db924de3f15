package tapetui

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestSlogDiagnosticsLevelsMatchCodeSeverity(t *testing.T) {
	handler := &recordingHandler{}
	diag := NewSlogDiagnostics(slog.New(handler))

	diag.Report(DiagMissingComponentId, "no such component")
	diag.Report(DiagMissingSurfaceId, "no such surface")
	diag.Report(DiagCustomCommandError, "custom command failed")
	diag.Report(DiagCursorClamped, "cursor clamped")
	diag.Report(DiagUnknownEscape, "unknown escape")

	want := []slog.Level{
		slog.LevelError,
		slog.LevelError,
		slog.LevelError,
		slog.LevelWarn,
		slog.LevelWarn,
	}
	if assert.Len(t, handler.records, len(want)) {
		for i, lvl := range want {
			assert.Equal(t, lvl, handler.records[i].Level, "record %d", i)
		}
	}
}

func TestSlogDiagnosticsDefaultsToDefaultLogger(t *testing.T) {
	diag := NewSlogDiagnostics(nil)
	assert.NotNil(t, diag)
}
