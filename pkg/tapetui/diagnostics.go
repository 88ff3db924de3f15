package tapetui

import (
	"context"
	"log/slog"
)

// DiagnosticCode classifies a recoverable, logged-not-fatal condition
// the runtime can hit mid-tick (spec §7: referential errors and
// protocol-recoverable clamps never panic, they are reported and
// skipped).
type DiagnosticCode string

const (
	DiagMissingComponentId DiagnosticCode = "missing_component_id"
	DiagMissingSurfaceId   DiagnosticCode = "missing_surface_id"
	DiagCursorClamped      DiagnosticCode = "cursor_clamped"
	DiagUnknownEscape      DiagnosticCode = "unknown_escape"
	DiagCustomCommandError DiagnosticCode = "custom_command_error"
)

// Diagnostics receives structured, non-fatal runtime events. The
// default implementation logs them via log/slog; tests typically
// inject a recording implementation instead.
type Diagnostics interface {
	Report(code DiagnosticCode, msg string, attrs ...any)
}

// SlogDiagnostics is the default Diagnostics sink, logging each report
// as one structured line tagged with the tape_tui component prefix
// the teacher's telemetry used for its own debug output.
type SlogDiagnostics struct {
	logger *slog.Logger
}

// NewSlogDiagnostics creates a Diagnostics sink backed by logger. A
// nil logger falls back to slog.Default().
func NewSlogDiagnostics(logger *slog.Logger) *SlogDiagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogDiagnostics{logger: logger}
}

func (d *SlogDiagnostics) Report(code DiagnosticCode, msg string, attrs ...any) {
	level, tag := diagnosticLevel(code)
	d.logger.Log(context.Background(), level,
		"[tape_tui]["+tag+"]["+string(code)+"] "+msg, attrs...)
}

// diagnosticLevel maps a DiagnosticCode to the slog level the teacher's
// telemetry convention calls for: Error for referential errors (an id
// that doesn't resolve, a custom command that failed outright), Warn
// for protocol-recoverable clamps.
func diagnosticLevel(code DiagnosticCode) (slog.Level, string) {
	switch code {
	case DiagMissingComponentId, DiagMissingSurfaceId, DiagCustomCommandError:
		return slog.LevelError, "error"
	default:
		return slog.LevelWarn, "warn"
	}
}
