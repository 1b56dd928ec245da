// --- START OF FINAL REVISED FILE pkg/converter/orgmode/diagnostics.go ---
package orgmode

import (
	"context"
	"fmt"
	"log/slog"
)

// DiagnosticKind classifies a non-fatal problem found while correcting a document.
type DiagnosticKind string

const (
	// DiagTargetMissing: the linked file does not exist.
	DiagTargetMissing DiagnosticKind = "target_missing"
	// DiagTargetUnreadable: the linked file exists but could not be read or decoded.
	DiagTargetUnreadable DiagnosticKind = "target_unreadable"
	// DiagHeadingNotFound: the linked file was read, but no heading with a custom
	// identifier matched the requested name.
	DiagHeadingNotFound DiagnosticKind = "heading_not_found"
)

// Diagnostic describes one degraded link resolution. The link itself has already
// been rewritten to its anchor-less fallback form when a Diagnostic is reported.
type Diagnostic struct {
	Kind DiagnosticKind `json:"kind"`
	// File is the absolute path of the link target.
	File string `json:"file"`
	// Heading is the heading name that was looked up.
	Heading string `json:"heading"`
	// Err is the underlying cause for target_missing and target_unreadable.
	Err error `json:"-"`
	// Implicit is true when the heading was derived from the target's base name
	// rather than written in the link.
	Implicit bool `json:"implicit,omitempty"`
}

// Message renders the diagnostic as operator-facing text.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case DiagTargetMissing:
		return fmt.Sprintf("could not resolve heading %q: file %s does not exist", d.Heading, d.File)
	case DiagTargetUnreadable:
		return fmt.Sprintf("could not resolve heading %q: file %s is unreadable: %v", d.Heading, d.File, d.Err)
	case DiagHeadingNotFound:
		return fmt.Sprintf("heading %q not found in %s", d.Heading, d.File)
	default:
		return fmt.Sprintf("%s: heading %q in %s", d.Kind, d.Heading, d.File)
	}
}

// Reporter receives diagnostics produced while correcting a document.
// Implementations must be safe for concurrent use when one Reporter is shared
// by several concurrently corrected documents.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts an ordinary function to the Reporter interface.
type ReporterFunc func(d Diagnostic)

// Report calls f(d).
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// NopReporter discards every diagnostic.
var NopReporter Reporter = ReporterFunc(func(Diagnostic) {})

// logReporter writes diagnostics to a structured logger.
type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter that logs each diagnostic.
// Heading lookups derived from a file's base name are expected to miss often
// (most notes have no heading named after themselves) and are logged at Debug;
// everything else is logged at Warn.
func NewLogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &logReporter{logger: logger.With(slog.String("component", "orgmode"))}
}

// Report implements Reporter.
func (r *logReporter) Report(d Diagnostic) {
	level := slog.LevelWarn
	if d.Kind == DiagHeadingNotFound && d.Implicit {
		level = slog.LevelDebug
	}
	attrs := []slog.Attr{
		slog.String("kind", string(d.Kind)),
		slog.String("file", d.File),
		slog.String("heading", d.Heading),
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	r.logger.LogAttrs(context.Background(), level, d.Message(), attrs...)
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/diagnostics.go ---
