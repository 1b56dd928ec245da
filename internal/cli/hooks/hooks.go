// --- START OF FINAL REVISED FILE internal/cli/hooks/hooks.go ---
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/stackvity/obs2org/pkg/converter"
)

// --- TUI Message Structs ---

// FileDiscoveredMsg signals that a file was found by the walker.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a note's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   converter.Status
	Message  string
	Duration time.Duration
}

// PhaseStartMsg signals that the conversion or the post-processing phase began.
type PhaseStartMsg struct {
	Phase converter.Phase
	Total int
}

// RunCompleteMsg signals the completion of the entire conversion run.
type RunCompleteMsg struct{ Report converter.Report }

// --- Hook Implementation ---

// CLIHooks implements the converter.Hooks interface, bridging library events
// to the CLI's UI layer (TUI, Logger, Progress Bar).
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	newBar         ProgressBarFactory // nil when no progress bar is shown
	out            io.Writer
	mu             sync.Mutex // Protects bar
	bar            ProgressBar
}

// TUIProgram defines the interface needed to interact with the Bubble Tea program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the part of *progressbar.ProgressBar the hooks drive.
type ProgressBar interface {
	Add(num int) error
	Close() error
}

// ProgressBarFactory creates the bar of one phase. total is 0 when the
// number of notes is not known yet.
type ProgressBarFactory func(description string, total int) ProgressBar

// NewTerminalProgressBar returns a ProgressBarFactory drawing on w.
func NewTerminalProgressBar(w io.Writer) ProgressBarFactory {
	return func(description string, total int) ProgressBar {
		if total <= 0 {
			total = -1 // spinner
		}
		return progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// --- Constructor ---

// NewCLIHooks creates a new CLIHooks instance.
// Pass nil for tuiProgram if the TUI is not used, and nil for newBar to log
// failures only. out receives the line break that ends a progress bar.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, newBar ProgressBarFactory, out io.Writer) *CLIHooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if out == nil {
		out = io.Discard
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		newBar:         newBar,
		out:            out,
	}
}

// --- Interface Method Implementations ---

// OnFileDiscovered handles the event when a file is found by the walker.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("File discovered", "path", path)
	}
	return nil
}

// OnPhaseStart replaces the progress bar with one for the new phase.
func (h *CLIHooks) OnPhaseStart(phase converter.Phase, total int) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(PhaseStartMsg{Phase: phase, Total: total})
		return nil
	}
	if h.verboseEnabled {
		h.logger.Info("Phase started", slog.String("phase", string(phase)), slog.Int("notes", total))
		return nil
	}
	if h.newBar == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeBarLocked()
	h.bar = h.newBar(phaseDescription(phase), total)
	return nil
}

// OnFileStatusUpdate handles events when a note's processing status changes.
// This method MUST be thread-safe.
func (h *CLIHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == converter.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}

		switch status {
		case converter.StatusSuccess, converter.StatusCached, converter.StatusSkipped:
			logLevel = slog.LevelInfo
		case converter.StatusFailed:
			logLevel = slog.LevelError
			logMsg = "File processing failed"
		}
		h.logger.Log(context.Background(), logLevel, logMsg, attrs...)
		return nil
	}

	if status == converter.StatusFailed {
		h.logger.Error("File processing failed", "path", path, "error", message)
	}
	if status == converter.StatusPending || status == converter.StatusProcessing {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		_ = h.bar.Add(1)
	}
	return nil
}

// OnRunComplete sends the final report to the TUI or finalizes the progress bar.
func (h *CLIHooks) OnRunComplete(report converter.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeBarLocked()
	return nil
}

// closeBarLocked closes the current bar and ends its line. MUST be called with mu held.
func (h *CLIHooks) closeBarLocked() {
	if h.bar == nil {
		return
	}
	_ = h.bar.Close()
	h.bar = nil
	_, _ = fmt.Fprintln(h.out)
}

func phaseDescription(phase converter.Phase) string {
	switch phase {
	case converter.PhaseConversion:
		return "Converting notes"
	case converter.PhasePostProcess:
		return "Correcting Org files"
	default:
		return string(phase)
	}
}

// --- END OF FINAL REVISED FILE internal/cli/hooks/hooks.go ---
