package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stackvity/obs2org/internal/cli/git"
	"github.com/stackvity/obs2org/internal/cli/hooks"
	"github.com/stackvity/obs2org/internal/cli/runner"
	"github.com/stackvity/obs2org/internal/cli/ui"
	"github.com/stackvity/obs2org/pkg/converter"
)

// ErrNotesFailed is returned when the run finished but some notes could not be converted.
var ErrNotesFailed = errors.New("some notes failed to convert")

// Run wires the CLI implementations into opts, executes the conversion and
// prints the final report to stdout. Progress goes to stderr: a TUI or a
// progress bar when stderr is a terminal, log lines otherwise.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger) error {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	return run(ctx, opts, logger, os.Stdout, os.Stderr, interactive)
}

func run(ctx context.Context, opts converter.Options, logger *slog.Logger, stdout, stderr io.Writer, interactive bool) error {
	if opts.Converter == nil {
		opts.Converter = runner.NewExecPandocRunner(opts.PandocPath, opts.Logger)
	}
	if opts.GitDiffMode != converter.GitDiffModeNone && opts.GitClient == nil {
		opts.GitClient = git.NewGoGitClient(opts.Logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	useTUI := interactive && opts.TuiEnabled && !opts.Verbose
	var newBar hooks.ProgressBarFactory
	if interactive && !useTUI && !opts.Verbose {
		newBar = hooks.NewTerminalProgressBar(stderr)
	}

	var (
		program *tea.Program
		tuiDone chan struct{}
		heldLog *bytes.Buffer
	)
	if useTUI {
		// Log lines would tear the TUI; hold warnings until it exits.
		heldLog = &bytes.Buffer{}
		opts.Logger = slog.NewTextHandler(heldLog, &slog.HandlerOptions{Level: slog.LevelWarn})

		model := ui.NewModel(opts.AppVersion)
		program = tea.NewProgram(model, tea.WithOutput(stderr))
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil {
				logger.Error("Terminal UI exited with an error", slog.Any("error", err))
			}
			if model.Quitting() {
				logger.Warn("Interrupted by user, stopping the run")
				cancel()
			}
		}()
	}

	var tuiProg hooks.TUIProgram
	if program != nil {
		tuiProg = program
	}
	opts.EventHooks = hooks.NewCLIHooks(logger, useTUI, opts.Verbose, tuiProg, newBar, stderr)
	report, err := converter.Convert(ctx, opts)

	if program != nil {
		program.Quit()
		<-tuiDone
		_, _ = io.Copy(stderr, heldLog)
	}

	if err != nil && !report.Summary.FatalErrorOccurred {
		// Rejected before any note was touched.
		return err
	}
	if writeErr := report.Write(stdout, opts.OutputFormat); writeErr != nil {
		logger.Error("Failed to write report", slog.Any("error", writeErr))
	}
	if err != nil {
		return err
	}
	if report.Summary.ErrorCount > 0 {
		return fmt.Errorf("%w: %d of %d", ErrNotesFailed, report.Summary.ErrorCount, report.Summary.TotalFilesScanned)
	}
	return nil
}
