// --- START OF FINAL REVISED FILE internal/cli/runner/runner.go ---
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

const (
	// maxLogOutputBytes limits the size of stderr quoted in error messages.
	maxLogOutputBytes = 1024
	// maxReadBytes caps how much stdout/stderr is captured from the converter.
	maxReadBytes = 10 * 1024 * 1024
)

// execPandocRunner implements pandoc.Converter by running the pandoc binary.
type execPandocRunner struct {
	executable string
	logger     *slog.Logger
}

// NewExecPandocRunner creates a converter that executes the given pandoc
// binary (looked up in PATH when not a path) once per file, without a shell.
func NewExecPandocRunner(executable string, loggerHandler slog.Handler) pandoc.Converter { // minimal comment
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	if executable == "" {
		executable = pandoc.DefaultExecutable
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "pandocRunner"))
	return &execPandocRunner{executable: executable, logger: logger}
}

// readLimited copies at most maxReadBytes from r and drains the rest.
func readLimited(r io.Reader) ([]byte, bool, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxReadBytes))
	truncated := false
	if err == nil && n >= maxReadBytes {
		truncated = true
		_, _ = io.Copy(io.Discard, r)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
		err = nil
	}
	return buf.Bytes(), truncated, err
}

func quoteStderr(s string) string {
	if len(s) > maxLogOutputBytes {
		return s[:maxLogOutputBytes] + "... (truncated)"
	}
	return s
}

// Convert runs pandoc for one file.
func (r *execPandocRunner) Convert(ctx context.Context, req pandoc.Request) (pandoc.Result, error) { // minimal comment
	start := time.Now()
	logArgs := []any{
		slog.String("input", req.InputPath),
		slog.String("output", req.OutputPath),
	}

	cmd := exec.CommandContext(ctx, r.executable, pandoc.Args(req)...)
	if req.Stdin != nil {
		cmd.Stdin = bytes.NewReader(req.Stdin)
		logArgs = append(logArgs, slog.Bool("stdin", true))
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return pandoc.Result{}, pandoc.Errorf("failed to create stdout pipe for '%s': %w", req.InputPath, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return pandoc.Result{}, pandoc.Errorf("failed to create stderr pipe for '%s': %w", req.InputPath, err)
	}

	if startErr := cmd.Start(); startErr != nil {
		r.logger.Error("Failed to start converter", append(logArgs, slog.String("command", r.executable), slog.Any("error", startErr))...)
		return pandoc.Result{}, pandoc.Errorf("failed to start '%s' for '%s': %w", r.executable, req.InputPath, startErr)
	}
	r.logger.Debug("Converter started", logArgs...)

	var wg sync.WaitGroup
	var stdoutData, stderrData []byte
	var stderrTruncated bool
	var readStderrErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		stdoutData, _, _ = readLimited(stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		stderrData, stderrTruncated, readStderrErr = readLimited(stderrPipe)
	}()

	// Pipes must be fully read before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()
	duration := time.Since(start)
	stderrString := strings.TrimSpace(string(stderrData))

	if stderrTruncated {
		r.logger.Warn("Converter stderr truncated", append(logArgs, slog.Int64("limit_bytes", maxReadBytes))...)
	}
	if readStderrErr != nil {
		r.logger.Warn("Error reading converter stderr", append(logArgs, slog.Any("error", readStderrErr))...)
	}
	if len(stderrString) > 0 {
		logArgs = append(logArgs, slog.String("pandoc_stderr", quoteStderr(stderrString)))
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Error("Conversion cancelled or timed out", append(logArgs, slog.Any("error", ctxErr))...)
		return pandoc.Result{}, pandoc.WrapError(pandoc.ErrConversionTimeout, "converting '%s' to '%s' did not finish: %v", req.InputPath, req.OutputPath, ctxErr)
	}

	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		r.logger.Error("Conversion failed", append(logArgs, slog.Int("exitCode", exitCode), slog.Any("error", waitErr))...)
		msg := fmt.Sprintf("converting '%s' to '%s' failed with exit code %d", req.InputPath, req.OutputPath, exitCode)
		if stderrString != "" {
			msg += ": " + quoteStderr(stderrString)
		}
		return pandoc.Result{}, pandoc.WrapError(pandoc.ErrConversionNonZeroExit, "%s", msg)
	}

	if _, statErr := os.Stat(req.OutputPath); statErr != nil {
		r.logger.Error("Converter produced no output file", append(logArgs, slog.Any("error", statErr))...)
		return pandoc.Result{}, pandoc.WrapError(pandoc.ErrConversionNoOutput, "converting '%s': expected output '%s' is missing", req.InputPath, req.OutputPath)
	}

	if len(stdoutData) > 0 {
		r.logger.Debug("Converter stdout output (ignored)", append(logArgs, slog.Int("bytes", len(stdoutData)))...)
	}
	if stderrString != "" {
		r.logger.Debug("Converter stderr output (on success)", logArgs...)
	}
	r.logger.Debug("Conversion finished", append(logArgs, slog.Duration("duration", duration))...)
	return pandoc.Result{Stderr: stderrString, Duration: duration}, nil
}

// --- END OF FINAL REVISED FILE internal/cli/runner/runner.go ---
