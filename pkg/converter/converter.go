// --- START OF FINAL REVISED FILE pkg/converter/converter.go ---
package converter

import (
	"context"
	"fmt"
	"log/slog"
)

// Convert is the main entry point for the core conversion library. It
// converts the Markdown notes under opts.InputPath into Org files under
// opts.OutputPath and returns the run report. The returned error is non-nil
// for invalid options or when the run stopped early; per-file failures in
// "continue" mode are only recorded in the report.
func Convert(ctx context.Context, opts Options) (Report, error) {
	// --- Initial Validation ---
	if opts.Logger == nil {
		return Report{}, fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger)

	if opts.Converter == nil {
		err := fmt.Errorf("%w: Converter implementation cannot be nil", ErrConfigValidation)
		logger.Error(err.Error())
		return Report{}, err
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
		logger.Error(err.Error(), slog.Int("concurrency", opts.Concurrency))
		return Report{}, err
	}
	if opts.GitDiffMode != "" && opts.GitDiffMode != GitDiffModeNone && opts.GitClient == nil && opts.GitChangedFiles == nil {
		logger.Warn("Git diff mode requested but no GitClient provided; the run will fail validation.")
	}

	version := opts.AppVersion
	if version == "" {
		version = "dev"
	}
	logger.Info("Starting obs2org library execution", slog.String("version", version))

	engine, err := NewEngine(ctx, opts)
	if err != nil {
		logger.Error("Failed to initialize engine", slog.String("error", err.Error()))
		return Report{}, err
	}
	return engine.Run()
}

// --- END OF FINAL REVISED FILE pkg/converter/converter.go ---
