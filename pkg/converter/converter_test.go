// --- START OF FINAL REVISED FILE pkg/converter/converter_test.go ---
package converter_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/obs2org/internal/testutil"
	"github.com/stackvity/obs2org/pkg/converter"
)

// createValidTestOptions sets up a basic, valid converter.Options struct for testing purposes.
func createValidTestOptions(t *testing.T) (converter.Options, *bytes.Buffer) {
	t.Helper()
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	logBuf := &bytes.Buffer{}
	loggerHandler := slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	testutil.CreateDummyFile(t, filepath.Join(inputDir, "note.md"), "# Note\n\nSee [[other]].\n")
	testutil.CreateDummyFile(t, filepath.Join(inputDir, "other.md"), "# Other\n")

	opts := converter.Options{
		InputPath:   inputDir,
		OutputPath:  outputDir,
		Logger:      loggerHandler,
		Converter:   &testutil.FakeConverter{},
		EventHooks:  &testutil.MockHooks{},
		OnErrorMode: converter.OnErrorContinue,
		Concurrency: 1,
		Timeout:     "10s",
		GitDiffMode: converter.GitDiffModeNone,
		AppVersion:  "v1.2.3",
	}

	mockHooks, ok := opts.EventHooks.(*testutil.MockHooks)
	require.True(t, ok)
	mockHooks.On("OnFileDiscovered", mock.Anything).Return(nil)
	mockHooks.On("OnFileStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockHooks.On("OnPhaseStart", mock.Anything, mock.Anything).Return(nil)
	mockHooks.On("OnRunComplete", mock.AnythingOfType("converter.Report")).Return(nil)

	return opts, logBuf
}

func TestConvert_BasicSuccess(t *testing.T) {
	opts, logBuf := createValidTestOptions(t)

	report, err := converter.Convert(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, opts.InputPath, report.Summary.InputPath)
	assert.Equal(t, opts.OutputPath, report.Summary.OutputPath)
	assert.False(t, report.Summary.FatalErrorOccurred)
	assert.Equal(t, 2, report.Summary.TotalFilesScanned)
	assert.Equal(t, 2, report.Summary.ProcessedCount)
	assert.Equal(t, 0, report.Summary.ErrorCount)

	content, err := os.ReadFile(filepath.Join(opts.OutputPath, "note.org"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[[file:other.org][other]]")
	assert.FileExists(t, filepath.Join(opts.OutputPath, "other.org"))

	mockHooks := opts.EventHooks.(*testutil.MockHooks)
	mockHooks.AssertCalled(t, "OnRunComplete", mock.AnythingOfType("converter.Report"))
	mockHooks.AssertCalled(t, "OnPhaseStart", converter.PhasePostProcess, 2)
	assert.Contains(t, logBuf.String(), "Starting obs2org library execution")
	assert.Contains(t, logBuf.String(), "v1.2.3")
}

func TestConvert_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		modify      func(opts *converter.Options)
		errContains string
	}{
		{"missing input path", func(o *converter.Options) { o.InputPath = "" }, "input path cannot be empty"},
		{"missing output path", func(o *converter.Options) { o.OutputPath = "" }, "output path cannot be empty"},
		{"negative concurrency", func(o *converter.Options) { o.Concurrency = -1 }, "concurrency cannot be negative"},
		{"nil logger", func(o *converter.Options) { o.Logger = nil }, "Logger implementation cannot be nil"},
		{"nil converter", func(o *converter.Options) { o.Converter = nil }, "Converter implementation cannot be nil"},
		{"invalid timeout", func(o *converter.Options) { o.Timeout = "soon" }, "invalid timeout"},
		{"git mode without client", func(o *converter.Options) { o.GitDiffMode = converter.GitDiffModeDiffOnly }, "GitClient required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts, _ := createValidTestOptions(t)
			tc.modify(&opts)

			_, err := converter.Convert(context.Background(), opts)

			require.Error(t, err)
			assert.True(t, errors.Is(err, converter.ErrConfigValidation), "Error should wrap ErrConfigValidation")
			assert.Contains(t, err.Error(), tc.errContains)
			mockHooks := opts.EventHooks.(*testutil.MockHooks)
			mockHooks.AssertNotCalled(t, "OnRunComplete", mock.Anything)
		})
	}
}

func TestConvert_NilHooksUseDefault(t *testing.T) {
	opts, _ := createValidTestOptions(t)
	opts.EventHooks = nil

	report, err := converter.Convert(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.ProcessedCount)
}

func TestConvert_ContextCancellation(t *testing.T) {
	opts, _ := createValidTestOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := converter.Convert(ctx, opts)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "Error should be context.Canceled")
	assert.True(t, report.Summary.FatalErrorOccurred)
}

func TestConvert_GitWarning(t *testing.T) {
	opts, logBuf := createValidTestOptions(t)
	opts.GitDiffMode = converter.GitDiffModeSince

	_, err := converter.Convert(context.Background(), opts)

	require.Error(t, err)
	assert.Contains(t, logBuf.String(), "Git diff mode requested but no GitClient provided")
}

// TestConvert_OnRunCompleteHookError verifies that hook errors are logged but don't fail the run.
func TestConvert_OnRunCompleteHookError(t *testing.T) {
	opts, logBuf := createValidTestOptions(t)

	hookError := errors.New("mock hook completion error")
	mockHooks := opts.EventHooks.(*testutil.MockHooks)
	mockHooks.ExpectedCalls = nil
	mockHooks.On("OnFileDiscovered", mock.Anything).Return(nil)
	mockHooks.On("OnFileStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockHooks.On("OnPhaseStart", mock.Anything, mock.Anything).Return(nil)
	mockHooks.On("OnRunComplete", mock.AnythingOfType("converter.Report")).Return(hookError)

	report, err := converter.Convert(context.Background(), opts)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.ProcessedCount)
	mockHooks.AssertCalled(t, "OnRunComplete", mock.AnythingOfType("converter.Report"))
	assert.Contains(t, logBuf.String(), "OnRunComplete hook returned an error")
	assert.Contains(t, logBuf.String(), hookError.Error())
}

// --- END OF FINAL REVISED FILE pkg/converter/converter_test.go ---
