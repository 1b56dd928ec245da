// --- START OF FINAL REVISED FILE pkg/converter/engine_test.go ---
package converter_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/obs2org/internal/testutil"
	"github.com/stackvity/obs2org/pkg/converter"
	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/encoding"
	libgit "github.com/stackvity/obs2org/pkg/converter/git"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// --- Test Suite Setup ---

// engineTestSuite holds common setup for engine tests.
type engineTestSuite struct {
	opts          converter.Options
	conv          *testutil.FakeConverter
	hooks         *testutil.RecordingHooks
	logBuf        *bytes.Buffer
	tempInputDir  string
	tempOutputDir string
}

func setupEngineTestSuite(t *testing.T) *engineTestSuite { // minimal comment
	t.Helper()
	s := &engineTestSuite{
		conv:          &testutil.FakeConverter{},
		hooks:         &testutil.RecordingHooks{},
		logBuf:        &bytes.Buffer{},
		tempInputDir:  t.TempDir(),
		tempOutputDir: t.TempDir(),
	}
	s.opts = converter.Options{
		InputPath:   s.tempInputDir,
		OutputPath:  s.tempOutputDir,
		AppVersion:  "test",
		OnErrorMode: converter.OnErrorContinue,
		Concurrency: 4,
		Timeout:     "10s",
		Logger:      slog.NewTextHandler(s.logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		Converter:   s.conv,
		EventHooks:  s.hooks,
		IDGenerator: func() string { return "test-id" },
	}
	return s
}

func (s *engineTestSuite) note(t *testing.T, rel, content string) {
	t.Helper()
	testutil.CreateDummyFile(t, filepath.Join(s.tempInputDir, filepath.FromSlash(rel)), content)
}

func (s *engineTestSuite) output(t *testing.T, rel string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(s.tempOutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(content)
}

func (s *engineTestSuite) run(t *testing.T) (converter.Report, error) {
	t.Helper()
	engine, err := converter.NewEngine(context.Background(), s.opts)
	require.NoError(t, err)
	return engine.Run()
}

func processedPaths(report converter.Report) []string {
	var paths []string
	for _, info := range report.ProcessedFiles {
		paths = append(paths, info.Path)
	}
	return paths
}

func skipReasons(report converter.Report) map[string]string {
	reasons := make(map[string]string)
	for _, skipped := range report.SkippedFiles {
		reasons[skipped.Path] = skipped.Reason
	}
	return reasons
}

// --- NewEngine ---

func TestNewEngine_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(s *engineTestSuite, o *converter.Options)
	}{
		{name: "nil logger", mutate: func(_ *engineTestSuite, o *converter.Options) { o.Logger = nil }},
		{name: "nil converter", mutate: func(_ *engineTestSuite, o *converter.Options) { o.Converter = nil }},
		{name: "empty input", mutate: func(_ *engineTestSuite, o *converter.Options) { o.InputPath = "" }},
		{name: "missing input", mutate: func(s *engineTestSuite, o *converter.Options) {
			o.InputPath = filepath.Join(s.tempInputDir, "missing")
		}},
		{name: "empty output", mutate: func(_ *engineTestSuite, o *converter.Options) { o.OutputPath = "" }},
		{name: "output is a file", mutate: func(s *engineTestSuite, o *converter.Options) {
			o.OutputPath = filepath.Join(s.tempInputDir, "file.org")
			require.NoError(t, os.WriteFile(o.OutputPath, nil, 0o644))
			o.OutputPath = filepath.Join(o.OutputPath, "sub")
		}},
		{name: "bad timeout", mutate: func(_ *engineTestSuite, o *converter.Options) { o.Timeout = "soon" }},
		{name: "negative timeout", mutate: func(_ *engineTestSuite, o *converter.Options) { o.Timeout = "-1s" }},
		{name: "git mode without client", mutate: func(_ *engineTestSuite, o *converter.Options) {
			o.GitDiffMode = converter.GitDiffModeDiffOnly
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupEngineTestSuite(t)
			tc.mutate(s, &s.opts)
			engine, err := converter.NewEngine(context.Background(), s.opts)
			assert.Nil(t, engine)
			assert.ErrorIs(t, err, converter.ErrConfigValidation)
		})
	}
}

func TestNewEngine_GitClientError(t *testing.T) {
	s := setupEngineTestSuite(t)
	gitClient := &testutil.MockGitClient{}
	gitClient.On("GetChangedFiles", s.tempInputDir, libgit.ModeSince, "v1").
		Return(nil, libgit.Errorf("unknown revision %q", "v1")).Once()
	s.opts.GitClient = gitClient
	s.opts.GitDiffMode = converter.GitDiffModeSince
	s.opts.GitConfig.SinceRef = "v1"

	_, err := converter.NewEngine(context.Background(), s.opts)

	assert.ErrorIs(t, err, libgit.ErrGitOperation)
	gitClient.AssertExpectations(t)
}

func TestNewEngine_NilHooks_UsesDefault(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.opts.EventHooks = nil
	s.note(t, "a.md", "# A\n")

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)
}

// --- Run ---

func TestEngine_Run_HappyPath(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.opts.PostProcess.AddUUIDHeader = true
	s.note(t, "books.md", "# My Heading\nSome books.\n")
	s.note(t, "index.md", "See [[books#My Heading]], [[books]] and [[sub/child]].\n2021-05-28\n")
	s.note(t, "sub/child.md", "# Child\nBack to [[../index]] or [[Nowhere#Else]].\n")
	s.note(t, "image.png", "\x89PNG\r\n\x1a\n")
	s.note(t, ".obsidian/workspace.md", "# ignored\n")

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"books.md", "index.md", "sub/child.md"}, processedPaths(report))
	assert.Equal(t, map[string]string{"image.png": converter.SkipReasonNotMarkdown}, skipReasons(report))
	assert.Equal(t, 4, report.Summary.TotalFilesScanned)
	assert.Equal(t, 0, report.Summary.ErrorCount)
	assert.False(t, report.Summary.FatalErrorOccurred)
	assert.Equal(t, converter.ReportSchemaVersion, report.Summary.SchemaVersion)

	index := s.output(t, "index.org")
	assert.Contains(t, index, ":ID: test-id")
	assert.Contains(t, index, "[[file:books.org::#my-heading][My Heading]]")
	assert.Contains(t, index, "[[file:sub/child.org::#child][Child]]")
	assert.Contains(t, index, "[[file:books.org][books]]")
	assert.Contains(t, index, "<2021-05-28>")
	assert.Contains(t, s.output(t, "sub/child.org"), "[[../index]]", "protected path links are left alone")
	assert.NoFileExists(t, filepath.Join(s.tempOutputDir, ".obsidian", "workspace.org"))

	require.Len(t, report.Diagnostics, 2)
	assert.Equal(t, 1, report.Summary.WarningCount, "the implicit heading miss is not a warning")

	phases, totals := s.hooks.Phases()
	assert.Equal(t, []converter.Phase{converter.PhaseConversion, converter.PhasePostProcess}, phases)
	assert.Equal(t, []int{0, 3}, totals)
	assert.Equal(t, []converter.Status{converter.StatusProcessing, converter.StatusConverted, converter.StatusSuccess}, s.hooks.Statuses("index.md"))
	assert.Equal(t, []converter.Status{converter.StatusSkipped}, s.hooks.Statuses("image.png"))
	require.NotNil(t, s.hooks.Report())
	assert.Equal(t, report.Summary.ProcessedCount, s.hooks.Report().Summary.ProcessedCount)
}

func TestEngine_Run_SingleFileInput(t *testing.T) {
	s := setupEngineTestSuite(t)
	s.note(t, "daily/2021-05-28.md", "# Day\n")
	s.note(t, "daily/other.md", "# Other\n")
	s.opts.InputPath = filepath.Join(s.tempInputDir, "daily", "2021-05-28.md")

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"2021-05-28.md"}, processedPaths(report))
	assert.Contains(t, s.output(t, "2021-05-28.org"), "* Day")
	assert.Equal(t, []string{"2021-05-28.md"}, s.conv.Converted())
}

func TestEngine_Run_Cache(t *testing.T) {
	s := setupEngineTestSuite(t)
	s.opts.CacheEnabled = true
	s.note(t, "books.md", "# My Heading\n")
	s.note(t, "index.md", "See [[books#My Heading]].\n")
	s.note(t, "lonely.md", "# Alone\n")

	first, err := s.run(t)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Summary.CachedCount)
	assert.FileExists(t, filepath.Join(s.tempOutputDir, cache.CacheFileName))
	require.Len(t, s.conv.Calls(), 3)

	t.Run("unchanged vault is served from the cache", func(t *testing.T) {
		report, err := s.run(t)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Summary.CachedCount)
		assert.Equal(t, 3, report.Summary.ProcessedCount)
		assert.Len(t, s.conv.Calls(), 3)
		for _, info := range report.ProcessedFiles {
			assert.Equal(t, converter.CacheStatusHit, info.CacheStatus, info.Path)
		}
	})

	t.Run("changed link target re-converts the linking note", func(t *testing.T) {
		s.note(t, "books.md", "# My Renamed Heading\n")
		before := len(s.conv.Calls())

		report, err := s.run(t)

		require.NoError(t, err)
		reconverted := s.conv.Converted()[before:]
		sort.Strings(reconverted)
		assert.Equal(t, []string{"books.md", "index.md"}, reconverted)
		assert.Equal(t, 1, report.Summary.CachedCount)
		assert.Contains(t, s.output(t, "index.org"), "[[file:books.org][My Heading]]")
	})

	t.Run("no-cache ignores reads", func(t *testing.T) {
		s.opts.IgnoreCacheRead = true
		defer func() { s.opts.IgnoreCacheRead = false }()
		before := len(s.conv.Calls())

		report, err := s.run(t)

		require.NoError(t, err)
		assert.Equal(t, 0, report.Summary.CachedCount)
		assert.Len(t, s.conv.Calls(), before+3)
	})

	t.Run("clear-cache removes the index first", func(t *testing.T) {
		s.opts.ClearCache = true
		defer func() { s.opts.ClearCache = false }()
		report, err := s.run(t)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Summary.CachedCount)
	})
}

func TestEngine_Run_GitDiffMode(t *testing.T) {
	s := setupEngineTestSuite(t)
	s.note(t, "index.md", "# Index\n")
	s.note(t, "old.md", "# Old\n")
	gitClient := &testutil.MockGitClient{}
	gitClient.On("GetChangedFiles", s.tempInputDir, libgit.ModeDiffOnly, "").Return([]string{"index.md", "deleted.md"}, nil).Once()
	s.opts.GitClient = gitClient
	s.opts.GitDiffMode = converter.GitDiffModeDiffOnly

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"index.md"}, processedPaths(report))
	assert.Equal(t, map[string]string{"old.md": converter.SkipReasonGitExclude}, skipReasons(report))
	gitClient.AssertExpectations(t)
}

func TestEngine_Run_OnErrorContinue(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.conv.Fail = map[string]error{"broken.md": pandoc.WrapError(pandoc.ErrConversionNonZeroExit, "exit status 64")}
	s.note(t, "broken.md", "# Broken\n")
	s.note(t, "fine.md", "# Fine\n")

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"fine.md"}, processedPaths(report))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "broken.md", report.Errors[0].Path)
	assert.False(t, report.Errors[0].IsFatal)
	assert.Contains(t, report.Errors[0].Error, "exit status 64")
	assert.False(t, report.Summary.FatalErrorOccurred)
	assert.Equal(t, []converter.Status{converter.StatusProcessing, converter.StatusFailed}, s.hooks.Statuses("broken.md"))
}

func TestEngine_Run_OnErrorStop(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.opts.OnErrorMode = converter.OnErrorStop
	s.opts.Concurrency = 1
	s.conv.Fail = map[string]error{"a-broken.md": pandoc.Errorf("exit status 1")}
	s.note(t, "a-broken.md", "# Broken\n")
	for i := 0; i < 5; i++ {
		s.note(t, fmt.Sprintf("note-%d.md", i), "# Note\n")
	}

	report, err := s.run(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a-broken.md")
	assert.True(t, report.Summary.FatalErrorOccurred)
	assert.Empty(t, report.ProcessedFiles, "post-processing does not start after a fatal error")
	require.NotEmpty(t, report.Errors)
	assert.True(t, report.Errors[0].IsFatal)
}

func TestEngine_Run_ContextCancellation(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.note(t, "a.md", "# A\n")
	ctx, cancel := context.WithCancel(context.Background())
	engine, err := converter.NewEngine(ctx, s.opts)
	require.NoError(t, err)
	cancel()

	report, err := engine.Run()

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Summary.FatalErrorOccurred)
	assert.Empty(t, report.ProcessedFiles)
}

func TestEngine_Run_WalkerInitError(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	initErr := errors.New("walker failed to initialize")
	s.opts.WalkerFactory = func(opts *converter.Options, wc chan<- converter.SourceFile, lh slog.Handler) (*converter.Walker, error) {
		return nil, initErr
	}

	report, err := s.run(t)

	assert.ErrorIs(t, err, initErr)
	assert.True(t, report.Summary.FatalErrorOccurred)
	assert.NotNil(t, s.hooks.Report(), "OnRunComplete still fires")
}

func TestEngine_Run_ProcessorFactory(t *testing.T) {
	s := setupEngineTestSuite(t)
	s.note(t, "a.md", "# A\n")
	var calls int
	s.opts.ProcessorFactory = func(opts *converter.Options, h slog.Handler, cm cache.CacheManager, enc encoding.EncodingHandler, conv pandoc.Converter) *converter.FileProcessor {
		calls++
		return converter.NewFileProcessor(opts, h, cm, enc, conv)
	}

	_, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEngine_Run_CachePersistError(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.note(t, "a.md", "# A\n")
	cacheMgr := &testutil.MockCacheManager{}
	cacheMgr.On("Check", "a.md", mock.Anything, mock.Anything, mock.Anything).Return(cache.CacheEntry{}, false).Once()
	cacheMgr.On("Update", "a.md", mock.AnythingOfType("cache.CacheEntry")).Return(nil).Once()
	cacheMgr.On("Retain", map[string]bool{"a.md": true}).Return(0).Once()
	cacheMgr.On("Persist", filepath.Join(s.tempOutputDir, cache.CacheFileName)).Return(fmt.Errorf("%w: disk full", cache.ErrCachePersist)).Once()
	s.opts.CacheEnabled = true
	s.opts.CacheManager = cacheMgr

	report, err := s.run(t)

	assert.ErrorIs(t, err, converter.ErrCachePersist)
	assert.Equal(t, 1, report.Summary.ProcessedCount)
	cacheMgr.AssertExpectations(t)
}

func TestEngine_Run_HookErrorsAreLogged(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.note(t, "a.md", "# A\n")
	hooks := &testutil.MockHooks{}
	hooks.On("OnFileDiscovered", "a.md").Return(nil)
	hooks.On("OnFileStatusUpdate", "a.md", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("ui gone"))
	hooks.On("OnPhaseStart", mock.Anything, mock.Anything).Return(nil)
	hooks.On("OnRunComplete", mock.AnythingOfType("converter.Report")).Return(errors.New("hook failed")).Once()
	s.opts.EventHooks = hooks

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)
	assert.Contains(t, s.logBuf.String(), "OnRunComplete hook returned an error")
	assert.Contains(t, s.logBuf.String(), "ui gone")
	hooks.AssertExpectations(t)
}

func TestEngine_Run_ManyNotesConcurrently(t *testing.T) { // minimal comment
	s := setupEngineTestSuite(t)
	s.opts.Concurrency = 8
	const n = 60
	for i := 0; i < n; i++ {
		s.note(t, fmt.Sprintf("notes/n%02d.md", i), fmt.Sprintf("# Note %d\nNext: [[n%02d#Note %d]]\n", i, (i+1)%n, (i+1)%n))
	}

	report, err := s.run(t)

	require.NoError(t, err)
	assert.Equal(t, n, report.Summary.ProcessedCount)
	assert.Equal(t, 0, report.Summary.WarningCount, "every link resolves once all notes are converted")
	assert.Contains(t, s.output(t, "notes/n00.org"), "[[file:n01.org::#note-1][Note 1]]")
}

// --- END OF FINAL REVISED FILE pkg/converter/engine_test.go ---
