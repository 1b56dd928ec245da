// --- START OF FINAL REVISED FILE internal/testutil/mocks.go ---
// Package testutil provides mock implementations for interfaces defined in the
// obs2org core library (pkg/converter and subpackages). These mocks
// facilitate unit testing by isolating components.
package testutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stackvity/obs2org/pkg/converter"
	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/orgmode"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// MockConverter provides a mock implementation of the pandoc.Converter interface.
// It does not touch the filesystem; use FakeConverter when output files are needed.
type MockConverter struct {
	mock.Mock
}

// Convert mocks the Convert method.
func (m *MockConverter) Convert(ctx context.Context, req pandoc.Request) (pandoc.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(pandoc.Result)
	return res, args.Error(1)
}

// FakeConverter is a pandoc.Converter that writes a small Org rendering of
// the Markdown source: ATX headings become Org headings, each followed by a
// CUSTOM_ID drawer derived from the title, and other lines are copied.
// Failures can be injected per input base name. Safe for concurrent use.
type FakeConverter struct {
	// Fail maps an input base name (e.g. "broken.md") to the error to return.
	Fail map[string]error

	mu    sync.Mutex
	calls []pandoc.Request
}

// Convert implements pandoc.Converter.
func (f *FakeConverter) Convert(ctx context.Context, req pandoc.Request) (pandoc.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return pandoc.Result{}, pandoc.WrapError(pandoc.ErrConversionTimeout, "converting %s", req.InputPath)
	}
	if err, ok := f.Fail[filepath.Base(req.InputPath)]; ok {
		return pandoc.Result{Stderr: err.Error()}, err
	}
	source := req.Stdin
	if source == nil {
		var err error
		if source, err = os.ReadFile(req.InputPath); err != nil {
			return pandoc.Result{}, pandoc.Errorf("reading %s: %v", req.InputPath, err)
		}
	}
	if err := os.WriteFile(req.OutputPath, RenderOrg(source), 0o644); err != nil {
		return pandoc.Result{}, pandoc.Errorf("writing %s: %v", req.OutputPath, err)
	}
	return pandoc.Result{Duration: time.Millisecond}, nil
}

// Calls returns the requests received so far.
func (f *FakeConverter) Calls() []pandoc.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pandoc.Request(nil), f.calls...)
}

// Converted returns the base names of the inputs converted so far.
func (f *FakeConverter) Converted() []string {
	var names []string
	for _, req := range f.Calls() {
		names = append(names, filepath.Base(req.InputPath))
	}
	return names
}

// RenderOrg is the rendering used by FakeConverter.
func RenderOrg(markdown []byte) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(markdown))
	for scanner.Scan() {
		line := scanner.Text()
		level := len(line) - len(strings.TrimLeft(line, "#"))
		if level > 0 && strings.HasPrefix(line[level:], " ") {
			title := strings.TrimSpace(line[level:])
			fmt.Fprintf(&out, "%s %s\n:PROPERTIES:\n:CUSTOM_ID: %s\n:END:\n", strings.Repeat("*", level), title, strings.ToLower(strings.ReplaceAll(title, " ", "-")))
			continue
		}
		out.WriteString(line + "\n")
	}
	return out.Bytes()
}

// MockCacheManager provides a mock implementation of the cache.CacheManager interface.
// Configure expectations using testify/mock methods (e.g., .On("Check", ...).Return(...)).
// Test implementations using this mock MUST handle thread-safety if the mock state is modified
// concurrently (e.g., tracking Update calls). See cache.CacheManager for the interface contract.
type MockCacheManager struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// Check mocks the Check method.
func (m *MockCacheManager) Check(filePath string, modTime time.Time, sourceHash string, configHash string) (cache.CacheEntry, bool) {
	args := m.Called(filePath, modTime, sourceHash, configHash)
	entry, _ := args.Get(0).(cache.CacheEntry)
	return entry, args.Bool(1)
}

// Update mocks the Update method.
func (m *MockCacheManager) Update(filePath string, entry cache.CacheEntry) error {
	args := m.Called(filePath, entry)
	return args.Error(0)
}

// Retain mocks the Retain method.
func (m *MockCacheManager) Retain(keep map[string]bool) int {
	args := m.Called(keep)
	return args.Int(0)
}

// Persist mocks the Persist method.
func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockLanguageDetector provides a mock implementation of the language.LanguageDetector interface.
type MockLanguageDetector struct {
	mock.Mock
}

// IsMarkdown mocks the IsMarkdown method.
func (m *MockLanguageDetector) IsMarkdown(filePath string) bool {
	args := m.Called(filePath)
	return args.Bool(0)
}

// Languages mocks the Languages method.
func (m *MockLanguageDetector) Languages(filePath string) []string {
	args := m.Called(filePath)
	langs, _ := args.Get(0).([]string)
	return langs
}

// MockEncodingHandler provides a mock implementation of the encoding.EncodingHandler interface.
// Configure expectations using testify/mock methods (e.g., .On("DetectAndDecode", ...).Return(...)).
// See encoding.EncodingHandler for the interface contract.
type MockEncodingHandler struct {
	mock.Mock
}

// DetectAndDecode mocks the DetectAndDecode method.
func (m *MockEncodingHandler) DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error) {
	args := m.Called(content)
	utf8Content, _ = args.Get(0).([]byte)
	detectedEncoding, _ = args.Get(1).(string)
	certainty, _ = args.Get(2).(bool)
	err = args.Error(3)
	return
}

// IsBinary mocks the IsBinary method.
func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	args := m.Called(content)
	isBinary, _ := args.Get(0).(bool)
	return isBinary
}

// MockGitClient provides a mock implementation of the git.GitClient interface.
// See git.GitClient for the interface contract.
type MockGitClient struct {
	mock.Mock
}

// GetChangedFiles mocks the GetChangedFiles method.
func (m *MockGitClient) GetChangedFiles(dir, mode string, ref string) (files []string, err error) {
	args := m.Called(dir, mode, ref)
	files, _ = args.Get(0).([]string)
	err = args.Error(1)
	return
}

// MockReporter provides a mock implementation of the orgmode.Reporter interface.
type MockReporter struct {
	mock.Mock
}

// Report mocks the Report method.
func (m *MockReporter) Report(d orgmode.Diagnostic) {
	m.Called(d)
}

// MockHooks provides a mock implementation of the converter.Hooks interface.
// Configure expectations using testify/mock methods (e.g., .On("OnFileStatusUpdate", ...).Return(...)).
// IMPORTANT: If test logic adds state to this mock (e.g., recording calls), the test itself MUST ensure thread-safety
// for concurrent hook invocations (e.g., using mutexes or channels).
// See converter.Hooks for the interface contract and thread-safety requirements.
type MockHooks struct {
	mock.Mock
}

// OnFileDiscovered mocks the OnFileDiscovered method.
func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnPhaseStart mocks the OnPhaseStart method.
func (m *MockHooks) OnPhaseStart(phase converter.Phase, total int) error {
	args := m.Called(phase, total)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report converter.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// RecordingHooks is a converter.Hooks implementation that records the events
// it receives. Safe for concurrent use.
type RecordingHooks struct {
	mu       sync.Mutex
	statuses map[string][]converter.Status
	phases   []converter.Phase
	totals   []int
	report   *converter.Report
}

// OnFileDiscovered implements converter.Hooks.
func (h *RecordingHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements converter.Hooks.
func (h *RecordingHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = make(map[string][]converter.Status)
	}
	h.statuses[path] = append(h.statuses[path], status)
	return nil
}

// OnPhaseStart implements converter.Hooks.
func (h *RecordingHooks) OnPhaseStart(phase converter.Phase, total int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phases = append(h.phases, phase)
	h.totals = append(h.totals, total)
	return nil
}

// OnRunComplete implements converter.Hooks.
func (h *RecordingHooks) OnRunComplete(report converter.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.report = &report
	return nil
}

// Statuses returns the statuses reported for path, in order.
func (h *RecordingHooks) Statuses(path string) []converter.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]converter.Status(nil), h.statuses[path]...)
}

// Phases returns the started phases and their totals.
func (h *RecordingHooks) Phases() ([]converter.Phase, []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]converter.Phase(nil), h.phases...), append([]int(nil), h.totals...)
}

// Report returns the report passed to OnRunComplete, or nil.
func (h *RecordingHooks) Report() *converter.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.report
}

// MockLoggerHandler provides a mock implementation for slog.Handler.
// Generally, using slog.NewTextHandler with a bytes.Buffer is preferred for testing log output.
// Use this full mock only if complex handler interaction logic needs verification.
type MockLoggerHandler struct {
	mock.Mock
}

// Enabled mocks the Enabled method.
func (m *MockLoggerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	args := m.Called(ctx, level)
	enabled, _ := args.Get(0).(bool)
	return enabled
}

// Handle mocks the Handle method.
func (m *MockLoggerHandler) Handle(ctx context.Context, r slog.Record) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// WithAttrs mocks the WithAttrs method.
func (m *MockLoggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	args := m.Called(attrs)
	retHandler, ok := args.Get(0).(slog.Handler)
	if !ok || retHandler == nil {
		return m
	}
	return retHandler
}

// WithGroup mocks the WithGroup method.
func (m *MockLoggerHandler) WithGroup(name string) slog.Handler {
	args := m.Called(name)
	retHandler, ok := args.Get(0).(slog.Handler)
	if !ok || retHandler == nil {
		return m
	}
	return retHandler
}

// --- END OF FINAL REVISED FILE internal/testutil/mocks.go ---
