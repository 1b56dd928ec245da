// --- START OF FINAL REVISED FILE pkg/converter/options.go ---
package converter

import (
	"log/slog"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/encoding"
	"github.com/stackvity/obs2org/pkg/converter/git"
	"github.com/stackvity/obs2org/pkg/converter/language"
	"github.com/stackvity/obs2org/pkg/converter/orgmode"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// PostProcessOptions are the switches of the Org-mode correction pipeline.
type PostProcessOptions struct {
	RemoveCitations bool `mapstructure:"removeCitations"`
	AddUUIDHeader   bool `mapstructure:"addUuid"`
	// FileTags copies front matter tags into a #+FILETAGS line.
	FileTags bool `mapstructure:"fileTags"`
}

// GitConfig holds settings related to Git integration.
type GitConfig struct {
	DiffOnly bool   `mapstructure:"diffOnly"`
	SinceRef string `mapstructure:"sinceRef"`
}

// Hooks defines callbacks for status updates during a run.
// Implementations MUST be thread-safe as methods may be called concurrently.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	// OnPhaseStart is called when a phase begins. total is the number of notes
	// the phase will handle, or 0 when not known in advance.
	OnPhaseStart(phase Phase, total int) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnFileDiscovered implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error { // minimal comment
	return nil
}

// OnPhaseStart implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnPhaseStart(phase Phase, total int) error { return nil }

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// NoOpCacheManager provides a do-nothing implementation of cache.CacheManager.
// Used when caching is disabled.
type NoOpCacheManager struct{}

// Load implements CacheManager, performs no action.
func (c *NoOpCacheManager) Load(cachePath string) error { return nil }

// Check implements CacheManager, always returns a cache miss.
func (c *NoOpCacheManager) Check(filePath string, modTime time.Time, sourceHash string, configHash string) (cache.CacheEntry, bool) {
	return cache.CacheEntry{}, false
}

// Update implements CacheManager, performs no action.
func (c *NoOpCacheManager) Update(filePath string, entry cache.CacheEntry) error { return nil }

// Retain implements CacheManager, performs no action.
func (c *NoOpCacheManager) Retain(keep map[string]bool) int { return 0 }

// Persist implements CacheManager, performs no action.
func (c *NoOpCacheManager) Persist(cachePath string) error { return nil }

// Options holds all configuration for a Convert run.
type Options struct {
	// --- Core Paths ---
	InputPath  string `mapstructure:"input"`  // Required: Markdown file or vault directory
	OutputPath string `mapstructure:"output"` // Required: Output directory

	// --- Application Info ---
	AppVersion string `mapstructure:"-"` // Application version, used for cache validation. Populated by the caller.

	// --- Behavior & Control ---
	ConfigFilePath string       `mapstructure:"-"`            // Path to the loaded config file (for reporting)
	ProfileName    string       `mapstructure:"-"`            // Name of the profile used (for reporting)
	Verbose        bool         `mapstructure:"verbose"`      // Enable debug logging
	TuiEnabled     bool         `mapstructure:"tuiEnabled"`   // Hint for CLI to use TUI (ignored if Verbose)
	OnErrorMode    OnErrorMode  `mapstructure:"onError"`      // Behavior on per-file error ("continue", "stop")
	OutputFormat   OutputFormat `mapstructure:"outputFormat"` // ("text", "json") for final report

	// --- External Converter ---
	PandocPath        string        `mapstructure:"pandoc"`  // pandoc executable
	Timeout           string        `mapstructure:"timeout"` // Per-file pandoc timeout, e.g. "2m"
	ConversionTimeout time.Duration `mapstructure:"-"`       // Derived from Timeout; 0 means no timeout

	// --- Performance & Caching ---
	Concurrency     int    `mapstructure:"concurrency"` // Number of workers (0=auto)
	CacheEnabled    bool   `mapstructure:"cache"`       // Enable cache read/write
	CacheFormat     string `mapstructure:"cacheFormat"` // "gob" or "json"
	IgnoreCacheRead bool   `mapstructure:"-"`           // Force cache miss (set by --no-cache)
	ClearCache      bool   `mapstructure:"-"`           // Delete cache file before run (set by --clear-cache)
	CacheFilePath   string `mapstructure:"-"`           // Resolved path to cache file

	// --- File Handling & Filtering ---
	IgnorePatterns     []string `mapstructure:"ignore"`             // Glob patterns from config/flags (aggregated with .obs2orgignore)
	MarkdownExtensions []string `mapstructure:"markdownExtensions"` // Overrides extension-based Markdown detection
	DefaultEncoding    string   `mapstructure:"defaultEncoding"`    // Fallback charset for notes that are not UTF-8

	// --- Output Correction ---
	PostProcess PostProcessOptions `mapstructure:"postProcess"`

	// --- Workflow Features ---
	GitDiffMode     GitDiffMode         `mapstructure:"-"` // Derived from GitConfig / flags ("none", "diffOnly", "since")
	GitConfig       GitConfig           `mapstructure:"git"`
	GitChangedFiles map[string]struct{} `mapstructure:"-"` // Input-relative paths; populated by the engine if nil

	// --- Injected Dependencies & Internal State ---
	EventHooks            Hooks                     `mapstructure:"-"` // Optional: Callback interface (NoOpHooks if nil)
	Logger                slog.Handler              `mapstructure:"-"` // Required: Logging backend
	Converter             pandoc.Converter          `mapstructure:"-"` // Required: Markdown to Org converter
	GitClient             git.GitClient             `mapstructure:"-"` // Required in git diff modes
	CacheManager          cache.CacheManager        `mapstructure:"-"` // Optional: Cache implementation
	LanguageDetector      language.LanguageDetector `mapstructure:"-"` // Optional: Markdown detection implementation
	EncodingHandler       encoding.EncodingHandler  `mapstructure:"-"` // Optional: Encoding handling implementation
	Reporter              orgmode.Reporter          `mapstructure:"-"` // Optional: Receives link diagnostics in addition to the log
	IDGenerator           func() string             `mapstructure:"-"` // Optional: Header ID generator (random UUIDs if nil)
	ProcessorFactory      ProcessorFactory          `mapstructure:"-"` // Optional: Factory for FileProcessor (testing)
	WalkerFactory         WalkerFactory             `mapstructure:"-"` // Optional: Factory for Walker (testing)
	DispatchWarnThreshold time.Duration             `mapstructure:"-"` // Internal: Threshold for logging slow worker dispatch
}

// --- END OF FINAL REVISED FILE pkg/converter/options.go ---
