// --- START OF FINAL REVISED FILE pkg/converter/constants.go ---
package converter

import (
	"time"

	"github.com/stackvity/obs2org/pkg/converter/cache"
	"github.com/stackvity/obs2org/pkg/converter/pandoc"
)

// Constants defining default values for configuration options.
// These are used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultCacheEnabled is the default state for caching.
	DefaultCacheEnabled = true
	// DefaultCacheFormat is the default serialization of the cache index.
	DefaultCacheFormat = cache.DefaultCacheFormat
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultOnErrorMode is the default behavior on per-file errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultPandocPath is the pandoc executable looked up in PATH.
	DefaultPandocPath = pandoc.DefaultExecutable
	// DefaultTimeoutString is the default per-file pandoc timeout.
	DefaultTimeoutString = "2m"
	// DefaultTimeout is the parsed DefaultTimeoutString.
	DefaultTimeout = 2 * time.Minute
	// DefaultRemoveCitations is the default state of the citation unwrapper.
	DefaultRemoveCitations = false
	// DefaultAddUUIDHeader is the default state of the ID header injector.
	DefaultAddUUIDHeader = false
	// DefaultFileTags is the default state of front matter FILETAGS injection.
	DefaultFileTags = false
	// DefaultGitDiffOnly is the default state for diff-only Git processing.
	DefaultGitDiffOnly = false
	// DefaultGitSinceRef is the default reference for --git-since mode.
	DefaultGitSinceRef = "main"
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultDispatchWarnThreshold is how long the walker waits on busy workers before warning.
	DefaultDispatchWarnThreshold = time.Second
)

// IgnoreFileName is the ignore file searched from the input directory upwards.
const IgnoreFileName = ".obs2orgignore"

// DefaultIgnorePatterns are always applied before the ignore file and configured patterns.
var DefaultIgnorePatterns = []string{".obsidian/", ".trash/", ".git/", IgnoreFileName}

// OrgExtension is the extension of every generated document.
const OrgExtension = ".org"

// Constants related to report schema.
const (
	// ReportSchemaVersion indicates the version of the JSON report structure.
	ReportSchemaVersion = "1.0"
)

// Constants defining cache status strings used in the Report.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusStale    = "stale"
	CacheStatusDisabled = "disabled"
)

// Constants defining skip reasons used in the Report.
const (
	SkipReasonBinary          = "binary_file"
	SkipReasonIgnored         = "ignored_pattern"
	SkipReasonNotMarkdown     = "not_markdown"
	SkipReasonOutputCollision = "output_collision"
	SkipReasonGitExclude      = "excluded_by_git_diff"
)

// --- END OF FINAL REVISED FILE pkg/converter/constants.go ---
