// --- START OF FINAL REVISED FILE pkg/converter/report.go ---
package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/stackvity/obs2org/pkg/converter/orgmode"
)

// Report summarizes the result of a single Convert run.
type Report struct {
	Summary        ReportSummary    `json:"summary"`
	ProcessedFiles []FileInfo       `json:"processedFiles"`
	SkippedFiles   []SkippedInfo    `json:"skippedFiles"`
	Errors         []ErrorInfo      `json:"errors"`
	Diagnostics    []DiagnosticInfo `json:"diagnostics"`
}

// ReportSummary contains aggregated statistics for a Convert run.
type ReportSummary struct {
	InputPath          string    `json:"inputPath"`
	OutputPath         string    `json:"outputPath"`
	ProfileUsed        string    `json:"profileUsed,omitempty"`
	ConfigFilePath     string    `json:"configFilePath,omitempty"`
	TotalFilesScanned  int       `json:"totalFilesScanned"`
	ProcessedCount     int       `json:"processedCount"`
	CachedCount        int       `json:"cachedCount"`
	SkippedCount       int       `json:"skippedCount"`
	WarningCount       int       `json:"warningCount"`
	ErrorCount         int       `json:"errorCount"`
	FatalErrorOccurred bool      `json:"fatalError"`
	DurationSeconds    float64   `json:"durationSeconds"`
	CacheEnabled       bool      `json:"cacheEnabled"`
	Concurrency        int       `json:"concurrency"`
	Timestamp          time.Time `json:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty"`
}

// FileInfo details a single note that was converted or found up to date in the cache.
type FileInfo struct {
	Path        string    `json:"path"`
	OutputPath  string    `json:"outputPath"`
	SizeBytes   int64     `json:"sizeBytes"`
	ModTime     time.Time `json:"modTime"`
	Encoding    string    `json:"encoding,omitempty"`
	CacheStatus string    `json:"cacheStatus"`
	DurationMs  int64     `json:"durationMs"`
	// Diagnostics counts the link diagnostics raised while correcting the note.
	Diagnostics int      `json:"diagnostics"`
	FileTags    []string `json:"fileTags,omitempty"`
}

// SkippedInfo details a file that was intentionally not converted.
type SkippedInfo struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// ErrorInfo details an error encountered while handling a specific note.
type ErrorInfo struct {
	Path    string `json:"path"`
	Error   string `json:"error"`
	IsFatal bool   `json:"isFatal"`
}

// DiagnosticInfo is a degraded link resolution in one note.
type DiagnosticInfo struct {
	// Path is the note whose link could not be fully resolved.
	Path     string                 `json:"path"`
	Kind     orgmode.DiagnosticKind `json:"kind"`
	Target   string                 `json:"target"`
	Heading  string                 `json:"heading,omitempty"`
	Message  string                 `json:"message"`
	Implicit bool                   `json:"implicit,omitempty"`
}

// newDiagnosticInfo converts an orgmode diagnostic raised while correcting path.
func newDiagnosticInfo(path string, d orgmode.Diagnostic) DiagnosticInfo { // minimal comment
	return DiagnosticInfo{
		Path:     path,
		Kind:     d.Kind,
		Target:   d.File,
		Heading:  d.Heading,
		Message:  d.Message(),
		Implicit: d.Implicit,
	}
}

// isWarning reports whether the diagnostic counts as a warning. Implicit
// heading misses, where a link names only a note, are informational.
func (d DiagnosticInfo) isWarning() bool {
	return !(d.Implicit && d.Kind == orgmode.DiagHeadingNotFound)
}

// Write prints the report to w as JSON or as a plain text summary.
func (r Report) Write(w io.Writer, format OutputFormat) error {
	if format == OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	s := r.Summary
	fmt.Fprintf(w, "Converted %s -> %s\n", s.InputPath, s.OutputPath)
	fmt.Fprintf(w, "  processed: %d (cached: %d)  skipped: %d  warnings: %d  errors: %d  in %.2fs\n",
		s.ProcessedCount, s.CachedCount, s.SkippedCount, s.WarningCount, s.ErrorCount, s.DurationSeconds)
	for _, d := range r.Diagnostics {
		if d.isWarning() {
			fmt.Fprintf(w, "  warning: %s: %s\n", d.Path, d.Message)
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s: %s\n", e.Path, e.Error)
	}
	if s.FatalErrorOccurred {
		_, err := fmt.Fprintln(w, "  run stopped early")
		return err
	}
	return nil
}

// --- END OF FINAL REVISED FILE pkg/converter/report.go ---
