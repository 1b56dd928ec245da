// --- START OF FINAL REVISED FILE pkg/converter/pandoc/pandoc.go ---
package pandoc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// --- Constants ---

// DefaultExecutable is the converter binary looked up in PATH when none is configured.
const DefaultExecutable = "pandoc"

// StdinPath is passed as the input path when the source is piped on stdin.
const StdinPath = "-"

// --- Error Variables ---

// ErrConversion indicates a general failure of the external Markdown to Org converter.
// Implementations return errors wrapping this or one of the more specific variants below.
var ErrConversion = errors.New("markdown conversion failed")

// ErrConversionTimeout indicates that the converter process exceeded the deadline
// of the context passed to Convert.
// errors.Is(err, ErrConversion) is also true for this error.
var ErrConversionTimeout = errors.New("conversion timed out")

// ErrConversionNonZeroExit indicates that the converter exited with a non-zero status.
// errors.Is(err, ErrConversion) is also true for this error.
var ErrConversionNonZeroExit = errors.New("converter exited non-zero")

// ErrConversionNoOutput indicates that the converter reported success but the
// output file is missing.
// errors.Is(err, ErrConversion) is also true for this error.
var ErrConversionNoOutput = errors.New("converter produced no output")

// --- Data Structures ---

// Request describes one Markdown to Org conversion.
type Request struct {
	// InputPath is the Markdown source. It is used for messages only when Stdin is set.
	InputPath string
	// OutputPath is the Org file to create.
	OutputPath string
	// Stdin, when non-nil, is piped to the converter instead of reading InputPath.
	// Used for sources that had to be transcoded to UTF-8 first.
	Stdin []byte
}

// Result carries what the converter reported on success.
type Result struct {
	// Stderr holds warnings the converter printed while still succeeding.
	Stderr   string
	Duration time.Duration
}

// --- Interfaces ---

// Converter turns one Markdown file into a standalone Org document.
// Implementations enforce the context deadline, capture stderr and translate
// failures into errors wrapping ErrConversion (or the specific variants).
// Failures are never retried by callers.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
}

// Args returns the converter arguments for req: Org output, standalone,
// Unix line endings, a table of contents and no paragraph wrapping.
func Args(req Request) []string {
	input := req.InputPath
	if req.Stdin != nil {
		input = StdinPath
	}
	return []string{
		input,
		"-f", "markdown",
		"-t", "org",
		"-s",
		"--eol=lf",
		"--toc",
		"--wrap=none",
		"-o", req.OutputPath,
	}
}

// Errorf returns a formatted error that wraps ErrConversion.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConversion}, args...)...)
}

// WrapError wraps a specific conversion error with ErrConversion so that both
// errors.Is(err, ErrConversion) and errors.Is(err, specificError) hold.
func WrapError(specificError error, format string, args ...interface{}) error {
	baseMsg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s: %w", ErrConversion, baseMsg, specificError)
}

// --- END OF FINAL REVISED FILE pkg/converter/pandoc/pandoc.go ---
