// --- START OF FINAL REVISED FILE pkg/converter/errors.go ---
package converter

import (
	"errors"

	"github.com/stackvity/obs2org/pkg/converter/cache"
)

// --- Exported Error Variables ---
// These errors represent specific categories of issues that might be returned
// directly by Convert or recorded in the Report. Library users can check
// against these using errors.Is. Conversion failures wrap pandoc.ErrConversion.

var (
	// ErrReadFailed indicates a failure to read a source note or a generated Org file.
	ErrReadFailed = errors.New("failed to read file")

	// ErrStatFailed indicates a failure to get file statistics using os.Stat.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrMkdirFailed indicates a failure to create an output subdirectory.
	ErrMkdirFailed = errors.New("failed to create output directory")

	// ErrWriteFailed indicates a failure to write a corrected Org file. The
	// file is replaced atomically, so the previous content is left in place.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrPostProcess indicates that a converted document could not be corrected.
	ErrPostProcess = errors.New("post-processing failed")

	// ErrOutputCollision indicates that two notes map to the same Org file.
	ErrOutputCollision = errors.New("output path collision")

	// ErrConfigValidation indicates that the provided Options failed validation.
	// This is returned directly as a fatal error by Convert.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrCacheLoad is cache.ErrCacheLoad.
	ErrCacheLoad = cache.ErrCacheLoad

	// ErrCachePersist is cache.ErrCachePersist.
	ErrCachePersist = cache.ErrCachePersist
)

// --- END OF FINAL REVISED FILE pkg/converter/errors.go ---
