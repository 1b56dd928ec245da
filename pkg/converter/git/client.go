// --- START OF FINAL REVISED FILE pkg/converter/git/client.go ---
package git

import (
	"errors"
	"fmt"
)

// --- Error Variables ---

// ErrGitOperation indicates a failure during a Git operation performed via the GitClient.
// This might be due to the path not being inside a repository, an unknown
// reference or a failure of the underlying Git library. Implementations wrap
// specific errors with this variable (using Errorf) so callers can check with
// errors.Is(err, ErrGitOperation).
var ErrGitOperation = errors.New("git operation failed")

// Modes accepted by GetChangedFiles.
const (
	// ModeDiffOnly lists notes with uncommitted changes (modified, added or untracked).
	ModeDiffOnly = "diffOnly"
	// ModeSince lists notes changed between a reference and HEAD, plus uncommitted changes.
	ModeSince = "since"
)

// --- Interfaces ---

// GitClient reports which notes of a vault changed, so that incremental runs
// convert only those.
//
// Stability: Public Stable API - Implementations can be provided externally.
type GitClient interface {
	// GetChangedFiles returns the changed files below dir as slash-separated
	// paths relative to dir. dir may be any directory inside a work tree.
	// ref is only used by ModeSince. Errors wrap ErrGitOperation.
	GetChangedFiles(dir, mode, ref string) ([]string, error)
}

// Errorf returns a formatted error that wraps ErrGitOperation.
// Helper intended for use by GitClient implementations.
func Errorf(format string, args ...interface{}) error {
	// minimal comment
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGitOperation}, args...)...)
}

// --- END OF FINAL REVISED FILE pkg/converter/git/client.go ---
