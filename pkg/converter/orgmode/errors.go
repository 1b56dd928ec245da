// --- START OF FINAL REVISED FILE pkg/converter/orgmode/errors.go ---
package orgmode

import "errors"

var (
	// ErrTargetNotFound indicates that the file named by a wiki link does not exist
	// in the directory context of the document being corrected.
	ErrTargetNotFound = errors.New("link target file not found")

	// ErrTargetUnreadable indicates that the link target exists but could not be read
	// or decoded (permissions, binary content, invalid encoding).
	// The wrapped error carries the underlying cause.
	ErrTargetUnreadable = errors.New("link target file unreadable")
)

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/errors.go ---
