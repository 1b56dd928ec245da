// --- START OF FINAL REVISED FILE pkg/converter/types.go ---
package converter

// Status defines the possible processing states of a note during a run.
type Status string

// Constants representing the defined note processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	// StatusConverted marks a note whose pandoc output is on disk but not yet post-processed.
	StatusConverted Status = "converted"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCached    Status = "cached"
)

// OnErrorMode defines the behavior when a per-file error occurs.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// OutputFormat defines the format of the final summary printed when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// GitDiffMode defines the strategy for using Git differences to filter converted notes.
type GitDiffMode string

const (
	GitDiffModeNone     GitDiffMode = "none"
	GitDiffModeDiffOnly GitDiffMode = "diffOnly"
	GitDiffModeSince    GitDiffMode = "since"
)

// Phase names one of the two phases of a run.
type Phase string

const (
	// PhaseConversion runs pandoc over every note.
	PhaseConversion Phase = "conversion"
	// PhasePostProcess corrects the generated Org files once all of them exist.
	PhasePostProcess Phase = "postprocess"
)

// --- END OF FINAL REVISED FILE pkg/converter/types.go ---
