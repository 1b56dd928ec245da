// --- START OF FINAL REVISED FILE pkg/converter/types_test.go ---
package converter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stackvity/obs2org/pkg/converter"
)

// TestStatusConstants verifies the string values of Status constants.
func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "pending", string(converter.StatusPending))
	assert.Equal(t, "processing", string(converter.StatusProcessing))
	assert.Equal(t, "converted", string(converter.StatusConverted))
	assert.Equal(t, "success", string(converter.StatusSuccess))
	assert.Equal(t, "failed", string(converter.StatusFailed))
	assert.Equal(t, "skipped", string(converter.StatusSkipped))
	assert.Equal(t, "cached", string(converter.StatusCached))
}

// TestOnErrorModeConstants verifies the string values of OnErrorMode constants.
func TestOnErrorModeConstants(t *testing.T) {
	assert.Equal(t, "continue", string(converter.OnErrorContinue))
	assert.Equal(t, "stop", string(converter.OnErrorStop))
}

// TestOutputFormatConstants verifies the string values of OutputFormat constants.
func TestOutputFormatConstants(t *testing.T) {
	assert.Equal(t, "text", string(converter.OutputFormatText))
	assert.Equal(t, "json", string(converter.OutputFormatJSON))
}

// TestGitDiffModeConstants verifies the string values of GitDiffMode constants.
func TestGitDiffModeConstants(t *testing.T) {
	assert.Equal(t, "none", string(converter.GitDiffModeNone))
	assert.Equal(t, "diffOnly", string(converter.GitDiffModeDiffOnly))
	assert.Equal(t, "since", string(converter.GitDiffModeSince))
}

func TestPhaseConstants(t *testing.T) {
	assert.Equal(t, "conversion", string(converter.PhaseConversion))
	assert.Equal(t, "postprocess", string(converter.PhasePostProcess))
}

// --- END OF FINAL REVISED FILE pkg/converter/types_test.go ---
