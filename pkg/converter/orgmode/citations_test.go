// --- START OF FINAL REVISED FILE pkg/converter/orgmode/citations_test.go ---
package orgmode_test

import (
	"testing"

	"github.com/stackvity/obs2org/pkg/converter/orgmode"
	"github.com/stretchr/testify/assert"
)

func TestStripCitations(t *testing.T) {
	assert.Equal(t, "[[@Smith2020]]", orgmode.StripCitations("[[cite:@Smith2020]]"))
	assert.Equal(t, "see [[@a:b-c 1]] and [[@d]]", orgmode.StripCitations("see [[cite:@a:b-c 1]] and [[cite:@d]]"))
	assert.Equal(t, "[[cite:Smith]]", orgmode.StripCitations("[[cite:Smith]]"), "key without @ is not a citation")
	assert.Equal(t, "[cite:@Smith]", orgmode.StripCitations("[cite:@Smith]"))
	assert.Equal(t, "no links", orgmode.StripCitations("no links"))
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/citations_test.go ---
