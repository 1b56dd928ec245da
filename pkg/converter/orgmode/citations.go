// --- START OF FINAL REVISED FILE pkg/converter/orgmode/citations.go ---
package orgmode

import "regexp"

var citationPattern = regexp.MustCompile(`\[\[cite:(@[^\]]*)\]\]`)

// StripCitations turns [[cite:@Key]] into [[@Key]].
func StripCitations(text string) string {
	return citationPattern.ReplaceAllString(text, "[[$1]]")
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/citations.go ---
