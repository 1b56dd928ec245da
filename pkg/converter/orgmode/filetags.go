// --- START OF FINAL REVISED FILE pkg/converter/orgmode/filetags.go ---
package orgmode

import (
	"regexp"
	"strings"
)

var (
	fileTagsPattern = regexp.MustCompile(`(?mi)^#\+FILETAGS:`)
	fileTagInvalid  = regexp.MustCompile(`[^\p{L}\p{N}_@%]`)
)

// InjectFileTags adds a "#+FILETAGS: :a:b:" line for tags, placed right after a
// leading property drawer or at the top of the document. Documents that
// already declare FILETAGS, and empty tag lists, are left alone.
func InjectFileTags(text string, tags []string) string {
	var clean []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = fileTagInvalid.ReplaceAllString(strings.TrimLeft(strings.TrimSpace(tag), "#"), "")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		clean = append(clean, tag)
	}
	if len(clean) == 0 || fileTagsPattern.MatchString(text) {
		return text
	}

	line := "#+FILETAGS: :" + strings.Join(clean, ":") + ":\n"
	if _, end, ok := leadingDrawer(text); ok {
		rest := strings.TrimPrefix(text[end:], "\n")
		return text[:end] + "\n" + line + rest
	}
	return line + text
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/filetags.go ---
