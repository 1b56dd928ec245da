// --- START OF FINAL REVISED FILE pkg/converter/orgmode/tags.go ---
package orgmode

import (
	"regexp"
	"strings"
)

var (
	// tagHeadingPattern matches any Org heading line.
	tagHeadingPattern = regexp.MustCompile(`^\*+[ \t]+\S`)
	// keywordsPattern matches a "Keywords: #a, #b" line and captures the tag list.
	keywordsPattern = regexp.MustCompile(`^[ \t]*Keywords:[ \t]*((?:#[^#,\s][^#,]*,?[ \t]*)+)$`)
	// tagSeparatorPattern matches the start of the list, each separator and the end.
	tagSeparatorPattern = regexp.MustCompile(`(?:^\s*#)|(?:(?:\s*,\s*|\s+)#)|(?:\s*$)`)
	// tagInvalidPattern matches characters Org does not allow in tags.
	tagInvalidPattern = regexp.MustCompile(`[^\p{L}\p{N}_:]`)
	repeatedColons    = regexp.MustCompile(`:{2,}`)
)

// NormalizeTags moves the hashtags of a "Keywords:" line onto the heading above it.
//
// Only the first Keywords line between a heading and the next heading is
// considered. The heading gets "\t\t\t:tag1:tag2:" appended, the Keywords line
// is removed and every other line is kept as is. Headings without a Keywords
// line are untouched.
func NormalizeTags(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	open := -1
	for _, line := range lines {
		bare := strings.TrimSuffix(line, "\r")
		if tagHeadingPattern.MatchString(bare) {
			open = len(out)
			out = append(out, line)
			continue
		}
		if open >= 0 {
			if m := keywordsPattern.FindStringSubmatch(bare); m != nil {
				if tags := OrgTags(m[1]); tags != "" {
					out[open] = appendTags(out[open], tags)
					open = -1
					continue
				}
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// OrgTags converts "#a, #b" into ":a:b:". It returns "" when no tag survives.
func OrgTags(list string) string {
	tags := tagSeparatorPattern.ReplaceAllString(list, ":")
	tags = tagInvalidPattern.ReplaceAllString(tags, "")
	tags = repeatedColons.ReplaceAllString(tags, ":")
	if strings.Trim(tags, ":") == "" {
		return ""
	}
	return tags
}

func appendTags(heading, tags string) string {
	cr := ""
	if strings.HasSuffix(heading, "\r") {
		heading, cr = strings.TrimSuffix(heading, "\r"), "\r"
	}
	return strings.TrimRight(heading, " \t") + "\t\t\t" + tags + cr
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/tags.go ---
