// --- START OF FINAL REVISED FILE pkg/converter/orgmode/dates.go ---
package orgmode

import "regexp"

// datePattern matches a line holding nothing but a date-like token.
// Already bracketed dates do not match, so BracketDates is idempotent.
var datePattern = regexp.MustCompile(`(?m)^([ \t]*)(\d{1,4}[.,/\\ -]\d{1,4}[.,/\\ -]\d{1,4})([ \t]*)$`)

// BracketDates wraps bare dates standing alone on a line in angle brackets,
// turning them into Org timestamps. The token is not validated as a calendar date.
func BracketDates(text string) string {
	return datePattern.ReplaceAllString(text, "${1}<${2}>${3}")
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/dates.go ---
