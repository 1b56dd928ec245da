// --- START OF FINAL REVISED FILE pkg/converter/orgmode/header.go ---
package orgmode

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	drawerIDPattern  = regexp.MustCompile(`(?mi)^[ \t]*:ID:[ \t]*\S`)
	drawerIDValue    = regexp.MustCompile(`(?mi)^[ \t]*:ID:[ \t]*(\S+)`)
	drawerEndPattern = regexp.MustCompile(`(?mi)^[ \t]*:END:[ \t]*\r?$`)
)

// InjectUUIDHeader prepends a property drawer holding a fresh random UUID:
//
//	:PROPERTIES:
//	:ID: <uuid>
//	:END:
//
// followed by a blank line. A document that already starts with a drawer
// carrying an :ID: is returned unchanged.
func InjectUUIDHeader(text string) string {
	return InjectIDHeader(text, uuid.NewString)
}

// InjectIDHeader is InjectUUIDHeader with a caller-supplied ID source.
// newID is only called when an ID has to be added. A leading drawer without
// an :ID: line gets one inserted instead of a second drawer.
func InjectIDHeader(text string, newID func() string) string {
	start, end, ok := leadingDrawer(text)
	if !ok {
		return ":PROPERTIES:\n:ID: " + newID() + "\n:END:\n\n" + text
	}
	if drawerIDPattern.MatchString(text[start:end]) {
		return text
	}
	afterOpen := start + strings.Index(text[start:], "\n") + 1
	return text[:afterOpen] + ":ID: " + newID() + "\n" + text[afterOpen:]
}

// DocumentID returns the :ID: of the property drawer at the top of text.
func DocumentID(text string) (string, bool) {
	start, end, ok := leadingDrawer(text)
	if !ok {
		return "", false
	}
	m := drawerIDValue.FindStringSubmatch(text[start:end])
	if m == nil {
		return "", false
	}
	return m[1], true
}

// leadingDrawer locates a property drawer at the top of text, ignoring blank
// lines before it. It returns the drawer's byte range, :END: line included.
func leadingDrawer(text string) (int, int, bool) {
	start := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
	rest := text[start:]
	nl := strings.Index(rest, "\n")
	if nl < 0 || !strings.EqualFold(strings.TrimSpace(rest[:nl]), ":PROPERTIES:") {
		return 0, 0, false
	}
	loc := drawerEndPattern.FindStringIndex(rest)
	if loc == nil {
		return 0, 0, false
	}
	return start, start + loc[1], true
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/header.go ---
