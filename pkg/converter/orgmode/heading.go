// --- START OF FINAL REVISED FILE pkg/converter/orgmode/heading.go ---
package orgmode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// headingPattern matches an Org heading line and captures its stars and raw title.
	headingPattern = regexp.MustCompile(`^(\*+)[ \t]+(.*?)[ \t]*$`)
	// headingTagsPattern matches a trailing Org tag suffix such as "   :a:b:".
	headingTagsPattern = regexp.MustCompile(`[ \t]+:[\p{L}\p{N}_@#%:]+:$`)
	// customIDPattern matches a CUSTOM_ID property line inside a heading's drawer.
	customIDPattern = regexp.MustCompile(`^[ \t]*:CUSTOM_ID:[ \t]*(\S+)[ \t]*$`)
	// wordPattern splits titles into comparable tokens.
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	// describedLinkPattern matches an Org link with a description, [[target][desc]].
	describedLinkPattern = regexp.MustCompile(`\[\[[^\[\]\n]+\]\[([^\[\]\n]*)\]\]`)
)

// Anchor is the result of resolving a heading inside a target document.
type Anchor struct {
	// Fragment is "::#<custom-id>", or empty when the heading was not resolved.
	Fragment string
	// Title is the matched heading title, or the requested heading name when
	// resolution failed.
	Title string
}

// Resolved reports whether the anchor points at a heading.
func (a Anchor) Resolved() bool { return a.Fragment != "" }

// Decoder turns raw file bytes into UTF-8 text.
// encoding.EncodingHandler satisfies it.
type Decoder interface {
	IsBinary(content []byte) bool
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error)
}

// LocateHeading scans content for the first heading whose title matches
// headingName and that owns a CUSTOM_ID property, i.e. a :CUSTOM_ID: line
// appearing after the heading and before the next heading of equal or higher level.
// A matching heading without such a line is passed over and the scan continues.
//
// Link markup in titles is reduced to its visible text before comparing, so a
// heading reads the same before and after its own links were rewritten. An
// exact case-insensitive title match wins; only when there is none are titles
// compared on their word tokens, so "my-heading" and "MY HEADING:" still find
// "My Heading". Titles without any word characters never match on tokens.
func LocateHeading(content, headingName string) (Anchor, bool) {
	want := strings.TrimSpace(headingName)
	fallback := Anchor{Title: want}
	if want == "" {
		return fallback, false
	}
	plainWant := PlainTitle(want)
	lines := strings.Split(content, "\n")

	if anchor, ok := findHeading(lines, func(title string) bool {
		return strings.EqualFold(title, plainWant)
	}); ok {
		return anchor, true
	}
	wantKey := titleKey(plainWant)
	if wantKey == "" {
		return fallback, false
	}
	if anchor, ok := findHeading(lines, func(title string) bool {
		return titleKey(title) == wantKey
	}); ok {
		return anchor, true
	}
	return fallback, false
}

// findHeading returns the anchor of the first heading accepted by match that
// owns a CUSTOM_ID.
func findHeading(lines []string, match func(title string) bool) (Anchor, bool) {
	for i, line := range lines {
		level, title, ok := parseHeading(line)
		if !ok || !match(title) {
			continue
		}
		for _, body := range lines[i+1:] {
			body = strings.TrimSuffix(body, "\r")
			if next, _, isHeading := parseHeading(body); isHeading && next <= level {
				break
			}
			if m := customIDPattern.FindStringSubmatch(body); m != nil {
				return Anchor{Fragment: "::#" + m[1], Title: title}, true
			}
		}
	}
	return Anchor{}, false
}

// parseHeading returns the level and plain title of an Org heading line.
func parseHeading(line string) (int, string, bool) {
	m := headingPattern.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return 0, "", false
	}
	title := headingTagsPattern.ReplaceAllString(m[2], "")
	title = strings.TrimSpace(strings.Trim(title, ":"))
	return len(m[1]), PlainTitle(title), true
}

// PlainTitle reduces Org and wiki link markup in a heading title to the text
// a reader sees: [[target][desc]] becomes desc, [[target|caption]] becomes
// caption and [[target]] becomes target.
func PlainTitle(title string) string {
	title = describedLinkPattern.ReplaceAllString(title, "$1")
	title = wikiLinkPattern.ReplaceAllStringFunc(title, func(match string) string {
		inner := match[2 : len(match)-2]
		if i := strings.Index(inner, "|"); i >= 0 {
			return strings.TrimSpace(inner[i+1:])
		}
		return strings.TrimSpace(inner)
	})
	return strings.Join(strings.Fields(title), " ")
}

func titleKey(s string) string {
	return strings.ToLower(strings.Join(wordPattern.FindAllString(s, -1), " "))
}

// targetContent is a cached read of one link target.
type targetContent struct {
	text string
	err  error
}

// Locator resolves headings in sibling documents of one directory context.
// It keeps every target it reads, so a file linked many times from one document
// is read once. A Locator is meant for a single document pass and is not safe
// for concurrent use.
type Locator struct {
	decoder  Decoder
	reporter Reporter
	targets  map[string]targetContent
}

// NewLocator creates a Locator. A nil decoder accepts valid UTF-8 only;
// a nil reporter discards diagnostics.
func NewLocator(decoder Decoder, reporter Reporter) *Locator {
	if reporter == nil {
		reporter = NopReporter
	}
	return &Locator{decoder: decoder, reporter: reporter, targets: make(map[string]targetContent)}
}

// TargetPath returns the absolute path of fileName inside dir.
func TargetPath(dir, fileName string) string {
	p := filepath.Join(dir, filepath.FromSlash(fileName))
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Resolve looks up heading in the file fileName inside dir.
//
// A missing target yields ErrTargetNotFound, an unreadable one ErrTargetUnreadable;
// in both cases the returned Anchor is the fallback (empty fragment, requested
// heading as title) and no diagnostic is reported, leaving that to the caller.
// A heading that cannot be found in a readable target is not an error: the
// fallback Anchor is returned and a DiagHeadingNotFound diagnostic is reported.
func (l *Locator) Resolve(dir, fileName, heading string, implicit bool) (Anchor, error) {
	heading = strings.TrimSpace(heading)
	path := TargetPath(dir, fileName)

	target, ok := l.targets[path]
	if !ok {
		target = l.read(path)
		l.targets[path] = target
	}
	if target.err != nil {
		return Anchor{Title: heading}, target.err
	}

	anchor, found := LocateHeading(target.text, heading)
	if !found {
		l.reporter.Report(Diagnostic{Kind: DiagHeadingNotFound, File: path, Heading: heading, Implicit: implicit})
	}
	return anchor, nil
}

func (l *Locator) read(path string) targetContent {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return targetContent{err: fmt.Errorf("%w: %s", ErrTargetNotFound, path)}
		}
		return targetContent{err: fmt.Errorf("%w: %w", ErrTargetUnreadable, err)}
	}
	if l.decoder == nil {
		if !utf8.Valid(raw) {
			return targetContent{err: fmt.Errorf("%w: %s is not valid UTF-8", ErrTargetUnreadable, path)}
		}
		return targetContent{text: string(raw)}
	}
	if l.decoder.IsBinary(raw) {
		return targetContent{err: fmt.Errorf("%w: %s looks like a binary file", ErrTargetUnreadable, path)}
	}
	decoded, _, _, err := l.decoder.DetectAndDecode(raw)
	if err != nil {
		return targetContent{err: fmt.Errorf("%w: %w", ErrTargetUnreadable, err)}
	}
	return targetContent{text: string(decoded)}
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/heading.go ---
