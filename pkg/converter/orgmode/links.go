// --- START OF FINAL REVISED FILE pkg/converter/orgmode/links.go ---
package orgmode

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

// LinkShape is the syntactic form of a wiki link.
type LinkShape int

const (
	// ShapeUnrecognized links are left untouched.
	ShapeUnrecognized LinkShape = iota
	// ShapeFileHeading is [[file#Heading]] or [[file#Heading|Caption]].
	ShapeFileHeading
	// ShapeLocalHeading is [[#Heading]].
	ShapeLocalHeading
	// ShapeNamedFile is [[file|Caption]] where file has no extension.
	ShapeNamedFile
	// ShapeNamedAttachment is [[file.ext|Caption]].
	ShapeNamedAttachment
	// ShapeAttachment is [[file.ext]].
	ShapeAttachment
	// ShapeCaptionedLocalHeading is [[#Heading|Caption]].
	ShapeCaptionedLocalHeading
	// ShapeDocument is [[Name]] where Name has no extension.
	ShapeDocument
)

var shapeNames = map[LinkShape]string{
	ShapeUnrecognized:          "unrecognized",
	ShapeFileHeading:           "file-heading",
	ShapeLocalHeading:          "local-heading",
	ShapeNamedFile:             "named-file",
	ShapeNamedAttachment:       "named-attachment",
	ShapeAttachment:            "attachment",
	ShapeCaptionedLocalHeading: "captioned-local-heading",
	ShapeDocument:              "document",
}

// String implements fmt.Stringer.
func (s LinkShape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// rewritePasses is the order in which shapes are rewritten. Each pass only
// touches links of its own shape.
var rewritePasses = []LinkShape{
	ShapeFileHeading,
	ShapeLocalHeading,
	ShapeNamedFile,
	ShapeNamedAttachment,
	ShapeAttachment,
	ShapeCaptionedLocalHeading,
	ShapeDocument,
}

var (
	// wikiLinkPattern matches [[inner]] where inner holds no brackets or newlines.
	// Rewritten links have the form [[target][caption]] and never match it again.
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]\n]+)\]\]`)
	// schemePattern matches protected prefixes such as "https:", "file:" or "cite:".
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
	// extensionPattern matches a short file extension at the end of a name.
	extensionPattern = regexp.MustCompile(`\.[A-Za-z0-9]{1,6}$`)
)

// protectedPrefixes mark targets Org already understands (paths, heading
// searches, coderefs, citation keys).
var protectedPrefixes = []string{"/", "./", "../", "~/", "*", "(", "@"}

// LinkRef is one classified wiki link.
type LinkRef struct {
	Shape   LinkShape
	File    string
	Heading string
	Caption string
}

// ClassifyLink classifies the text between the outer double brackets of a wiki link.
func ClassifyLink(inner string) LinkRef {
	unrecognized := LinkRef{Shape: ShapeUnrecognized}

	target, caption := inner, ""
	if i := strings.Index(inner, "|"); i >= 0 {
		target, caption = inner[:i], strings.TrimSpace(inner[i+1:])
	}
	target = strings.TrimSpace(target)
	if target == "" || isProtected(target) {
		return unrecognized
	}

	if strings.HasPrefix(target, "#") {
		heading := strings.TrimSpace(target[1:])
		if heading == "" || strings.HasPrefix(heading, "^") {
			return unrecognized
		}
		if caption != "" {
			return LinkRef{Shape: ShapeCaptionedLocalHeading, Heading: heading, Caption: caption}
		}
		return LinkRef{Shape: ShapeLocalHeading, Heading: heading}
	}

	file := target
	if i := strings.Index(target, "#"); i >= 0 {
		file = strings.TrimSpace(target[:i])
		heading := strings.TrimSpace(target[strings.LastIndex(target, "#")+1:])
		if strings.HasPrefix(heading, "^") {
			return unrecognized
		}
		if heading != "" {
			return LinkRef{Shape: ShapeFileHeading, File: file, Heading: heading, Caption: caption}
		}
	}

	switch {
	case hasExtension(file) && caption != "":
		return LinkRef{Shape: ShapeNamedAttachment, File: file, Caption: caption}
	case hasExtension(file):
		return LinkRef{Shape: ShapeAttachment, File: file}
	case caption != "":
		return LinkRef{Shape: ShapeNamedFile, File: file, Caption: caption}
	default:
		return LinkRef{Shape: ShapeDocument, File: file}
	}
}

func isProtected(target string) bool {
	if schemePattern.MatchString(target) {
		return true
	}
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(target, p) {
			return true
		}
	}
	return false
}

func hasExtension(name string) bool {
	return !strings.ContainsAny(name, " \t") && extensionPattern.MatchString(name)
}

// documentFile maps a note name to the name of its converted Org file.
func documentFile(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".org":
		return name
	case ".md", ".markdown":
		return strings.TrimSuffix(name, path.Ext(name)) + ".org"
	}
	return name + ".org"
}

// attachmentFile maps a link to a file with an extension; notes written as
// "x.md" point at their converted "x.org", anything else is kept verbatim.
func attachmentFile(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return documentFile(name)
	}
	return name
}

// baseHeading is the heading implied by a link without one: the note's base name.
func baseHeading(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch strings.ToLower(path.Ext(base)) {
	case ".org", ".md", ".markdown":
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSpace(base)
}

func orgLink(target, caption string) string {
	return "[[" + target + "][" + caption + "]]"
}

// Rewriter rewrites wiki links into Org links.
type Rewriter struct {
	decoder  Decoder
	reporter Reporter
}

// NewRewriter creates a Rewriter. Target files are decoded with decoder and
// degraded resolutions are reported to reporter.
func NewRewriter(decoder Decoder, reporter Reporter) *Rewriter {
	if reporter == nil {
		reporter = NopReporter
	}
	return &Rewriter{decoder: decoder, reporter: reporter}
}

// RewriteLinks rewrites every recognized wiki link in text. Link targets are
// looked up in dir, each target file being read at most once per call.
// Unrecognized links are returned unchanged.
func (r *Rewriter) RewriteLinks(text, dir string) string {
	pass := &linkPass{dir: dir, reporter: r.reporter, locator: NewLocator(r.decoder, r.reporter)}
	for _, shape := range rewritePasses {
		text = wikiLinkPattern.ReplaceAllStringFunc(text, func(match string) string {
			ref := ClassifyLink(match[2 : len(match)-2])
			if ref.Shape != shape {
				return match
			}
			return pass.rewrite(ref)
		})
	}
	return text
}

// LinkTargets returns the Org files, relative to the document's directory,
// that RewriteLinks would open to resolve the wiki links of text. Each file is
// listed once, in order of first appearance.
func LinkTargets(text string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, m := range wikiLinkPattern.FindAllStringSubmatch(text, -1) {
		ref := ClassifyLink(m[1])
		switch ref.Shape {
		case ShapeFileHeading, ShapeNamedFile, ShapeDocument:
		default:
			continue
		}
		target := documentFile(ref.File)
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	return targets
}

// linkPass holds the state shared by all passes over one document.
type linkPass struct {
	dir      string
	reporter Reporter
	locator  *Locator
}

func (p *linkPass) rewrite(ref LinkRef) string {
	switch ref.Shape {
	case ShapeFileHeading:
		target := documentFile(ref.File)
		anchor := p.resolve(target, ref.Heading, false)
		caption := ref.Caption
		if caption == "" {
			caption = anchor.Title
		}
		return orgLink("file:"+target+anchor.Fragment, caption)
	case ShapeLocalHeading:
		return orgLink("*"+ref.Heading, ref.Heading)
	case ShapeNamedFile:
		target := documentFile(ref.File)
		anchor := p.resolve(target, baseHeading(ref.File), true)
		return orgLink("file:"+target+anchor.Fragment, ref.Caption)
	case ShapeNamedAttachment:
		return orgLink("file:"+attachmentFile(ref.File), ref.Caption)
	case ShapeAttachment:
		return orgLink("file:"+attachmentFile(ref.File), ref.File)
	case ShapeCaptionedLocalHeading:
		return orgLink("*"+ref.Heading, ref.Caption)
	case ShapeDocument:
		target := documentFile(ref.File)
		anchor := p.resolve(target, baseHeading(ref.File), true)
		return orgLink("file:"+target+anchor.Fragment, anchor.Title)
	}
	return ""
}

// resolve never fails: target errors become diagnostics and a fallback anchor.
func (p *linkPass) resolve(target, heading string, implicit bool) Anchor {
	anchor, err := p.locator.Resolve(p.dir, target, heading, implicit)
	if err == nil {
		return anchor
	}
	kind := DiagTargetUnreadable
	if errors.Is(err, ErrTargetNotFound) {
		kind = DiagTargetMissing
	}
	p.reporter.Report(Diagnostic{
		Kind:     kind,
		File:     TargetPath(p.dir, target),
		Heading:  anchor.Title,
		Err:      err,
		Implicit: implicit,
	})
	return Anchor{Title: anchor.Title}
}

// --- END OF FINAL REVISED FILE pkg/converter/orgmode/links.go ---
