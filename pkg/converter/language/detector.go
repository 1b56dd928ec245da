// --- START OF FINAL REVISED FILE pkg/converter/language/detector.go ---
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// markdownLanguage is the linguist name of Markdown.
const markdownLanguage = "Markdown"

// LanguageDetector decides which files of a vault are Markdown notes.
//
// Stability: Public Stable API - Implementations can be provided externally.
type LanguageDetector interface {
	// IsMarkdown reports whether filePath names a Markdown note.
	IsMarkdown(filePath string) bool
	// Languages returns the linguist languages associated with filePath's
	// extension, for diagnostics. Nil when the extension is unknown.
	Languages(filePath string) []string
}

// goEnryDetector implements LanguageDetector with the linguist extension table
// of go-enry, optionally replaced by an explicit extension list.
type goEnryDetector struct {
	extensions map[string]bool
}

// NewGoEnryDetector creates a detector. When extensions is non-empty it is the
// complete list of Markdown extensions (".md" or "md", case-insensitive) and
// go-enry is not consulted.
func NewGoEnryDetector(extensions []string) LanguageDetector { // minimal comment
	normalized := make(map[string]bool)
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = true
	}
	return &goEnryDetector{extensions: normalized}
}

// IsMarkdown implements the LanguageDetector interface.
func (d *goEnryDetector) IsMarkdown(filePath string) bool { // minimal comment
	if len(d.extensions) > 0 {
		return d.extensions[strings.ToLower(filepath.Ext(filePath))]
	}
	for _, lang := range d.Languages(filePath) {
		if lang == markdownLanguage {
			return true
		}
	}
	return false
}

// Languages implements the LanguageDetector interface.
// ".md" is ambiguous in linguist, so several languages may be returned.
func (d *goEnryDetector) Languages(filePath string) []string { // minimal comment
	return enry.GetLanguagesByExtension(filepath.Base(filePath), nil, nil)
}

// --- END OF FINAL REVISED FILE pkg/converter/language/detector.go ---
