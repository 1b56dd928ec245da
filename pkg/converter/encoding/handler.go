// --- START OF FINAL REVISED FILE pkg/converter/encoding/handler.go ---
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes used by http.DetectContentType.
	sniffLen = 512
	// checkLen is the window inspected for null bytes.
	checkLen = 1024
	// nullThreshold is the share of null bytes above which content is binary.
	nullThreshold = 0.15
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// textMIMETypes are sniffed non-text/* types that still count as text.
var textMIMETypes = map[string]bool{
	"application/json":         true,
	"application/xml":          true,
	"application/octet-stream": true, // decided by the null byte check
	"image/svg+xml":            true,
}

// EncodingHandler detects binary files and converts notes to UTF-8.
type EncodingHandler interface {
	// DetectAndDecode returns content converted to UTF-8, the IANA name of the
	// source encoding and whether the detection was certain. Valid UTF-8 is
	// returned as is (minus a byte order mark). When detection is uncertain the
	// configured default encoding, if valid, is used instead of the guess.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error)

	// IsBinary reports whether content looks like binary data, judged by the
	// sniffed MIME type of the first 512 bytes and the share of null bytes in
	// the first 1024 bytes. Content with a Unicode byte order mark is text.
	IsBinary(content []byte) bool
}

// goCharsetEncodingHandler implements EncodingHandler with golang.org/x/net/html/charset.
type goCharsetEncodingHandler struct {
	defaultEncoding string
}

// NewGoCharsetEncodingHandler creates a handler. defaultEncoding is an
// encoding label such as "windows-1252" used when detection is uncertain;
// empty keeps the detector's guess.
func NewGoCharsetEncodingHandler(defaultEncoding string) EncodingHandler { // minimal comment
	return &goCharsetEncodingHandler{defaultEncoding: defaultEncoding}
}

// DetectAndDecode implements the EncodingHandler interface.
func (h *goCharsetEncodingHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) { // minimal comment
	if utf8.Valid(content) {
		return bytes.TrimPrefix(content, utf8BOM), "utf-8", true, nil
	}

	enc, name, certain := charset.DetermineEncoding(content, "text/plain")
	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc, name, certain = fallback, fallbackName, true
		}
	}
	if name == "" {
		name = "unknown"
	}
	if enc == nil {
		return content, name, certain, fmt.Errorf("no decoder for encoding '%s'", name)
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return content, name, certain, fmt.Errorf("failed to convert from '%s': %w", name, err)
	}
	return bytes.TrimPrefix(decoded, utf8BOM), name, certain, nil
}

// isTextMIME reports whether a sniffed content type is text-like.
func isTextMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") || textMIMETypes[mimeType] {
		return true
	}
	return strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json")
}

// IsBinary implements the EncodingHandler interface.
func (h *goCharsetEncodingHandler) IsBinary(content []byte) bool { // minimal comment
	if len(content) == 0 {
		return false
	}
	if bytes.HasPrefix(content, utf8BOM) || bytes.HasPrefix(content, utf16LEBOM) || bytes.HasPrefix(content, utf16BEBOM) {
		return false
	}
	if !isTextMIME(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}
	window := content[:min(len(content), checkLen)]
	return float64(bytes.Count(window, []byte{0x00}))/float64(len(window)) > nullThreshold
}

// --- END OF FINAL REVISED FILE pkg/converter/encoding/handler.go ---
