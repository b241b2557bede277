// Package sniff classifies content by inspecting leading bytes. Magic-byte
// detection is authoritative; the filename extension is only a last-resort
// guess for formats sniffing cannot identify.
package sniff

import (
	"bytes"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// headerSize is the leading window inspected for magic bytes. It matches the
// default read limit of the detection library.
const headerSize = 3072

// MIMESVG is the label assigned to SVG content. Both the detection branch
// and the extension fallback normalize to it, so the emitted Content-Type
// does not depend on which one classified the file.
const MIMESVG = "image/svg"

// Confidence records how a classification was reached.
type Confidence int

const (
	// None means the content could not be classified; the MIME is empty.
	None Confidence = iota
	// Sniffed means the MIME was detected from magic bytes.
	Sniffed
	// ExtensionFallback means the MIME was guessed from the filename.
	ExtensionFallback
)

// Type is a classification result, read-only once computed.
type Type struct {
	MIME       string
	Confidence Confidence
}

// Sniff reads a leading window from r, classifies it, and returns a reader
// that replays the window followed by the rest of the stream. The input
// reader must not be used again by the caller.
func Sniff(r io.Reader, displayName string) (Type, io.Reader, error) {
	head := make([]byte, headerSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Type{}, nil, err
	}
	head = head[:n]
	rest := io.MultiReader(bytes.NewReader(head), r)

	detected := mimetype.Detect(head)
	mime, _, _ := strings.Cut(detected.String(), ";")
	mime = strings.TrimSpace(mime)

	switch {
	case mime == "image/svg+xml":
		return Type{MIME: MIMESVG, Confidence: Sniffed}, rest, nil
	case !inconclusive(mime):
		return Type{MIME: mime, Confidence: Sniffed}, rest, nil
	case strings.HasSuffix(strings.ToLower(displayName), ".svg"):
		return Type{MIME: MIMESVG, Confidence: ExtensionFallback}, rest, nil
	default:
		return Type{Confidence: None}, rest, nil
	}
}

// inconclusive reports whether a detected MIME is a catch-all rather than a
// real signature match.
func inconclusive(mime string) bool {
	return mime == "" || mime == "text/plain" || mime == "application/octet-stream"
}
