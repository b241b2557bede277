package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Output formats the gateway re-encodes to.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Fixed quality presets; not configurable per request beyond format selection.
const (
	jpegQuality = 80
	webpQuality = 80
)

// transformable is the fixed set of raster input types the stage operates
// on. Everything else, including SVG (vector content) and unknown types,
// passes through untouched.
var transformable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/tiff": true,
}

// CanTransform reports whether content of the given MIME type is a
// supported raster input.
func CanTransform(mime string) bool {
	return transformable[mime]
}

// Params are the validated transform parameters. Invalid or absent query
// values fall back to defaults rather than erroring.
type Params struct {
	MaxWidth  int
	MaxHeight int
	Format    string
}

// ParseParams reads w, h and f from query values. w and h must be positive
// integers; f must be one of jpeg, png, webp and defaults to jpeg.
func ParseParams(q url.Values) Params {
	p := Params{Format: FormatJPEG}
	if w, err := strconv.Atoi(q.Get("w")); err == nil && w > 0 {
		p.MaxWidth = w
	}
	if h, err := strconv.Atoi(q.Get("h")); err == nil && h > 0 {
		p.MaxHeight = h
	}
	switch q.Get("f") {
	case FormatPNG:
		p.Format = FormatPNG
	case FormatWebP:
		p.Format = FormatWebP
	}
	return p
}

// HasResize reports whether at least one bounding dimension was requested.
func (p Params) HasResize() bool {
	return p.MaxWidth > 0 || p.MaxHeight > 0
}

// BoundingBox returns the resize bounds. When only one dimension is given,
// the missing one mirrors it, producing a square box.
func (p Params) BoundingBox() (w, h int) {
	w, h = p.MaxWidth, p.MaxHeight
	if w == 0 {
		w = h
	}
	if h == 0 {
		h = w
	}
	return w, h
}

// FinalMIME maps (detected MIME, requested format) to the MIME type of the
// emitted body. Computed once per request, never reassigned mid-flow.
func FinalMIME(detected, format string) string {
	if !CanTransform(detected) {
		return detected
	}
	switch format {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Transform decodes a supported raster image, applies the downscale-only
// bounding-box resize when requested, and re-encodes to the output format.
// Format conversion without resizing is a valid operation.
func Transform(r io.Reader, p Params) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if p.HasResize() {
		w, h := p.BoundingBox()
		img = scaleDown(img, w, h)
	}

	return encode(img, p.Format)
}

// scaleDown resizes to fit within targetW x targetH, preserving aspect
// ratio. Only shrinks, never enlarges.
func scaleDown(img image.Image, targetW, targetH int) image.Image {
	if img.Bounds().Dx() <= targetW && img.Bounds().Dy() <= targetH {
		// Already fits; do not enlarge.
		return img
	}
	return imaging.Fit(img, targetW, targetH, imaging.Lanczos)
}

// encode serialises the image to the requested output format with the fixed
// quality presets.
func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	case FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
			return nil, fmt.Errorf("encoding webp: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return buf.Bytes(), nil
}
