package sniff

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`

func TestSniff_PNG(t *testing.T) {
	data := testPNG(t)

	st, _, err := Sniff(bytes.NewReader(data), "anything.txt")
	require.NoError(t, err)
	assert.Equal(t, "image/png", st.MIME)
	assert.Equal(t, Sniffed, st.Confidence)
}

func TestSniff_JPEGMagicBytes(t *testing.T) {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)

	st, _, err := Sniff(bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", st.MIME)
	assert.Equal(t, Sniffed, st.Confidence)
}

func TestSniff_SVGContent(t *testing.T) {
	// Detected SVG normalizes to the same label as the extension fallback.
	st, _, err := Sniff(strings.NewReader(testSVG), "picture.bin")
	require.NoError(t, err)
	assert.Equal(t, MIMESVG, st.MIME)
	assert.Equal(t, Sniffed, st.Confidence)
}

func TestSniff_SVGExtensionFallback(t *testing.T) {
	// Plain text is inconclusive; the .svg extension decides.
	st, _, err := Sniff(strings.NewReader("just some text"), "diagram.svg")
	require.NoError(t, err)
	assert.Equal(t, MIMESVG, st.MIME)
	assert.Equal(t, ExtensionFallback, st.Confidence)
}

func TestSniff_Unresolved(t *testing.T) {
	st, _, err := Sniff(strings.NewReader("just some text"), "notes.bin")
	require.NoError(t, err)
	assert.Equal(t, "", st.MIME)
	assert.Equal(t, None, st.Confidence)
}

func TestSniff_EmptyInput(t *testing.T) {
	st, rest, err := Sniff(strings.NewReader(""), "empty.bin")
	require.NoError(t, err)
	assert.Equal(t, "", st.MIME)
	assert.Equal(t, None, st.Confidence)

	data, err := io.ReadAll(rest)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSniff_ReplaysFullStream(t *testing.T) {
	// Input longer than the inspection window must come back intact.
	data := append(testPNG(t), bytes.Repeat([]byte{0xAB}, headerSize*2)...)

	_, rest, err := Sniff(bytes.NewReader(data), "big.png")
	require.NoError(t, err)

	got, err := io.ReadAll(rest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSniff_ExtensionNeverOverridesSniff(t *testing.T) {
	// A real PNG named .svg stays a PNG: byte-sniffing is authoritative.
	st, _, err := Sniff(bytes.NewReader(testPNG(t)), "fake.svg")
	require.NoError(t, err)
	assert.Equal(t, "image/png", st.MIME)
	assert.Equal(t, Sniffed, st.Confidence)
}
