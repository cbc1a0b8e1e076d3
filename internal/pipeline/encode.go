package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	webp "github.com/chai2010/webp"
	"github.com/gen2brain/avif"
)

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// DefaultQuality is used for lossy formats when no quality is configured.
const DefaultQuality = 90

// DefaultAVIFSpeed is the standard speed used for AVIF encoding.
const DefaultAVIFSpeed = 6

// ParseFormat accepts "jpeg", "jpg", "png", "webp" or "avif".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "avif":
		return FormatAVIF, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Ext returns the file extension written for f, including the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Encode writes img to w in format f. quality (1-100) applies to JPEG, WebP
// and AVIF and is clamped. It returns the number of bytes written.
func Encode(img image.Image, w io.Writer, f Format, quality int) (int64, error) {
	if img == nil {
		return 0, fmt.Errorf("%w: nil image", ErrEncodeFailure)
	}
	if w == nil {
		return 0, fmt.Errorf("%w: nil writer", ErrEncodeFailure)
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	if quality > 100 {
		quality = 100
	}

	c := &countingWriter{w: w}
	var err error
	switch f {
	case FormatJPEG, "":
		err = jpeg.Encode(c, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		err = png.Encode(c, img)
	case FormatWebP:
		err = webp.Encode(c, img, &webp.Options{Quality: float32(quality)})
	case FormatAVIF:
		err = avif.Encode(c, img, avif.Options{Quality: quality, QualityAlpha: quality, Speed: DefaultAVIFSpeed})
	default:
		err = errors.New("unsupported format " + string(f))
	}
	if err != nil {
		return c.n, fmt.Errorf("%w: %s: %w", ErrEncodeFailure, f, err)
	}
	return c.n, nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += int64(m)
	return m, err
}
