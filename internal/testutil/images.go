package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"datasetprep/internal/pipeline"
)

// GradientImage returns a width x height RGBA image with a red/green
// gradient and a constant blue channel.
func GradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}

	return img
}

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// GenerateTestImage encodes a gradient image in the given format
// ("jpeg", "png", "gif", "webp" or "avif").
func GenerateTestImage(t *testing.T, format string, width, height int) []byte {
	t.Helper()
	return EncodeTestImage(t, format, GradientImage(width, height))
}

// EncodeTestImage encodes img in the given format.
func EncodeTestImage(t *testing.T, format string, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer

	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			t.Fatalf("failed to encode GIF: %v", err)
		}
	case "webp", "avif":
		f, err := pipeline.ParseFormat(format)
		if err != nil {
			t.Fatalf("parse format: %v", err)
		}
		if _, err := pipeline.Encode(img, &buf, f, pipeline.DefaultQuality); err != nil {
			t.Fatalf("failed to encode %s: %v", format, err)
		}
	default:
		t.Fatalf("unsupported test image format: %s", format)
	}

	return buf.Bytes()
}

// WriteFile writes data to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteTestImage writes a gradient image to root/rel in the given format.
func WriteTestImage(t *testing.T, root, rel, format string, width, height int) string {
	t.Helper()
	return WriteFile(t, root, rel, GenerateTestImage(t, format, width, height))
}

// DecodeFile decodes the image at path with the registered codecs.
func DecodeFile(t *testing.T, path string) image.Image {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}
