package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	webp "github.com/chai2010/webp"
)

func encodeJPEG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 80})
}

func encodePNG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	return png.Encode(w, img)
}

func TestDecodeJPEG(t *testing.T) {
	var b bytes.Buffer
	if err := encodeJPEG(&b); err != nil {
		t.Fatal(err)
	}
	img, format, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img == nil {
		t.Fatalf("expected image, got nil")
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", format)
	}
}

func TestDecodePNG(t *testing.T) {
	var b bytes.Buffer
	if err := encodePNG(&b); err != nil {
		t.Fatal(err)
	}
	img, format, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 10 || format != "png" {
		t.Fatalf("unexpected decode result %v %s", img.Bounds(), format)
	}
}

func TestDecodeWebP(t *testing.T) {
	var b bytes.Buffer
	if err := webp.Encode(&b, image.NewRGBA(image.Rect(0, 0, 16, 8)), &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	img, format, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "webp" || img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected decode result %v %s", img.Bounds(), format)
	}
}

func TestDecodeAVIF(t *testing.T) {
	var b bytes.Buffer
	if _, err := Encode(image.NewRGBA(image.Rect(0, 0, 16, 8)), &b, FormatAVIF, 60); err != nil {
		t.Fatalf("encode avif: %v", err)
	}
	img, format, err := Decode(b.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "avif" || img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected decode result %v %s", img.Bounds(), format)
	}
}

func TestRejectText(t *testing.T) {
	_, _, err := Decode([]byte("this is not an image"))
	if !errors.Is(err, ErrDecodeFailure) || !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected decode failure for non-image, got %v", err)
	}
}

func TestRejectEmpty(t *testing.T) {
	_, _, err := Decode(nil)
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("expected ErrDecodeFailure, got %v", err)
	}
}

func TestRejectTruncated(t *testing.T) {
	var b bytes.Buffer
	if err := encodeJPEG(&b); err != nil {
		t.Fatal(err)
	}
	_, _, err := Decode(b.Bytes()[:b.Len()/2])
	if !errors.Is(err, ErrDecodeFailure) {
		t.Fatalf("expected ErrDecodeFailure for truncated jpeg, got %v", err)
	}
	if KindOf(err) != KindDecodeFailure {
		t.Fatalf("expected decode kind, got %s", KindOf(err))
	}
}

func TestReadLimited(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, 1024*10)
	if _, err := ReadLimited(bytes.NewReader(data), 1024); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	got, err := ReadLimited(bytes.NewReader(data), 0)
	if err != nil || len(got) != len(data) {
		t.Fatalf("expected unlimited read, got %d bytes, err %v", len(got), err)
	}
}

func TestRejectInvalidDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, MaxDimension+1, 1))
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatal(err)
	}
	_, _, err := Decode(b.Bytes())
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestSetup_Idempotent(t *testing.T) {
	Setup()
	Setup()
	if !Ready() {
		t.Fatalf("expected codecs ready after Setup")
	}
}
