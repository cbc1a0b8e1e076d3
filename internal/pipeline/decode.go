package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
)

// ReadLimited reads all of r, failing with ErrTooLarge past maxBytes.
// maxBytes <= 0 disables the limit.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %w", ErrIOFailure, err)
		}
		return data, nil
	}
	// read up to maxBytes+1 to detect overflow
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrIOFailure, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode decodes an in-memory image with any registered decoder and
// validates its dimensions. It returns the image and the format name.
func Decode(data []byte) (image.Image, string, error) {
	if !Ready() {
		return nil, "", ErrCodecsNotReady
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecodeFailure)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, "", fmt.Errorf("%w: %w", ErrDecodeFailure, ErrNotAnImage)
	}
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s header: %w", ErrDecodeFailure, format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, format, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, format, err)
	}
	return img, format, nil
}
