package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidDimension = errors.New("invalid image dimension")
	ErrEmptySource      = errors.New("source image is empty")
	ErrDecodeFailure    = errors.New("decode failure")
	ErrEncodeFailure    = errors.New("encode failure")
	ErrIOFailure        = errors.New("io failure")
	ErrNotAnImage       = errors.New("file is not a supported image")
	ErrTooLarge         = errors.New("image exceeds size limit")
	ErrCodecsNotReady   = errors.New("codecs not set up")
	ErrOutputCollision  = errors.New("output path already claimed by another input")
)

// Default maximum dimension (width or height) accepted by the decoder.
const MaxDimension = 16000

// Channels is the number of samples per pixel in every buffer (RGB).
const Channels = 3

// ErrorKind classifies a per-file failure for reporting.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInvalidDimension ErrorKind = "invalid_dimension"
	KindDecodeFailure    ErrorKind = "decode_failure"
	KindEncodeFailure    ErrorKind = "encode_failure"
	KindIOFailure        ErrorKind = "io_failure"
)

// KindOf maps err to the failure taxonomy. Unknown errors count as IO failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidDimension), errors.Is(err, ErrEmptySource):
		return KindInvalidDimension
	case errors.Is(err, ErrDecodeFailure), errors.Is(err, ErrNotAnImage), errors.Is(err, ErrTooLarge):
		return KindDecodeFailure
	case errors.Is(err, ErrEncodeFailure):
		return KindEncodeFailure
	default:
		return KindIOFailure
	}
}

// Interpolation selects the resampling kernel.
type Interpolation int

const (
	Nearest Interpolation = iota
	Bilinear
	Bicubic
	Lanczos
)

var interpolationNames = map[Interpolation]string{
	Nearest:  "nearest",
	Bilinear: "bilinear",
	Bicubic:  "bicubic",
	Lanczos:  "lanczos",
}

func (i Interpolation) String() string {
	if s, ok := interpolationNames[i]; ok {
		return s
	}
	return "Interpolation(" + strconv.Itoa(int(i)) + ")"
}

// ParseInterpolation accepts the config spelling of an interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, v := range interpolationNames {
		if v == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// RGB is a background fill color.
type RGB struct {
	R, G, B uint8
}

// Black is the default padding color.
var Black = RGB{}

// ParseRGB parses "r,g,b" (decimal) or "#rrggbb".
func ParseRGB(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return RGB{}, fmt.Errorf("invalid color %q", s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("invalid color %q: want r,g,b", s)
	}
	var out [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		out[i] = uint8(v)
	}
	return RGB{R: out[0], G: out[1], B: out[2]}, nil
}

func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// ResizeSpec is the per-run letterbox configuration.
type ResizeSpec struct {
	TargetWidth   int
	TargetHeight  int
	Interpolation Interpolation
	Pad           bool
	Background    RGB
}

// GeometryPlan is the output of Plan. CanvasWidth/CanvasHeight equal the
// target when padding and the scaled size otherwise.
type GeometryPlan struct {
	ScaledWidth  int `json:"scaled_width"`
	ScaledHeight int `json:"scaled_height"`
	OffsetX      int `json:"offset_x"`
	OffsetY      int `json:"offset_y"`
	CanvasWidth  int `json:"canvas_width"`
	CanvasHeight int `json:"canvas_height"`
}
