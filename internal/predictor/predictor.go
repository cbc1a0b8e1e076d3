// Package predictor defines the contract of the downstream model that
// consumes normalized images. No model ships with this module.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"image"

	"datasetprep/internal/pipeline"
)

var ErrShapeMismatch = errors.New("image does not match the model input shape")

// Detection is one labelled region of a prediction.
type Detection struct {
	Label string          `json:"label"`
	Score float64         `json:"score"`
	Box   image.Rectangle `json:"box"`
}

// Prediction is a classification result with optional detections.
type Prediction struct {
	Label      string      `json:"label,omitempty"`
	Score      float64     `json:"score,omitempty"`
	Detections []Detection `json:"detections,omitempty"`
}

// Predictor runs inference on one normalized image.
type Predictor interface {
	Predict(ctx context.Context, img *pipeline.ImageBuffer) (Prediction, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, img *pipeline.ImageBuffer) (Prediction, error)

func (f Func) Predict(ctx context.Context, img *pipeline.ImageBuffer) (Prediction, error) {
	return f(ctx, img)
}

// Guard forwards to Next only buffers of exactly Width x Height RGB pixels.
type Guard struct {
	Width  int
	Height int
	Next   Predictor
}

// NewGuard guards next with the target size of spec.
func NewGuard(spec pipeline.ResizeSpec, next Predictor) *Guard {
	return &Guard{Width: spec.TargetWidth, Height: spec.TargetHeight, Next: next}
}

// Check reports whether img satisfies the input shape.
func (g *Guard) Check(img *pipeline.ImageBuffer) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrShapeMismatch)
	}
	if img.Width != g.Width || img.Height != g.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShapeMismatch, img.Width, img.Height, g.Width, g.Height)
	}
	if want := img.Width * img.Height * pipeline.Channels; len(img.Pix) != want {
		return fmt.Errorf("%w: %d samples, want %d", ErrShapeMismatch, len(img.Pix), want)
	}
	return nil
}

func (g *Guard) Predict(ctx context.Context, img *pipeline.ImageBuffer) (Prediction, error) {
	if err := g.Check(img); err != nil {
		return Prediction{}, err
	}
	if g.Next == nil {
		return Prediction{}, errors.New("predictor: no model configured")
	}
	return g.Next.Predict(ctx, img)
}
