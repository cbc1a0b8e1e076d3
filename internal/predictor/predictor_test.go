package predictor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetprep/internal/pipeline"
)

func meanRed() Func {
	return func(_ context.Context, img *pipeline.ImageBuffer) (Prediction, error) {
		var sum int
		for i := 0; i < len(img.Pix); i += pipeline.Channels {
			sum += int(img.Pix[i])
		}
		label := "dark"
		if sum/(img.Width*img.Height) > 127 {
			label = "red"
		}
		return Prediction{Label: label, Score: 1}, nil
	}
}

func TestGuard_ForwardsMatchingShape(t *testing.T) {
	spec := pipeline.ResizeSpec{TargetWidth: 4, TargetHeight: 2}
	g := NewGuard(spec, meanRed())

	img, err := pipeline.NewImageBuffer(4, 2)
	require.NoError(t, err)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i] = 255
	}

	p, err := g.Predict(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "red", p.Label)
}

func TestGuard_RejectsShapeMismatch(t *testing.T) {
	called := false
	g := &Guard{Width: 4, Height: 4, Next: Func(func(context.Context, *pipeline.ImageBuffer) (Prediction, error) {
		called = true
		return Prediction{}, nil
	})}

	wrongSize, _ := pipeline.NewImageBuffer(4, 3)
	short := &pipeline.ImageBuffer{Width: 4, Height: 4, Pix: make([]uint8, 4*4)}

	for name, img := range map[string]*pipeline.ImageBuffer{"nil": nil, "size": wrongSize, "channels": short} {
		t.Run(name, func(t *testing.T) {
			_, err := g.Predict(context.Background(), img)
			assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
		})
	}
	assert.False(t, called)
}

func TestGuard_NoModel(t *testing.T) {
	g := &Guard{Width: 1, Height: 1}
	img, _ := pipeline.NewImageBuffer(1, 1)
	_, err := g.Predict(context.Background(), img)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrShapeMismatch))
}

func TestGuard_LetterboxOutputSatisfiesShape(t *testing.T) {
	spec := pipeline.ResizeSpec{TargetWidth: 32, TargetHeight: 24, Interpolation: pipeline.Bilinear, Pad: true}
	p := &pipeline.Processor{Spec: spec}
	g := NewGuard(spec, meanRed())

	for _, size := range [][2]int{{1, 1}, {100, 7}, {7, 100}, {32, 24}, {640, 480}} {
		src, err := pipeline.NewImageBuffer(size[0], size[1])
		require.NoError(t, err)
		canvas, _, err := p.Letterbox(src)
		require.NoError(t, err)
		assert.NoError(t, g.Check(canvas), "source %v", size)
	}
}
