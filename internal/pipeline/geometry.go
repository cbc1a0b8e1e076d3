package pipeline

import (
	"fmt"
	"math"
)

// Plan computes the scaled size and pad offsets that fit a srcW x srcH image
// inside the target canvas without distortion.
//
// The edge that hits the canvas is picked by comparing the source aspect with
// the target aspect. For square targets this reduces to "aspect > 1", and a
// square source takes the height-limited branch.
func Plan(srcW, srcH int, spec ResizeSpec) (GeometryPlan, error) {
	if srcW <= 0 || srcH <= 0 {
		return GeometryPlan{}, fmt.Errorf("%w: source %dx%d", ErrInvalidDimension, srcW, srcH)
	}
	tw, th := spec.TargetWidth, spec.TargetHeight
	if tw <= 0 || th <= 0 {
		return GeometryPlan{}, fmt.Errorf("%w: target %dx%d", ErrInvalidDimension, tw, th)
	}

	aspect := float64(srcW) / float64(srcH)
	targetAspect := float64(tw) / float64(th)

	var p GeometryPlan
	if aspect > targetAspect {
		p.ScaledWidth = tw
		p.ScaledHeight = clampInt(int(math.Round(float64(tw)/aspect)), 1, th)
	} else {
		p.ScaledWidth = clampInt(int(math.Round(float64(th)*aspect)), 1, tw)
		p.ScaledHeight = th
	}

	if spec.Pad {
		p.OffsetX = (tw - p.ScaledWidth) / 2
		p.OffsetY = (th - p.ScaledHeight) / 2
		p.CanvasWidth, p.CanvasHeight = tw, th
	} else {
		p.CanvasWidth, p.CanvasHeight = p.ScaledWidth, p.ScaledHeight
	}
	return p, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
