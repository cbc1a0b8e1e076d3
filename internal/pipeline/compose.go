package pipeline

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// minRowsPerUnit keeps tiny canvases from spawning a goroutine per row.
const minRowsPerUnit = 16

// Compositor places a scaled image onto a background-filled canvas.
// Workers bounds the number of concurrent row bands; zero means GOMAXPROCS.
type Compositor struct {
	Workers int
}

// rowSpan is a half-open band [Start, End) of canvas rows.
type rowSpan struct {
	Start, End int
}

// partitionRows splits [0, rows) into at most units contiguous, disjoint
// bands. Earlier bands absorb the remainder.
func partitionRows(rows, units int) []rowSpan {
	if rows <= 0 {
		return nil
	}
	if units < 1 {
		units = 1
	}
	if units > rows {
		units = rows
	}
	spans := make([]rowSpan, 0, units)
	base, extra := rows/units, rows%units
	start := 0
	for i := 0; i < units; i++ {
		n := base
		if i < extra {
			n++
		}
		spans = append(spans, rowSpan{Start: start, End: start + n})
		start += n
	}
	return spans
}

// Compose allocates plan.CanvasWidth x plan.CanvasHeight, fills it with bg
// and copies scaled into the rectangle at (OffsetX, OffsetY). Each band owns
// an exclusive sub-slice of the canvas; the only synchronization is the
// final wait.
func (c Compositor) Compose(scaled *FloatBuffer, plan GeometryPlan, bg RGB) (*ImageBuffer, error) {
	if scaled == nil || scaled.Width <= 0 || scaled.Height <= 0 {
		return nil, ErrEmptySource
	}
	if scaled.Width != plan.ScaledWidth || scaled.Height != plan.ScaledHeight {
		return nil, fmt.Errorf("%w: scaled %dx%d does not match plan %dx%d",
			ErrInvalidDimension, scaled.Width, scaled.Height, plan.ScaledWidth, plan.ScaledHeight)
	}
	if plan.OffsetX < 0 || plan.OffsetY < 0 ||
		plan.OffsetX+plan.ScaledWidth > plan.CanvasWidth ||
		plan.OffsetY+plan.ScaledHeight > plan.CanvasHeight {
		return nil, fmt.Errorf("%w: plan %+v does not fit its canvas", ErrInvalidDimension, plan)
	}

	canvas, err := NewImageBuffer(plan.CanvasWidth, plan.CanvasHeight)
	if err != nil {
		return nil, err
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	units := min(workers, (plan.CanvasHeight+minRowsPerUnit-1)/minRowsPerUnit)
	stride := plan.CanvasWidth * Channels

	var wg sync.WaitGroup
	for _, span := range partitionRows(plan.CanvasHeight, units) {
		band := canvas.Pix[span.Start*stride : span.End*stride]
		wg.Add(1)
		go func(span rowSpan, band []uint8) {
			defer wg.Done()
			composeBand(band, span, scaled, plan, bg)
		}(span, band)
	}
	wg.Wait()

	return canvas, nil
}

// composeBand writes canvas rows span.Start..span.End into band, which holds
// exactly those rows.
func composeBand(band []uint8, span rowSpan, scaled *FloatBuffer, plan GeometryPlan, bg RGB) {
	if bg != Black {
		for i := 0; i < len(band); i += Channels {
			band[i+0] = bg.R
			band[i+1] = bg.G
			band[i+2] = bg.B
		}
	}

	stride := plan.CanvasWidth * Channels
	srcStride := scaled.Width * Channels
	first := max(span.Start, plan.OffsetY)
	last := min(span.End, plan.OffsetY+plan.ScaledHeight)
	for y := first; y < last; y++ {
		dst := band[(y-span.Start)*stride+plan.OffsetX*Channels:][:srcStride]
		src := scaled.Pix[(y-plan.OffsetY)*srcStride:][:srcStride]
		for i, v := range src {
			dst[i] = toUint8(v)
		}
	}
}

// toUint8 rounds half away from zero and clamps to [0, 255].
func toUint8(v float32) uint8 {
	r := math.Round(float64(v))
	if r <= 0 || math.IsNaN(r) {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return uint8(r)
}
