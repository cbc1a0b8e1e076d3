package pipeline

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Resample scales src to newW x newH. Nearest and Bilinear are computed
// directly in float; Bicubic (Catmull-Rom) and Lanczos go through an 8-bit
// intermediate from their libraries and are widened afterwards.
func Resample(src *ImageBuffer, newW, newH int, interp Interpolation) (*FloatBuffer, error) {
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return nil, ErrEmptySource
	}
	if newW <= 0 || newH <= 0 {
		return nil, fmt.Errorf("%w: resample target %dx%d", ErrInvalidDimension, newW, newH)
	}

	switch interp {
	case Nearest:
		return resampleNearest(src, newW, newH), nil
	case Bilinear:
		return resampleBilinear(src, newW, newH), nil
	case Bicubic:
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src.Image(), image.Rect(0, 0, src.Width, src.Height), xdraw.Src, nil)
		return widen(dst)
	case Lanczos:
		return widen(imaging.Resize(src.Image(), newW, newH, imaging.Lanczos))
	default:
		return nil, fmt.Errorf("unsupported interpolation %v", interp)
	}
}

func widen(img image.Image) (*FloatBuffer, error) {
	buf, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	return buf.Float(), nil
}

// tap holds the two source indices around a mapped coordinate and the weight
// of the second one.
type tap struct {
	i0, i1 int
	w      float64
}

// sourceCoord maps the center of destination sample d back into source space.
func sourceCoord(d, srcLen, dstLen int) float64 {
	return (float64(d)+0.5)*float64(srcLen)/float64(dstLen) - 0.5
}

func bilinearTaps(srcLen, dstLen int) []tap {
	taps := make([]tap, dstLen)
	for d := range taps {
		s := sourceCoord(d, srcLen, dstLen)
		f := math.Floor(s)
		i := int(f)
		taps[d] = tap{
			i0: clampInt(i, 0, srcLen-1),
			i1: clampInt(i+1, 0, srcLen-1),
			w:  s - f,
		}
	}
	return taps
}

func nearestIndices(srcLen, dstLen int) []int {
	idx := make([]int, dstLen)
	for d := range idx {
		idx[d] = clampInt(int(math.Round(sourceCoord(d, srcLen, dstLen))), 0, srcLen-1)
	}
	return idx
}

func resampleNearest(src *ImageBuffer, newW, newH int) *FloatBuffer {
	xs := nearestIndices(src.Width, newW)
	ys := nearestIndices(src.Height, newH)
	out := &FloatBuffer{Width: newW, Height: newH, Pix: make([]float32, newW*newH*Channels)}

	for dy, sy := range ys {
		row := out.Pix[dy*newW*Channels:]
		for dx, sx := range xs {
			s := src.Offset(sy, sx)
			row[dx*3+0] = float32(src.Pix[s+0])
			row[dx*3+1] = float32(src.Pix[s+1])
			row[dx*3+2] = float32(src.Pix[s+2])
		}
	}
	return out
}

func resampleBilinear(src *ImageBuffer, newW, newH int) *FloatBuffer {
	xt := bilinearTaps(src.Width, newW)
	yt := bilinearTaps(src.Height, newH)
	out := &FloatBuffer{Width: newW, Height: newH, Pix: make([]float32, newW*newH*Channels)}

	for dy, ty := range yt {
		row := out.Pix[dy*newW*Channels:]
		for dx, tx := range xt {
			a := src.Offset(ty.i0, tx.i0)
			b := src.Offset(ty.i0, tx.i1)
			c := src.Offset(ty.i1, tx.i0)
			d := src.Offset(ty.i1, tx.i1)
			for ch := 0; ch < Channels; ch++ {
				top := float64(src.Pix[a+ch])*(1-tx.w) + float64(src.Pix[b+ch])*tx.w
				bottom := float64(src.Pix[c+ch])*(1-tx.w) + float64(src.Pix[d+ch])*tx.w
				row[dx*3+ch] = float32(top*(1-ty.w) + bottom*ty.w)
			}
		}
	}
	return out
}
