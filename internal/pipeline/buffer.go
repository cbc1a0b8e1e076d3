package pipeline

import (
	"fmt"
	"image"
	"image/draw"
)

// ImageBuffer is a decoded RGB raster, row-major and channel-minor.
// len(Pix) == Width*Height*Channels.
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// FloatBuffer has the ImageBuffer layout with float samples. Resampling
// produces it so precision survives until the canvas write.
type FloatBuffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImageBuffer allocates a zeroed (black) w x h buffer.
func NewImageBuffer(w, h int) (*ImageBuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, w, h)
	}
	return &ImageBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*Channels)}, nil
}

// NewFloatBuffer allocates a zeroed w x h float buffer.
func NewFloatBuffer(w, h int) (*FloatBuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, w, h)
	}
	return &FloatBuffer{Width: w, Height: h, Pix: make([]float32, w*h*Channels)}, nil
}

// Offset returns the index of the first sample of pixel (row, col).
func (b *ImageBuffer) Offset(row, col int) int {
	return (row*b.Width + col) * Channels
}

// At returns the sample at (row, col, ch).
func (b *ImageBuffer) At(row, col, ch int) uint8 {
	return b.Pix[b.Offset(row, col)+ch]
}

// Set writes the sample at (row, col, ch).
func (b *ImageBuffer) Set(row, col, ch int, v uint8) {
	b.Pix[b.Offset(row, col)+ch] = v
}

// Float widens every sample to float32.
func (b *ImageBuffer) Float() *FloatBuffer {
	out := &FloatBuffer{Width: b.Width, Height: b.Height, Pix: make([]float32, len(b.Pix))}
	for i, v := range b.Pix {
		out.Pix[i] = float32(v)
	}
	return out
}

// Image converts the buffer to an opaque *image.RGBA for encoding.
func (b *ImageBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Width*Channels : (y+1)*b.Width*Channels]
		dst := img.Pix[y*img.Stride : y*img.Stride+b.Width*4]
		for x := 0; x < b.Width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// FromImage copies img into a new ImageBuffer. Alpha is dropped after
// compositing over black.
func FromImage(img image.Image) (*ImageBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrEmptySource)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf, err := NewImageBuffer(w, h)
	if err != nil {
		return nil, err
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		bounds = rgba.Bounds()
	}

	for y := 0; y < h; y++ {
		row := rgba.Pix[rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := buf.Pix[y*w*Channels : (y+1)*w*Channels]
		for x := 0; x < w; x++ {
			dst[x*3+0] = row[x*4+0]
			dst[x*3+1] = row[x*4+1]
			dst[x*3+2] = row[x*4+2]
		}
	}
	return buf, nil
}
