package pipeline

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultMaxBytes caps a single input file.
const DefaultMaxBytes = 50 << 20

// Processor runs decode -> orient -> plan -> resample -> compose -> encode
// for one image at a time. It holds no per-image state and is safe for
// concurrent use.
type Processor struct {
	Spec       ResizeSpec
	Format     Format
	Quality    int
	AutoOrient bool
	MaxBytes   int64
	Compositor Compositor
}

// Result describes one processed image.
type Result struct {
	SourceWidth  int
	SourceHeight int
	SourceFormat string
	Plan         GeometryPlan
	EncodedBytes int64
}

// Letterbox fits src into the target canvas.
func (p *Processor) Letterbox(src *ImageBuffer) (*ImageBuffer, GeometryPlan, error) {
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return nil, GeometryPlan{}, ErrEmptySource
	}
	plan, err := Plan(src.Width, src.Height, p.Spec)
	if err != nil {
		return nil, GeometryPlan{}, err
	}
	scaled, err := Resample(src, plan.ScaledWidth, plan.ScaledHeight, p.Spec.Interpolation)
	if err != nil {
		return nil, plan, fmt.Errorf("resample: %w", err)
	}
	canvas, err := p.Compositor.Compose(scaled, plan, p.Spec.Background)
	if err != nil {
		return nil, plan, fmt.Errorf("compose: %w", err)
	}
	return canvas, plan, nil
}

// Normalize decodes data and letterboxes it without encoding.
func (p *Processor) Normalize(data []byte) (*ImageBuffer, Result, error) {
	var res Result
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return nil, res, ErrTooLarge
	}

	img, format, err := Decode(data)
	if err != nil {
		return nil, res, err
	}
	res.SourceFormat = format

	if p.AutoOrient {
		img = ApplyEXIFOrientation(img, data)
	}

	src, err := FromImage(img)
	if err != nil {
		return nil, res, err
	}
	res.SourceWidth, res.SourceHeight = src.Width, src.Height

	canvas, plan, err := p.Letterbox(src)
	res.Plan = plan
	if err != nil {
		return nil, res, err
	}
	return canvas, res, nil
}

// ProcessBytes normalizes data and writes the encoded result to w.
func (p *Processor) ProcessBytes(data []byte, w io.Writer) (Result, error) {
	canvas, res, err := p.Normalize(data)
	if err != nil {
		return res, err
	}
	n, err := Encode(canvas.Image(), w, p.Format, p.Quality)
	res.EncodedBytes = n
	if err != nil {
		return res, err
	}
	return res, nil
}

// ProcessReader reads at most MaxBytes from r and returns the encoded result.
// Nothing is written to w unless the whole image was encoded.
func (p *Processor) ProcessReader(r io.Reader, w io.Writer) (Result, error) {
	data, err := ReadLimited(r, p.MaxBytes)
	if err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	res, err := p.ProcessBytes(data, &buf)
	if err != nil {
		return res, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return res, fmt.Errorf("%w: write: %w", ErrIOFailure, err)
	}
	return res, nil
}
