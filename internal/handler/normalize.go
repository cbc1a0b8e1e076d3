package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"datasetprep/internal/pipeline"
)

// Response headers describing where the image sits on the canvas.
const (
	HeaderScaledWidth  = "X-Scaled-Width"
	HeaderScaledHeight = "X-Scaled-Height"
	HeaderOffsetX      = "X-Offset-X"
	HeaderOffsetY      = "X-Offset-Y"
	HeaderSourceFormat = "X-Source-Format"
)

// Normalize letterboxes the raw image in the request body and answers with
// the encoded canvas. The optional "format" query parameter overrides the
// configured output format.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	p := *h.processor
	if f := r.URL.Query().Get("format"); f != "" {
		format, err := pipeline.ParseFormat(f)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		p.Format = format
	}

	var buf bytes.Buffer
	res, err := p.ProcessReader(r.Body, &buf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", p.Format.ContentType())
	hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
	hdr.Set(HeaderScaledWidth, strconv.Itoa(res.Plan.ScaledWidth))
	hdr.Set(HeaderScaledHeight, strconv.Itoa(res.Plan.ScaledHeight))
	hdr.Set(HeaderOffsetX, strconv.Itoa(res.Plan.OffsetX))
	hdr.Set(HeaderOffsetY, strconv.Itoa(res.Plan.OffsetY))
	hdr.Set(HeaderSourceFormat, res.SourceFormat)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}
