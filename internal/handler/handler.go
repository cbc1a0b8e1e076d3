package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"datasetprep/internal/manifest"
	"datasetprep/internal/pipeline"
	"datasetprep/internal/predictor"
)

// Handler serves the letterbox pipeline over HTTP.
type Handler struct {
	processor *pipeline.Processor
	predictor *predictor.Guard
	manifest  *manifest.Store
	logger    *zap.Logger
}

// New builds a Handler. pred and store may be nil: /predict then answers
// 501 and /health only reports codec state.
func New(p *pipeline.Processor, pred predictor.Predictor, store *manifest.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		processor: p,
		manifest:  store,
		logger:    logger.Named("http"),
	}
	if pred != nil {
		h.predictor = predictor.NewGuard(p.Spec, pred)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrNotAnImage), errors.Is(err, pipeline.ErrDecodeFailure):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, pipeline.ErrInvalidDimension), errors.Is(err, pipeline.ErrEmptySource),
		errors.Is(err, predictor.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(pipeline.KindOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
