package handler

import (
	"net/http"

	"datasetprep/internal/pipeline"
	"datasetprep/internal/predictor"
)

type PredictResponse struct {
	Prediction predictor.Prediction  `json:"prediction"`
	Plan       pipeline.GeometryPlan `json:"plan"`
}

// Predict normalizes the request body and runs the configured model on it.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "no predictor configured"})
		return
	}

	data, err := pipeline.ReadLimited(r.Body, h.processor.MaxBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	canvas, res, err := h.processor.Normalize(data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), canvas)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{Prediction: pred, Plan: res.Plan})
}
