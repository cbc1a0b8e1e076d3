package handler

import (
	"net/http"
	"time"

	"datasetprep/internal/pipeline"
)

type HealthResponse struct {
	Status      string    `json:"status"`
	CodecsReady bool      `json:"codecs_ready"`
	Manifest    string    `json:"manifest,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		CodecsReady: pipeline.Ready(),
		Timestamp:   time.Now().UTC(),
	}
	status := http.StatusOK

	if !resp.CodecsReady {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	if h.manifest != nil {
		resp.Manifest = "ok"
		if err := h.manifest.Ping(r.Context()); err != nil {
			resp.Manifest = "unreachable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
