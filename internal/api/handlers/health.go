package handlers

import (
	"encoding/json"
	"net/http"

	"whisperd/internal/stt"
)

type HealthHandler struct {
	engine stt.Description
}

func NewHealthHandler(engine stt.Description) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// Root serves the service descriptor. It doubles as a liveness probe for
// platforms that only hit /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "whisperd speech-to-text service is running",
		"model":   h.engine.Model,
		"backend": h.engine.Backend,
		"endpoints": map[string]string{
			"transcribe": "POST /transcribe",
			"health":     "GET /health",
		},
	})
}

// Health reports readiness. The model is loaded before the listener starts
// accepting connections, so a process that answers at all is healthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  h.engine.Model,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
