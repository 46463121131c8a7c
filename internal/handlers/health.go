package handlers

import (
	"net/http"
	"time"

	"github.com/webmuhendisi/velopix/internal/repositories"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness probes. Readiness pings the
// datastore; liveness never does.
type HealthHandlers struct {
	health repositories.HealthRepository
}

// NewHealthHandlers constructs probe handlers. A nil repository keeps
// readiness permanently green, which suits tests and local tooling.
func NewHealthHandlers(health repositories.HealthRepository) *HealthHandlers {
	return &HealthHandlers{health: health}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether downstream dependencies answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ready"})
}
