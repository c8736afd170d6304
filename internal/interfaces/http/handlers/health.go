package handlers

import (
	"net/http"
	"time"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Providers     int       `json:"providers"`
	Available     int       `json:"providers_available"`
	Timestamp     time.Time `json:"timestamp"`
}

// Health handles GET /health. The service is degraded when every provider
// is in backoff.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.orchestrator.GetProviderStats()

	available := 0
	for _, s := range stats {
		if s.Available {
			available++
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if available == 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	h.writeJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Providers:     len(stats),
		Available:     available,
		Timestamp:     time.Now().UTC(),
	})
}
