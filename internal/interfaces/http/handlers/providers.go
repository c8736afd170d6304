package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Providers handles GET /api/providers — per-provider health statistics for
// dashboard consumption.
func (h *Handlers) Providers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": h.orchestrator.GetProviderStats(),
		"cache":     h.orchestrator.CacheStats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ResetProvider handles POST /api/providers/{id}/reset
func (h *Handlers) ResetProvider(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.orchestrator.ResetProvider(id); err != nil {
		h.writeError(w, r, http.StatusNotFound, "provider_not_found", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "reset",
		"provider": id,
	})
}

// ClearCache handles POST /api/cache/clear
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ClearCache()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "cleared",
	})
}
