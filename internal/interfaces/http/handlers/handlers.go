// Package handlers implements the REST endpoint handlers. Handlers are thin
// glue over the fetch orchestrator: they parse query parameters, invoke one
// of the logical operations, and serialize the result.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pulsefeed/coinpulse/internal/fetch"
)

// Handlers manages all HTTP endpoint handlers.
type Handlers struct {
	orchestrator *fetch.Orchestrator
	startedAt    time.Time
	version      string
}

// New creates a handlers instance over the orchestrator.
func New(orchestrator *fetch.Orchestrator, version string) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		startedAt:    time.Now(),
		version:      version,
	}
}

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}

	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// writeResult maps a fetch result onto an HTTP response. Degraded results
// are data, not server errors: callers get success=false with status 503
// only when nothing could be fetched.
func (h *Handlers) writeResult(w http.ResponseWriter, result fetch.Result) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, result)
}

// NotFound handles 404 responses.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

type contextKey string

// requestIDKey is the context key the request id middleware stores under.
const requestIDKey contextKey = "request_id"

// RequestIDKey exposes the key for the middleware in the server package.
func RequestIDKey() interface{} { return requestIDKey }
