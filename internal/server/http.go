package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header. Lane routes additionally
// require a Granted session in X-Session-ID once the gate is enabled.
func (s *JobsServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/lanes/{lane}", s.gated(s.handleListLane))
	mux.HandleFunc("GET /v1/lanes", s.gated(s.handleSnapshot))
	mux.HandleFunc("POST /v1/jobs", s.handleIngestJob)
	mux.HandleFunc("GET /v1/jobs/{id}", s.gated(s.handleGetJob))
	mux.HandleFunc("POST /v1/jobs/{id}/claim", s.gated(s.handleClaimJob))
	mux.HandleFunc("POST /v1/jobs/{id}/reject", s.gated(s.handleRejectJob))
	mux.HandleFunc("POST /v1/jobs/{id}/complete", s.gated(s.handleCompleteJob))
	mux.HandleFunc("GET /v1/jobs/{id}/events", s.gated(s.handleGetEvents))
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/activate", s.handleActivateSession)
	mux.HandleFunc("POST /v1/sessions/{id}/logout", s.handleLogout)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/workers/roster", s.handleWorkerRoster)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *JobsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes an optional JSON request body into v. An empty body
// leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return inputError("invalid JSON body")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
