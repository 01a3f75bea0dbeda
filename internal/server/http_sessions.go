package server

import (
	"net/http"
	"time"
)

type sessionInput struct {
	Identity string `json:"identity"`
}

// handleCreateSession handles POST /v1/sessions.
func (s *JobsServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeStoreError(w, errGateDisabled, "create session")
		return
	}
	var in sessionInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err, "create session")
		return
	}
	sess, err := s.sessions.Create(in.Identity)
	if err != nil {
		writeStoreError(w, err, "create session")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleActivateSession handles POST /v1/sessions/{id}/activate.
func (s *JobsServer) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeStoreError(w, errGateDisabled, "activate session")
		return
	}
	var in sessionInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err, "activate session")
		return
	}
	sess, err := s.sessions.Activate(r.PathValue("id"), in.Identity)
	if err != nil {
		writeStoreError(w, err, "activate session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleGetSession handles GET /v1/sessions/{id}. With ?wait=<duration> the
// request blocks until verification settles or the wait runs out.
func (s *JobsServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var wait time.Duration
	if v := r.URL.Query().Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid wait duration")
			return
		}
		wait = d
	}
	sess, err := s.getSession(r.Context(), r.PathValue("id"), wait)
	if err != nil {
		writeStoreError(w, err, "get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleLogout handles POST /v1/sessions/{id}/logout.
func (s *JobsServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.logout(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err, "logout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
