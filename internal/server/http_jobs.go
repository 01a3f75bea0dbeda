package server

import (
	"net/http"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// handleListLane handles GET /v1/lanes/{lane}.
func (s *JobsServer) handleListLane(w http.ResponseWriter, r *http.Request) {
	lane, jobs, err := s.listLane(r.Context(), r.PathValue("lane"))
	if err != nil {
		writeStoreError(w, err, "list lane")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lane": lane, "jobs": jobs})
}

// handleSnapshot handles GET /v1/lanes, all three lanes read at one instant.
func (s *JobsServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeStoreError(w, err, "snapshot lanes")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleIngestJob handles POST /v1/jobs.
func (s *JobsServer) handleIngestJob(w http.ResponseWriter, r *http.Request) {
	var job model.Job
	if err := decodeBody(r, &job); err != nil {
		writeStoreError(w, err, "ingest job")
		return
	}
	created, err := s.Ingest(r.Context(), &job)
	if err != nil {
		writeStoreError(w, err, "ingest job")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleGetJob handles GET /v1/jobs/{id}.
func (s *JobsServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	lj, err := s.getJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "get job")
		return
	}
	writeJSON(w, http.StatusOK, lj)
}

type moveInput struct {
	Actor       string     `json:"actor"`
	CompletedAt *time.Time `json:"completed_at"`
}

// handleClaimJob handles POST /v1/jobs/{id}/claim.
func (s *JobsServer) handleClaimJob(w http.ResponseWriter, r *http.Request) {
	var in moveInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err, "claim job")
		return
	}
	job, err := s.claimJob(r.Context(), r.PathValue("id"), in.Actor)
	if err != nil {
		writeStoreError(w, err, "claim job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleRejectJob handles POST /v1/jobs/{id}/reject.
func (s *JobsServer) handleRejectJob(w http.ResponseWriter, r *http.Request) {
	var in moveInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err, "reject job")
		return
	}
	if _, err := s.rejectJob(r.Context(), r.PathValue("id"), in.Actor); err != nil {
		writeStoreError(w, err, "reject job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCompleteJob handles POST /v1/jobs/{id}/complete. completed_at
// defaults to the server clock.
func (s *JobsServer) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	var in moveInput
	if err := decodeBody(r, &in); err != nil {
		writeStoreError(w, err, "complete job")
		return
	}
	job, err := s.completeJob(r.Context(), r.PathValue("id"), in.CompletedAt, in.Actor)
	if err != nil {
		writeStoreError(w, err, "complete job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleGetEvents handles GET /v1/jobs/{id}/events.
func (s *JobsServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.store.GetEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "get events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}
