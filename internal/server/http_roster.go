package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// defaultRosterStaleThreshold hides workers idle for longer than this.
const defaultRosterStaleThreshold = 30 * time.Minute

// handleWorkerRoster handles GET /v1/workers/roster.
// Returns the live worker roster from the presence tracker, plus the active
// jobs nobody on the roster holds.
func (s *JobsServer) handleWorkerRoster(w http.ResponseWriter, r *http.Request) {
	staleThreshold := defaultRosterStaleThreshold
	if v := r.URL.Query().Get("stale_threshold_secs"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			staleThreshold = time.Duration(secs) * time.Second
		}
	}

	workers := s.Presence.Roster(staleThreshold)

	held := make(map[string]bool)
	for _, e := range workers {
		for _, id := range e.ActiveJobs {
			held[id] = true
		}
	}

	type unheldJob struct {
		ID           string `json:"id"`
		CustomerName string `json:"customer_name"`
		ClaimedBy    string `json:"claimed_by,omitempty"`
	}
	unheld := []unheldJob{}
	if active, err := s.store.ListLane(r.Context(), model.LaneActive); err == nil {
		for _, j := range active {
			if !held[j.ID] {
				unheld = append(unheld, unheldJob{ID: j.ID, CustomerName: j.CustomerName, ClaimedBy: j.ClaimedBy})
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workers":     workers,
		"unheld_jobs": unheld,
	})
}
