package rpc

import (
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
)

// Lanes

type ListLaneRequest struct {
	Lane string `json:"lane"`
}

type ListLaneResponse struct {
	Lane string       `json:"lane"`
	Jobs []*model.Job `json:"jobs"`
}

type GetJobRequest struct {
	ID string `json:"id"`
}

type GetJobResponse struct {
	Lane string     `json:"lane"`
	Job  *model.Job `json:"job"`
}

type ClaimJobRequest struct {
	ID        string `json:"id"`
	ClaimedBy string `json:"claimed_by,omitempty"`
}

type RejectJobRequest struct {
	ID         string `json:"id"`
	RejectedBy string `json:"rejected_by,omitempty"`
}

type RejectJobResponse struct {
	JobID string `json:"job_id"`
}

type CompleteJobRequest struct {
	ID          string     `json:"id"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // defaults to server time
	CompletedBy string     `json:"completed_by,omitempty"`
}

type IngestJobRequest struct {
	Job *model.Job `json:"job"`
}

// JobResponse carries the job after a successful move or ingest.
type JobResponse struct {
	Job *model.Job `json:"job"`
}

// Events

type GetEventsRequest struct {
	JobID string `json:"job_id"`
}

type GetEventsResponse struct {
	Events []*model.Event `json:"events"`
}

// Sessions

type CreateSessionRequest struct {
	Identity string `json:"identity"`
}

type ActivateSessionRequest struct {
	SessionID string `json:"session_id"`
	Identity  string `json:"identity"`
}

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
	// WaitMillis blocks until the session leaves loading, up to this long.
	WaitMillis int64 `json:"wait_millis,omitempty"`
}

type SessionResponse struct {
	Session model.Session `json:"session"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

type LogoutResponse struct{}

// Workers

type GetRosterRequest struct {
	StaleThresholdSecs int64 `json:"stale_threshold_secs,omitempty"`
}

type GetRosterResponse struct {
	Workers []presence.Entry `json:"workers"`
}

// Health

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}
