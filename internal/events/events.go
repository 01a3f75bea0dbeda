package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// Event topic constants
const (
	TopicJobIngested  = "jobs.job.ingested"
	TopicJobClaimed   = "jobs.job.claimed"
	TopicJobRejected  = "jobs.job.rejected"
	TopicJobCompleted = "jobs.job.completed"

	// Session gate transitions.
	TopicSessionGranted            = "jobs.session.granted"
	TopicSessionDenied             = "jobs.session.denied"
	TopicSessionVerificationFailed = "jobs.session.verification_failed"
	TopicSessionLogout             = "jobs.session.logout"

	// TopicIngest is the default subject the external job service publishes
	// new work on. It is consumed, never produced, by this service.
	TopicIngest = "jobs.ingest"
)

// Event types

type JobIngested struct {
	Job *model.Job `json:"job"`
}

type JobClaimed struct {
	Job       *model.Job `json:"job"`
	ClaimedBy string     `json:"claimed_by,omitempty"`
}

type JobRejected struct {
	JobID      string `json:"job_id"`
	RejectedBy string `json:"rejected_by,omitempty"`
}

type JobCompleted struct {
	Job         *model.Job `json:"job"`
	CompletedAt time.Time  `json:"completed_at"`
}

type SessionChanged struct {
	Session *model.Session `json:"session"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// jobKeyed is implemented by events that concern a single job.
type jobKeyed interface {
	jobKey() string
}

func (e JobIngested) jobKey() string  { return jobID(e.Job) }
func (e JobClaimed) jobKey() string   { return jobID(e.Job) }
func (e JobRejected) jobKey() string  { return e.JobID }
func (e JobCompleted) jobKey() string { return jobID(e.Job) }

func jobID(j *model.Job) string {
	if j == nil {
		return ""
	}
	return j.ID
}
