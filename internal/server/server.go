package server

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/jobline/internal/events"
	"github.com/alfredjeanlab/jobline/internal/gate"
	"github.com/alfredjeanlab/jobline/internal/idgen"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
	"github.com/alfredjeanlab/jobline/internal/rpc"
	"github.com/alfredjeanlab/jobline/internal/store"
)

// JobsServer implements rpc.JobsServiceServer and the HTTP/JSON API on top
// of a lane store.
type JobsServer struct {
	rpc.UnimplementedJobsServiceServer
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	sessions  *gate.Registry // nil when the session gate is disabled
	Presence  *presence.Tracker
	jobLocks  jobLocks

	now func() time.Time
}

// NewJobsServer returns a new JobsServer backed by the given store and publisher.
// Lane access is ungated until EnableGate is called.
func NewJobsServer(s store.Store, p events.Publisher) *JobsServer {
	return &JobsServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		Presence:  presence.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnableGate turns on session gating for lane operations. Session
// transitions are recorded and published like lane moves.
func (s *JobsServer) EnableGate(v gate.Verifier, auth gate.Authenticator, opts gate.Options) *gate.Registry {
	opts.OnChange = s.sessionChanged
	s.sessions = gate.NewRegistry(v, auth, opts)
	return s.sessions
}

// Sessions returns the session registry, or nil when gating is disabled.
func (s *JobsServer) Sessions() *gate.Registry {
	return s.sessions
}

// jobLocks serializes work on each job id in this process. A lane move and
// its event are recorded under the same lock, so a job's events are stored
// and published in the order its moves happened.
type jobLocks [64]sync.Mutex

// lock locks the stripe for id and returns its unlock.
func (l *jobLocks) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &l[h.Sum32()%uint32(len(l))]
	mu.Lock()
	return mu.Unlock
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *JobsServer) recordAndPublish(ctx context.Context, topic, jobID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "job_id", jobID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:   topic,
		JobID:   jobID,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "job_id", jobID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "job_id", jobID, "error", err)
	}
	s.sseHub.broadcast(topic, jobID, payload)
}

// sessionChanged publishes settled gate transitions. Loading snapshots are
// intermediate and not published.
func (s *JobsServer) sessionChanged(sess model.Session) {
	var topic string
	switch {
	case sess.State == model.SessionGranted:
		topic = events.TopicSessionGranted
	case sess.State == model.SessionDenied && sess.Reason == model.DenyVerificationFailed:
		topic = events.TopicSessionVerificationFailed
	case sess.State == model.SessionDenied:
		topic = events.TopicSessionDenied
	default:
		return
	}
	s.recordAndPublish(context.Background(), topic, "", sess.Identity, events.SessionChanged{Session: &sess})
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// --- lane operations shared by the gRPC and HTTP transports ---

func (s *JobsServer) listLane(ctx context.Context, name string) (model.Lane, []*model.Job, error) {
	lane, ok := model.ParseLane(name)
	if !ok {
		return "", nil, inputError(fmt.Sprintf("unknown lane %q (want pending, active or completed)", name))
	}
	jobs, err := s.store.ListLane(ctx, lane)
	if err != nil {
		return "", nil, err
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return lane, jobs, nil
}

func (s *JobsServer) getJob(ctx context.Context, id string) (*model.LaneJob, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	return s.store.GetJob(ctx, id)
}

func (s *JobsServer) claimJob(ctx context.Context, id, actor string) (*model.Job, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	actor, err := actorFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	defer s.jobLocks.lock(id)()
	job, err := s.store.ClaimJob(ctx, id, actor, s.now())
	if err != nil {
		return nil, err
	}
	s.Presence.RecordActivity(presence.Activity{Actor: actor, Action: presence.ActionClaimed, JobID: id})
	s.recordAndPublish(ctx, events.TopicJobClaimed, id, actor, events.JobClaimed{Job: job, ClaimedBy: actor})
	return job, nil
}

func (s *JobsServer) rejectJob(ctx context.Context, id, actor string) (*model.Job, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	actor, err := actorFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	defer s.jobLocks.lock(id)()
	job, err := s.store.RejectJob(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Presence.RecordActivity(presence.Activity{Actor: actor, Action: presence.ActionRejected, JobID: id})
	s.recordAndPublish(ctx, events.TopicJobRejected, id, actor, events.JobRejected{JobID: id, RejectedBy: actor})
	return job, nil
}

func (s *JobsServer) completeJob(ctx context.Context, id string, completedAt *time.Time, actor string) (*model.Job, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	actor, err := actorFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	defer s.jobLocks.lock(id)()
	at := s.now()
	if completedAt != nil && !completedAt.IsZero() {
		at = completedAt.UTC()
	}
	job, err := s.store.CompleteJob(ctx, id, at)
	if err != nil {
		return nil, err
	}
	s.Presence.ReleaseJob(id)
	s.Presence.RecordActivity(presence.Activity{Actor: actor, Action: presence.ActionCompleted, JobID: id})
	s.recordAndPublish(ctx, events.TopicJobCompleted, id, actor, events.JobCompleted{Job: job, CompletedAt: at})
	return job, nil
}

// Ingest appends job to the pending lane, assigning an id when it has none.
// Every intake path goes through it: HTTP, gRPC, the NATS subscriber and
// seed files.
func (s *JobsServer) Ingest(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job == nil {
		return nil, inputError("job is required")
	}
	j := job.Clone()
	if j.ID == "" {
		id, err := idgen.JobID()
		if err != nil {
			return nil, err
		}
		j.ID = id
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	defer s.jobLocks.lock(j.ID)()
	if err := s.store.IngestJob(ctx, j); err != nil {
		return nil, err
	}
	s.recordAndPublish(ctx, events.TopicJobIngested, j.ID, "", events.JobIngested{Job: j})
	return j, nil
}
