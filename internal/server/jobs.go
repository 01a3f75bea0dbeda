package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/jobline/internal/events"
	"github.com/alfredjeanlab/jobline/internal/gate"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListLane returns the jobs in one lane in arrival order.
func (s *JobsServer) ListLane(ctx context.Context, req *rpc.ListLaneRequest) (*rpc.ListLaneResponse, error) {
	lane, jobs, err := s.listLane(ctx, req.Lane)
	if err != nil {
		return nil, storeError(err, "list lane")
	}
	return &rpc.ListLaneResponse{Lane: lane.String(), Jobs: jobs}, nil
}

// GetJob returns a job and the lane it is in.
func (s *JobsServer) GetJob(ctx context.Context, req *rpc.GetJobRequest) (*rpc.GetJobResponse, error) {
	lj, err := s.getJob(ctx, req.ID)
	if err != nil {
		return nil, storeError(err, "get job")
	}
	return &rpc.GetJobResponse{Lane: lj.Lane.String(), Job: lj.Job}, nil
}

// ClaimJob moves a job from pending to active.
func (s *JobsServer) ClaimJob(ctx context.Context, req *rpc.ClaimJobRequest) (*rpc.JobResponse, error) {
	job, err := s.claimJob(ctx, req.ID, req.ClaimedBy)
	if err != nil {
		return nil, storeError(err, "claim job")
	}
	return &rpc.JobResponse{Job: job}, nil
}

// RejectJob removes a job from pending.
func (s *JobsServer) RejectJob(ctx context.Context, req *rpc.RejectJobRequest) (*rpc.RejectJobResponse, error) {
	job, err := s.rejectJob(ctx, req.ID, req.RejectedBy)
	if err != nil {
		return nil, storeError(err, "reject job")
	}
	return &rpc.RejectJobResponse{JobID: job.ID}, nil
}

// CompleteJob moves a job from active to completed.
func (s *JobsServer) CompleteJob(ctx context.Context, req *rpc.CompleteJobRequest) (*rpc.JobResponse, error) {
	job, err := s.completeJob(ctx, req.ID, req.CompletedAt, req.CompletedBy)
	if err != nil {
		return nil, storeError(err, "complete job")
	}
	return &rpc.JobResponse{Job: job}, nil
}

// IngestJob appends a new job to pending.
func (s *JobsServer) IngestJob(ctx context.Context, req *rpc.IngestJobRequest) (*rpc.JobResponse, error) {
	job, err := s.Ingest(ctx, req.Job)
	if err != nil {
		return nil, storeError(err, "ingest job")
	}
	return &rpc.JobResponse{Job: job}, nil
}

// GetEvents returns all persisted events for a job.
func (s *JobsServer) GetEvents(ctx context.Context, req *rpc.GetEventsRequest) (*rpc.GetEventsResponse, error) {
	if req.JobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	evts, err := s.store.GetEvents(ctx, req.JobID)
	if err != nil {
		return nil, storeError(err, "get events")
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	return &rpc.GetEventsResponse{Events: evts}, nil
}

// CreateSession opens a session and starts verifying its identity.
func (s *JobsServer) CreateSession(_ context.Context, req *rpc.CreateSessionRequest) (*rpc.SessionResponse, error) {
	if s.sessions == nil {
		return nil, storeError(errGateDisabled, "create session")
	}
	sess, err := s.sessions.Create(req.Identity)
	if err != nil {
		return nil, storeError(err, "create session")
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

// ActivateSession (re)activates a session for an identity.
func (s *JobsServer) ActivateSession(_ context.Context, req *rpc.ActivateSessionRequest) (*rpc.SessionResponse, error) {
	if s.sessions == nil {
		return nil, storeError(errGateDisabled, "activate session")
	}
	sess, err := s.sessions.Activate(req.SessionID, req.Identity)
	if err != nil {
		return nil, storeError(err, "activate session")
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

// GetSession returns a session, optionally waiting for verification to settle.
func (s *JobsServer) GetSession(ctx context.Context, req *rpc.GetSessionRequest) (*rpc.SessionResponse, error) {
	sess, err := s.getSession(ctx, req.SessionID, time.Duration(req.WaitMillis)*time.Millisecond)
	if err != nil {
		return nil, storeError(err, "get session")
	}
	return &rpc.SessionResponse{Session: sess}, nil
}

// Logout ends a session.
func (s *JobsServer) Logout(ctx context.Context, req *rpc.LogoutRequest) (*rpc.LogoutResponse, error) {
	if err := s.logout(ctx, req.SessionID); err != nil {
		return nil, storeError(err, "logout")
	}
	return &rpc.LogoutResponse{}, nil
}

// GetRoster returns the worker roster.
func (s *JobsServer) GetRoster(_ context.Context, req *rpc.GetRosterRequest) (*rpc.GetRosterResponse, error) {
	stale := defaultRosterStaleThreshold
	if req.StaleThresholdSecs > 0 {
		stale = time.Duration(req.StaleThresholdSecs) * time.Second
	}
	return &rpc.GetRosterResponse{Workers: s.Presence.Roster(stale)}, nil
}

// Health returns the service health status.
func (s *JobsServer) Health(_ context.Context, _ *rpc.HealthRequest) (*rpc.HealthResponse, error) {
	return &rpc.HealthResponse{Status: "ok"}, nil
}

// --- session operations shared by the gRPC and HTTP transports ---

// maxSessionWait caps how long a status request may block.
const maxSessionWait = 30 * time.Second

func (s *JobsServer) getSession(ctx context.Context, id string, wait time.Duration) (model.Session, error) {
	if s.sessions == nil {
		return model.Session{}, errGateDisabled
	}
	g, err := s.sessions.Get(id)
	if err != nil {
		return model.Session{}, err
	}
	if wait <= 0 {
		return g.Snapshot(), nil
	}
	if wait > maxSessionWait {
		wait = maxSessionWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	// Still loading when the wait runs out is a normal answer, not an error.
	sess, _ := g.Wait(ctx)
	return sess, nil
}

func (s *JobsServer) logout(ctx context.Context, id string) error {
	if s.sessions == nil {
		return errGateDisabled
	}
	g, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	before := g.Snapshot()
	if err := s.sessions.Logout(ctx, id); err != nil {
		if errors.Is(err, gate.ErrNoSession) {
			return err
		}
		// The session is gone locally either way; the identity provider
		// failure is only reported.
		slog.Warn("identity provider logout failed", "session_id", id, "error", err)
	}
	s.recordAndPublish(ctx, events.TopicSessionLogout, "", before.Identity, events.SessionChanged{Session: &before})
	return nil
}
