// Package client provides a transport-agnostic interface for the jobs
// service with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// JobsClient is the interface every jl command uses to talk to the server.
// Lane operations carry the session id set with SetSession when the server
// gates lane access.
type JobsClient interface {
	// Lanes
	ListLane(ctx context.Context, lane string) ([]*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.LaneJob, error)
	ClaimJob(ctx context.Context, id, actor string) (*model.Job, error)
	RejectJob(ctx context.Context, id, actor string) error
	CompleteJob(ctx context.Context, id string, completedAt *time.Time, actor string) (*model.Job, error)
	IngestJob(ctx context.Context, job *model.Job) (*model.Job, error)
	GetEvents(ctx context.Context, jobID string) ([]*model.Event, error)

	// Sessions
	CreateSession(ctx context.Context, identity string) (*model.Session, error)
	ActivateSession(ctx context.Context, sessionID, identity string) (*model.Session, error)
	// GetSession waits up to wait for a pending verification to settle.
	GetSession(ctx context.Context, sessionID string, wait time.Duration) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	SetSession(sessionID string)

	// Workers
	Roster(ctx context.Context, staleThreshold time.Duration) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// IsNotFound reports whether err means the job (or session) was not in the
// expected place, for either transport.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound, codes.NotFound)
}

// IsAccessDenied reports whether err is a lane request rejected by the
// session gate: missing session, still verifying, or denied.
func IsAccessDenied(err error) bool {
	return hasCode(err, http.StatusUnauthorized, codes.Unauthenticated) ||
		hasCode(err, http.StatusForbidden, codes.PermissionDenied) ||
		(hasCode(err, http.StatusConflict, codes.FailedPrecondition) && !IsAlreadyExists(err))
}

// IsAlreadyExists reports whether err is a duplicate ingest.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusConflict && apiErr.State == ""
	}
	return status.Code(err) == codes.AlreadyExists
}

func hasCode(err error, httpStatus int, code codes.Code) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == httpStatus
	}
	return status.Code(err) == code
}
