package store

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

var (
	// ErrNotFound is returned when a job id is absent from the lane an
	// operation requires. Lanes are never mutated when it is returned.
	ErrNotFound = errors.New("job not found")

	// ErrAlreadyExists is returned when ingesting an id that is already
	// present in one of the lanes.
	ErrAlreadyExists = errors.New("job already exists")

	// ErrUnknownLane is returned by ListLane for a lane name outside the
	// pending/active/completed set.
	ErrUnknownLane = errors.New("unknown lane")
)

// Store is the only legal mutation path between the three lanes.
//
// Every move is a single atomic check-and-move per job id: of two callers
// racing on the same id exactly one observes success and the other
// ErrNotFound. Returned jobs are copies; callers never hold references into
// store internals.
type Store interface {
	// Lanes
	IngestJob(ctx context.Context, job *model.Job) error
	ListLane(ctx context.Context, lane model.Lane) ([]*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.LaneJob, error)
	ClaimJob(ctx context.Context, id, actor string, at time.Time) (*model.Job, error)
	RejectJob(ctx context.Context, id string) (*model.Job, error)
	CompleteJob(ctx context.Context, id string, completedAt time.Time) (*model.Job, error)
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, jobID string) ([]*model.Event, error)

	// Lifecycle
	Close() error
}
