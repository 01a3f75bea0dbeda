// Package lanes implements the in-memory job lifecycle controller.
//
// All jobs live in a single map keyed by id, each tagged with the lane it
// occupies and the sequence number it received when it entered that lane.
// Changing the tag under one lock is the whole move, so an id can never be
// observed in two lanes, and ordering within a lane is arrival order.
package lanes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

type entry struct {
	lane model.Lane
	seq  uint64
	job  *model.Job
}

// Controller owns the pending, active and completed lanes.
type Controller struct {
	mu      sync.RWMutex
	jobs     map[string]*entry
	rejected map[string]struct{} // ids that may never be ingested again
	nextSeq  uint64

	eventsMu    sync.Mutex
	events      []*model.Event
	nextEventID int64

	now func() time.Time
}

// Compile-time check that Controller implements store.Store.
var _ store.Store = (*Controller)(nil)

// New returns an empty controller.
func New() *Controller {
	return &Controller{
		jobs:     make(map[string]*entry),
		rejected: make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Seed returns a controller whose pending lane holds jobs in the given order.
func Seed(jobs []*model.Job) (*Controller, error) {
	c := New()
	for _, j := range jobs {
		if err := c.IngestJob(context.Background(), j); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// IngestJob appends a copy of job to the pending lane. Ids already in a
// lane or previously rejected return store.ErrAlreadyExists.
func (c *Controller) IngestJob(_ context.Context, job *model.Job) error {
	if err := model.ValidateJob(job); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.jobs[job.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := c.rejected[job.ID]; ok {
		return store.ErrAlreadyExists
	}
	j := job.Clone()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = c.now()
	}
	c.jobs[j.ID] = &entry{lane: model.LanePending, seq: c.seq(), job: j}
	return nil
}

// ListLane returns copies of the jobs in lane, in arrival order.
func (c *Controller) ListLane(_ context.Context, lane model.Lane) ([]*model.Job, error) {
	if !lane.IsValid() {
		return nil, store.ErrUnknownLane
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listLocked(lane), nil
}

// GetJob returns a copy of the job together with its lane.
func (c *Controller) GetJob(_ context.Context, id string) (*model.LaneJob, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &model.LaneJob{Lane: e.lane, Job: e.job.Clone()}, nil
}

// ClaimJob moves id from pending to active.
func (c *Controller) ClaimJob(_ context.Context, id, actor string, at time.Time) (*model.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.jobs[id]
	if !ok || e.lane != model.LanePending {
		return nil, store.ErrNotFound
	}
	claimed := at.UTC()
	e.job.ClaimedBy = actor
	e.job.ClaimedAt = &claimed
	c.advance(e)
	return e.job.Clone(), nil
}

// RejectJob removes id from pending. Only the id is kept, so the job can
// never be ingested again.
func (c *Controller) RejectJob(_ context.Context, id string) (*model.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.jobs[id]
	if !ok || e.lane != model.LanePending {
		return nil, store.ErrNotFound
	}
	delete(c.jobs, id)
	c.rejected[id] = struct{}{}
	return e.job, nil
}

// CompleteJob moves id from active to completed, writing completedAt.
func (c *Controller) CompleteJob(_ context.Context, id string, completedAt time.Time) (*model.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.jobs[id]
	if !ok || e.lane != model.LaneActive {
		return nil, store.ErrNotFound
	}
	done := completedAt.UTC()
	e.job.CompletedAt = &done
	c.advance(e)
	return e.job.Clone(), nil
}

// Snapshot returns all three lanes as seen at a single instant.
func (c *Controller) Snapshot(_ context.Context) (*model.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &model.Snapshot{
		TakenAt:   c.now(),
		Pending:   c.listLocked(model.LanePending),
		Active:    c.listLocked(model.LaneActive),
		Completed: c.listLocked(model.LaneCompleted),
	}, nil
}

// RecordEvent appends event to the in-memory log, assigning its id.
func (c *Controller) RecordEvent(_ context.Context, event *model.Event) error {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	c.nextEventID++
	event.ID = c.nextEventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = c.now()
	}
	cp := *event
	c.events = append(c.events, &cp)
	return nil
}

// GetEvents returns every recorded event for jobID, oldest first.
func (c *Controller) GetEvents(_ context.Context, jobID string) ([]*model.Event, error) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	var out []*model.Event
	for _, e := range c.events {
		if e.JobID == jobID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Close is a no-op; the controller holds no external resources.
func (c *Controller) Close() error {
	return nil
}

// advance moves e into the next lane, appending it at the tail.
// Must be called with c.mu held.
func (c *Controller) advance(e *entry) {
	next, ok := e.lane.Next()
	if !ok {
		return
	}
	e.lane = next
	e.seq = c.seq()
}

// seq must be called with c.mu held.
func (c *Controller) seq() uint64 {
	c.nextSeq++
	return c.nextSeq
}

// listLocked must be called with c.mu held (read or write).
func (c *Controller) listLocked(lane model.Lane) []*model.Job {
	matched := make([]*entry, 0, len(c.jobs))
	for _, e := range c.jobs {
		if e.lane == lane {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*model.Job, len(matched))
	for i, e := range matched {
		out[i] = e.job.Clone()
	}
	return out
}
