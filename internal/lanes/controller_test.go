package lanes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

var scheduled = time.Date(2025, 1, 24, 15, 0, 0, 0, time.UTC)

func job(id, customer, jobType string) *model.Job {
	return &model.Job{ID: id, CustomerName: customer, JobType: jobType, ScheduledAt: scheduled, Location: "Harbor Rd"}
}

func seeded(t *testing.T, jobs ...*model.Job) *Controller {
	t.Helper()
	c, err := Seed(jobs)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return c
}

func laneIDs(t *testing.T, c *Controller, lane model.Lane) []string {
	t.Helper()
	jobs, err := c.ListLane(context.Background(), lane)
	if err != nil {
		t.Fatalf("ListLane(%s): %v", lane, err)
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

func requireIDs(t *testing.T, c *Controller, lane model.Lane, want ...string) {
	t.Helper()
	got := laneIDs(t, c, lane)
	if len(got) != len(want) {
		t.Fatalf("lane %s = %v, want %v", lane, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lane %s = %v, want %v", lane, got, want)
		}
	}
}

// requireExclusive asserts that no id appears in more than one lane.
func requireExclusive(t *testing.T, c *Controller) {
	t.Helper()
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	seen := map[string]model.Lane{}
	for _, lane := range model.Lanes {
		for _, j := range snap.Lane(lane) {
			if prev, ok := seen[j.ID]; ok {
				t.Fatalf("job %s present in both %s and %s", j.ID, prev, lane)
			}
			seen[j.ID] = lane
		}
	}
}

func TestLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))

	claimed, err := c.ClaimJob(ctx, "1", "w1", scheduled)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if claimed.ID != "1" || claimed.CustomerName != "Rose" || claimed.ClaimedBy != "w1" {
		t.Errorf("claimed = %+v", claimed)
	}
	requireIDs(t, c, model.LanePending)
	requireIDs(t, c, model.LaneActive, "1")

	done := time.Date(2025, 1, 24, 17, 0, 0, 0, time.UTC)
	completed, err := c.CompleteJob(ctx, "1", done)
	if err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if completed.CompletedAt == nil || !completed.CompletedAt.Equal(done) {
		t.Errorf("completed_at = %v, want %v", completed.CompletedAt, done)
	}
	requireIDs(t, c, model.LaneActive)
	requireIDs(t, c, model.LaneCompleted, "1")

	got, err := c.ListLane(ctx, model.LaneCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].JobType != "cleaning" || !got[0].CompletedAt.Equal(done) {
		t.Errorf("completed record = %+v", got[0])
	}
}

func TestClaimJob_NotInPending(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"), job("2", "Ann", "repair"))
	if _, err := c.ClaimJob(ctx, "2", "w1", scheduled); err != nil {
		t.Fatal(err)
	}
	before, _ := c.Snapshot(ctx)

	for _, id := range []string{"missing", "2"} {
		if _, err := c.ClaimJob(ctx, id, "w1", scheduled); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("ClaimJob(%q) err = %v, want ErrNotFound", id, err)
		}
	}

	after, _ := c.Snapshot(ctx)
	if after.Len() != before.Len() || len(after.Pending) != 1 || len(after.Active) != 1 {
		t.Errorf("lanes changed on failed claim: before=%+v after=%+v", before, after)
	}
}

func TestClaimJob_RetryIsNotDuplicated(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	if _, err := c.ClaimJob(ctx, "1", "w1", scheduled); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ClaimJob(ctx, "1", "w1", scheduled); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second ClaimJob err = %v, want ErrNotFound", err)
	}
	requireIDs(t, c, model.LaneActive, "1")
}

func TestRejectJob(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"), job("2", "Ann", "repair"))

	rejected, err := c.RejectJob(ctx, "1")
	if err != nil {
		t.Fatalf("RejectJob: %v", err)
	}
	if rejected.ID != "1" {
		t.Errorf("rejected id = %q", rejected.ID)
	}
	for _, lane := range model.Lanes {
		for _, id := range laneIDs(t, c, lane) {
			if id == "1" {
				t.Fatalf("rejected job still in %s", lane)
			}
		}
	}
	if _, err := c.ClaimJob(ctx, "1", "w1", scheduled); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ClaimJob after reject err = %v", err)
	}
	if _, err := c.CompleteJob(ctx, "1", scheduled); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CompleteJob after reject err = %v", err)
	}
	if _, err := c.RejectJob(ctx, "1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second RejectJob err = %v", err)
	}
	if _, err := c.GetJob(ctx, "1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetJob after reject err = %v", err)
	}
}

func TestRejectJob_IsFinal(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"), job("2", "Ann", "repair"))
	if _, err := c.RejectJob(ctx, "1"); err != nil {
		t.Fatalf("RejectJob: %v", err)
	}

	if err := c.IngestJob(ctx, job("1", "Rose", "cleaning")); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("re-ingest err = %v, want ErrAlreadyExists", err)
	}
	if _, err := c.ClaimJob(ctx, "1", "w1", scheduled); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ClaimJob after re-ingest err = %v, want ErrNotFound", err)
	}
	requireIDs(t, c, model.LanePending, "2")
}

func TestRejectJob_OnlyFromPending(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	if _, err := c.ClaimJob(ctx, "1", "w1", scheduled); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RejectJob(ctx, "1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("RejectJob on active err = %v, want ErrNotFound", err)
	}
	requireIDs(t, c, model.LaneActive, "1")
}

func TestCompleteJob_NoSkipFromPending(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	if _, err := c.CompleteJob(ctx, "1", scheduled); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("CompleteJob on pending err = %v, want ErrNotFound", err)
	}
	requireIDs(t, c, model.LanePending, "1")
	requireIDs(t, c, model.LaneCompleted)
}

func TestCompleteJob_WritesCompletedAtOnce(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	c.ClaimJob(ctx, "1", "w1", scheduled) //nolint:errcheck

	first := scheduled.Add(2 * time.Hour)
	if _, err := c.CompleteJob(ctx, "1", first); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CompleteJob(ctx, "1", first.Add(time.Hour)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second CompleteJob err = %v", err)
	}
	lj, err := c.GetJob(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if lj.Lane != model.LaneCompleted || !lj.Job.CompletedAt.Equal(first) {
		t.Errorf("got lane=%s completed_at=%v", lj.Lane, lj.Job.CompletedAt)
	}
}

func TestListLane_PreservesArrivalOrder(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("a", "A", "t"), job("b", "B", "t"), job("c", "C", "t"))
	requireIDs(t, c, model.LanePending, "a", "b", "c")

	// Claim out of order; active reflects claim order, not seed order.
	c.ClaimJob(ctx, "c", "w", scheduled) //nolint:errcheck
	c.ClaimJob(ctx, "a", "w", scheduled) //nolint:errcheck
	requireIDs(t, c, model.LanePending, "b")
	requireIDs(t, c, model.LaneActive, "c", "a")
}

func TestListLane_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	jobs, _ := c.ListLane(ctx, model.LanePending)
	jobs[0].CustomerName = "Mallory"

	again, _ := c.ListLane(ctx, model.LanePending)
	if again[0].CustomerName != "Rose" {
		t.Fatalf("caller mutation leaked into lane: %q", again[0].CustomerName)
	}
}

func TestListLane_UnknownLane(t *testing.T) {
	c := New()
	if _, err := c.ListLane(context.Background(), model.Lane("rejected")); !errors.Is(err, store.ErrUnknownLane) {
		t.Fatalf("err = %v, want ErrUnknownLane", err)
	}
}

func TestIngestJob_Duplicate(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, job("1", "Rose", "cleaning"))
	c.ClaimJob(ctx, "1", "w", scheduled) //nolint:errcheck

	if err := c.IngestJob(ctx, job("1", "Rose", "cleaning")); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	requireExclusive(t, c)
}

func TestIngestJob_Invalid(t *testing.T) {
	c := New()
	var ve *model.ValidationError
	if err := c.IngestJob(context.Background(), &model.Job{ID: "x"}); !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestClaimJob_ConcurrentExactlyOne(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 50; round++ {
		c := seeded(t, job("1", "Rose", "cleaning"))

		const racers = 8
		var (
			wg       sync.WaitGroup
			start    = make(chan struct{})
			wins     atomic.Int32
			notFound atomic.Int32
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := c.ClaimJob(ctx, "1", "w", scheduled)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, store.ErrNotFound):
					notFound.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if wins.Load() != 1 || notFound.Load() != racers-1 {
			t.Fatalf("round %d: wins=%d notFound=%d", round, wins.Load(), notFound.Load())
		}
		requireIDs(t, c, model.LaneActive, "1")
		requireIDs(t, c, model.LanePending)
	}
}

func TestMixedConcurrentMoves_KeepExclusivity(t *testing.T) {
	ctx := context.Background()
	var jobs []*model.Job
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		jobs = append(jobs, job(id, "C", "t"))
	}
	c := seeded(t, jobs...)

	var wg sync.WaitGroup
	for _, j := range jobs {
		id := j.ID
		wg.Add(3)
		go func() { defer wg.Done(); _, _ = c.ClaimJob(ctx, id, "w", scheduled) }()
		go func() { defer wg.Done(); _, _ = c.RejectJob(ctx, id) }()
		go func() { defer wg.Done(); _, _ = c.CompleteJob(ctx, id, scheduled) }()
	}
	wg.Wait()
	requireExclusive(t, c)

	snap, _ := c.Snapshot(ctx)
	if len(snap.Pending) != 0 {
		t.Errorf("pending should be drained by claim or reject, got %d", len(snap.Pending))
	}
}

func TestEvents_RecordAndFilter(t *testing.T) {
	ctx := context.Background()
	c := New()
	for _, id := range []string{"1", "2", "1"} {
		if err := c.RecordEvent(ctx, &model.Event{Topic: "jobs.job.claimed", JobID: id}); err != nil {
			t.Fatal(err)
		}
	}
	evts, err := c.GetEvents(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 || evts[0].ID != 1 || evts[1].ID != 3 {
		t.Fatalf("events = %+v", evts)
	}
}
