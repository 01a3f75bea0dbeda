package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Value // []byte
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func (d *mockDestination) String() string { return d.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(seededLanes(t), []Destination{dest}, 20*time.Millisecond, discardLogger())
	sched.Start()

	// Initial sync plus several unchanged ticks.
	time.Sleep(100 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes != 1 {
		t.Fatalf("expected 1 write while lanes were unchanged, got %d", writes)
	}
	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// 1 header + 4 jobs
	if lines := nonEmptyLines(string(data)); len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(seededLanes(t), nil, time.Minute, discardLogger())
	sched.Stop()
}

func TestSchedulerWritesOnlyAfterLaneChange(t *testing.T) {
	lanes := seededLanes(t)
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(lanes, []Destination{dest}, time.Minute, discardLogger())
	ctx := context.Background()

	for range 3 {
		if err := sched.SyncNow(ctx); err != nil {
			t.Fatalf("SyncNow: %v", err)
		}
	}
	if got := dest.writes.Load(); got != 1 {
		t.Fatalf("writes = %d after unchanged syncs, want 1", got)
	}

	if _, err := lanes.CompleteJob(ctx, "y", time.Now().UTC()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := sched.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if got := dest.writes.Load(); got != 2 {
		t.Fatalf("writes = %d after a lane move, want 2", got)
	}
}

func TestSchedulerFailingDestinationDoesNotStopOthers(t *testing.T) {
	bad := &mockDestination{name: "bad", err: errors.New("bucket gone")}
	good := &mockDestination{name: "good"}

	sched := NewScheduler(seededLanes(t), []Destination{bad, good}, time.Minute, discardLogger())
	err := sched.SyncNow(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad: bucket gone") {
		t.Fatalf("SyncNow error = %v, want the bad destination named", err)
	}
	if bad.writes.Load() != 1 || good.writes.Load() != 1 {
		t.Fatalf("writes bad=%d good=%d, want 1 each", bad.writes.Load(), good.writes.Load())
	}

	// The failed destination is retried; the good one is already current.
	_ = sched.SyncNow(context.Background())
	if bad.writes.Load() != 2 || good.writes.Load() != 1 {
		t.Fatalf("after retry writes bad=%d good=%d, want 2 and 1", bad.writes.Load(), good.writes.Load())
	}
}

func TestSchedulerExportErrorSkipsDestinations(t *testing.T) {
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(failingSnapshotter{}, []Destination{dest}, time.Minute, discardLogger())
	if err := sched.SyncNow(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	if dest.writes.Load() != 0 {
		t.Fatalf("expected no writes after export failure, got %d", dest.writes.Load())
	}
}

func TestFingerprintIgnoresHeader(t *testing.T) {
	body := `{"type":"job","lane":"pending","data":{"id":"a"}}` + "\n"
	a := fingerprint([]byte(`{"type":"header","taken_at":"2025-01-24T09:00:00Z"}` + "\n" + body))
	b := fingerprint([]byte(`{"type":"header","taken_at":"2025-01-24T10:00:00Z"}` + "\n" + body))
	if a != b {
		t.Error("snapshot time changed the fingerprint")
	}
	c := fingerprint([]byte(`{"type":"header"}` + "\n" + strings.Replace(body, "pending", "active", 1)))
	if a == c {
		t.Error("lane change did not change the fingerprint")
	}
}

func TestCommitMessage(t *testing.T) {
	for _, tc := range []struct{ data, want string }{
		{`{"type":"header","pending_count":2,"active_count":1,"completed_count":4}` + "\n", "sync: lanes snapshot (2 pending, 1 active, 4 completed)"},
		{"not json\n", "sync: update lanes snapshot"},
		{`{"type":"job"}` + "\n", "sync: update lanes snapshot"},
	} {
		if got := commitMessage([]byte(tc.data)); got != tc.want {
			t.Errorf("commitMessage(%q) = %q, want %q", tc.data, got, tc.want)
		}
	}
}
