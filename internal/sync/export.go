package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
)

// Snapshotter is the part of a store the exporter needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version        string    `json:"version"`
	Type           string    `json:"type"`
	TakenAt        time.Time `json:"taken_at"`
	PendingCount   int       `json:"pending_count"`
	ActiveCount    int       `json:"active_count"`
	CompletedCount int       `json:"completed_count"`
}

// record wraps a single JSONL line with its lane.
type record struct {
	Type string     `json:"type"`
	Lane model.Lane `json:"lane"`
	Data *model.Job `json:"data"`
}

// ExportJSONL writes one consistent snapshot of all three lanes as JSONL to
// w. Pending keeps arrival order; active and completed are sorted by id so
// unchanged lanes produce identical output.
func ExportJSONL(ctx context.Context, s Snapshotter, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot lanes: %w", err)
	}

	for _, jobs := range [][]*model.Job{snap.Active, snap.Completed} {
		sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:        "1",
		Type:           "header",
		TakenAt:        snap.TakenAt.UTC(),
		PendingCount:   len(snap.Pending),
		ActiveCount:    len(snap.Active),
		CompletedCount: len(snap.Completed),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, lane := range model.Lanes {
		for _, j := range snap.Lane(lane) {
			if err := enc.Encode(record{Type: "job", Lane: lane, Data: j}); err != nil {
				return fmt.Errorf("encode job %s: %w", j.ID, err)
			}
		}
	}
	return nil
}
