package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanLaneJob scans a single row into a model.LaneJob.
// The row must contain columns in the order defined by jobColumns.
func scanLaneJob(row scannable) (*model.LaneJob, error) {
	var (
		j           model.Job
		lane        string
		location    sql.NullString
		notes       sql.NullString
		claimedBy   sql.NullString
		claimedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&j.ID,
		&lane,
		&j.CustomerName,
		&j.JobType,
		&j.ScheduledAt,
		&location,
		&notes,
		&j.CreatedAt,
		&claimedBy,
		&claimedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Location = location.String
	j.Notes = notes.String
	j.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		t := claimedAt.Time
		j.ClaimedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}

	return &model.LaneJob{Lane: model.Lane(lane), Job: &j}, nil
}

// scanJob scans a row and drops the lane tag.
func scanJob(row scannable) (*model.Job, error) {
	lj, err := scanLaneJob(row)
	if err != nil {
		return nil, err
	}
	return lj.Job, nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var evts []*model.Event
	for rows.Next() {
		var (
			e       model.Event
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Topic, &e.JobID, &e.Actor, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			e.Payload = json.RawMessage(payload)
		}
		evts = append(evts, &e)
	}
	return evts, rows.Err()
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound[T any](v T, err error) (T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, store.ErrNotFound
	}
	return v, err
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTimePtr converts a *time.Time to a SQL NULL-able time.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonbBytes returns nil for empty payloads so the column default applies.
func jsonbBytes(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
