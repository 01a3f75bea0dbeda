package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

// jobColumns is the column list used for SELECT and RETURNING on the jobs table.
const jobColumns = `id, lane, customer_name, job_type, scheduled_at, location, notes,
	created_at, claimed_by, claimed_at, completed_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryIngestJob inserts j into pending. An id already in a lane or
// previously rejected inserts nothing and reports ErrAlreadyExists.
func queryIngestJob(ctx context.Context, db executor, j *model.Job) error {
	createdAt := j.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, lane, customer_name, job_type, scheduled_at, location, notes, created_at
		)
		SELECT $1::text, 'pending', $2::text, $3::text, $4::timestamptz, $5::text, $6::text, $7::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM rejected_jobs WHERE id = $1::text)
		ON CONFLICT (id) DO NOTHING`,
		j.ID,
		j.CustomerName,
		j.JobType,
		j.ScheduledAt,
		j.Location,
		j.Notes,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("ingest job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ingest job: %w", err)
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func queryListLane(ctx context.Context, db executor, lane model.Lane) ([]*model.Job, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE lane = $1 ORDER BY lane_seq ASC`,
		string(lane),
	)
	if err != nil {
		return nil, fmt.Errorf("list lane: %w", err)
	}
	defer rows.Close()

	jobs := []*model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func queryGetJob(ctx context.Context, db executor, id string) (*model.LaneJob, error) {
	row := db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanLaneJob(row)
}

func queryClaimJob(ctx context.Context, db executor, id, actor string, at time.Time) (*model.Job, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE jobs
		SET lane = 'active', lane_seq = nextval('jobs_lane_seq'), claimed_by = $2, claimed_at = $3
		WHERE id = $1 AND lane = 'pending'
		RETURNING `+jobColumns,
		id, nullString(actor), at.UTC(),
	)
	return scanJob(row)
}

// queryRejectJob deletes a pending job and leaves a tombstone in
// rejected_jobs in the same statement.
func queryRejectJob(ctx context.Context, db executor, id string) (*model.Job, error) {
	row := db.QueryRowContext(ctx, `
		WITH removed AS (
			DELETE FROM jobs
			WHERE id = $1 AND lane = 'pending'
			RETURNING `+jobColumns+`
		), tombstone AS (
			INSERT INTO rejected_jobs (id)
			SELECT id FROM removed
			ON CONFLICT (id) DO NOTHING
		)
		SELECT `+jobColumns+` FROM removed`,
		id,
	)
	return scanJob(row)
}

func queryCompleteJob(ctx context.Context, db executor, id string, completedAt time.Time) (*model.Job, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE jobs
		SET lane = 'completed', lane_seq = nextval('jobs_lane_seq'), completed_at = $2
		WHERE id = $1 AND lane = 'active'
		RETURNING `+jobColumns,
		id, completedAt.UTC(),
	)
	return scanJob(row)
}

// querySnapshot reads every lane in one statement so the result reflects a
// single instant.
func querySnapshot(ctx context.Context, db executor) (*model.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY lane_seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer rows.Close()

	snap := &model.Snapshot{
		TakenAt:   time.Now().UTC(),
		Pending:   []*model.Job{},
		Active:    []*model.Job{},
		Completed: []*model.Job{},
	}
	for rows.Next() {
		lj, err := scanLaneJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		switch lj.Lane {
		case model.LanePending:
			snap.Pending = append(snap.Pending, lj.Job)
		case model.LaneActive:
			snap.Active = append(snap.Active, lj.Job)
		case model.LaneCompleted:
			snap.Completed = append(snap.Completed, lj.Job)
		}
	}
	return snap, rows.Err()
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO job_events (topic, job_id, actor, payload)
		VALUES ($1, $2, $3, COALESCE($4::jsonb, '{}'::jsonb))
		RETURNING id, created_at`,
		e.Topic, e.JobID, e.Actor, jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, jobID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, job_id, actor, payload, created_at
		FROM job_events
		WHERE job_id = $1
		ORDER BY id ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
