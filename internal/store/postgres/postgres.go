// Package postgres implements the store.Store interface backed by PostgreSQL.
//
// Each lane move is a single conditional UPDATE (or DELETE) guarded by the
// source lane, so concurrent movers of the same id are serialized by the row
// lock and all but one see zero rows.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection pool limits. Lane moves are short single statements, so a
// small pool serves many workers.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connectTimeout  = 10 * time.Second
)

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

// New connects to databaseURL and applies pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("postgres lanes ready", "schema_version", version)

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already-open database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// migrateUp applies the embedded migrations and returns the schema version.
func migrateUp(db *sql.DB) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "jobs_schema_migrations"})
	if err != nil {
		return 0, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) IngestJob(ctx context.Context, job *model.Job) error {
	if err := model.ValidateJob(job); err != nil {
		return err
	}
	return queryIngestJob(ctx, s.db, job)
}

func (s *PostgresStore) ListLane(ctx context.Context, lane model.Lane) ([]*model.Job, error) {
	if !lane.IsValid() {
		return nil, store.ErrUnknownLane
	}
	return queryListLane(ctx, s.db, lane)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.LaneJob, error) {
	return notFound(queryGetJob(ctx, s.db, id))
}

func (s *PostgresStore) ClaimJob(ctx context.Context, id, actor string, at time.Time) (*model.Job, error) {
	return notFound(queryClaimJob(ctx, s.db, id, actor, at))
}

func (s *PostgresStore) RejectJob(ctx context.Context, id string) (*model.Job, error) {
	return notFound(queryRejectJob(ctx, s.db, id))
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id string, completedAt time.Time) (*model.Job, error) {
	return notFound(queryCompleteJob(ctx, s.db, id, completedAt))
}

func (s *PostgresStore) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	return querySnapshot(ctx, s.db)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, jobID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, jobID)
}
