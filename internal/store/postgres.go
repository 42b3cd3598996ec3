// Package store persists finished work: job records in Postgres and
// dubbed audio assets in object storage.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/imosed/vodub/internal/domain"
)

// ErrJobNotFound is returned when a job record does not exist.
var ErrJobNotFound = errors.New("job record not found")

// OpenPostgres connects and pings.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// EnsureSchema creates the jobs table if needed.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dub_jobs (
			id            TEXT PRIMARY KEY,
			video_id      TEXT NOT NULL,
			target_lang   TEXT NOT NULL,
			status        TEXT NOT NULL,
			error         TEXT NOT NULL DEFAULT '',
			audio_object  TEXT NOT NULL DEFAULT '',
			skipped       INT  NOT NULL DEFAULT 0,
			message       TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`)
	return err
}

// Insert writes a freshly created job.
func (s *JobStore) Insert(ctx context.Context, job domain.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dub_jobs (id, video_id, target_lang, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.VideoID, job.TargetLang, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// Update syncs the job's current state.
func (s *JobStore) Update(ctx context.Context, job domain.Job) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dub_jobs
		SET status = $2, error = $3, audio_object = $4, skipped = $5, message = $6, updated_at = $7
		WHERE id = $1`,
		job.ID, job.Status, job.Error, job.AudioObject, job.Skipped, job.Message, job.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Get loads one job record.
func (s *JobStore) Get(ctx context.Context, id string) (domain.Job, error) {
	var job domain.Job
	err := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, target_lang, status, error, audio_object, skipped, message, created_at, updated_at
		FROM dub_jobs WHERE id = $1`, id,
	).Scan(
		&job.ID, &job.VideoID, &job.TargetLang, &job.Status, &job.Error,
		&job.AudioObject, &job.Skipped, &job.Message, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, err
	}
	return job, nil
}
