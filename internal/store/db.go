// Package store keeps the job registry: one row per pipeline invocation and
// the errors recorded against it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-box-pipeline/internal/model"
)

// DefaultDSN keeps the registry in memory for the life of the process.
const DefaultDSN = "file::memory:?cache=shared"

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	source TEXT,
	status TEXT,
	record_count INTEGER DEFAULT 0,
	files TEXT DEFAULT '[]',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS job_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	error_message TEXT,
	created_at DATETIME
);
`

// Store is a sqlite-backed job registry.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to dsn and creates the tables if needed. An empty dsn uses
// DefaultDSN.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	// A shared in-memory database lives only while a connection is open.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create job tables: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob stores a new pending job.
func (s *Store) SaveJob(ctx context.Context, jobID, source string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, source, model.JobStatusPending, now, now)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", jobID, err)
	}
	return nil
}

// UpdateJobStatus updates job status
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	return s.update(ctx, jobID, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status)
}

// CompleteJob marks a job completed with its record count and output files.
func (s *Store) CompleteJob(ctx context.Context, jobID string, recordCount int, files []string) error {
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, record_count = ?, files = ?, updated_at = ? WHERE id = ?`,
		model.JobStatusCompleted, recordCount, string(filesJSON), now, jobID)
	return checkUpdated(res, err, jobID)
}

// FailJob marks a job failed and records the cause.
func (s *Store) FailJob(ctx context.Context, jobID string, cause error) error {
	if err := s.UpdateJobStatus(ctx, jobID, model.JobStatusFailed); err != nil {
		return err
	}
	return s.SaveJobError(ctx, jobID, cause)
}

// SaveJobError records an error for a job
func (s *Store) SaveJobError(ctx context.Context, jobID string, cause error) error {
	if cause == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_errors (job_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, cause.Error(), s.now())
	if err != nil {
		return fmt.Errorf("failed to save error for job %s: %w", jobID, err)
	}
	return nil
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, record_count, files, created_at, updated_at FROM jobs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, record_count, files, created_at, updated_at FROM jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, err
}

// GetJobErrors returns the errors recorded for a job, oldest first.
func (s *Store) GetJobErrors(ctx context.Context, jobID string) ([]model.JobError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, error_message, created_at FROM job_errors WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job errors: %w", err)
	}
	defer rows.Close()

	errs := []model.JobError{}
	for rows.Next() {
		var e model.JobError
		if err := rows.Scan(&e.ID, &e.JobID, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

func (s *Store) update(ctx context.Context, jobID, query, status string) error {
	res, err := s.db.ExecContext(ctx, query, status, s.now(), jobID)
	return checkUpdated(res, err, jobID)
}

func checkUpdated(res sql.Result, err error, jobID string) error {
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (model.Job, error) {
	var (
		job   model.Job
		files string
	)
	if err := row.Scan(&job.ID, &job.Source, &job.Status, &job.RecordCount, &files, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return job, err
	}
	if files != "" {
		if err := json.Unmarshal([]byte(files), &job.Files); err != nil {
			return job, fmt.Errorf("failed to decode files of job %s: %w", job.ID, err)
		}
	}
	return job, nil
}
