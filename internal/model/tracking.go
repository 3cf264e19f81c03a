package model

import "time"

// Job statuses
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job sources
const (
	JobSourceForm  = "form"
	JobSourceBatch = "batch"
	JobSourceCLI   = "cli"
)

// Job is a registry entry for one pipeline invocation.
type Job struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	RecordCount int       `json:"record_count"`
	Files       []string  `json:"files,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobError is an error recorded against a job.
type JobError struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
