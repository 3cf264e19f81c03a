package handler

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-box-pipeline/internal/config"
	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/notify"
	"go-box-pipeline/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Runner processes a batch of records.
type Runner interface {
	Run(ctx context.Context, records []model.Record) (*model.BatchResult, error)
}

// Exporter writes the reports of a batch into a directory.
type Exporter interface {
	Export(dir, jobID string, result *model.BatchResult) ([]model.ExportResult, error)
}

// JobStore is the job registry.
type JobStore interface {
	SaveJob(ctx context.Context, jobID, source string) error
	UpdateJobStatus(ctx context.Context, jobID, status string) error
	CompleteJob(ctx context.Context, jobID string, recordCount int, files []string) error
	FailJob(ctx context.Context, jobID string, cause error) error
	ListJobs(ctx context.Context) ([]model.Job, error)
	GetJob(ctx context.Context, jobID string) (model.Job, error)
	GetJobErrors(ctx context.Context, jobID string) ([]model.JobError, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Server   config.ServerConfig
	Outputs  *utils.OutputManager
	Jobs     JobStore
	Runner   Runner
	Exporter Exporter
	Notifier notify.Notifier
	Logger   zerolog.Logger
}

// Handler serves the web front end and the job API.
type Handler struct {
	cfg       config.ServerConfig
	outputs   *utils.OutputManager
	jobs      JobStore
	runner    Runner
	exporter  Exporter
	notifier  notify.Notifier
	logger    zerolog.Logger
	templates *template.Template
	allowed   map[string]bool
}

// New creates a handler.
func New(d Deps) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	allowed := make(map[string]bool, len(d.Server.AllowedExtensions))
	for _, ext := range d.Server.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Handler{
		cfg:       d.Server,
		outputs:   d.Outputs,
		jobs:      d.Jobs,
		runner:    d.Runner,
		exporter:  d.Exporter,
		notifier:  notifier,
		logger:    d.Logger,
		templates: tmpl,
		allowed:   allowed,
	}, nil
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// allowedFile reports whether name has an allowed image extension.
func (h *Handler) allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && h.allowed[ext]
}

// startJob registers a new running job.
func (h *Handler) startJob(ctx context.Context, source string) (string, error) {
	jobID := uuid.New().String()
	if err := h.jobs.SaveJob(ctx, jobID, source); err != nil {
		return "", err
	}
	if err := h.jobs.UpdateJobStatus(ctx, jobID, model.JobStatusRunning); err != nil {
		return "", err
	}
	return jobID, nil
}

// failJob records cause against the job and publishes the failure.
func (h *Handler) failJob(ctx context.Context, jobID string, cause error) {
	if err := h.jobs.FailJob(ctx, jobID, cause); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to record job failure")
	}
	h.publish(ctx, jobID, nil, cause)
}

// completeJob marks the job completed and publishes the completion.
func (h *Handler) completeJob(ctx context.Context, jobID string, result *model.BatchResult, files []string) {
	if err := h.jobs.CompleteJob(ctx, jobID, len(result.Records), files); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to complete job")
	}
	h.publish(ctx, jobID, result.Statistics, nil)
}

func (h *Handler) publish(ctx context.Context, jobID string, st *model.TimingStatistics, cause error) {
	job, err := h.jobs.GetJob(ctx, jobID)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("job event skipped")
		return
	}
	if err := h.notifier.Notify(ctx, notify.NewEvent(job, st, cause)); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("job event not delivered")
	}
}
