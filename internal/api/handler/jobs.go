package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go-box-pipeline/internal/store"
)

// pathParam returns the n-th segment after prefix, or "".
func pathParam(path, prefix string, n int) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}

// ListJobs retrieves all jobs
// @Summary List jobs
// @Description Get every registered job, newest first
// @Tags jobs
// @Produce json
// @Success 200 {array} model.Job
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list jobs")
		writeError(w, http.StatusInternalServerError, "Failed to fetch jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetJob retrieves a specific job
// @Summary Get job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} model.Job
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := pathParam(r.URL.Path, "/api/v1/jobs/", 0)
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		h.jobLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetJobErrors retrieves the errors recorded for a job
// @Summary Get job errors
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {array} model.JobError
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/jobs/{id}/errors [get]
func (h *Handler) GetJobErrors(w http.ResponseWriter, r *http.Request) {
	jobID := pathParam(r.URL.Path, "/api/v1/jobs/", 0)
	if _, err := h.jobs.GetJob(r.Context(), jobID); err != nil {
		h.jobLookupError(w, err)
		return
	}
	errs, err := h.jobs.GetJobErrors(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to fetch job errors")
		writeError(w, http.StatusInternalServerError, "Failed to fetch job errors")
		return
	}
	writeJSON(w, http.StatusOK, errs)
}

// DownloadFile serves a file for download
// @Summary Download file
// @Description Download a generated report of a job
// @Tags files
// @Produce application/octet-stream
// @Param jobID path string true "Job ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/download/{jobID}/{filename} [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	jobID := pathParam(r.URL.Path, "/api/v1/download/", 0)
	fileName := pathParam(r.URL.Path, "/api/v1/download/", 1)

	path, err := h.outputs.ResolveFile(jobID, fileName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.Debug().Err(err).Str("job_id", jobID).Str("file", fileName).Msg("rejected download")
		}
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

func (h *Handler) jobLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	h.logger.Error().Err(err).Msg("failed to fetch job")
	writeError(w, http.StatusInternalServerError, "Failed to fetch job")
}
