package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go-box-pipeline/internal/imagefetch"
	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/pipeline"
	"go-box-pipeline/pkg/utils"
)

// Messages returned by the form endpoints.
const (
	msgNotNumeric     = "Please enter valid numeric values for dimensions"
	msgNoImage        = "Please provide either an image URL or upload an image file"
	msgBadImageType   = "Invalid file type. Please upload %s files"
	msgNoCSV          = "No CSV file uploaded"
	msgNoFileSelected = "No file selected"
	msgBadCSV         = "Please upload a valid CSV file"
	msgTooLarge       = "Request body too large"
)

// ProcessResponse is returned by ProcessBox.
type ProcessResponse struct {
	JobID  string               `json:"job_id"`
	Result model.EnrichedRecord `json:"result"`
}

// BatchResponse is returned by BatchUpload.
type BatchResponse struct {
	JobID           string                  `json:"job_id"`
	Results         []model.EnrichedRecord  `json:"results"`
	ProcessingTimes []float64               `json:"processing_times"`
	Statistics      *model.TimingStatistics `json:"statistics,omitempty"`
	Files           []utils.OutputFile      `json:"files"`
}

// ProcessBox processes a single box submitted from the form.
// @Summary Process one box
// @Description Computes surface area and capacity of one box and embeds its image, given either an image URL or an uploaded image file.
// @Tags boxes
// @Accept multipart/form-data
// @Produce json
// @Param height formData number true "Box height"
// @Param weight formData number true "Box width"
// @Param breadth formData number true "Box breadth"
// @Param image_url formData string false "Image URL"
// @Param image_file formData file false "Image file (png, jpg, jpeg, gif)"
// @Success 200 {object} ProcessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /process [post]
func (h *Handler) ProcessBox(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	var dims [3]float64
	for i, field := range []string{model.ColumnHeight, model.ColumnWeight, model.ColumnBreadth} {
		v, ok := utils.ParseNumber(r.FormValue(field))
		if !ok {
			writeError(w, http.StatusBadRequest, msgNotNumeric)
			return
		}
		dims[i] = v
	}
	if err := pipeline.ValidateDimensions(dims[0], dims[1], dims[2]); err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imageRef := strings.TrimSpace(r.FormValue("image_url"))
	file, header, err := r.FormFile("image_file")
	if err == nil {
		defer file.Close()
	}
	if err == nil && header.Filename != "" {
		if !h.allowedFile(header.Filename) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf(msgBadImageType, h.page().AllowedExtensions))
			return
		}
		path, cleanup, saveErr := h.saveUpload(file, header)
		if saveErr != nil {
			h.logger.Error().Err(saveErr).Msg("failed to store upload")
			writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}
		defer cleanup()
		imageRef = imagefetch.LocalPrefix + path
	}
	if imageRef == "" {
		writeError(w, http.StatusBadRequest, msgNoImage)
		return
	}

	ctx := r.Context()
	jobID, err := h.startJob(ctx, model.JobSourceForm)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to register job")
		writeError(w, http.StatusInternalServerError, "Failed to save job")
		return
	}

	record := model.Record{ID: "1", ImageURL: imageRef, Height: dims[0], Weight: dims[1], Breadth: dims[2]}
	result, err := h.runner.Run(ctx, []model.Record{record})
	if err != nil {
		h.failJob(ctx, jobID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		return
	}
	if len(result.Records) != 1 {
		err := errors.New("no data processed")
		h.failJob(ctx, jobID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.completeJob(ctx, jobID, result, nil)
	writeJSON(w, http.StatusOK, ProcessResponse{JobID: jobID, Result: result.Records[0]})
}

// BatchUpload processes an uploaded CSV file.
// @Summary Process a CSV of boxes
// @Description Runs every row of the uploaded table through the pipeline and writes the CSV and Markdown reports to the job's output directory.
// @Tags boxes
// @Accept multipart/form-data
// @Produce json
// @Param csv_file formData file true "CSV with image_id, image_url, height, weight, breadth"
// @Success 200 {object} BatchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /batch/upload [post]
func (h *Handler) BatchUpload(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoCSV)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, msgNoFileSelected)
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, msgBadCSV)
		return
	}

	ctx := r.Context()
	jobID, err := h.startJob(ctx, model.JobSourceBatch)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to register job")
		writeError(w, http.StatusInternalServerError, "Failed to save job")
		return
	}

	records, err := pipeline.ReadRecords(file)
	if err != nil {
		h.failJob(ctx, jobID, err)
		var malformed *pipeline.MalformedInputError
		if errors.As(err, &malformed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error processing batch file: %v", err))
		return
	}

	result, err := h.runner.Run(ctx, records)
	if err != nil {
		h.failJob(ctx, jobID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing batch file: %v", err))
		return
	}

	dir, err := h.outputs.CreateJobOutputDir(jobID)
	if err != nil {
		h.failJob(ctx, jobID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create output directory")
		return
	}

	exports, exportErr := h.exporter.Export(dir, jobID, result)
	files := []utils.OutputFile{}
	var names []string
	for _, e := range exports {
		if e.Success {
			files = append(files, h.outputs.Describe(jobID, e.Path))
			names = append(names, filepath.Base(e.Path))
		}
	}
	if exportErr != nil {
		h.failJob(ctx, jobID, exportErr)
		writeError(w, http.StatusInternalServerError, "Failed to write reports")
		return
	}

	h.completeJob(ctx, jobID, result, names)
	writeJSON(w, http.StatusOK, BatchResponse{
		JobID:           jobID,
		Results:         result.Records,
		ProcessingTimes: result.ProcessingTimes,
		Statistics:      result.Statistics,
		Files:           files,
	})
}

// parseMultipart enforces the request size limit and parses the form. It
// writes the error response itself and reports whether to continue.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxContentLength)
	if err := r.ParseMultipartForm(h.cfg.MaxContentLength); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return false
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "Invalid form data")
			return false
		}
		// Plain url-encoded forms are accepted for the single box endpoint.
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form data")
			return false
		}
	}
	return true
}

// saveUpload copies an uploaded image to a temp file under the upload
// directory. The returned cleanup removes it.
func (h *Handler) saveUpload(file multipart.File, header *multipart.FileHeader) (string, func(), error) {
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := utils.SanitizeFilename(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	tmp, err := os.CreateTemp(h.cfg.UploadDir, "upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}

	abs, err := filepath.Abs(tmp.Name())
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return abs, cleanup, nil
}
