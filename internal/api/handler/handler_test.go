package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-box-pipeline/internal/api"
	"go-box-pipeline/internal/api/handler"
	"go-box-pipeline/internal/config"
	"go-box-pipeline/internal/imagefetch"
	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/pipeline"
	"go-box-pipeline/internal/store"
	"go-box-pipeline/pkg/router"
	"go-box-pipeline/pkg/utils"
)

type testEnv struct {
	server    http.Handler
	jobs      *store.Store
	uploadDir string
	outputDir string
	imageURL  string
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	img := pngData(t)
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/box.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	t.Cleanup(images.Close)

	jobs, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	outputDir := t.TempDir()

	h, err := handler.New(handler.Deps{
		Server:   cfg.Server,
		Outputs:  utils.NewOutputManager(outputDir),
		Jobs:     jobs,
		Runner:   pipeline.New(imagefetch.New()),
		Exporter: pipeline.NewExporter(zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	r := router.New(zerolog.Nop())
	api.RegisterRoutes(r, h)

	return &testEnv{
		server:    r,
		jobs:      jobs,
		uploadDir: cfg.Server.UploadDir,
		outputDir: outputDir,
		imageURL:  images.URL + "/box.png",
	}
}

type filePart struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestPages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/process"`)
	assert.Contains(t, rec.Body.String(), "PNG, JPG, JPEG, GIF")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/batch", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="csv_file"`)
}

func TestProcessBox_ImageURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/process", map[string]string{
		"height": "2", "weight": "3", "breadth": "4", "image_url": env.imageURL,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "1", resp.Result.ID)
	assert.InDelta(t, 52.0, resp.Result.SurfaceArea, 1e-9)
	assert.InDelta(t, 24.0, resp.Result.Capacity, 1e-9)
	assert.True(t, strings.HasPrefix(resp.Result.ImageBase64, "data:image/png;base64,"))

	job, err := env.jobs.GetJob(t.Context(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, model.JobSourceForm, job.Source)
	assert.Equal(t, 1, job.RecordCount)
}

func TestProcessBox_UploadedImageIsRemoved(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/process",
		map[string]string{"height": "1", "weight": "1", "breadth": "1"},
		filePart{field: "image_file", name: "../../box photo.PNG", data: pngData(t)},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Result.ImageBase64, "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(resp.Result.ImageURL, imagefetch.LocalPrefix))

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessBox_UnreachableImageStillSucceeds(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/process", map[string]string{
		"height": "1", "weight": "2", "breadth": "3", "image_url": env.imageURL + ".missing",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Result.ImageBase64)
	assert.InDelta(t, 6.0, resp.Result.Capacity, 1e-9)
}

func TestProcessBox_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		fields map[string]string
		files  []filePart
		want   string
	}{
		{
			name:   "non numeric",
			fields: map[string]string{"height": "abc", "weight": "1", "breadth": "1", "image_url": "http://x/y.png"},
			want:   "Please enter valid numeric values for dimensions",
		},
		{
			name:   "missing dimension",
			fields: map[string]string{"height": "1", "breadth": "1", "image_url": "http://x/y.png"},
			want:   "Please enter valid numeric values for dimensions",
		},
		{
			name:   "zero dimension",
			fields: map[string]string{"height": "0", "weight": "1", "breadth": "1", "image_url": "http://x/y.png"},
			want:   "All dimensions must be positive numbers",
		},
		{
			name:   "negative dimension",
			fields: map[string]string{"height": "1", "weight": "-2", "breadth": "1", "image_url": "http://x/y.png"},
			want:   "All dimensions must be positive numbers",
		},
		{
			name:   "no image",
			fields: map[string]string{"height": "1", "weight": "1", "breadth": "1"},
			want:   "Please provide either an image URL or upload an image file",
		},
		{
			name:   "bad extension",
			fields: map[string]string{"height": "1", "weight": "1", "breadth": "1"},
			files:  []filePart{{field: "image_file", name: "box.exe", data: []byte("MZ")}},
			want:   "Invalid file type. Please upload PNG, JPG, JPEG, GIF files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(multipartRequest(t, "/process", tt.fields, tt.files...))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}

	jobs, err := env.jobs.ListJobs(t.Context())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestBatchUpload(t *testing.T) {
	env := newTestEnv(t)

	table := "image_id,image_url,height,weight,breadth\n" +
		"A," + env.imageURL + ",2,3,4\n" +
		"B,http://127.0.0.1:1/none.png,1,1,1\n"
	rec := env.do(multipartRequest(t, "/batch/upload", nil,
		filePart{field: "csv_file", name: "boxes.csv", data: []byte(table)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "A", resp.Results[0].ID)
	assert.NotEmpty(t, resp.Results[0].ImageBase64)
	assert.Equal(t, "B", resp.Results[1].ID)
	assert.Empty(t, resp.Results[1].ImageBase64)
	assert.Len(t, resp.ProcessingTimes, 2)
	require.NotNil(t, resp.Statistics)
	assert.Equal(t, 2, resp.Statistics.Count)

	require.Len(t, resp.Files, 2)
	assert.Equal(t, pipeline.DefaultCSVFile, resp.Files[0].Name)
	assert.Equal(t, "csv", resp.Files[0].Type)
	assert.Equal(t, fmt.Sprintf("/api/v1/download/%s/%s", resp.JobID, pipeline.DefaultCSVFile), resp.Files[0].DownloadURL)
	assert.FileExists(t, filepath.Join(env.outputDir, resp.JobID, pipeline.DefaultMarkdownFile))

	dl := env.do(httptest.NewRequest(http.MethodGet, resp.Files[0].DownloadURL, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "image_id,image_url,height,weight,breadth,surface_area,capacity,processing_time\nA,"))
	assert.NotContains(t, string(body), "base64")

	job, err := env.jobs.GetJob(t.Context(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{pipeline.DefaultCSVFile, pipeline.DefaultMarkdownFile}, job.Files)
}

func TestBatchUpload_Malformed(t *testing.T) {
	env := newTestEnv(t)

	table := "image_id,image_url,height,weight,breadth\nA,u,2,x,4\n"
	rec := env.do(multipartRequest(t, "/batch/upload", nil,
		filePart{field: "csv_file", name: "boxes.csv", data: []byte(table)}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), `row 1, column "weight"`)

	jobs, err := env.jobs.ListJobs(t.Context())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)

	errRec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobs[0].ID+"/errors", nil))
	require.Equal(t, http.StatusOK, errRec.Code)
	var jobErrors []model.JobError
	require.NoError(t, json.Unmarshal(errRec.Body.Bytes(), &jobErrors))
	require.Len(t, jobErrors, 1)
	assert.Contains(t, jobErrors[0].Message, "weight")
}

func TestBatchUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/batch/upload", map[string]string{"other": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No CSV file uploaded", errorMessage(t, rec))

	rec = env.do(multipartRequest(t, "/batch/upload", nil,
		filePart{field: "csv_file", name: "boxes.txt", data: []byte("a,b\n")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload a valid CSV file", errorMessage(t, rec))
}

func TestJobsAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown/errors", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/download/unknown/processed_boxes.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ok := env.do(multipartRequest(t, "/process", map[string]string{
		"height": "1", "weight": "1", "breadth": "1", "image_url": env.imageURL,
	}))
	require.Equal(t, http.StatusOK, ok.Code)
	var resp handler.ProcessResponse
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &resp))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+resp.JobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var job model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, resp.JobID, job.ID)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestSwaggerDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/process")
	assert.Contains(t, paths, "/batch/upload")
}
