package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputManager(t *testing.T) {
	base := filepath.Join(t.TempDir(), "output")
	om := NewOutputManager(base)
	require.NoError(t, om.EnsureOutputDirExists())

	dir, err := om.CreateJobOutputDir("job-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "job-1"), dir)
	assert.DirExists(t, dir)

	path := filepath.Join(dir, "processed_boxes.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))

	resolved, err := om.ResolveFile("job-1", "processed_boxes.csv")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	f := om.Describe("job-1", path)
	assert.Equal(t, OutputFile{
		Name:        "processed_boxes.csv",
		Type:        "csv",
		Size:        4,
		DownloadURL: "/api/v1/download/job-1/processed_boxes.csv",
	}, f)
}

func TestOutputManager_Rejects(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	_, err := om.CreateJobOutputDir("../escape")
	assert.Error(t, err)
	_, err = om.CreateJobOutputDir("")
	assert.Error(t, err)

	_, err = om.ResolveFile("job", "missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = om.ResolveFile("..", "x")
	assert.Error(t, err)

	_, err = om.CreateJobOutputDir("job")
	require.NoError(t, err)
	_, err = om.ResolveFile("job", "..")
	assert.Error(t, err)
}

func TestGetFileType(t *testing.T) {
	assert.Equal(t, "csv", GetFileType("a.CSV"))
	assert.Equal(t, "markdown", GetFileType("report.md"))
	assert.Equal(t, "json", GetFileType("results.json"))
	assert.Equal(t, "unknown", GetFileType("image.png"))
}
