package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager lays out per-job output directories under a base directory.
type OutputManager struct {
	BaseOutputDir string
}

// OutputFile describes a generated file for API responses.
type OutputFile struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateJobOutputDir creates the directory holding a job's outputs.
func (om *OutputManager) CreateJobOutputDir(jobID string) (string, error) {
	if !validJobID(jobID) {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	jobDir := filepath.Join(om.BaseOutputDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job output directory: %w", err)
	}
	return jobDir, nil
}

// ResolveFile returns the path of an existing output file of a job. Path
// components in fileName are discarded.
func (om *OutputManager) ResolveFile(jobID, fileName string) (string, error) {
	if !validJobID(jobID) {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	clean := filepath.Base(fileName)
	if clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	path := filepath.Join(om.BaseOutputDir, jobID, clean)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", clean)
	}
	return path, nil
}

// GetDownloadURL generates a download URL for a file
func (om *OutputManager) GetDownloadURL(jobID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", jobID, filepath.Base(fileName))
}

// Describe builds the API description of a generated file.
func (om *OutputManager) Describe(jobID, path string) OutputFile {
	name := filepath.Base(path)
	f := OutputFile{
		Name:        name,
		Type:        GetFileType(name),
		DownloadURL: om.GetDownloadURL(jobID, name),
	}
	if info, err := os.Stat(path); err == nil {
		f.Size = info.Size()
	}
	return f
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0o755)
}

// GetFileType determines the file type based on extension
func GetFileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}

func validJobID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
