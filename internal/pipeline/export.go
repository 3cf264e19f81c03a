package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"go-box-pipeline/internal/model"
)

// Default output file names.
const (
	DefaultCSVFile      = "processed_boxes.csv"
	DefaultMarkdownFile = "box_processing_report.md"
	DefaultJSONFile     = "results.json"
)

// Exporter writes the reports of a batch into a directory.
type Exporter struct {
	CSVFile      string
	MarkdownFile string
	JSONFile     string
	WriteJSON    bool

	logger zerolog.Logger
	now    func() time.Time
}

// NewExporter creates an exporter using the default file names and no JSON
// output.
func NewExporter(logger zerolog.Logger) *Exporter {
	return &Exporter{
		CSVFile:      DefaultCSVFile,
		MarkdownFile: DefaultMarkdownFile,
		JSONFile:     DefaultJSONFile,
		logger:       logger,
		now:          time.Now,
	}
}

// Export writes the table, the narrative and, when enabled, the JSON document
// into dir. Every attempted file gets an ExportResult; the returned error
// joins the failures.
func (e *Exporter) Export(dir, jobID string, result *model.BatchResult) ([]model.ExportResult, error) {
	if result == nil {
		return nil, errors.New("nil batch result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	type target struct {
		kind   string
		name   string
		render func(io.Writer) error
	}
	targets := []target{
		{"csv", e.CSVFile, func(w io.Writer) error { return RenderTable(w, result.Records) }},
		{"markdown", e.MarkdownFile, func(w io.Writer) error {
			return RenderNarrative(w, result.Records, result.Statistics)
		}},
	}
	if e.WriteJSON {
		targets = append(targets, target{"json", e.JSONFile, func(w io.Writer) error {
			return RenderJSON(w, jobID, result, e.now().UTC())
		}})
	}

	var (
		results []model.ExportResult
		errs    []error
	)
	for _, t := range targets {
		path := filepath.Join(dir, t.name)
		err := writeFile(path, t.render)

		res := model.ExportResult{
			Type:        t.kind,
			Path:        path,
			RecordCount: len(result.Records),
			Success:     err == nil,
			ExportedAt:  e.now(),
		}
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("export %s: %w", t.kind, err))
			e.logger.Error().Err(err).Str("path", path).Msg("export failed")
		} else {
			e.logger.Info().Str("path", path).Int("records", res.RecordCount).Msgf("%s output saved", t.kind)
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

func writeFile(path string, render func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := render(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
