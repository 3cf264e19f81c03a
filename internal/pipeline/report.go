package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-box-pipeline/internal/model"
	"go-box-pipeline/pkg/utils"
)

// ------------------- Reports -------------------

// RenderTable writes the result table as CSV. Image payloads are never
// written.
func RenderTable(w io.Writer, records []model.EnrichedRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(model.OutputColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, rec := range records {
		row := []string{
			rec.ID,
			rec.ImageURL,
			utils.FormatNumber(rec.Height),
			utils.FormatNumber(rec.Weight),
			utils.FormatNumber(rec.Breadth),
			strconv.FormatFloat(rec.SurfaceArea, 'f', 2, 64),
			strconv.FormatFloat(rec.Capacity, 'f', 2, 64),
			strconv.FormatFloat(rec.ProcessingTime, 'f', 3, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderNarrative writes the Markdown report: a table with inline images,
// the timing statistics and a per-box section.
func RenderNarrative(w io.Writer, records []model.EnrichedRecord, st *model.TimingStatistics) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
		bw.WriteByte('\n')
	}

	p("# Box Processing Results")
	p("")
	p("This report contains the processing results for box dimensions, including surface area and capacity calculations.")
	p("")

	p("## Box Data and Images")
	p("")
	p("| Image ID | Image | Surface Area (sq units) | Capacity (cubic units) | Processing Time (s) |")
	p("|----------|-------|--------------------------|-------------------------|---------------------|")
	for _, rec := range records {
		p("| %s | %s | %.2f | %.2f | %.3f |", escapeCell(rec.ID), escapeCell(imageCell(rec)), rec.SurfaceArea, rec.Capacity, rec.ProcessingTime)
	}
	p("")

	p("## Processing Time Statistics")
	p("")
	if st == nil {
		p("_No timing data available._")
	} else {
		p("| Metric | Value (seconds) |")
		p("|--------|-----------------|")
		p("| Count | %d |", st.Count)
		p("| Average | %.3f |", st.Average)
		p("| Median | %.3f |", st.Median)
		p("| Minimum | %.3f |", st.Min)
		p("| Maximum | %.3f |", st.Max)
		p("| Standard Deviation | %.3f |", st.StdDev)
		p("| 90th Percentile (P90) | %.3f |", st.P90)
		p("| 99th Percentile (P99) | %.3f |", st.P99)
	}
	p("")

	p("## Detailed Box Information")
	p("")
	for _, rec := range records {
		p("### Box %s", rec.ID)
		p("")
		p("- **Image URL**: %s", rec.ImageURL)
		p("- **Dimensions**: %s × %s × %s",
			utils.FormatNumber(rec.Height), utils.FormatNumber(rec.Weight), utils.FormatNumber(rec.Breadth))
		p("- **Surface Area**: %.2f square units", rec.SurfaceArea)
		p("- **Capacity**: %.2f cubic units", rec.Capacity)
		p("- **Processing Time**: %.3f seconds", rec.ProcessingTime)
		p("")
	}

	return bw.Flush()
}

func imageCell(rec model.EnrichedRecord) string {
	if rec.ImageBase64 != "" {
		return fmt.Sprintf(`<img src="%s" alt="Box %s" width="150" height="auto">`, rec.ImageBase64, rec.ID)
	}
	return fmt.Sprintf("[Image](%s)", rec.ImageURL)
}

// cellEscaper keeps user text inside a single Markdown table cell.
var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// jsonExport is the document written by RenderJSON.
type jsonExport struct {
	JobID       string             `json:"job_id,omitempty"`
	ExportedAt  time.Time          `json:"exported_at"`
	RecordCount int                `json:"record_count"`
	TotalTime   float64            `json:"total_time_seconds"`
	Result      *model.BatchResult `json:"result"`
}

// RenderJSON writes the full batch result, image payloads included, with
// export metadata.
func RenderJSON(w io.Writer, jobID string, result *model.BatchResult, exportedAt time.Time) error {
	doc := jsonExport{
		JobID:      jobID,
		ExportedAt: exportedAt,
		Result:     result,
	}
	if result != nil {
		doc.RecordCount = len(result.Records)
		doc.TotalTime = result.TotalTime.Seconds()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
