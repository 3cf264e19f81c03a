package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/pipeline"
)

const summaryBoxWidth = 64

type runSummary struct {
	JobID     string
	Input     string
	Result    *model.BatchResult
	Metrics   pipeline.RunMetrics
	Files     []string
	TotalTime time.Duration
}

func (s runSummary) lines() []string {
	lines := []string{
		fmt.Sprintf("Job:            %s", s.JobID),
		fmt.Sprintf("Input:          %s", s.Input),
		fmt.Sprintf("Boxes:          %d", len(s.Result.Records)),
		fmt.Sprintf("Images loaded:  %d", s.Metrics.ImagesLoaded),
		fmt.Sprintf("Image failures: %d", len(s.Metrics.ImageFailures)),
		fmt.Sprintf("Total time:     %.2f seconds", s.TotalTime.Seconds()),
	}
	if st := s.Result.Statistics; st != nil {
		lines = append(lines, fmt.Sprintf("Per box:        avg %.3fs, median %.3fs, p90 %.3fs", st.Average, st.Median, st.P90))
	}
	return lines
}

func renderRunSummary(w io.Writer, s runSummary) error {
	if isWriterTerminal(w) {
		return renderStyledRunSummary(w, s)
	}
	return renderPlainRunSummary(w, s)
}

func renderPlainRunSummary(w io.Writer, s runSummary) error {
	var b strings.Builder
	b.WriteString("Processing complete\n")
	for _, l := range s.lines() {
		b.WriteString(l + "\n")
	}
	for _, f := range s.Metrics.ImageFailures {
		fmt.Fprintf(&b, "  image %s (%s): %s\n", f.ImageID, f.ImageURL, f.Reason)
	}
	b.WriteString("Files:\n")
	for _, f := range s.Files {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderStyledRunSummary(w io.Writer, s runSummary) error {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	borderStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(summaryBoxWidth)

	var content strings.Builder
	content.WriteString(titleStyle.Render("PROCESSING COMPLETE"))
	content.WriteString("\n\n")
	for _, l := range s.lines() {
		content.WriteString(l + "\n")
	}
	if len(s.Metrics.ImageFailures) > 0 {
		content.WriteString("\n")
		for _, f := range s.Metrics.ImageFailures {
			content.WriteString(warnStyle.Render(fmt.Sprintf("! image %s: %s", f.ImageID, f.Reason)))
			content.WriteString("\n")
		}
	}
	content.WriteString("\n")
	content.WriteString(labelStyle.Render("Files"))
	for _, f := range s.Files {
		content.WriteString("\n  " + f)
	}

	_, err := fmt.Fprintln(w, borderStyle.Render(content.String()))
	return err
}

func statisticsRows(st *model.TimingStatistics) [][2]string {
	return [][2]string{
		{"Count", fmt.Sprintf("%d", st.Count)},
		{"Average", fmt.Sprintf("%.3f", st.Average)},
		{"Median", fmt.Sprintf("%.3f", st.Median)},
		{"Minimum", fmt.Sprintf("%.3f", st.Min)},
		{"Maximum", fmt.Sprintf("%.3f", st.Max)},
		{"Standard Deviation", fmt.Sprintf("%.3f", st.StdDev)},
		{"90th Percentile (P90)", fmt.Sprintf("%.3f", st.P90)},
		{"99th Percentile (P99)", fmt.Sprintf("%.3f", st.P99)},
	}
}

// renderStatistics prints timing statistics, styled on a terminal.
func renderStatistics(w io.Writer, st *model.TimingStatistics) error {
	if st == nil {
		_, err := fmt.Fprintln(w, "No timing data available.")
		return err
	}

	styled := isWriterTerminal(w)
	labelStyle := lipgloss.NewStyle().Bold(true).Width(24)

	var b strings.Builder
	for _, row := range statisticsRows(st) {
		if styled {
			b.WriteString(labelStyle.Render(row[0]) + row[1] + "\n")
		} else {
			fmt.Fprintf(&b, "%-24s%s\n", row[0], row[1])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
