package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/stats"
	"go-box-pipeline/pkg/utils"
)

// Summarize assembles a BatchResult and its timing statistics.
func Summarize(enriched []model.EnrichedRecord, timings []float64) *model.BatchResult {
	return &model.BatchResult{
		Records:         enriched,
		ProcessingTimes: timings,
		Statistics:      stats.Aggregate(timings),
	}
}

// ReadTimings reads the processing_time column of a previously written
// results table.
func ReadTimings(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Row: 0, Err: ErrMissingHeader}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, h := range header {
		if cleanHeader(h) == model.ColumnProcessingTime {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &MalformedInputError{Row: 0, Column: model.ColumnProcessingTime, Err: ErrMissingColumn}
	}

	var timings []float64
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		if col >= len(fields) {
			return nil, &MalformedInputError{Row: row, Column: model.ColumnProcessingTime, Err: ErrShortRow}
		}
		raw := strings.TrimSpace(fields[col])
		v, ok := utils.ParseNumber(raw)
		if !ok {
			return nil, &MalformedInputError{Row: row, Column: model.ColumnProcessingTime, Value: raw, Err: ErrNotNumeric}
		}
		timings = append(timings, v)
	}
	return timings, nil
}
