package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go-box-pipeline/internal/model"
	"go-box-pipeline/pkg/utils"
)

// ------------------- Ingestion -------------------

// LoadRecords reads an input table from a local path or an http(s) URL.
func LoadRecords(ctx context.Context, pathOrURL string) ([]model.Record, error) {
	var reader io.Reader
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathOrURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create CSV request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to GET CSV: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("failed to GET CSV: HTTP %s", resp.Status)
		}
		reader = resp.Body
	} else {
		file, err := os.Open(pathOrURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	return ReadRecords(reader)
}

// ReadRecords parses an input table. The header is required and must name
// image_id, image_url, height, weight and breadth; other columns are ignored.
// The first row that cannot be interpreted aborts the read with a
// *MalformedInputError.
func ReadRecords(r io.Reader) ([]model.Record, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Err: ErrMissingHeader}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[cleanHeader(h)] = i
	}
	for _, col := range model.InputColumns {
		if _, ok := index[col]; !ok {
			return nil, &MalformedInputError{Column: col, Err: ErrMissingColumn}
		}
	}

	var records []model.Record
	for row := 1; ; row++ {
		fields, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			malformed := &MalformedInputError{Row: row, Err: fmt.Errorf("CSV read error: %w", err)}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed.Line = parseErr.Line
			}
			return nil, malformed
		}

		rec, err := parseRecord(row, fields, index)
		if err != nil {
			var malformed *MalformedInputError
			if errors.As(err, &malformed) {
				malformed.Line = fieldLine(csvReader, index[malformed.Column], len(fields))
			}
			return nil, err
		}
		records = append(records, rec)
	}
}

func parseRecord(row int, fields []string, index map[string]int) (model.Record, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(fields) {
			return "", &MalformedInputError{Row: row, Column: col, Err: ErrShortRow}
		}
		return strings.TrimSpace(fields[i]), nil
	}
	number := func(col string) (float64, error) {
		raw, err := field(col)
		if err != nil {
			return 0, err
		}
		v, ok := utils.ParseNumber(raw)
		if !ok {
			return 0, &MalformedInputError{Row: row, Column: col, Value: raw, Err: ErrNotNumeric}
		}
		return v, nil
	}

	var (
		rec model.Record
		err error
	)
	if rec.ID, err = field(model.ColumnImageID); err != nil {
		return rec, err
	}
	if rec.ImageURL, err = field(model.ColumnImageURL); err != nil {
		return rec, err
	}
	if rec.Height, err = number(model.ColumnHeight); err != nil {
		return rec, err
	}
	if rec.Weight, err = number(model.ColumnWeight); err != nil {
		return rec, err
	}
	if rec.Breadth, err = number(model.ColumnBreadth); err != nil {
		return rec, err
	}
	return rec, nil
}

// fieldLine is the input line the i-th field of the last read record starts
// on; short rows fall back to the first field.
func fieldLine(r *csv.Reader, i, n int) int {
	if i >= n {
		i = 0
	}
	line, _ := r.FieldPos(i)
	return line
}

// cleanHeader trims whitespace, a UTF-8 BOM and every quote from a header name.
func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.ToLower(strings.TrimSpace(h))
}
