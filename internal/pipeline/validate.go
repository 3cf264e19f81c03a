package pipeline

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel causes wrapped by MalformedInputError.
var (
	ErrMissingHeader = errors.New("missing header row")
	ErrMissingColumn = errors.New("missing required column")
	ErrShortRow      = errors.New("row has fewer fields than the header")
	ErrNotNumeric    = errors.New("value is not numeric")
)

// MalformedInputError aborts a whole batch: a row could not be interpreted.
// Row is the 1-based index of the data record (the header is row 0); it
// differs from Line, the 1-based line of the input, when quoted fields span
// lines or blank lines are skipped. Line is 0 when unknown.
type MalformedInputError struct {
	Row    int
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var msg string
	switch {
	case e.Row == 0 && e.Column != "":
		return fmt.Sprintf("malformed input: header: %s %q", e.Err, e.Column)
	case e.Row == 0:
		return fmt.Sprintf("malformed input: %s", e.Err)
	case e.Column != "":
		msg = fmt.Sprintf("malformed input: row %d, column %q: %s (got %q)", e.Row, e.Column, e.Err, e.Value)
	default:
		msg = fmt.Sprintf("malformed input: row %d: %s", e.Row, e.Err)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ValidationError rejects an interactive submission before the pipeline runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDimensions checks that every edge is a finite, strictly positive
// number. The pipeline itself does not enforce this.
func ValidateDimensions(height, weight, breadth float64) error {
	dims := []struct {
		name  string
		value float64
	}{
		{"height", height},
		{"weight", weight},
		{"breadth", breadth},
	}

	for _, d := range dims {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) || d.value <= 0 {
			return &ValidationError{Field: d.name, Message: "All dimensions must be positive numbers"}
		}
	}
	return nil
}
