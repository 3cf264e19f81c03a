package model

import "time"

// Input and output table columns. "weight" is the box width; the name is
// kept for compatibility with existing tables.
const (
	ColumnImageID        = "image_id"
	ColumnImageURL       = "image_url"
	ColumnHeight         = "height"
	ColumnWeight         = "weight"
	ColumnBreadth        = "breadth"
	ColumnSurfaceArea    = "surface_area"
	ColumnCapacity       = "capacity"
	ColumnProcessingTime = "processing_time"
)

// InputColumns lists the columns every input table must carry.
var InputColumns = []string{ColumnImageID, ColumnImageURL, ColumnHeight, ColumnWeight, ColumnBreadth}

// OutputColumns is the column order of the result table.
var OutputColumns = []string{
	ColumnImageID, ColumnImageURL, ColumnHeight, ColumnWeight, ColumnBreadth,
	ColumnSurfaceArea, ColumnCapacity, ColumnProcessingTime,
}

// Record is one input row: a box, its image reference and a caller-assigned id.
// IDs are labels, not keys; duplicates are allowed.
type Record struct {
	ID       string  `json:"image_id"`
	ImageURL string  `json:"image_url"`
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	Breadth  float64 `json:"breadth"`
}

// EnrichedRecord is a Record plus everything the pipeline derived for it.
type EnrichedRecord struct {
	Record
	SurfaceArea    float64 `json:"surface_area"`
	Capacity       float64 `json:"capacity"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	ImageBase64    string  `json:"image_base64"`    // data URI, empty when the fetch failed
}

// BatchResult is the outcome of one pipeline run.
type BatchResult struct {
	Records         []EnrichedRecord  `json:"data"`
	ProcessingTimes []float64         `json:"processing_times"`
	Statistics      *TimingStatistics `json:"statistics,omitempty"`
	TotalTime       time.Duration     `json:"total_time"`
}
