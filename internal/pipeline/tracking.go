package pipeline

import (
	"slices"
	"sync"
	"time"

	"go-box-pipeline/internal/imagefetch"
	"go-box-pipeline/internal/model"
)

// ImageFailure records a record whose image could not be loaded.
type ImageFailure struct {
	Index    int    `json:"index"`
	ImageID  string `json:"image_id"`
	ImageURL string `json:"image_url"`
	Reason   string `json:"reason"`
}

// RunMetrics summarises one pipeline run as seen by a Tracker.
type RunMetrics struct {
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	Total         int            `json:"total"`
	Processed     int            `json:"processed"`
	ImagesLoaded  int            `json:"images_loaded"`
	ImageFailures []ImageFailure `json:"image_failures,omitempty"`
	BytesLoaded   int64          `json:"bytes_loaded"`
}

// Tracker is an Observer that counts processed records and collects image
// failures. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	metrics RunMetrics
	now     func() time.Time
}

// NewTracker creates a tracker whose clock starts now.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.metrics.StartTime = t.now()
	return t
}

// RecordProcessed implements Observer.
func (t *Tracker) RecordProcessed(index, total int, rec model.EnrichedRecord, image imagefetch.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.Total = total
	t.metrics.Processed++
	t.metrics.EndTime = t.now()

	if image.OK() {
		t.metrics.ImagesLoaded++
		t.metrics.BytesLoaded += int64(image.Size)
		return
	}

	reason := "image unavailable"
	if image.Err != nil {
		reason = image.Err.Error()
	}
	t.metrics.ImageFailures = append(t.metrics.ImageFailures, ImageFailure{
		Index:    index,
		ImageID:  rec.ID,
		ImageURL: rec.ImageURL,
		Reason:   reason,
	})
}

// Metrics returns a snapshot of the collected metrics. Failures are
// ordered by record index.
func (t *Tracker) Metrics() RunMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.metrics
	m.ImageFailures = append([]ImageFailure(nil), t.metrics.ImageFailures...)
	slices.SortFunc(m.ImageFailures, func(a, b ImageFailure) int { return a.Index - b.Index })
	return m
}
