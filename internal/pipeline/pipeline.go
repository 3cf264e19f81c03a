// Package pipeline runs box records through calculation, artificial delay,
// image fetch and timing, and renders the results.
package pipeline

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"go-box-pipeline/internal/imagefetch"
	"go-box-pipeline/internal/model"
)

// ImageResolver loads the image behind a reference. *imagefetch.Fetcher
// satisfies it.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) imagefetch.Result
}

// Observer is notified after each record is processed. With more than one
// worker it is called concurrently.
type Observer interface {
	RecordProcessed(index, total int, rec model.EnrichedRecord, image imagefetch.Result)
}

// Pipeline processes box records. Its configuration is fixed after New; a
// single Pipeline can serve concurrent Process calls.
type Pipeline struct {
	images   ImageResolver
	logger   zerolog.Logger
	delayMin time.Duration
	delayMax time.Duration
	delay    bool
	workers  int
	sleep    func(ctx context.Context, d time.Duration)
	randMu   sync.Mutex
	random   func() float64
	observer Observer
	progress func(done, total int)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDelay enables a per-record delay drawn uniformly from [min, max].
func WithDelay(min, max time.Duration) Option {
	return func(p *Pipeline) {
		if max < min {
			min, max = max, min
		}
		p.delay, p.delayMin, p.delayMax = true, min, max
	}
}

// WithoutDelay disables the artificial delay.
func WithoutDelay() Option {
	return func(p *Pipeline) { p.delay = false }
}

// WithWorkers processes up to n records at once. Output order always
// follows input order. n < 1 is treated as 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers a per-record observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithProgress reports the number of finished records after each one.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithSleeper replaces the function used to wait out the artificial delay.
func WithSleeper(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithRand replaces the [0,1) source used to draw delays.
func WithRand(random func() float64) Option {
	return func(p *Pipeline) { p.random = random }
}

// New creates a pipeline. Without options it is sequential, has no
// artificial delay and logs through zerolog's global logger.
func New(images ImageResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		images:  images,
		logger:  log.Logger,
		workers: 1,
		sleep:   sleepContext,
		random:  rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ------------------- Pipeline Runner -------------------

// Run processes records and aggregates their timings.
func (p *Pipeline) Run(ctx context.Context, records []model.Record) (*model.BatchResult, error) {
	start := time.Now()

	enriched, timings, err := p.Process(ctx, records)
	if err != nil {
		return nil, err
	}

	result := Summarize(enriched, timings)
	result.TotalTime = time.Since(start)

	p.logger.Info().
		Int("records", len(enriched)).
		Float64("total_seconds", result.TotalTime.Seconds()).
		Msg("pipeline completed")
	return result, nil
}

// Process enriches every record and returns the enriched records and their
// processing times, index-aligned with records. Image failures never abort
// the call; only cancellation of ctx does.
func (p *Pipeline) Process(ctx context.Context, records []model.Record) ([]model.EnrichedRecord, []float64, error) {
	enriched := make([]model.EnrichedRecord, len(records))
	timings := make([]float64, len(records))

	p.logger.Info().Int("records", len(records)).Msgf("Processing %d images...", len(records))

	var done atomic.Int64
	finish := func() {
		n := done.Add(1)
		if p.progress != nil {
			p.progress(int(n), len(records))
		}
	}

	if p.workers <= 1 || len(records) < 2 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			enriched[i], timings[i] = p.processRecord(ctx, i, len(records), rec)
			finish()
		}
		return enriched, timings, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			enriched[i], timings[i] = p.processRecord(gctx, i, len(records), rec)
			finish()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return enriched, timings, nil
}

// processRecord runs one record: geometry, delay, image, timing.
func (p *Pipeline) processRecord(ctx context.Context, index, total int, rec model.Record) (model.EnrichedRecord, float64) {
	start := time.Now()

	out := computeGeometry(rec)

	if p.delay {
		p.sleep(ctx, p.drawDelay())
	}

	var img imagefetch.Result
	if p.images != nil {
		img = p.images.Resolve(ctx, rec.ImageURL)
	}
	out.ImageBase64 = img.DataURI

	elapsed := time.Since(start).Seconds()
	out.ProcessingTime = elapsed

	p.logger.Info().
		Str("image_id", rec.ID).
		Float64("seconds", elapsed).
		Bool("image", img.DataURI != "").
		Msgf("Processed image %s in %.2f seconds", rec.ID, elapsed)

	if p.observer != nil {
		p.observer.RecordProcessed(index, total, out, img)
	}
	return out, elapsed
}

func (p *Pipeline) drawDelay() time.Duration {
	p.randMu.Lock()
	r := p.random()
	p.randMu.Unlock()
	return p.delayMin + time.Duration(r*float64(p.delayMax-p.delayMin))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
