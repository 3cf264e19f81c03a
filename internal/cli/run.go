package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-box-pipeline/internal/config"
	"go-box-pipeline/internal/imagefetch"
	"go-box-pipeline/internal/model"
	"go-box-pipeline/internal/notify"
	"go-box-pipeline/internal/pipeline"
	"go-box-pipeline/internal/store"
)

type runOptions struct {
	input          string
	outputDir      string
	writeJSON      bool
	noDelay        bool
	delayMin       string
	delayMax       string
	workers        int
	thumbnailWidth int
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process an input table and write the reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyRunFlags(cmd, a.cfg, opts)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.run(cmd, opts.input)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "input/testbed.csv", "input CSV path or http(s) URL")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for the generated reports (default from config)")
	cmd.Flags().BoolVar(&opts.writeJSON, "json", false, "also write the full result as JSON")
	cmd.Flags().BoolVar(&opts.noDelay, "no-delay", false, "disable the artificial per-record delay")
	cmd.Flags().StringVar(&opts.delayMin, "delay-min", "", "lower bound of the per-record delay (e.g. 100ms)")
	cmd.Flags().StringVar(&opts.delayMax, "delay-max", "", "upper bound of the per-record delay (e.g. 2s)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "records processed concurrently (default from config)")
	cmd.Flags().IntVar(&opts.thumbnailWidth, "thumbnail-width", 0, "downscale embedded images wider than this (0 keeps originals)")
	return cmd
}

// applyRunFlags overrides the configuration with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = opts.outputDir
	}
	if flags.Changed("json") {
		cfg.Output.WriteJSON = opts.writeJSON
	}
	if flags.Changed("no-delay") {
		cfg.Pipeline.DelayEnabled = !opts.noDelay
	}
	if flags.Changed("delay-min") {
		cfg.Pipeline.DelayMin = opts.delayMin
	}
	if flags.Changed("delay-max") {
		cfg.Pipeline.DelayMax = opts.delayMax
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = opts.workers
	}
	if flags.Changed("thumbnail-width") {
		cfg.Fetch.ThumbnailWidth = opts.thumbnailWidth
	}
}

// newFetcher builds the image fetcher described by cfg.
func newFetcher(a *app) *imagefetch.Fetcher {
	return imagefetch.New(
		imagefetch.WithTimeout(a.cfg.FetchTimeout()),
		imagefetch.WithUserAgent(a.cfg.Fetch.UserAgent),
		imagefetch.WithThumbnailWidth(a.cfg.Fetch.ThumbnailWidth),
		imagefetch.WithLogger(config.ComponentLogger(a.logger, "imagefetch")),
	)
}

// newPipeline builds the pipeline described by cfg.
func newPipeline(a *app, extra ...pipeline.Option) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithWorkers(a.cfg.Pipeline.Workers),
		pipeline.WithLogger(config.ComponentLogger(a.logger, "pipeline")),
	}
	if a.cfg.Pipeline.DelayEnabled {
		lo, hi := a.cfg.DelayRange()
		opts = append(opts, pipeline.WithDelay(lo, hi))
	}
	return pipeline.New(newFetcher(a), append(opts, extra...)...)
}

func newExporter(a *app) *pipeline.Exporter {
	e := pipeline.NewExporter(config.ComponentLogger(a.logger, "export"))
	e.CSVFile = a.cfg.Output.CSVFile
	e.MarkdownFile = a.cfg.Output.MarkdownFile
	e.JSONFile = a.cfg.Output.JSONFile
	e.WriteJSON = a.cfg.Output.WriteJSON
	return e
}

func (a *app) run(cmd *cobra.Command, input string) error {
	ctx := commandContext(cmd)
	start := time.Now()

	jobs, err := store.Open(a.cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer jobs.Close()

	notifier := notify.New(a.cfg.Notify.Brokers, a.cfg.Notify.Topic, config.ComponentLogger(a.logger, "notify"))
	defer notifier.Close()

	jobID := uuid.New().String()
	if err := jobs.SaveJob(ctx, jobID, model.JobSourceCLI); err != nil {
		return err
	}
	fail := func(cause error) error {
		if err := jobs.FailJob(ctx, jobID, cause); err != nil {
			a.logger.Warn().Err(err).Msg("failed to record job failure")
		}
		publish(ctx, a, jobs, notifier, jobID, nil, cause)
		return cause
	}

	if err := jobs.UpdateJobStatus(ctx, jobID, model.JobStatusRunning); err != nil {
		return err
	}

	records, err := pipeline.LoadRecords(ctx, input)
	if err != nil {
		var malformed *pipeline.MalformedInputError
		if errors.As(err, &malformed) {
			return fail(fmt.Errorf("%s: %w", input, err))
		}
		return fail(fmt.Errorf("failed to load %s: %w", input, err))
	}

	tracker := pipeline.NewTracker()
	result, err := newPipeline(a, pipeline.WithObserver(tracker)).Run(ctx, records)
	if err != nil {
		return fail(err)
	}

	exports, err := newExporter(a).Export(a.cfg.Output.Dir, jobID, result)
	if err != nil {
		return fail(err)
	}

	var files []string
	for _, e := range exports {
		files = append(files, e.Path)
	}
	if err := jobs.CompleteJob(ctx, jobID, len(result.Records), files); err != nil {
		a.logger.Warn().Err(err).Msg("failed to complete job")
	}
	publish(ctx, a, jobs, notifier, jobID, result.Statistics, nil)

	return renderRunSummary(cmd.OutOrStdout(), runSummary{
		JobID:     jobID,
		Input:     input,
		Result:    result,
		Metrics:   tracker.Metrics(),
		Files:     files,
		TotalTime: time.Since(start),
	})
}

func publish(ctx context.Context, a *app, jobs *store.Store, n notify.Notifier, jobID string, st *model.TimingStatistics, cause error) {
	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		a.logger.Warn().Err(err).Msg("job event skipped")
		return
	}
	if err := n.Notify(ctx, notify.NewEvent(job, st, cause)); err != nil {
		a.logger.Warn().Err(err).Msg("job event not delivered")
	}
}
