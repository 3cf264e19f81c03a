package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-box-pipeline/internal/api"
	"go-box-pipeline/internal/api/handler"
	"go-box-pipeline/internal/config"
	"go-box-pipeline/internal/notify"
	"go-box-pipeline/internal/store"
	"go-box-pipeline/pkg/router"
	"go-box-pipeline/pkg/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end and job API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	return cmd
}

// newServer wires the HTTP handler and returns it with a cleanup function.
func (a *app) newServer() (*router.Router, func(), error) {
	jobs, err := store.Open(a.cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}

	outputs := utils.NewOutputManager(a.cfg.Output.Dir)
	if err := outputs.EnsureOutputDirExists(); err != nil {
		jobs.Close()
		return nil, nil, err
	}
	if err := os.MkdirAll(a.cfg.Server.UploadDir, 0o755); err != nil {
		jobs.Close()
		return nil, nil, err
	}

	notifier := notify.New(a.cfg.Notify.Brokers, a.cfg.Notify.Topic, config.ComponentLogger(a.logger, "notify"))

	h, err := handler.New(handler.Deps{
		Server:   a.cfg.Server,
		Outputs:  outputs,
		Jobs:     jobs,
		Runner:   newPipeline(a),
		Exporter: newExporter(a),
		Notifier: notifier,
		Logger:   config.ComponentLogger(a.logger, "handler"),
	})
	if err != nil {
		notifier.Close()
		jobs.Close()
		return nil, nil, err
	}

	r := router.New(config.ComponentLogger(a.logger, "http"))
	api.RegisterRoutes(r, h)
	a.logger.Debug().Strs("routes", r.Routes()).Msg("routes registered")

	cleanup := func() {
		if err := notifier.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close notifier")
		}
		if err := jobs.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close job store")
		}
	}
	return r, cleanup, nil
}

func (a *app) serve(ctx context.Context) error {
	r, cleanup, err := a.newServer()
	if err != nil {
		return err
	}
	defer cleanup()
	return r.Start(ctx, a.cfg.Server.Addr)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
