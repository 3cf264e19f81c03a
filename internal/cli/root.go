// Package cli implements the boxpipe command line.
package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-box-pipeline/internal/config"
)

// app carries the state shared by subcommands once the root pre-run has
// loaded the configuration.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	closeLogger func() error
	lookupEnv   func(string) (string, bool)
}

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	return NewRootCmdWithEnv(version, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit environment
// lookup for testability.
func NewRootCmdWithEnv(version string, lookupEnv func(string) (string, bool)) *cobra.Command {
	a := &app{lookupEnv: lookupEnv, closeLogger: func() error { return nil }}

	cmd := &cobra.Command{
		Use:           "boxpipe",
		Short:         "Box surface area, capacity and image report pipeline",
		Long:          "boxpipe computes surface area and capacity for boxes listed in a CSV, embeds their images and reports per-box processing times.",
		Version:       version,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.closeLogger()
		},
	}

	cmd.PersistentFlags().String("config", "", "path to a YAML config file")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(a), newServeCmd(a), newStatsCmd(a))
	return cmd
}

const rootCmdExample = `  # Process the default input table
  boxpipe run --input input/testbed.csv --output-dir output

  # Process without the artificial delay and also write results.json
  boxpipe run --input boxes.csv --no-delay --json

  # Start the web front end
  boxpipe serve --addr :5000

  # Recompute timing statistics from an earlier run
  boxpipe stats output/processed_boxes.csv`

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadWithEnv(path, a.lookupEnv)
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = config.ComponentLogger(logger, "cli")
	a.closeLogger = closer

	a.logger.Debug().Str("command", cmd.Name()).Msg("command started")
	return nil
}

// isWriterTerminal reports whether w is a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
