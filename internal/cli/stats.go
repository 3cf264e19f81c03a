package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-box-pipeline/internal/pipeline"
	"go-box-pipeline/internal/stats"
)

func newStatsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <results.csv>",
		Short: "Recompute timing statistics from a results table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open results table: %w", err)
			}
			defer f.Close()

			timings, err := pipeline.ReadTimings(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return renderStatistics(cmd.OutOrStdout(), stats.Aggregate(timings))
		},
	}
}
