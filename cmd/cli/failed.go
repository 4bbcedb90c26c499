package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/polpa/costengine/internal/wire"
)

var (
	failedJSON  bool
	failedLimit int
)

var failedCmd = &cobra.Command{
	Use:   "failed-jobs",
	Short: "Lists queue jobs that exhausted their retries",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobs, err := app.Queue.ListFailed(ctx, failedLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve failed jobs: %w", err)
		}

		if failedJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(jobs)
		}

		if len(jobs) == 0 {
			slog.Info("No permanently failed jobs on record.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB KEY\tPREDICTION\tATTEMPTS\tLAST ERROR\tUPDATED")
		for _, job := range jobs {
			lastError := ""
			if job.LastError != nil {
				lastError = *job.LastError
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				job.JobKey,
				job.PredictionID,
				job.Attempts,
				lastError,
				job.UpdatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	failedCmd.Flags().BoolVar(&failedJSON, "json", false, "Output failed jobs as JSON")
	failedCmd.Flags().IntVar(&failedLimit, "limit", 50, "Maximum number of jobs to list")
	rootCmd.AddCommand(failedCmd)
}
