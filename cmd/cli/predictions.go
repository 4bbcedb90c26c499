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
	listOwner string
	listPage  int
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists prediction records, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		rows, total, err := app.Store.ListPredictions(ctx, listOwner, listPage, listLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve predictions: %w", err)
		}

		if len(rows) == 0 {
			slog.Info("No predictions on record.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tSTATUS\tCOST TOTAL\tCREATED")
		for _, p := range rows {
			cost := "-"
			if p.CostTotal != nil {
				cost = fmt.Sprintf("%.2f", *p.CostTotal)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID,
				p.OwnerID,
				p.Status,
				cost,
				p.CreatedAt.Format(time.RFC822),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("page %d, %d total\n", listPage, total)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <prediction-id>",
	Short: "Shows one prediction record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		p, err := app.Store.GetPrediction(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to retrieve prediction: %w", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(p)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Only list predictions for this owner")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page to list")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Page size")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
}
