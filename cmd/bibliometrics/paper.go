// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibliometrics/internal/job"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/provider"
	"github.com/pdiddy/bibliometrics/internal/report"
	"github.com/pdiddy/bibliometrics/internal/store"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

var paperCmd = &cobra.Command{
	Use:   "paper <id>",
	Short: "Show the citation timeline of one paper",
	Long: `Paper fetches the records citing a paper and prints its citation curve,
padded with the publication date (when given) and today.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaper,
}

func init() {
	paperCmd.Flags().String("published", "", "publication date of the paper (YYYY-MM-DD)")
	paperCmd.Flags().String("format", report.FormatTable, "output format (table, json, yaml)")
	paperCmd.Flags().Bool("save", false, "save the result in the run store")
	paperCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(paperCmd)
}

func runPaper(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := report.CheckFormat(format); err != nil {
		return err
	}
	save, _ := cmd.Flags().GetBool("save")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	var published *time.Time
	if raw, _ := cmd.Flags().GetString("published"); raw != "" {
		t, err := provider.ParseTimestamp(raw)
		if err != nil {
			return fmt.Errorf("--published: %w", err)
		}
		published = &t
	}

	m := metrics.New()
	defer writeMetrics(m, metricsFile)

	eng, p, err := engine(m)
	if err != nil {
		return err
	}

	r := job.New("paper", func(ctx context.Context, _ *job.Token, sink progress.Sink) (types.PaperTimeline, error) {
		return eng.RunPaper(ctx, args[0], published, sink)
	}, job.WithLogger(logger), job.WithMetrics(m))

	tl, err := runJob(cmd.Context(), r, false)
	if err != nil {
		return fmt.Errorf("paper stats: %w", err)
	}

	if err := report.Paper(os.Stdout, format, tl); err != nil {
		return err
	}

	if save {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.SavePaperRun(cmd.Context(), p.Name(), tl)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", id)
	}
	return nil
}
