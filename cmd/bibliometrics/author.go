// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibliometrics/internal/job"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/report"
	"github.com/pdiddy/bibliometrics/internal/store"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

var authorCmd = &cobra.Command{
	Use:   "author <name> [alias...]",
	Short: "Compute citation statistics for an author",
	Long: `Author lists every paper written under the given name and aliases, fetches
the records citing each paper and reports the merged citation curve, the mean
citation rate and the h-index.

Ctrl-C stops the run after the current paper; the papers processed so far
are still reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAuthor,
}

func init() {
	authorCmd.Flags().String("format", report.FormatTable, "output format (table, json, yaml)")
	authorCmd.Flags().Bool("quiet", false, "show a progress counter instead of progress lines")
	authorCmd.Flags().Bool("save", false, "save the result in the run store")
	authorCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(authorCmd)
}

func runAuthor(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := report.CheckFormat(format); err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	save, _ := cmd.Flags().GetBool("save")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	m := metrics.New()
	defer writeMetrics(m, metricsFile)

	eng, p, err := engine(m)
	if err != nil {
		return err
	}

	r := job.New("author", func(ctx context.Context, tok *job.Token, sink progress.Sink) (*types.AuthorAggregate, error) {
		return eng.RunAuthors(ctx, args, tok, sink)
	}, job.WithLogger(logger), job.WithMetrics(m))

	result, err := runJob(cmd.Context(), r, quiet)
	if err != nil {
		return fmt.Errorf("author stats: %w", err)
	}

	if err := report.Author(os.Stdout, format, result); err != nil {
		return err
	}

	if save {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.SaveAuthorRun(cmd.Context(), p.Name(), result)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", id)
	}
	return nil
}
