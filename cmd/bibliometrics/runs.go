// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibliometrics/internal/report"
	"github.com/pdiddy/bibliometrics/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List and show saved runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := report.CheckFormat(format); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return report.Runs(os.Stdout, format, runs)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := report.CheckFormat(format); err != nil {
			return err
		}

		s, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		run, err := s.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if run.Kind == store.KindPaper {
			tl, err := s.LoadPaperRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			return report.Paper(os.Stdout, format, tl)
		}
		agg, err := s.LoadAuthorRun(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		return report.Author(os.Stdout, format, agg)
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 50, "maximum number of runs to list")
	for _, c := range []*cobra.Command{runsListCmd, runsShowCmd} {
		c.Flags().String("format", report.FormatTable, "output format (table, json, yaml)")
		runsCmd.AddCommand(c)
	}
	rootCmd.AddCommand(runsCmd)
}
