// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders statistics results as a text table, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibliometrics/internal/store"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

const dateLayout = "2006-01-02"

// CheckFormat returns an error for an unknown format name.
func CheckFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// Author writes agg in the given format.
func Author(w io.Writer, format string, agg *types.AuthorAggregate) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, agg)
	case FormatYAML:
		return WriteYAML(w, agg)
	case FormatTable:
		AuthorTable(w, agg)
		return nil
	}
	return CheckFormat(format)
}

// Paper writes tl in the given format.
func Paper(w io.Writer, format string, tl types.PaperTimeline) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, tl)
	case FormatYAML:
		return WriteYAML(w, tl)
	case FormatTable:
		PaperTable(w, tl)
		return nil
	}
	return CheckFormat(format)
}

// Runs writes stored run summaries in the given format.
func Runs(w io.Writer, format string, runs []store.Run) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, runs)
	case FormatYAML:
		return WriteYAML(w, runs)
	case FormatTable:
		RunsTable(w, runs)
		return nil
	}
	return CheckFormat(format)
}

// AuthorTable writes a human-readable summary of agg: one row per paper in
// publication order followed by the totals.
func AuthorTable(w io.Writer, agg *types.AuthorAggregate) {
	fmt.Fprintf(w, "Author: %s\n\n", strings.Join(agg.Authors, " / "))

	if len(agg.OwnPapers) == 0 {
		fmt.Fprintln(w, "No papers processed.")
	} else {
		fmt.Fprintf(w, "%-4s  %-24s  %-10s  %s\n", "Rank", "Paper", "Published", "Citations")
		fmt.Fprintln(w, strings.Repeat("-", 52))
		for _, p := range agg.OwnPapers {
			tl := agg.PerPaper[p.ID]
			mark := ""
			if tl.Truncated {
				mark = " (truncated)"
			}
			fmt.Fprintf(w, "%-4d  %-24s  %-10s  %d%s\n",
				p.Rank, truncate(p.ID, 24), p.Published.Format(dateLayout), tl.CitationCount(), mark)
		}
	}

	fmt.Fprintf(w, "\npapers: %d, citations: %d, h-index: %d", len(agg.OwnPapers), agg.TotalCitations(), agg.HIndex)
	if n := len(agg.MeanCitationRate); n > 0 {
		fmt.Fprintf(w, ", mean citation rate: %.2f", agg.MeanCitationRate[n-1].Rate)
	}
	fmt.Fprintln(w)

	if len(agg.Skipped) > 0 {
		ids := make([]string, 0, len(agg.Skipped))
		for id := range agg.Skipped {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintf(w, "\nskipped %d papers:\n", len(ids))
		for _, id := range ids {
			fmt.Fprintf(w, "  %s: %s\n", id, agg.Skipped[id])
		}
	}
	if agg.Cancelled {
		fmt.Fprintln(w, "\nwarning: run was stopped, results are partial")
	}
	if agg.Truncated {
		fmt.Fprintln(w, "warning: some listings ended on a request failure, counts may be low")
	}
}

// PaperTable writes the citation curve of tl, sentinels included.
func PaperTable(w io.Writer, tl types.PaperTimeline) {
	fmt.Fprintf(w, "Paper: %s\n\n", tl.PaperID)
	fmt.Fprintf(w, "%-10s  %s\n", "Date", "Citations")
	fmt.Fprintln(w, strings.Repeat("-", 21))
	for _, pt := range tl.Points() {
		fmt.Fprintf(w, "%-10s  %d\n", pt.Date.Format(dateLayout), pt.Rank)
	}
	fmt.Fprintf(w, "\n%d citations\n", tl.CitationCount())
	if tl.Truncated {
		fmt.Fprintln(w, "warning: citation listing ended on a request failure, count may be low")
	}
}

// RunsTable writes one row per stored run.
func RunsTable(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-6s  %-30s  %-16s  %6s  %9s  %s\n",
		"ID", "Kind", "Subject", "Created", "Papers", "Citations", "h")
	fmt.Fprintln(w, strings.Repeat("-", 118))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-6s  %-30s  %-16s  %6d  %9d  %d%s\n",
			r.ID, r.Kind, truncate(strings.Join(r.Subject, " / "), 30),
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Papers, r.Citations, r.HIndex, flags(r))
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func flags(r store.Run) string {
	var f []string
	if r.Cancelled {
		f = append(f, "cancelled")
	}
	if r.Truncated {
		f = append(f, "truncated")
	}
	if len(f) == 0 {
		return ""
	}
	return " (" + strings.Join(f, ", ") + ")"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
