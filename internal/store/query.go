// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pdiddy/bibliometrics/pkg/types"
)

const defaultListLimit = 50

const runColumns = `r.id, r.kind, r.subject, r.provider, r.created_at, r.h_index, r.cancelled, r.truncated,
	(SELECT count(*) FROM timelines t WHERE t.run_id = r.id),
	(SELECT count(*) FROM citations c WHERE c.run_id = r.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                Run
		subject, created string
		provider         sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Kind, &subject, &provider, &created, &r.HIndex,
		&r.Cancelled, &r.Truncated, &r.Papers, &r.Citations); err != nil {
		return Run{}, err
	}
	r.Provider = provider.String
	if err := json.Unmarshal([]byte(subject), &r.Subject); err != nil {
		return Run{}, fmt.Errorf("decoding subject of run %s: %w", r.ID, err)
	}
	t, err := parseTime(created)
	if err != nil {
		return Run{}, fmt.Errorf("decoding created_at of run %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 uses a default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.created_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the summary of run id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %s: %w", id, err)
	}
	return r, nil
}

// LoadAuthorRun rebuilds the aggregate stored under id.
func (s *Store) LoadAuthorRun(ctx context.Context, id string) (*types.AuthorAggregate, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Kind != KindAuthor {
		return nil, fmt.Errorf("run %s is a %s run", id, run.Kind)
	}

	var skipped sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT skipped FROM runs WHERE id = ?`, id).Scan(&skipped); err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	agg := &types.AuthorAggregate{
		Authors:   run.Subject,
		HIndex:    run.HIndex,
		Cancelled: run.Cancelled,
		Truncated: run.Truncated,
	}
	if skipped.String != "" {
		if err := json.Unmarshal([]byte(skipped.String), &agg.Skipped); err != nil {
			return nil, fmt.Errorf("decoding skipped papers of run %s: %w", id, err)
		}
	}

	timelines, ranks, err := s.loadTimelines(ctx, id)
	if err != nil {
		return nil, err
	}
	agg.PerPaper = make(map[string]types.PaperTimeline, len(timelines))
	var dates []time.Time
	for _, tl := range timelines {
		agg.PerPaper[tl.PaperID] = tl
		if r := ranks[tl.PaperID]; r > 0 {
			agg.OwnPapers = append(agg.OwnPapers, types.OwnPaper{ID: tl.PaperID, Published: tl.Published, Rank: r})
		}
		for _, c := range tl.Citations {
			dates = append(dates, c.Date)
		}
	}
	sort.Slice(agg.OwnPapers, func(i, j int) bool { return agg.OwnPapers[i].Rank < agg.OwnPapers[j].Rank })
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	agg.AllCitations = make([]types.CitationEvent, len(dates))
	for i, d := range dates {
		agg.AllCitations[i] = types.CitationEvent{Date: d, Rank: i + 1}
	}

	agg.MeanCitationRate, err = s.loadRates(ctx, id)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// LoadPaperRun returns the timeline stored under id.
func (s *Store) LoadPaperRun(ctx context.Context, id string) (types.PaperTimeline, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return types.PaperTimeline{}, err
	}
	if run.Kind != KindPaper {
		return types.PaperTimeline{}, fmt.Errorf("run %s is a %s run", id, run.Kind)
	}
	timelines, _, err := s.loadTimelines(ctx, id)
	if err != nil {
		return types.PaperTimeline{}, err
	}
	if len(timelines) != 1 {
		return types.PaperTimeline{}, fmt.Errorf("run %s holds %d timelines, want 1", id, len(timelines))
	}
	return timelines[0], nil
}

// loadTimelines returns the timelines of a run in own-rank order with the
// rank of each paper.
func (s *Store) loadTimelines(ctx context.Context, runID string) ([]types.PaperTimeline, map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, published, now, own_rank, truncated FROM timelines
		 WHERE run_id = ? ORDER BY own_rank, paper_id`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying timelines: %w", err)
	}
	defer rows.Close()

	var (
		timelines []types.PaperTimeline
		ranks     = make(map[string]int)
		index     = make(map[string]int)
	)
	for rows.Next() {
		var (
			tl             types.PaperTimeline
			published, now sql.NullString
			rank           int
		)
		if err := rows.Scan(&tl.PaperID, &published, &now, &rank, &tl.Truncated); err != nil {
			return nil, nil, fmt.Errorf("scanning timeline: %w", err)
		}
		if published.Valid {
			if tl.Published, err = parseTime(published.String); err != nil {
				return nil, nil, fmt.Errorf("decoding published of %s: %w", tl.PaperID, err)
			}
			tl.HasPublished = true
		}
		if now.Valid {
			if tl.Now, err = parseTime(now.String); err != nil {
				return nil, nil, fmt.Errorf("decoding now of %s: %w", tl.PaperID, err)
			}
			tl.HasNow = true
		}
		ranks[tl.PaperID] = rank
		index[tl.PaperID] = len(timelines)
		timelines = append(timelines, tl)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	rows.Close()

	crow, err := s.db.QueryContext(ctx,
		`SELECT paper_id, rank, date FROM citations WHERE run_id = ? ORDER BY paper_id, rank`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying citations: %w", err)
	}
	defer crow.Close()
	for crow.Next() {
		var (
			paperID, date string
			c             types.CitationEvent
		)
		if err := crow.Scan(&paperID, &c.Rank, &date); err != nil {
			return nil, nil, fmt.Errorf("scanning citation: %w", err)
		}
		if c.Date, err = parseTime(date); err != nil {
			return nil, nil, fmt.Errorf("decoding citation of %s: %w", paperID, err)
		}
		i, ok := index[paperID]
		if !ok {
			continue
		}
		timelines[i].Citations = append(timelines[i].Citations, c)
	}
	return timelines, ranks, crow.Err()
}

func (s *Store) loadRates(ctx context.Context, runID string) ([]types.RatePoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, rate FROM rates WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying rates: %w", err)
	}
	defer rows.Close()

	var points []types.RatePoint
	for rows.Next() {
		var (
			date string
			pt   types.RatePoint
		)
		if err := rows.Scan(&date, &pt.Rate); err != nil {
			return nil, fmt.Errorf("scanning rate: %w", err)
		}
		if pt.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("decoding rate date: %w", err)
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}
