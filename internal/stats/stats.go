// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats computes author level bibliometrics: paper discovery across
// name aliases, per-paper citation timelines, the merged citation curve,
// the mean citation rate and the h-index.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/bibliometrics/internal/fetch"
	"github.com/pdiddy/bibliometrics/internal/job"
	"github.com/pdiddy/bibliometrics/internal/logging"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/provider"
	"github.com/pdiddy/bibliometrics/internal/timeline"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

var (
	// ErrNoAuthors is returned when no non-blank author name is given.
	ErrNoAuthors = errors.New("no author names given")

	// ErrDiscovery is returned when the author's own paper list cannot be
	// retrieved. It aborts the whole run.
	ErrDiscovery = errors.New("paper discovery failed")
)

// Aggregator runs author and paper statistics against one provider.
type Aggregator struct {
	fetcher *fetch.Fetcher
	builder *timeline.Builder
	cfg     types.StatsConfig
	log     zerolog.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithMetrics records paper outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithSleep replaces the throttle sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(a *Aggregator) { a.sleep = sleep }
}

// New returns an Aggregator that discovers papers through f and builds
// timelines with b.
func New(f *fetch.Fetcher, b *timeline.Builder, cfg types.StatsConfig, opts ...Option) *Aggregator {
	if cfg.ThrottleAfter <= 0 {
		cfg.ThrottleAfter = types.DefaultThrottleAfter
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}
	a := &Aggregator{
		fetcher: f,
		builder: b,
		cfg:     cfg,
		log:     zerolog.Nop(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RunPaper builds the citation timeline of a single paper.
func (a *Aggregator) RunPaper(ctx context.Context, paperID string, published *time.Time, sink progress.Sink) (types.PaperTimeline, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return types.PaperTimeline{}, errors.New("empty paper id")
	}
	return a.builder.Build(ctx, paperID, published, sink)
}

// RunAuthors computes the aggregate of every paper written under any of
// names. A stop observed through tok ends the paper loop early; the partial
// aggregate is returned with Cancelled set and a nil error.
func (a *Aggregator) RunAuthors(ctx context.Context, names []string, tok *job.Token, sink progress.Sink) (*types.AuthorAggregate, error) {
	var aliases []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			aliases = append(aliases, n)
		}
	}
	if len(aliases) == 0 {
		return nil, ErrNoAuthors
	}
	log := a.log.With().Strs("authors", aliases).Logger()

	agg := &types.AuthorAggregate{
		Authors:  aliases,
		PerPaper: make(map[string]types.PaperTimeline),
		Skipped:  make(map[string]string),
	}

	papers, truncated, err := a.discover(ctx, aliases, sink)
	if err != nil {
		return nil, err
	}
	agg.Truncated = truncated

	n := len(papers)
	progress.EmitTotal(sink, n, fmt.Sprintf("AuthorStats will process %d total papers", n))
	log.Info().Int("papers", n).Msg("discovery finished")

	for i, p := range papers {
		if tok.Cancelled() {
			agg.Cancelled = true
			log.Info().Int("processed", i).Int("papers", n).Msg("stopped by request")
			break
		}
		pct := float64(i+1) * 100 / float64(n)
		progress.EmitCurrent(sink, i+1, fmt.Sprintf("%d / %d (%.2f%%) - looking for paper: '%s'", i+1, n, pct, p.ID))

		if n > a.cfg.ThrottleAfter {
			a.sleep(ctx, a.cfg.ThrottleDelay)
		}

		published := p.Published
		tl, err := a.builder.Build(ctx, p.ID, &published, sink)
		if err != nil {
			plog := logging.WithPaper(log, p.ID)
			plog.Warn().Err(err).Msg("skipping paper")
			progress.Warnf(sink, "skipping paper %s: %v", p.ID, err)
			agg.Skipped[p.ID] = err.Error()
			a.metrics.Paper(false)
			continue
		}
		agg.PerPaper[p.ID] = tl
		if tl.Truncated {
			agg.Truncated = true
		}
		a.metrics.Paper(true)
	}

	finalize(agg, papers)
	log.Info().Int("papers", len(agg.OwnPapers)).Int("citations", agg.TotalCitations()).
		Int("h_index", agg.HIndex).Bool("cancelled", agg.Cancelled).Msg("author stats finished")
	return agg, nil
}

// discover lists the papers of every alias in order, keeping the first
// occurrence of each paper id.
func (a *Aggregator) discover(ctx context.Context, aliases []string, sink progress.Sink) ([]Discovered, bool, error) {
	p := a.fetcher.Provider()
	seen := make(map[string]bool)
	var (
		papers    []Discovered
		truncated bool
	)
	for _, name := range aliases {
		res := a.fetcher.Fetch(ctx, p.AuthorQuery(name), sink)
		if res.Err != nil && res.Pages == 0 {
			return nil, false, fmt.Errorf("%w: author %q: %v", ErrDiscovery, name, res.Err)
		}
		truncated = truncated || res.Truncated()

		for _, r := range res.Records {
			if r.ID == "" {
				a.log.Warn().Str("author", name).Msg("record without id")
				progress.Warnf(sink, "author %q: skipping record without id", name)
				continue
			}
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			published, err := provider.ParseTimestamp(r.Date)
			if err != nil {
				return nil, false, fmt.Errorf("%w: author %q, paper %s: %v", ErrDiscovery, name, r.ID, err)
			}
			papers = append(papers, Discovered{ID: r.ID, Published: published})
		}
	}
	return papers, truncated, nil
}

// finalize derives the ranked papers, the merged citations, the rate curve
// and the h-index from the timelines gathered so far.
func finalize(agg *types.AuthorAggregate, papers []Discovered) {
	var processed []Discovered
	for _, p := range papers {
		if _, ok := agg.PerPaper[p.ID]; ok {
			processed = append(processed, p)
		}
	}
	agg.OwnPapers = RankOwnPapers(processed)
	agg.AllCitations = MergeCitations(agg.PerPaper)
	agg.MeanCitationRate = MeanCitationRate(agg.OwnPapers, agg.AllCitations)
	agg.HIndex = HIndex(agg.CitationCounts())
}
