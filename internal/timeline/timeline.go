// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package timeline builds the chronological citation timeline of one paper.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/bibliometrics/internal/fetch"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/provider"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// ErrTimestamp is returned when a citing record carries a timestamp that
// cannot be parsed. It aborts the one timeline being built.
var ErrTimestamp = errors.New("bad citation timestamp")

// Builder builds paper timelines from the records citing a paper.
type Builder struct {
	fetcher *fetch.Fetcher
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the source of the right-hand "now" sentinel.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// New returns a Builder that lists citations through f.
func New(f *fetch.Fetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher: f,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build fetches the records citing paperID and returns them as a ranked,
// date-sorted timeline. When published is non-nil it becomes the left
// sentinel; the build time is always the right sentinel. A transport
// failure while listing citations truncates the timeline instead of
// failing it.
func (b *Builder) Build(ctx context.Context, paperID string, published *time.Time, sink progress.Sink) (types.PaperTimeline, error) {
	p := b.fetcher.Provider()
	res := b.fetcher.Fetch(ctx, p.CitesQuery(paperID), sink)

	dates := make([]time.Time, 0, len(res.Records))
	for _, r := range res.Records {
		d, err := provider.ParseTimestamp(r.Date)
		if err != nil {
			return types.PaperTimeline{}, fmt.Errorf("%w: paper %s, citing record %q: %v", ErrTimestamp, paperID, r.ID, err)
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	tl := types.PaperTimeline{
		PaperID:   paperID,
		Citations: make([]types.CitationEvent, len(dates)),
		Now:       b.now().UTC(),
		HasNow:    true,
		Truncated: res.Truncated(),
	}
	for i, d := range dates {
		tl.Citations[i] = types.CitationEvent{Date: d, Rank: i + 1}
	}
	if published != nil {
		tl.Published = published.UTC()
		tl.HasPublished = true
	}

	b.log.Debug().Str("paper_id", paperID).Int("citations", len(dates)).Bool("truncated", tl.Truncated).
		Msg("timeline built")
	return tl, nil
}
