// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch walks every page of a provider query.
//
// Pagination stops at the first page shorter than the page size, so a
// result set whose size is an exact multiple of the page size costs one
// extra request that returns nothing; providers are not assumed to report
// a total. A failed page ends pagination as if it were empty: the records
// gathered so far are returned, the failure is reported as a warning event
// and kept in Result.Err. There are no retries.
package fetch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/bibliometrics/internal/httputil"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/provider"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// Result is the outcome of one Fetch.
type Result struct {
	// Records is the concatenation of every page received.
	Records []types.Record

	// Pages counts the pages received, including a final short or empty page.
	Pages int

	// Err is the failure that ended pagination early, nil otherwise.
	Err error
}

// Truncated reports whether pagination ended on a failure.
func (r Result) Truncated() bool { return r.Err != nil }

// Fetcher pages through provider queries. A Fetcher may be shared by
// sequential fetches of one job; it holds no per-query state.
type Fetcher struct {
	provider provider.Provider
	pageSize int
	throttle *httputil.Throttle
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMetrics records requests and failures in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New returns a Fetcher for p. The page size defaults to 250 and is capped
// at the provider's maximum; cfg.RequestDelay spaces consecutive requests.
func New(p provider.Provider, cfg types.FetchConfig, opts ...Option) *Fetcher {
	size := cfg.PageSize
	if size <= 0 {
		size = types.DefaultPageSize
	}
	if limit := p.MaxPageSize(); limit > 0 && size > limit {
		size = limit
	}
	f := &Fetcher{
		provider: p,
		pageSize: size,
		throttle: httputil.NewThrottle(cfg.RequestDelay),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With().Str("provider", p.Name()).Logger()
	return f
}

// Provider returns the provider the fetcher pages through.
func (f *Fetcher) Provider() provider.Provider { return f.provider }

// PageSize returns the effective page size.
func (f *Fetcher) PageSize() int { return f.pageSize }

// Fetch returns every record matching query.
func (f *Fetcher) Fetch(ctx context.Context, query string, sink progress.Sink) Result {
	var res Result
	for page := 0; ; page++ {
		offset := page * f.pageSize

		err := f.throttle.Wait(ctx)
		var records []types.Record
		if err == nil {
			records, err = f.provider.FetchPage(ctx, query, offset, f.pageSize)
		}
		if err != nil {
			res.Err = fmt.Errorf("page %d of %q: %w", page+1, query, err)
			f.metrics.PageFailed(f.provider.Name())
			f.log.Warn().Err(err).Str("query", query).Int("page", page+1).Int("records", len(res.Records)).
				Msg("page request failed, ending pagination")
			progress.Warnf(sink, "%s: page %d of %q failed, keeping %d records: %v",
				f.provider.Name(), page+1, query, len(res.Records), err)
			return res
		}

		f.metrics.Request(f.provider.Name(), len(records))
		res.Pages++
		res.Records = append(res.Records, records...)
		f.log.Debug().Str("query", query).Int("page", page+1).Int("records", len(records)).Msg("page received")

		if len(records) < f.pageSize {
			return res
		}
	}
}
