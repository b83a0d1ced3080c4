// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibliometrics/internal/fetch"
	"github.com/pdiddy/bibliometrics/internal/job"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
	"github.com/pdiddy/bibliometrics/internal/timeline"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// mapProvider answers every query from a fixed map in a single page.
type mapProvider struct {
	pages map[string][]types.Record
	fail  map[string]bool
}

func (p *mapProvider) Name() string { return "map" }
func (p *mapProvider) AuthorQuery(n string) string { return "author:" + n }
func (p *mapProvider) CitesQuery(id string) string { return "cites:" + id }
func (p *mapProvider) MaxPageSize() int { return 0 }

func (p *mapProvider) FetchPage(_ context.Context, query string, offset, _ int) ([]types.Record, error) {
	if p.fail[query] {
		return nil, errors.New("HTTP 500")
	}
	if offset > 0 {
		return nil, nil
	}
	return p.pages[query], nil
}

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newAggregator(p *mapProvider, opts ...Option) *Aggregator {
	f := fetch.New(p, types.DefaultFetchConfig())
	b := timeline.New(f, timeline.WithClock(func() time.Time { return testNow }))
	opts = append([]Option{WithSleep(func(context.Context, time.Duration) {})}, opts...)
	return New(f, b, types.DefaultStatsConfig(), opts...)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func twoPaperProvider() *mapProvider {
	return &mapProvider{pages: map[string][]types.Record{
		"author:Doe": {
			{ID: "B", Date: "2020-03-01"},
			{ID: "A", Date: "2020-01-01"},
		},
		"cites:A": {
			{ID: "c2", Date: "2021-01-01"},
			{ID: "c1", Date: "2020-06-01"},
		},
		"cites:B": {},
	}}
}

func TestRunAuthors_TwoPapers(t *testing.T) {
	var sink progress.Collector
	m := metrics.New()
	agg, err := newAggregator(twoPaperProvider(), WithMetrics(m)).
		RunAuthors(context.Background(), []string{"Doe"}, &job.Token{}, &sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"Doe"}, agg.Authors)
	assert.Equal(t, []types.OwnPaper{
		{ID: "A", Published: day("2020-01-01"), Rank: 1},
		{ID: "B", Published: day("2020-03-01"), Rank: 2},
	}, agg.OwnPapers)
	assert.Equal(t, []types.CitationEvent{
		{Date: day("2020-06-01"), Rank: 1},
		{Date: day("2021-01-01"), Rank: 2},
	}, agg.AllCitations)
	assert.Equal(t, []types.RatePoint{
		{Date: day("2020-06-01"), Rate: 1},
		{Date: day("2021-01-01"), Rate: 1},
	}, agg.MeanCitationRate)
	assert.Equal(t, 1, agg.HIndex)
	assert.Equal(t, 2, agg.TotalCitations())
	assert.False(t, agg.Cancelled)
	assert.False(t, agg.Truncated)
	assert.Empty(t, agg.Skipped)

	tlA := agg.PerPaper["A"]
	assert.Equal(t, 2, tlA.CitationCount())
	assert.Len(t, tlA.Points(), tlA.CitationCount()+2)
	assert.Equal(t, day("2020-01-01"), tlA.Published)

	tlB := agg.PerPaper["B"]
	assert.Equal(t, 0, tlB.CitationCount())
	assert.Len(t, tlB.Points(), 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PapersProcessed))

	assert.Equal(t, []string{
		"AuthorStats will process 2 total papers",
		"1 / 2 (50.00%) - looking for paper: 'B'",
		"2 / 2 (100.00%) - looking for paper: 'A'",
	}, sink.Texts())
}

func TestRunAuthors_ProgressTextParsesThroughRelay(t *testing.T) {
	var sink progress.Collector
	_, err := newAggregator(twoPaperProvider()).
		RunAuthors(context.Background(), []string{"Doe"}, nil, &sink)
	require.NoError(t, err)

	relay := progress.NewRelay()
	var currents []int
	for _, text := range sink.Texts() {
		if u, ok := relay.FeedLine(text); ok && u.Moved == progress.Current {
			currents = append(currents, u.Current)
		}
	}
	total, ok := relay.Total()
	require.True(t, ok)
	assert.Equal(t, 2, total)
	assert.Equal(t, []int{1, 2}, currents)
}

func manyPapers(n int) *mapProvider {
	p := &mapProvider{pages: map[string][]types.Record{}}
	start := day("2010-01-01")
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("P%02d", i)
		p.pages["author:Roe"] = append(p.pages["author:Roe"],
			types.Record{ID: id, Date: start.AddDate(0, i, 0).Format("2006-01-02")})
		for j := 0; j <= i%3; j++ {
			p.pages["cites:"+id] = append(p.pages["cites:"+id],
				types.Record{ID: fmt.Sprintf("%s-c%d", id, j), Date: start.AddDate(0, i+j+1, 0).Format("2006-01-02")})
		}
	}
	return p
}

func TestRunAuthors_CancelAfterN(t *testing.T) {
	const total, stopAfter = 10, 4
	tok := &job.Token{}
	sink := progress.SinkFunc(func(ev progress.Event) {
		if ev.Kind == progress.Current && ev.Value == stopAfter {
			tok.Cancel()
		}
	})

	agg, err := newAggregator(manyPapers(total)).RunAuthors(context.Background(), []string{"Roe"}, tok, sink)
	require.NoError(t, err)

	assert.True(t, agg.Cancelled)
	assert.True(t, tok.Observed())
	assert.Len(t, agg.PerPaper, stopAfter)
	require.Len(t, agg.OwnPapers, stopAfter)
	for i, p := range agg.OwnPapers {
		assert.Equal(t, fmt.Sprintf("P%02d", i), p.ID)
		assert.Equal(t, i+1, p.Rank)
	}
	// P00..P03 carry 1+2+3+1 citations.
	assert.Equal(t, 7, agg.TotalCitations())
}

func TestRunAuthors_Throttle(t *testing.T) {
	tests := []struct {
		papers    int
		wantSleep int
	}{
		{20, 0},
		{21, 21},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.papers), func(t *testing.T) {
			var sleeps []time.Duration
			a := newAggregator(manyPapers(tt.papers), WithSleep(func(_ context.Context, d time.Duration) {
				sleeps = append(sleeps, d)
			}))
			_, err := a.RunAuthors(context.Background(), []string{"Roe"}, nil, progress.Discard)
			require.NoError(t, err)

			assert.Len(t, sleeps, tt.wantSleep)
			for _, d := range sleeps {
				assert.Equal(t, time.Second, d)
			}
		})
	}
}

func TestRunAuthors_AliasesDeduplicate(t *testing.T) {
	p := &mapProvider{pages: map[string][]types.Record{
		"author:J. Doe":   {{ID: "A", Date: "2020-01-01"}, {ID: "B", Date: "2020-03-01"}},
		"author:Jane Doe": {{ID: "B", Date: "1999-01-01"}, {ID: "C", Date: "2021-01-01"}},
	}}
	agg, err := newAggregator(p).RunAuthors(context.Background(), []string{"J. Doe", " ", "Jane Doe"}, nil, progress.Discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"J. Doe", "Jane Doe"}, agg.Authors)
	require.Len(t, agg.OwnPapers, 3)
	assert.Equal(t, "B", agg.OwnPapers[1].ID)
	assert.Equal(t, day("2020-03-01"), agg.OwnPapers[1].Published, "first occurrence wins")
	assert.Equal(t, 0, agg.HIndex)
}

func TestRunAuthors_SkipsPaperOnBadCitationDate(t *testing.T) {
	p := twoPaperProvider()
	p.pages["cites:B"] = []types.Record{{ID: "c3", Date: "not a date"}}
	var sink progress.Collector

	agg, err := newAggregator(p).RunAuthors(context.Background(), []string{"Doe"}, nil, &sink)
	require.NoError(t, err)

	assert.Contains(t, agg.Skipped, "B")
	assert.NotContains(t, agg.PerPaper, "B")
	require.Len(t, agg.OwnPapers, 1)
	assert.Equal(t, "A", agg.OwnPapers[0].ID)
	assert.Equal(t, 2, agg.TotalCitations())
	assert.Len(t, sink.OfKind(progress.Warning), 1)
}

func TestRunAuthors_TruncatedCitationsFlagged(t *testing.T) {
	p := twoPaperProvider()
	p.fail = map[string]bool{"cites:B": true}

	agg, err := newAggregator(p).RunAuthors(context.Background(), []string{"Doe"}, nil, progress.Discard)
	require.NoError(t, err)

	assert.True(t, agg.Truncated)
	assert.True(t, agg.PerPaper["B"].Truncated)
	assert.Len(t, agg.OwnPapers, 2)
	assert.Equal(t, 2, agg.TotalCitations())
}

func TestRunAuthors_Errors(t *testing.T) {
	t.Run("no authors", func(t *testing.T) {
		_, err := newAggregator(twoPaperProvider()).RunAuthors(context.Background(), []string{"", "  "}, nil, progress.Discard)
		assert.ErrorIs(t, err, ErrNoAuthors)
	})
	t.Run("discovery transport failure", func(t *testing.T) {
		p := twoPaperProvider()
		p.fail = map[string]bool{"author:Doe": true}
		_, err := newAggregator(p).RunAuthors(context.Background(), []string{"Doe"}, nil, progress.Discard)
		assert.ErrorIs(t, err, ErrDiscovery)
	})
	t.Run("bad publication date", func(t *testing.T) {
		p := twoPaperProvider()
		p.pages["author:Doe"] = []types.Record{{ID: "A", Date: "soon"}}
		_, err := newAggregator(p).RunAuthors(context.Background(), []string{"Doe"}, nil, progress.Discard)
		assert.ErrorIs(t, err, ErrDiscovery)
	})
}

func TestRunPaper(t *testing.T) {
	pub := day("2020-01-01")
	tl, err := newAggregator(twoPaperProvider()).RunPaper(context.Background(), "A", &pub, progress.Discard)
	require.NoError(t, err)

	assert.Equal(t, 2, tl.CitationCount())
	assert.Len(t, tl.Points(), 4)
	assert.Equal(t, testNow, tl.Now)

	_, err = newAggregator(twoPaperProvider()).RunPaper(context.Background(), " ", nil, progress.Discard)
	assert.Error(t, err)
}

func TestHIndex(t *testing.T) {
	tests := []struct {
		counts []int
		want   int
	}{
		{nil, 0},
		{[]int{0, 0}, 0},
		{[]int{5, 3, 3, 1, 0}, 3},
		{[]int{1}, 1},
		{[]int{10, 10, 10}, 3},
		{[]int{0, 1, 3, 5, 6}, 3},
	}
	for _, tt := range tests {
		if got := HIndex(tt.counts); got != tt.want {
			t.Errorf("HIndex(%v) = %d, want %d", tt.counts, got, tt.want)
		}
	}
}

func TestMeanCitationRate_DenominatorsNonDecreasing(t *testing.T) {
	p := manyPapers(15)
	agg, err := newAggregator(p).RunAuthors(context.Background(), []string{"Roe"}, nil, progress.Discard)
	require.NoError(t, err)
	require.Len(t, agg.MeanCitationRate, agg.TotalCitations())

	prev := 0.0
	for i, pt := range agg.MeanCitationRate {
		denom := math.Round(float64(agg.AllCitations[i].Rank) / pt.Rate)
		assert.GreaterOrEqual(t, denom, prev, "point %d", i)
		assert.LessOrEqual(t, denom, float64(len(agg.OwnPapers)))
		prev = denom
	}
}

func TestMeanCitationRate_CountsEveryEarlierPaper(t *testing.T) {
	var papers []types.OwnPaper
	for i := 0; i < 10; i++ {
		papers = append(papers, types.OwnPaper{
			ID:        fmt.Sprintf("P%02d", i),
			Published: day("2020-01-01").AddDate(0, i, 0),
			Rank:      i + 1,
		})
	}
	citations := []types.CitationEvent{
		{Date: day("2022-01-01"), Rank: 1},
		{Date: day("2022-02-01"), Rank: 2},
		{Date: day("2022-03-01"), Rank: 3},
	}

	assert.Equal(t, []types.RatePoint{
		{Date: day("2022-01-01"), Rate: 1},
		{Date: day("2022-02-01"), Rate: 0.2},
		{Date: day("2022-03-01"), Rate: 0.3},
	}, MeanCitationRate(papers, citations))
}

func TestMeanCitationRate_StopsAtFuturePapers(t *testing.T) {
	papers := []types.OwnPaper{
		{ID: "A", Published: day("2020-01-01"), Rank: 1},
		{ID: "B", Published: day("2020-02-01"), Rank: 2},
		{ID: "C", Published: day("2023-01-01"), Rank: 3},
	}
	citations := []types.CitationEvent{
		{Date: day("2021-01-01"), Rank: 1},
		{Date: day("2021-06-01"), Rank: 2},
		{Date: day("2023-01-01"), Rank: 3},
		{Date: day("2023-02-01"), Rank: 4},
	}

	got := MeanCitationRate(papers, citations)
	require.Len(t, got, 4)
	var denoms []float64
	for i, pt := range got {
		denoms = append(denoms, math.Round(float64(citations[i].Rank)/pt.Rate))
	}
	assert.Equal(t, []float64{1, 2, 2, 3}, denoms)
}

func TestMeanCitationRate_NoPapers(t *testing.T) {
	assert.Empty(t, MeanCitationRate(nil, []types.CitationEvent{{Rank: 1}}))
}

func TestRankOwnPapers_TiesByID(t *testing.T) {
	d := day("2020-01-01")
	got := RankOwnPapers([]Discovered{{ID: "b", Published: d}, {ID: "a", Published: d}})
	assert.Equal(t, []types.OwnPaper{
		{ID: "a", Published: d, Rank: 1},
		{ID: "b", Published: d, Rank: 2},
	}, got)
}
