// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stats

import (
	"sort"
	"time"

	"github.com/pdiddy/bibliometrics/pkg/types"
)

// Discovered is an author paper found during discovery.
type Discovered struct {
	ID        string
	Published time.Time
}

// RankOwnPapers sorts papers by publication date, ties broken by id, and
// ranks them 1..n.
func RankOwnPapers(papers []Discovered) []types.OwnPaper {
	out := make([]types.OwnPaper, len(papers))
	for i, p := range papers {
		out[i] = types.OwnPaper{ID: p.ID, Published: p.Published}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Published.Equal(out[j].Published) {
			return out[i].Published.Before(out[j].Published)
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MergeCitations gathers the true citations of every timeline, sorts them
// by date and ranks them globally 1..n. Sentinels are never included.
func MergeCitations(timelines map[string]types.PaperTimeline) []types.CitationEvent {
	var dates []time.Time
	for _, tl := range timelines {
		for _, c := range tl.Citations {
			dates = append(dates, c.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]types.CitationEvent, len(dates))
	for i, d := range dates {
		out[i] = types.CitationEvent{Date: d, Rank: i + 1}
	}
	return out
}

// MeanCitationRate walks the global citations and the ranked papers
// together. Each point divides the citation's global rank by the number of
// papers counted so far, which starts at one. After a point is recorded the
// count moves past every paper published on or before the citation date, so
// later points divide by the papers already out. The denominator never
// decreases.
func MeanCitationRate(papers []types.OwnPaper, citations []types.CitationEvent) []types.RatePoint {
	if len(papers) == 0 {
		return nil
	}
	out := make([]types.RatePoint, 0, len(citations))
	soFar := 1
	for _, c := range citations {
		out = append(out, types.RatePoint{Date: c.Date, Rate: float64(c.Rank) / float64(soFar)})
		for soFar < len(papers) && !c.Date.Before(papers[soFar].Published) {
			soFar++
		}
	}
	return out
}

// HIndex returns the largest h such that h papers have at least h
// citations each. No papers gives 0.
func HIndex(counts []int) int {
	sorted := append([]int(nil), counts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	h := 0
	for i, c := range sorted {
		if c < i+1 {
			break
		}
		h = i + 1
	}
	return h
}
