// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OwnPaper is one of the author's papers, ranked by publication date.
type OwnPaper struct {
	ID        string    `json:"id" yaml:"id"`
	Published time.Time `json:"published" yaml:"published"`
	Rank      int       `json:"rank" yaml:"rank"`
}

// RatePoint is one point of the mean citation rate curve.
type RatePoint struct {
	Date time.Time `json:"date" yaml:"date"`
	Rate float64   `json:"rate" yaml:"rate"`
}

// AuthorAggregate is the result of one author statistics request. It is
// built by a single run and must not be modified after it is returned.
type AuthorAggregate struct {
	// Authors are the name aliases the run was started with.
	Authors []string `json:"authors" yaml:"authors"`

	// OwnPapers are the processed papers sorted by publication date.
	OwnPapers []OwnPaper `json:"own_papers" yaml:"own_papers"`

	// AllCitations merges every paper's citations, ranked globally.
	AllCitations []CitationEvent `json:"all_citations" yaml:"all_citations"`

	// MeanCitationRate divides each global rank by the papers published so far.
	MeanCitationRate []RatePoint `json:"mean_citation_rate" yaml:"mean_citation_rate"`

	// PerPaper maps a paper id to its timeline.
	PerPaper map[string]PaperTimeline `json:"per_paper" yaml:"per_paper"`

	HIndex int `json:"h_index" yaml:"h_index"`

	// Skipped maps a paper id to the reason its timeline could not be built.
	Skipped map[string]string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Cancelled is set when the run was stopped before every paper was processed.
	Cancelled bool `json:"cancelled" yaml:"cancelled"`

	// Truncated is set when at least one pagination ended on a transport error.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// TotalCitations returns the cumulative citation count.
func (a *AuthorAggregate) TotalCitations() int {
	return len(a.AllCitations)
}

// CitationCounts returns the per-paper citation counts in OwnPapers order.
func (a *AuthorAggregate) CitationCounts() []int {
	counts := make([]int, 0, len(a.OwnPapers))
	for _, p := range a.OwnPapers {
		counts = append(counts, a.PerPaper[p.ID].CitationCount())
	}
	return counts
}
