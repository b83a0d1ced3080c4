// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bibliometrics engine:
// remote records, paper citation timelines, and author aggregates.
package types

import "time"

// Record is one item of a remote result page. Date holds the provider's raw
// timestamp: the creation date of a citing record, or the publication date
// of an author's own paper. Parsing is left to the consumer so that a bad
// timestamp fails the build that needs it.
type Record struct {
	ID   string `json:"id" yaml:"id"`
	Date string `json:"date" yaml:"date"`
}

// CitationEvent is one dated point on a citation curve. Rank is the 1-based
// position of the event in date order; sentinels carry the neighbouring rank.
type CitationEvent struct {
	Date time.Time `json:"date" yaml:"date"`
	Rank int       `json:"rank" yaml:"rank"`
}

// PaperTimeline holds the chronologically sorted citations of one paper.
// The publication date and the build time are kept as optional sentinels
// instead of being mixed into Citations, so CitationCount never has to
// subtract padding.
type PaperTimeline struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Published is the left sentinel, valid when HasPublished is set.
	Published    time.Time `json:"published" yaml:"published"`
	HasPublished bool      `json:"has_published" yaml:"has_published"`

	// Citations are the true citation events, ranked 1..n in date order.
	Citations []CitationEvent `json:"citations" yaml:"citations"`

	// Now is the right sentinel, valid when HasNow is set.
	Now    time.Time `json:"now" yaml:"now"`
	HasNow bool      `json:"has_now" yaml:"has_now"`

	// Truncated is set when the citation listing ended on a transport error.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// CitationCount returns the number of true citations, sentinels excluded.
func (t PaperTimeline) CitationCount() int {
	return len(t.Citations)
}

// Sentinels returns how many sentinel points Points adds (0, 1, or 2).
func (t PaperTimeline) Sentinels() int {
	n := 0
	if t.HasPublished {
		n++
	}
	if t.HasNow {
		n++
	}
	return n
}

// Points returns the sentinel-padded curve: the publication date at rank 0,
// the citations, and the build time carrying the last citation rank. Dates
// are non-decreasing; a publication date later than the first citation is
// pulled back to that citation's date.
func (t PaperTimeline) Points() []CitationEvent {
	points := make([]CitationEvent, 0, len(t.Citations)+2)
	if t.HasPublished {
		left := t.Published
		if len(t.Citations) > 0 && t.Citations[0].Date.Before(left) {
			left = t.Citations[0].Date
		}
		points = append(points, CitationEvent{Date: left, Rank: 0})
	}
	points = append(points, t.Citations...)
	if t.HasNow {
		last := 0
		if n := len(t.Citations); n > 0 {
			last = t.Citations[n-1].Rank
		}
		right := t.Now
		if len(points) > 0 && right.Before(points[len(points)-1].Date) {
			right = points[len(points)-1].Date
		}
		points = append(points, CitationEvent{Date: right, Rank: last})
	}
	return points
}
