// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"strconv"
	"strings"
)

// Marker selects the lines carrying one counter. A line matches when it
// contains Contains; the counter is the first decimal integer found after
// the first occurrence of After, or from the start of the line when After
// is empty.
type Marker struct {
	Contains string
	After    string
}

// Extract returns the counter in line, if the line matches.
func (m Marker) Extract(line string) (int, bool) {
	if m.Contains == "" || !strings.Contains(line, m.Contains) {
		return 0, false
	}
	rest := line
	if m.After != "" {
		i := strings.Index(line, m.After)
		if i < 0 {
			return 0, false
		}
		rest = line[i+len(m.After):]
	}
	return firstInt(rest)
}

// firstInt returns the first run of ASCII digits in s.
func firstInt(s string) (int, bool) {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Default markers match the lines written by the author statistics run:
//
//	AuthorStats will process 128 total papers
//	12 / 128 (9.38%) - looking for paper: '1234'
var (
	DefaultTotalMarker   = Marker{Contains: "will process", After: "will process"}
	DefaultCurrentMarker = Marker{Contains: "looking for paper"}
)

// Update is the relay's state after an event moved a counter.
type Update struct {
	// Moved is Total or Current, naming the counter the event changed.
	Moved   Kind
	Total   int
	Current int
}

// Relay extracts current/total progress from a stream of events. Total is
// latched the first time it is seen; Current follows every match. A Relay
// is used by a single consumer goroutine.
type Relay struct {
	TotalMarker   Marker
	CurrentMarker Marker

	total    int
	hasTotal bool
	current  int
}

// NewRelay returns a relay using the default markers.
func NewRelay() *Relay {
	return &Relay{
		TotalMarker:   DefaultTotalMarker,
		CurrentMarker: DefaultCurrentMarker,
	}
}

// Feed consumes one event. It reports true when the event moved a counter;
// otherwise the event is plain text for display.
func (r *Relay) Feed(ev Event) (Update, bool) {
	switch ev.Kind {
	case Total:
		return r.setTotal(ev.Value)
	case Current:
		return r.setCurrent(ev.Value)
	default:
		return r.FeedLine(ev.Text)
	}
}

// FeedLine scans one line of text for the configured markers.
func (r *Relay) FeedLine(line string) (Update, bool) {
	if !r.hasTotal {
		if n, ok := r.TotalMarker.Extract(line); ok {
			return r.setTotal(n)
		}
	}
	if n, ok := r.CurrentMarker.Extract(line); ok {
		return r.setCurrent(n)
	}
	return r.state(), false
}

func (r *Relay) setTotal(n int) (Update, bool) {
	if r.hasTotal {
		return r.state(), false
	}
	r.total = n
	r.hasTotal = true
	u := r.state()
	u.Moved = Total
	return u, true
}

func (r *Relay) setCurrent(n int) (Update, bool) {
	r.current = n
	u := r.state()
	u.Moved = Current
	return u, true
}

// Total returns the latched total and whether one was seen.
func (r *Relay) Total() (int, bool) { return r.total, r.hasTotal }

// Current returns the last current value.
func (r *Relay) Current() int { return r.current }

func (r *Relay) state() Update {
	return Update{Moved: Line, Total: r.total, Current: r.current}
}
