// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress defines the events a running job streams to its caller
// and the relay that turns them into current/total counters.
//
// Every event carries human-readable Text. Total and Current events also
// carry a Value, so consumers that understand them never scan text; other
// consumers just print Text.
package progress

import (
	"fmt"
	"sync"
)

// Kind tags an Event.
type Kind int

const (
	// Line is opaque log text.
	Line Kind = iota
	// Warning is log text describing a recovered failure.
	Warning
	// Total announces the number of items the job will process.
	Total
	// Current reports the 1-based index of the item being processed.
	Current
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Warning:
		return "warning"
	case Total:
		return "total"
	case Current:
		return "current"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one progress message.
type Event struct {
	Kind  Kind
	Text  string
	Value int
}

// Sink receives events in emission order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Linef emits a Line event.
func Linef(s Sink, format string, args ...any) {
	s.Emit(Event{Kind: Line, Text: fmt.Sprintf(format, args...)})
}

// Warnf emits a Warning event. The text is prefixed with "warning: ".
func Warnf(s Sink, format string, args ...any) {
	s.Emit(Event{Kind: Warning, Text: "warning: " + fmt.Sprintf(format, args...)})
}

// EmitTotal emits a Total event with the given text.
func EmitTotal(s Sink, total int, text string) {
	s.Emit(Event{Kind: Total, Text: text, Value: total})
}

// EmitCurrent emits a Current event with the given text.
func EmitCurrent(s Sink, current int, text string) {
	s.Emit(Event{Kind: Current, Text: text, Value: current})
}

// Collector records events. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev.
func (c *Collector) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Texts returns the Text of every recorded event.
func (c *Collector) Texts() []string {
	events := c.Events()
	texts := make([]string, len(events))
	for i, ev := range events {
		texts[i] = ev.Text
	}
	return texts
}

// OfKind returns the recorded events of kind k.
func (c *Collector) OfKind(k Kind) []Event {
	var out []Event
	for _, ev := range c.Events() {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}
