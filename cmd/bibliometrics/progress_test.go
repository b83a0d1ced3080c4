// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/bibliometrics/internal/progress"
)

func feed(events ...progress.Event) <-chan progress.Event {
	ch := make(chan progress.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func sampleEvents() []progress.Event {
	var c progress.Collector
	progress.EmitTotal(&c, 2, "AuthorStats will process 2 total papers")
	progress.EmitCurrent(&c, 1, "1 / 2 (50.00%) - looking for paper: 'A'")
	progress.Warnf(&c, "skipping paper A: bad citation timestamp")
	progress.EmitCurrent(&c, 2, "2 / 2 (100.00%) - looking for paper: 'B'")
	return c.Events()
}

func TestDisplay_Lines(t *testing.T) {
	var buf bytes.Buffer
	display(&buf, feed(sampleEvents()...), false)
	assert.Equal(t, "AuthorStats will process 2 total papers\n"+
		"1 / 2 (50.00%) - looking for paper: 'A'\n"+
		"warning: skipping paper A: bad citation timestamp\n"+
		"2 / 2 (100.00%) - looking for paper: 'B'\n", buf.String())
}

func TestDisplay_Quiet(t *testing.T) {
	var buf bytes.Buffer
	display(&buf, feed(sampleEvents()...), true)
	assert.Equal(t, "\r1 / 2 papers\n"+
		"warning: skipping paper A: bad citation timestamp\n"+
		"\r2 / 2 papers\n", buf.String())
}
