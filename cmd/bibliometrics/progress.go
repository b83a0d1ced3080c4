// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pdiddy/bibliometrics/internal/job"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
)

// display prints progress events to w until events is closed. In quiet mode
// only warnings and a running counter parsed by the relay are shown.
func display(w io.Writer, events <-chan progress.Event, quiet bool) {
	relay := progress.NewRelay()
	counting := false
	for ev := range events {
		u, moved := relay.Feed(ev)
		if !quiet {
			fmt.Fprintln(w, ev.Text)
			continue
		}
		switch {
		case ev.Kind == progress.Warning:
			if counting {
				fmt.Fprintln(w)
				counting = false
			}
			fmt.Fprintln(w, ev.Text)
		case moved && u.Moved == progress.Current:
			total, _ := relay.Total()
			fmt.Fprintf(w, "\r%d / %d papers", u.Current, total)
			counting = true
		}
	}
	if counting {
		fmt.Fprintln(w)
	}
}

// runJob starts r, stops it cooperatively on SIGINT or SIGTERM, relays its
// progress to stderr and returns its result.
func runJob[T any](ctx context.Context, r *job.Runner[T], quiet bool) (T, error) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			fmt.Fprintln(os.Stderr, "stopping after the current paper...")
			r.Stop()
		case <-done:
		}
	}()

	if err := r.Start(ctx); err != nil {
		var zero T
		return zero, err
	}
	display(os.Stderr, r.Events(), quiet)
	return r.Wait()
}

func writeMetrics(m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
