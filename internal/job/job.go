// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package job runs one long statistics request on its own goroutine,
// relaying its progress events to the caller and exposing a cooperative
// stop. A Runner is single use: a new request needs a new Runner.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/bibliometrics/internal/logging"
	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
)

// State is the lifecycle state of a Runner.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("job already started")

	// ErrNotStarted is returned by Wait on a Runner that was never started.
	ErrNotStarted = errors.New("job not started")

	// ErrPanic wraps a panic recovered from the work function.
	ErrPanic = errors.New("job panicked")
)

// Work is the function a Runner executes. It must poll tok between units of
// work and return early, with whatever partial result it has, once
// tok.Cancelled reports true.
type Work[T any] func(ctx context.Context, tok *Token, sink progress.Sink) (T, error)

// Option configures a Runner.
type Option func(*options)

type options struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the logger. The job id and kind are added to it.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records job outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Runner executes a Work function once.
type Runner[T any] struct {
	ID   string
	Kind string

	work    Work[T]
	tok     Token
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	queue   []progress.Event
	closed  bool
	notify  chan struct{}
	events  chan progress.Event
	drained chan struct{}

	result T
	err    error
}

// New returns an idle Runner for work. kind names the request for logs.
func New[T any](kind string, work Work[T], opts ...Option) *Runner[T] {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.NewString()
	return &Runner[T]{
		ID:      id,
		Kind:    kind,
		work:    work,
		log:     logging.WithJob(o.log, id, kind),
		metrics: o.metrics,
		notify:  make(chan struct{}, 1),
		events:  make(chan progress.Event),
		drained: make(chan struct{}),
	}
}

// Start launches the work function. It returns ErrAlreadyStarted when the
// Runner has been started before.
func (r *Runner[T]) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.state = Running
	r.mu.Unlock()

	r.log.Info().Msg("job started")
	go r.pump()
	go r.run(ctx)
	return nil
}

// Stop asks the work function to stop at its next cancellation poll.
// It does not wait.
func (r *Runner[T]) Stop() {
	r.log.Info().Msg("stop requested")
	r.tok.Cancel()
}

// Events returns the progress stream in emission order. The channel is
// closed once the job is terminal and every event has been delivered.
func (r *Runner[T]) Events() <-chan progress.Event {
	return r.events
}

// Wait blocks until the job is terminal and its event stream is drained,
// then returns the work function's result. Events must be consumed, either
// before calling Wait or from another goroutine. An idle Runner returns
// ErrNotStarted.
func (r *Runner[T]) Wait() (T, error) {
	if r.State() == Idle {
		var zero T
		return zero, ErrNotStarted
	}
	<-r.drained
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

// State returns the current state.
func (r *Runner[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner[T]) run(ctx context.Context) {
	start := time.Now()
	result, err := r.call(ctx)

	state := Completed
	switch {
	case err != nil:
		state = Failed
	case r.tok.Observed():
		state = Cancelled
	}

	r.metrics.JobFinished(state.String(), time.Since(start))
	ev := r.log.Info()
	if err != nil {
		ev = r.log.Error().Err(err)
	}
	ev.Str("state", state.String()).Dur("elapsed", time.Since(start)).Msg("job finished")

	r.mu.Lock()
	r.result, r.err, r.state = result, err, state
	r.closed = true
	r.mu.Unlock()
	r.wake()
}

func (r *Runner[T]) call(ctx context.Context) (result T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return r.work(ctx, &r.tok, progress.SinkFunc(r.push))
}

// push appends ev to the unbounded queue. Events emitted after the job is
// terminal are dropped.
func (r *Runner[T]) push(ev progress.Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, ev)
	r.mu.Unlock()
	r.wake()
}

func (r *Runner[T]) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// pump moves queued events to the consumer so the worker never blocks on a
// slow reader.
func (r *Runner[T]) pump() {
	defer close(r.drained)
	defer close(r.events)
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue[0] = progress.Event{}
			r.queue = r.queue[1:]
			r.mu.Unlock()
			r.events <- ev
			continue
		}
		done := r.closed
		r.mu.Unlock()
		if done {
			return
		}
		<-r.notify
	}
}
