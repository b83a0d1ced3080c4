// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package job

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibliometrics/internal/metrics"
	"github.com/pdiddy/bibliometrics/internal/progress"
)

func drain(ch <-chan progress.Event) []string {
	var out []string
	for ev := range ch {
		out = append(out, ev.Text)
	}
	return out
}

func TestRunner_CompletesAndRelaysInOrder(t *testing.T) {
	r := New("count", func(_ context.Context, _ *Token, sink progress.Sink) (int, error) {
		for i := 0; i < 500; i++ {
			progress.Linef(sink, "line %d", i)
		}
		return 42, nil
	})
	assert.Equal(t, Idle, r.State())
	assert.NotEmpty(t, r.ID)

	require.NoError(t, r.Start(context.Background()))
	lines := drain(r.Events())
	got, err := r.Wait()

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, Completed, r.State())
	require.Len(t, lines, 500)
	for i, l := range lines {
		assert.Equal(t, fmt.Sprintf("line %d", i), l)
	}
}

func TestRunner_StartTwice(t *testing.T) {
	r := New("noop", func(context.Context, *Token, progress.Sink) (struct{}, error) {
		return struct{}{}, nil
	})
	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)
	drain(r.Events())
	_, err := r.Wait()
	assert.NoError(t, err)
}

func TestRunner_WaitBeforeStart(t *testing.T) {
	r := New("noop", func(context.Context, *Token, progress.Sink) (int, error) {
		return 7, nil
	})
	got, err := r.Wait()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Zero(t, got)
	assert.Equal(t, Idle, r.State())
}

func TestRunner_CancelledKeepsPartialResult(t *testing.T) {
	reached := make(chan struct{})
	proceed := make(chan struct{})
	r := New("loop", func(_ context.Context, tok *Token, sink progress.Sink) (int, error) {
		done := 0
		for i := 0; i < 10; i++ {
			if tok.Cancelled() {
				progress.Linef(sink, "stopping after %d", done)
				break
			}
			if i == 3 {
				close(reached)
				<-proceed
			}
			done++
		}
		return done, nil
	})
	require.NoError(t, r.Start(context.Background()))

	linesCh := make(chan []string, 1)
	go func() { linesCh <- drain(r.Events()) }()

	<-reached
	r.Stop()
	close(proceed)

	got, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 4, got)
	assert.Equal(t, Cancelled, r.State())
	assert.Equal(t, []string{"stopping after 4"}, <-linesCh)
}

func TestRunner_StopNotObservedCompletes(t *testing.T) {
	r := New("ignore", func(context.Context, *Token, progress.Sink) (string, error) {
		return "done", nil
	})
	r.Stop()
	require.NoError(t, r.Start(context.Background()))
	drain(r.Events())
	got, err := r.Wait()

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, Completed, r.State())
}

func TestRunner_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		work    Work[int]
		wantErr error
	}{
		{"error", func(context.Context, *Token, progress.Sink) (int, error) { return 0, boom }, boom},
		{"panic", func(context.Context, *Token, progress.Sink) (int, error) { panic("kaboom") }, ErrPanic},
		{
			"error after cancel",
			func(_ context.Context, tok *Token, _ progress.Sink) (int, error) {
				tok.Cancel()
				tok.Cancelled()
				return 0, boom
			},
			boom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			r := New("fail", tt.work, WithMetrics(m))
			require.NoError(t, r.Start(context.Background()))
			drain(r.Events())
			_, err := r.Wait()

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Failed, r.State())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Jobs.WithLabelValues("failed")))
		})
	}
}

func TestToken(t *testing.T) {
	var tok Token
	assert.False(t, tok.Cancelled())
	assert.False(t, tok.Observed())

	tok.Cancel()
	assert.False(t, tok.Observed(), "cancel alone is not an observation")
	assert.True(t, tok.Cancelled())
	assert.True(t, tok.Observed())

	var nilTok *Token
	nilTok.Cancel()
	assert.False(t, nilTok.Cancelled())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.True(t, Failed.Terminal())
	assert.False(t, Running.Terminal())
}
