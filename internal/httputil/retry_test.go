// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

// statusServer answers with statuses in order, repeating the last one.
func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if n > len(statuses) {
			n = len(statuses)
		}
		w.WriteHeader(statuses[n-1])
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"default config sends once", []int{429, 200}, 0, 429, 1},
		{"negative treated as zero", []int{429, 200}, -3, 429, 1},
		{"ok on first try", []int{200}, 0, 200, 1},
		{"recovers within budget", []int{429, 429, 200}, 2, 200, 3},
		{"budget spent returns last 429", []int{429}, 2, 429, 3},
		{"server error is not retried", []int{503, 200}, 4, 503, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := statusServer(t, tt.statuses...)
			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetry_StopsWhenContextEnds(t *testing.T) {
	ts, calls := statusServer(t, http.StatusTooManyRequests)

	old := RetryBaseDelay
	RetryBaseDelay = time.Second
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "bibliometrics/test", r.Header.Get("User-Agent"))
			w.Write([]byte(`[{"recid": 1}]`))
		case "/bad":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	header := http.Header{"User-Agent": {"bibliometrics/test"}}

	var got []map[string]int
	require.NoError(t, GetJSON(context.Background(), ts.Client(), ts.URL+"/ok", header, 0, &got))
	assert.Equal(t, []map[string]int{{"recid": 1}}, got)

	err := GetJSON(context.Background(), ts.Client(), ts.URL+"/bad", header, 0, &got)
	assert.ErrorContains(t, err, "decoding response")

	err = GetJSON(context.Background(), ts.Client(), ts.URL+"/gone", header, 0, &got)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestThrottle(t *testing.T) {
	ctx := context.Background()

	var none *Throttle
	assert.NoError(t, none.Wait(ctx))
	assert.NoError(t, NewThrottle(0).Wait(ctx))

	th := NewThrottle(40 * time.Millisecond)
	start := time.Now()
	require.NoError(t, th.Wait(ctx))
	require.NoError(t, th.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, NewThrottle(time.Hour).Wait(cancelled))
}
