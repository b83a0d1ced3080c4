// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package job

import "sync/atomic"

// Token is a cooperative cancellation flag shared between the goroutine
// that requests a stop and the worker that polls for it. The zero value is
// ready to use; a nil *Token is never cancelled.
type Token struct {
	cancelled atomic.Bool
	observed  atomic.Bool
}

// Cancel asks the worker to stop at its next poll.
func (t *Token) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether a stop was requested. A true result is recorded
// as observed, which is what turns a finished job into Cancelled.
func (t *Token) Cancelled() bool {
	if t == nil || !t.cancelled.Load() {
		return false
	}
	t.observed.Store(true)
	return true
}

// Observed reports whether the worker has seen the cancellation.
func (t *Token) Observed() bool {
	return t != nil && t.observed.Load()
}
