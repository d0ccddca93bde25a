package usecase

import (
	"context"
	"time"
)

// Defaults for waiting on an item whose create call may still be in flight
const (
	DefaultRenameTimeout  = 2500 * time.Millisecond
	DefaultRenameInterval = 120 * time.Millisecond
)

// pollUntil runs check every interval until it returns true.
// It gives up when timeout elapses or ctx is done.
func pollUntil(ctx context.Context, timeout, interval time.Duration, check func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if check() {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
