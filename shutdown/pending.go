// Package shutdown provides the graceful shutdown orchestrator and the
// pieces it is composed of: the callback registry, lifecycle events,
// trigger sources and stock cleanup actions. Callback results come from
// core (Action, Result).
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrWaitAborted is returned by PendingTracker.Wait when the abort channel
// closes before all tracked work settled.
var ErrWaitAborted = errors.New("wait aborted: pending work did not settle")

// PendingTracker tracks in-flight non-blocking callback work and implements
// the settle-all join: Wait returns once every tracked result settled,
// whatever its outcome.
//
// Usage:
//
//	tracker := NewPendingTracker()
//
//	for _, result := range started {
//	    tracker.Track(result.Wait(), abort, func(err error) {
//	        if err != nil {
//	            log.Println("background cleanup failed:", err)
//	        }
//	    })
//	}
//
//	if err := tracker.Wait(abort); err != nil {
//	    log.Println("aborted while waiting")
//	}
type PendingTracker struct {
	wg     sync.WaitGroup
	active atomic.Int64
}

// NewPendingTracker creates an empty PendingTracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{}
}

// Track waits for ch on its own goroutine and calls onSettle with the settled
// value. A closed channel settles with nil. If abort closes first, onSettle
// is not called and the work stops being tracked.
func (t *PendingTracker) Track(ch <-chan error, abort <-chan struct{}, onSettle func(error)) {
	t.wg.Add(1)
	t.active.Add(1)

	go func() {
		defer func() {
			t.active.Add(-1)
			t.wg.Done()
		}()

		select {
		case err := <-ch:
			if onSettle != nil {
				onSettle(err)
			}
		case <-abort:
		}
	}()
}

// ActiveCount returns the number of tracked results that have not settled.
func (t *PendingTracker) ActiveCount() int64 {
	return t.active.Load()
}

// Wait blocks until every tracked result settled, or returns ErrWaitAborted
// when abort closes first. A nil abort channel never fires.
func (t *PendingTracker) Wait(abort <-chan struct{}) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-abort:
		return ErrWaitAborted
	}
}
