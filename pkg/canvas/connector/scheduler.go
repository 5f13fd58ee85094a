package connector

import (
	"sync"
	"time"
)

// Default refresh delays after a state change, catching asynchronous
// reflow of variable-height content that the height-measurement
// mechanism has not reported yet.
var DefaultRefreshDelays = []time.Duration{
	50 * time.Millisecond,
	250 * time.Millisecond,
}

// RefreshScheduler invokes a recompute callback immediately and again
// after short fixed delays. Triggering again cancels the pending delayed
// invocations and starts over.
type RefreshScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	timers  []*time.Timer
	stopped bool
	fn      func()
}

func NewRefreshScheduler(fn func(), delays ...time.Duration) *RefreshScheduler {
	if len(delays) == 0 {
		delays = DefaultRefreshDelays
	}
	return &RefreshScheduler{
		delays: delays,
		fn:     fn,
	}
}

// Trigger runs the callback now and schedules the delayed re-runs.
func (s *RefreshScheduler) Trigger() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.cancelPendingLocked()
	for _, d := range s.delays {
		s.timers = append(s.timers, time.AfterFunc(d, s.fn))
	}
	s.mu.Unlock()

	s.fn()
}

// Stop cancels all pending invocations. The scheduler cannot be reused.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancelPendingLocked()
}

func (s *RefreshScheduler) cancelPendingLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]
}
