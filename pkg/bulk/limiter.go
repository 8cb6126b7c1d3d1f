package bulk

import (
	"context"
	"sync"
	"time"
)

const (
	defaultMaxActiveRequests  = 30
	defaultWaitBeforeContinue = 60 * time.Second
)

// Limiter bounds the number of bulk submissions in flight against one
// physical sink. It is a shared handle: every Writer bound to the same sink
// must be constructed with the same Limiter, so the bound covers total load
// rather than per-writer load. It also carries the shared count of
// successfully written documents, which is observability only.
//
// Waits are bounded: a blocked caller re-checks its condition every
// waitEach and reports each unproductive cycle through a stall callback, so
// callers can implement an abort policy on cumulative stalls. Every release
// wakes all waiters.
type Limiter struct {
	maxActive int
	waitEach  time.Duration

	mu          sync.Mutex
	wake        chan struct{}
	outstanding int
	totalDocs   int64
}

// NewLimiter creates a limiter admitting up to maxActive concurrent
// submissions, with blocked callers re-checking every waitEach.
// Non-positive arguments fall back to the defaults (30, 60s).
func NewLimiter(maxActive int, waitEach time.Duration) *Limiter {
	if maxActive <= 0 {
		maxActive = defaultMaxActiveRequests
	}
	if waitEach <= 0 {
		waitEach = defaultWaitBeforeContinue
	}
	return &Limiter{
		maxActive: maxActive,
		waitEach:  waitEach,
		wake:      make(chan struct{}),
	}
}

// AcquireSlot blocks until the outstanding count is below the maximum, then
// claims a slot and returns the new outstanding count. Each wait cycle that
// times out invokes onStall and the wait is retried; the loop itself never
// gives up. Returns early only when ctx is done.
func (l *Limiter) AcquireSlot(ctx context.Context, onStall func()) (int, error) {
	l.mu.Lock()
	for l.outstanding >= l.maxActive {
		wake := l.wake
		l.mu.Unlock()

		if err := l.waitSignal(ctx, wake, onStall); err != nil {
			return 0, err
		}
		l.mu.Lock()
	}
	l.outstanding++
	active := l.outstanding
	l.mu.Unlock()
	return active, nil
}

// ReleaseSlot returns a slot, adds succeeded to the shared document counter
// and wakes every blocked caller. It must be called exactly once per
// acquired slot, whichever path the submission took. The new counter total
// is returned for logging.
func (l *Limiter) ReleaseSlot(succeeded int) int64 {
	l.mu.Lock()
	l.outstanding--
	l.totalDocs += int64(succeeded)
	total := l.totalDocs
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()
	return total
}

// AwaitDrain blocks until no submissions are outstanding. Each wait cycle
// that times out invokes onStall; returning false from onStall abandons the
// drain with ErrTooManyStalls, leaving outstanding submissions to finish in
// the background.
func (l *Limiter) AwaitDrain(ctx context.Context, onStall func() bool) error {
	l.mu.Lock()
	for l.outstanding > 0 {
		wake := l.wake
		l.mu.Unlock()

		stop := false
		err := l.waitSignal(ctx, wake, func() {
			if onStall != nil && !onStall() {
				stop = true
			}
		})
		if err != nil {
			return err
		}
		if stop {
			return ErrTooManyStalls
		}
		l.mu.Lock()
	}
	l.mu.Unlock()
	return nil
}

// waitSignal waits for a release broadcast, a timeout, or ctx. A timeout is
// reported through onStall and treated as a retry, not an error.
func (l *Limiter) waitSignal(ctx context.Context, wake <-chan struct{}, onStall func()) error {
	timer := time.NewTimer(l.waitEach)
	defer timer.Stop()

	select {
	case <-wake:
		return nil
	case <-timer.C:
		if onStall != nil {
			onStall()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outstanding returns the number of submissions currently in flight.
func (l *Limiter) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outstanding
}

// TotalDocs returns the shared count of successfully written documents.
func (l *Limiter) TotalDocs() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalDocs
}

// MaxActive returns the configured concurrency bound.
func (l *Limiter) MaxActive() int {
	return l.maxActive
}

// WaitEach returns the configured per-cycle wait.
func (l *Limiter) WaitEach() time.Duration {
	return l.waitEach
}
