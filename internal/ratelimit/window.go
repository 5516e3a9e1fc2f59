// Package ratelimit implements sliding-window rate limiting for outbound
// provider requests. Each provider client owns one window sized to that
// provider's published quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow bounds the number of requests issued in any trailing
// window of the configured length. Wait blocks only the calling goroutine;
// enforcement never drops requests.
type SlidingWindow struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	timestamps []time.Time

	// now and sleep are swappable for tests with a fake clock
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlidingWindow creates a limiter allowing at most limit requests per
// trailing window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Wait blocks until the window has capacity for one more request, then
// records the request timestamp. It returns early with the context error
// if ctx is cancelled while waiting.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	w.mu.Lock()

	w.prune(w.now())

	// Loop rather than sleep once: another goroutine may claim the freed
	// slot while this one is sleeping.
	for len(w.timestamps) >= w.limit {
		// The oldest in-window timestamp ages out after
		// window - (now - oldest); waiting that long opens a slot.
		wait := w.window - w.now().Sub(w.timestamps[0])
		w.mu.Unlock()

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}

		w.mu.Lock()
		w.prune(w.now())
	}

	w.timestamps = append(w.timestamps, w.now())
	w.mu.Unlock()
	return nil
}

// Pending returns the number of requests currently inside the window.
func (w *SlidingWindow) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.timestamps)
}

// prune drops timestamps older than the trailing window. Callers hold mu.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
