package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dori/phitodo/internal/clock"
)

// maxRateLimitWait is the longest a refresh will block on an exhausted
// limit. Longer windows fail the request instead.
const maxRateLimitWait = 30 * time.Second

// rateLimitTracker records the X-RateLimit-* headers of each response so
// requests can pause before hitting an exhausted limit.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
	clock     clock.Clock
}

func newRateLimitTracker(clock clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clock}
}

func (tracker *rateLimitTracker) update(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.remaining = remaining
	tracker.reset = time.Unix(resetUnix, 0)
	tracker.known = true
}

// wait blocks until the limit resets when the last response reported
// zero remaining requests.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	if !tracker.known || tracker.remaining > 0 {
		tracker.mu.Unlock()
		return nil
	}
	sleep := tracker.reset.Sub(tracker.clock.Now())
	tracker.mu.Unlock()

	if sleep <= 0 {
		return nil
	}
	if sleep > maxRateLimitWait {
		return fmt.Errorf("github: rate limit exhausted until %s", tracker.reset.Format(time.Kitchen))
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfter returns the backoff for a rate-limited response: Retry-After
// first, then X-RateLimit-Reset. Zero means no usable hint, or a wait
// longer than a refresh should block.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	var wait time.Duration
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
		wait = time.Duration(seconds) * time.Second
	} else if resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		wait = time.Unix(resetUnix, 0).Sub(tracker.clock.Now())
	}
	if wait <= 0 || wait > maxRateLimitWait {
		return 0
	}
	return wait
}
