// Package ratelimit implements the request server's rate limiting: a
// per-identity fixed window of M tokens fully refilled every W seconds,
// plus a single global window of G tokens, G >= M. Both must admit a
// request for it to proceed.
//
// This is a hard per-window cap, not a continuously-refilled token
// bucket: once a window's budget is spent, no further requests are
// admitted until the window rolls over, even if that means a burst at
// the boundary and silence just before it. Each window is mutex-guarded
// with an injectable clock, and the refill rule is a single
// reset-at-boundary instead of a proportional top-up.
package ratelimit

import (
	"sync"
	"time"
)

// window is a single fixed-window counter: capacity tokens, entirely
// replenished every period.
type window struct {
	mu       sync.Mutex
	capacity int
	period   time.Duration
	tokens   int
	resetAt  time.Time
	now      func() time.Time
}

func newWindow(capacity int, period time.Duration, now func() time.Time) *window {
	if now == nil {
		now = time.Now
	}
	return &window{
		capacity: capacity,
		period:   period,
		tokens:   capacity,
		resetAt:  now().Add(period),
		now:      now,
	}
}

// take attempts to consume one token, rolling the window over first if
// its period has elapsed.
func (w *window) take() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rollLocked(w.now())
	if w.tokens <= 0 {
		return false
	}
	w.tokens--
	return true
}

func (w *window) remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked(w.now())
	return w.tokens
}

// rollLocked resets the window to full capacity once its period has
// elapsed. Caller must hold w.mu.
func (w *window) rollLocked(now time.Time) {
	if !now.Before(w.resetAt) {
		w.tokens = w.capacity
		w.resetAt = now.Add(w.period)
	}
}
