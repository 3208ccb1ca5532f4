package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits a request only when both the caller's per-identity
// window and the shared global window have tokens remaining; failing
// either is a rejection. An empty identity is always rejected
// (fail-closed), never falls back to the global-only check.
type Limiter struct {
	perIdentityCapacity int
	period              time.Duration
	global              *window
	now                 func() time.Time

	mu       sync.Mutex
	perIdent map[string]*window
}

// New builds a Limiter. perIdentityTokens is the per-caller budget per
// windowSeconds; globalTokens is the shared budget over the same
// window and must be >= perIdentityTokens (enforced by config
// validation, not re-checked here).
func New(perIdentityTokens, windowSeconds, globalTokens int) *Limiter {
	period := time.Duration(windowSeconds) * time.Second
	return &Limiter{
		perIdentityCapacity: perIdentityTokens,
		period:              period,
		global:              newWindow(globalTokens, period, nil),
		now:                 time.Now,
		perIdent:            make(map[string]*window),
	}
}

// Allow reports whether identity may proceed, consuming one token from
// both its own window and the global window if so. Both windows are
// checked before either is consumed, with both locks held, so a
// rejection by either window takes no token from the other.
func (l *Limiter) Allow(identity string) bool {
	if identity == "" {
		return false
	}

	w := l.identityWindow(identity)

	w.mu.Lock()
	l.global.mu.Lock()
	now := l.now()
	w.rollLocked(now)
	l.global.rollLocked(now)
	admit := w.tokens > 0 && l.global.tokens > 0
	if admit {
		w.tokens--
		l.global.tokens--
	}
	l.global.mu.Unlock()
	w.mu.Unlock()

	return admit
}

func (l *Limiter) identityWindow(identity string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.perIdent[identity]
	if !ok {
		w = newWindow(l.perIdentityCapacity, l.period, l.now)
		l.perIdent[identity] = w
	}
	return w
}
