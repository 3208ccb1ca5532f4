package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRejectsEmptyIdentity(t *testing.T) {
	l := New(5, 60, 10)
	if l.Allow("") {
		t.Fatal("expected empty identity to be rejected")
	}
}

func TestAllowEnforcesPerIdentityCap(t *testing.T) {
	l := New(2, 60, 100)
	if !l.Allow("alice") || !l.Allow("alice") {
		t.Fatal("expected first two requests to be admitted")
	}
	if l.Allow("alice") {
		t.Fatal("expected third request to be rejected once per-identity budget is spent")
	}
}

func TestAllowTracksIdentitiesIndependently(t *testing.T) {
	l := New(1, 60, 100)
	if !l.Allow("alice") {
		t.Fatal("expected alice's first request to be admitted")
	}
	if !l.Allow("bob") {
		t.Fatal("expected bob's independent budget to admit his first request")
	}
	if l.Allow("alice") {
		t.Fatal("expected alice's second request to be rejected")
	}
}

func TestAllowEnforcesGlobalCapAcrossIdentities(t *testing.T) {
	l := New(10, 60, 2)
	if !l.Allow("alice") || !l.Allow("bob") {
		t.Fatal("expected first two requests across identities to be admitted")
	}
	if l.Allow("carol") {
		t.Fatal("expected third request to be rejected once the global budget is spent")
	}
}

func TestWindowResetsAfterPeriodElapses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := newWindow(1, time.Second, clock.Now)

	if !w.take() {
		t.Fatal("expected first take to succeed")
	}
	if w.take() {
		t.Fatal("expected second take to be rejected within the same window")
	}

	clock.t = clock.t.Add(2 * time.Second)
	if !w.take() {
		t.Fatal("expected take to succeed again once the window has rolled over")
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
