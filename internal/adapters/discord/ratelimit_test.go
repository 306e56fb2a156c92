package discord

import (
	"testing"
	"time"
)

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(time.Second, 2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 not allowed")
	}
	if l.Allow("a") {
		t.Error("third click inside the window allowed")
	}
	if !l.Allow("b") {
		t.Error("other user throttled")
	}

	now = now.Add(1100 * time.Millisecond)
	if !l.Allow("a") {
		t.Error("token not refilled after a second")
	}
}

func TestUserLimiterPrune(t *testing.T) {
	l := newUserLimiter(time.Second, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(10 * time.Minute)
	l.Allow("fresh")

	if n := l.Prune(5 * time.Minute); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
	if _, ok := l.users["fresh"]; !ok {
		t.Error("active user pruned")
	}
}
