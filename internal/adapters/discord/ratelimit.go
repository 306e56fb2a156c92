package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter: un token bucket por usuario para los clicks.
type userLimiter struct {
	mu    sync.Mutex
	users map[string]*limiterEntry
	every time.Duration
	burst int
	now   func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newUserLimiter(every time.Duration, burst int) *userLimiter {
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{users: map[string]*limiterEntry{}, every: every, burst: burst, now: time.Now}
}

func (l *userLimiter) Allow(userID string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.users[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.users[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Prune olvida a los usuarios quietos hace más de idle.
func (l *userLimiter) Prune(idle time.Duration) int {
	cut := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, e := range l.users {
		if e.seen.Before(cut) {
			delete(l.users, id)
			n++
		}
	}
	return n
}
