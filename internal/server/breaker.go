package server

import (
	"log/slog"
	"sync"
	"time"
)

// breaker opens for cooldown after threshold consecutive failed requests.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	fails     int
	openUntil time.Time
}

func newBreaker(threshold int, cooldown time.Duration, now func() time.Time) *breaker {
	return &breaker{threshold: max(threshold, 1), cooldown: cooldown, now: now}
}

// Allow reports whether the circuit is closed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.now().Before(b.openUntil)
}

// Record counts the outcome of an admitted request.
func (b *breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !failed {
		b.fails = 0
		return
	}
	b.fails++
	if b.fails >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
		b.fails = 0
		slog.Warn("circuit opened", "cooldown", b.cooldown, "until", b.openUntil)
	}
}
