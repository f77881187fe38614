package authinfra

import (
	"context"
	"sync"
	"time"
)

type attemptWindow struct {
	count   int
	expires time.Time
}

// MemoryAttemptLimiter is the single-process AttemptLimiter.
type MemoryAttemptLimiter struct {
	mu      sync.Mutex
	entries map[string]attemptWindow
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryAttemptLimiter(maxAttempts int, window time.Duration) *MemoryAttemptLimiter {
	return &MemoryAttemptLimiter{
		entries: make(map[string]attemptWindow),
		max:     maxAttempts,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (l *MemoryAttemptLimiter) WithClock(now func() time.Time) *MemoryAttemptLimiter {
	l.now = now
	return l
}

func (l *MemoryAttemptLimiter) Allow(_ context.Context, scope, subject string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.current(attemptKey(scope, subject))
	return !ok || e.count < l.max, nil
}

func (l *MemoryAttemptLimiter) RecordFailure(_ context.Context, scope, subject string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := attemptKey(scope, subject)
	e, ok := l.current(key)
	if !ok {
		e = attemptWindow{expires: l.now().Add(l.window)}
	}
	e.count++
	l.entries[key] = e
	return nil
}

func (l *MemoryAttemptLimiter) Reset(_ context.Context, scope, subject string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, attemptKey(scope, subject))
	return nil
}

// current returns the live window for key, dropping an expired one.
func (l *MemoryAttemptLimiter) current(key string) (attemptWindow, bool) {
	e, ok := l.entries[key]
	if !ok {
		return attemptWindow{}, false
	}
	if !l.now().Before(e.expires) {
		delete(l.entries, key)
		return attemptWindow{}, false
	}
	return e, true
}
