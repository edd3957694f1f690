// Package ratelimit provides sliding-window admission control keyed by an
// arbitrary string.
package ratelimit

import (
	"sync"
	"time"
)

// GlobalKey is used when a report carries no fingerprint.
const GlobalKey = "global"

// Limiter admits at most capacity events per key within any trailing window.
//
// Locking: mu guards the windows map only. Each window carries its own mutex
// that serialises purge-and-append for that key, so concurrent calls on the
// same key can never both observe free capacity and both admit. Calls on
// different keys do not contend beyond the map lookup.
//
// Keys are created on first use and never removed. Callers must keep key
// cardinality bounded (hash fingerprints, not free text).
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	capacity int
	size     time.Duration
	now      func() time.Time
}

type window struct {
	mu     sync.Mutex
	events []time.Time // admission times, oldest first
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter admitting capacity events per window.
func New(capacity int, size time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		capacity: capacity,
		size:     size,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Capacity() int { return l.capacity }
func (l *Limiter) Window() time.Duration { return l.size }

// Keys returns the number of keys tracked so far.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) get(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	return w
}

// purge drops admissions that have left the window. An admission at t is
// inside the window while now-size < t. Caller holds w.mu.
func (w *window) purge(cutoff time.Time) {
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}

// IsAllowed reports whether key has capacity left and, if so, records an
// admission at the current time. A denial leaves the window untouched.
func (l *Limiter) IsAllowed(key string) bool {
	w := l.get(key)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.purge(now.Add(-l.size))
	if len(w.events) >= l.capacity {
		return false
	}
	w.events = append(w.events, now)
	return true
}

// Remaining returns how many more admissions key would get right now.
func (l *Limiter) Remaining(key string) int {
	w := l.get(key)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.purge(now.Add(-l.size))
	return max(0, l.capacity-len(w.events))
}

// ResetTime returns when the oldest admission for key leaves the window.
// ok is false when key holds no admissions.
func (l *Limiter) ResetTime(key string) (at time.Time, ok bool) {
	w := l.get(key)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.purge(now.Add(-l.size))
	if len(w.events) == 0 {
		return time.Time{}, false
	}
	return w.events[0].Add(l.size), true
}
