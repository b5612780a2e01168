package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rategate/internal/ratelimit"
)

type entry struct {
	stamps    []time.Time
	firstSeen time.Time
	// window of the most recent check against this key; the sweep uses it so
	// a short-window caller cannot evict a long-window key early.
	window time.Duration
}

// Limiter is the in-process store: one timestamp list per key, filtered to the
// trailing window on every check. The read-filter-append sequence per key runs
// under one lock so concurrent callers cannot over- or under-count.
type Limiter struct {
	mu           sync.Mutex
	entries      map[string]*entry
	now          func() time.Time
	cleanupEvery time.Duration
	lastCleanup  time.Time
}

var (
	_ ratelimit.Limiter   = (*Limiter)(nil)
	_ ratelimit.Inspector = (*Limiter)(nil)
)

type Option func(*Limiter)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithCleanupInterval sets how often the opportunistic sweep may run.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) { l.cleanupEvery = d }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		entries:      make(map[string]*entry),
		now:          time.Now,
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastCleanup = l.now()
	return l
}

func (l *Limiter) Close() error { return nil }

func (l *Limiter) Check(_ context.Context, key string, cfg ratelimit.Config, now time.Time) (ratelimit.Result, error) {
	if !cfg.Valid() {
		return ratelimit.Result{Allowed: true, Limit: cfg.MaxRequests, ResetIn: 1}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	e, ok := l.entries[key]
	if !ok {
		e = &entry{firstSeen: now}
		l.entries[key] = e
	}
	e.window = cfg.Window

	// drop everything at or before the window start; a request exactly
	// window-old no longer counts
	windowStart := now.Add(-cfg.Window)
	kept := e.stamps[:0]
	for _, t := range e.stamps {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	e.stamps = kept

	if len(e.stamps) >= cfg.MaxRequests {
		// denied requests do not consume quota
		return ratelimit.Result{
			Allowed:   false,
			Limit:     cfg.MaxRequests,
			Remaining: 0,
			Current:   len(e.stamps),
			ResetIn:   ratelimit.ResetIn(e.stamps[0], cfg.Window, now),
		}, nil
	}

	e.stamps = append(e.stamps, now)
	return ratelimit.Result{
		Allowed:   true,
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests - len(e.stamps),
		Current:   len(e.stamps),
		ResetIn:   ratelimit.ResetIn(e.stamps[0], cfg.Window, now),
	}, nil
}

// maybeSweep drops keys whose every timestamp has left that key's own window.
// Throttled so heavy call volume does not turn it into a per-request scan.
// Best effort only: Check re-filters on every call regardless.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastCleanup) < l.cleanupEvery {
		return
	}
	l.lastCleanup = now
	for k, e := range l.entries {
		cutoff := now.Add(-e.window)
		live := false
		for _, t := range e.stamps {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, k)
		}
	}
}

func (l *Limiter) Size(context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries), nil
}

func (l *Limiter) Keys(context.Context) ([]ratelimit.KeyInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	infos := make([]ratelimit.KeyInfo, 0, len(l.entries))
	for k, e := range l.entries {
		infos = append(infos, ratelimit.KeyInfo{
			Key:       k,
			Current:   len(e.stamps),
			FirstSeen: e.firstSeen,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (l *Limiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

func (l *Limiter) ResetAll(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
	return nil
}
