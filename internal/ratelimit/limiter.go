package ratelimit

import (
	"context"
	"time"
)

// Config parameterizes a single admission check. Callers usually start from a
// named tier (see tiers.go) and override fields as needed.
type Config struct {
	MaxRequests int           // admitted requests per trailing window
	Window      time.Duration // window length
	Identifier  string        // logical group name, part of the default key
}

// Valid reports whether the config can actually limit anything. Limiters treat
// an invalid config as permissive rather than erroring at check time.
func (c Config) Valid() bool {
	return c.MaxRequests > 0 && c.Window > 0
}

type Result struct {
	Allowed   bool
	Limit     int // max admissions per window for this check
	Remaining int // admissions left after this call (min 0)
	Current   int // in-window count after this call's effect
	ResetIn   int // whole seconds until the oldest in-window instant expires, min 1
}

// Limiter decides whether a unit of work keyed by a string is admitted under a
// sliding window. A denied check never consumes quota.
type Limiter interface {
	Check(ctx context.Context, key string, cfg Config, now time.Time) (Result, error)
	Close() error
}

// Inspector is the operator-facing view of a limiter's store.
type Inspector interface {
	Size(ctx context.Context) (int, error)
	Keys(ctx context.Context) ([]KeyInfo, error)
	Reset(ctx context.Context, key string) error
	ResetAll(ctx context.Context) error
}

// KeyInfo describes one tracked key as reported by Inspector.Keys.
type KeyInfo struct {
	Key       string    `json:"key"`
	Current   int       `json:"current"`
	FirstSeen time.Time `json:"first_seen"`
}

// ResetIn reports the whole seconds until the oldest in-window instant leaves
// the window, rounded up and clamped to at least one second. Both store
// backends use it so the countdown math lives in one place.
func ResetIn(oldest time.Time, window time.Duration, now time.Time) int {
	left := oldest.Add(window).Sub(now)
	secs := int((left + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
