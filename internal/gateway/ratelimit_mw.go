package gateway

import (
	"net/http"
	"strconv"
	"time"

	"rategate/internal/clientip"
	"rategate/internal/ratelimit"
	"rategate/internal/routing"
)

// KeyFunc derives the quota key for a request. ip is the already-resolved
// client address.
type KeyFunc func(r *http.Request, ip string) string

// RateLimitOptions wires the limiter into the middleware chain. Zero values
// fall back to the standard tier, the default key scheme, and the wall clock.
type RateLimitOptions struct {
	Limiter ratelimit.Limiter
	Default ratelimit.Config

	KeyFn      KeyFunc
	Skip       func(r *http.Request) bool // bypass limiting entirely
	TrustedIPs map[string]struct{}        // client IPs never limited
	SkipPaths  map[string]struct{}        // ops endpoints

	Headers bool // emit X-RateLimit-* on every decision

	Now func() time.Time

	OnLimited func(routeID, tier string)
	OnError   func(routeID string)
}

// DefaultKey builds "ratelimit:<identifier>:<ip>:<path>". identifier falls
// back to the literal "default".
func DefaultKey(identifier, ip, path string) string {
	if identifier == "" {
		identifier = "default"
	}
	return "ratelimit:" + identifier + ":" + ip + ":" + path
}

// RateLimit admits or rejects requests against a sliding-window quota.
// A skipped, trusted, or bypassed request never touches the store.
func RateLimit(opts RateLimitOptions) Middleware {
	if !opts.Default.Valid() {
		opts.Default = ratelimit.Standard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := opts.SkipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if opts.Skip != nil && opts.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientip.FromRequest(r)
			if _, ok := opts.TrustedIPs[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}

			cfg, routeID := resolveConfig(opts.Default, r)

			key := DefaultKey(cfg.Identifier, ip, r.URL.Path)
			if opts.KeyFn != nil {
				key = opts.KeyFn(r, ip)
			}

			res, err := opts.Limiter.Check(r.Context(), key, cfg, opts.Now())
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(routeID)
				}
				writeError(w, http.StatusInternalServerError, "rate_limiter_error", "internal rate limiter error")
				return
			}

			if opts.Headers && res.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.Itoa(res.ResetIn))
			}

			if !res.Allowed {
				if opts.OnLimited != nil {
					opts.OnLimited(routeID, cfg.Identifier)
				}
				writeLimited(w, "Too many requests", res.ResetIn)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveConfig applies the matched route's tier and per-route override on top
// of the default config.
func resolveConfig(def ratelimit.Config, r *http.Request) (ratelimit.Config, string) {
	cfg := def
	routeID := "unknown"

	rt, ok := routing.RouteFrom(r)
	if !ok || rt == nil {
		return cfg, routeID
	}
	if rt.ID != "" {
		routeID = rt.ID
	}

	if tier, ok := ratelimit.Tier(rt.Tier); ok {
		cfg = tier
	}
	if rt.MaxRequests > 0 && rt.Window > 0 {
		cfg.MaxRequests = rt.MaxRequests
		cfg.Window = rt.Window
	}
	return cfg, routeID
}
