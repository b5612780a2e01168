// Package clientip resolves the client address from proxy headers. The
// gateway sits behind a CDN and an edge proxy, so RemoteAddr is never the
// real client.
package clientip

import (
	"context"
	"net/http"
	"strings"
)

// Unknown is returned when no recognized header carries an address.
const Unknown = "unknown"

type ctxKey int

const keyIP ctxKey = 0

// FromHeaders returns the client IP by precedence: first X-Forwarded-For
// entry, then X-Real-IP, then CF-Connecting-IP.
func FromHeaders(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := h.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := h.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return Unknown
}

// WithIP injects the resolved IP into context.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyIP, ip)
}

// IPFrom extracts the resolved IP from context (if present).
func IPFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(keyIP)
	if v == nil {
		return "", false
	}
	ip, ok := v.(string)
	return ip, ok
}

// FromRequest prefers the IP already resolved by Middleware and falls back to
// the headers.
func FromRequest(r *http.Request) string {
	if ip, ok := IPFrom(r.Context()); ok && ip != "" {
		return ip
	}
	return FromHeaders(r.Header)
}

// Middleware resolves the client IP once and stores it in the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIP(r.Context(), FromHeaders(r.Header))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
