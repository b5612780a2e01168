package routing

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Route struct {
	ID      string
	Methods map[string]struct{}
	Prefix  string
	UpURL   *url.URL
	Timeout time.Duration

	// Rate-limit binding: Tier names a preset; MaxRequests/Window, when both
	// positive, override the tier for this route.
	Tier        string
	MaxRequests int
	Window      time.Duration
}

type Router struct {
	routes []*Route
}

func New() *Router {
	return &Router{}
}

func (r *Router) Add(rt *Route) {
	r.routes = append(r.routes, rt)
}

func (r *Router) Routes() []*Route {
	return r.routes
}

// Match finds the first route whose method set and path prefix cover the
// request. Prefixes match whole path segments: /api matches /api and /api/x,
// not /apix.
func (r *Router) Match(method, path string) (*Route, bool) {
	m := strings.ToUpper(method)
	for _, rt := range r.routes {
		if len(rt.Methods) > 0 {
			if _, ok := rt.Methods[m]; !ok {
				continue
			}
		}

		prefix := strings.TrimSuffix(strings.TrimSpace(rt.Prefix), "/")
		if prefix == "" {
			prefix = "/"
		}

		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return rt, true
		}
	}
	return nil, false
}

// --- context helpers ---

type ctxKey int

const keyRoute ctxKey = 0

func WithRoute(r *http.Request, rt *Route) *http.Request {
	ctx := context.WithValue(r.Context(), keyRoute, rt)
	return r.WithContext(ctx)
}

func RouteFrom(r *http.Request) (*Route, bool) {
	v := r.Context().Value(keyRoute)
	if v == nil {
		return nil, false
	}
	rt, ok := v.(*Route)
	return rt, ok
}
