package routing

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	up, err := url.Parse("http://upstream.local")
	require.NoError(t, err)

	r := New()
	r.Add(&Route{
		ID:      "auth-api",
		Methods: map[string]struct{}{"POST": {}},
		Prefix:  "/api/auth",
		UpURL:   up,
		Timeout: time.Second,
		Tier:    "auth",
	})
	r.Add(&Route{
		ID:      "data-api",
		Prefix:  "/api",
		UpURL:   up,
		Timeout: time.Second,
	})
	return r
}

func TestMatchPrefixAndMethod(t *testing.T) {
	r := newRouter(t)

	rt, ok := r.Match("POST", "/api/auth/login")
	require.True(t, ok)
	assert.Equal(t, "auth-api", rt.ID)

	// GET is not in auth-api's method set, so the generic route wins
	rt, ok = r.Match("GET", "/api/auth/login")
	require.True(t, ok)
	assert.Equal(t, "data-api", rt.ID)

	rt, ok = r.Match("get", "/api/servers")
	require.True(t, ok)
	assert.Equal(t, "data-api", rt.ID)
}

func TestMatchWholeSegmentsOnly(t *testing.T) {
	r := newRouter(t)

	_, ok := r.Match("GET", "/apix/servers")
	assert.False(t, ok)

	rt, ok := r.Match("GET", "/api")
	require.True(t, ok)
	assert.Equal(t, "data-api", rt.ID)
}

func TestRouteContextRoundTrip(t *testing.T) {
	rt := &Route{ID: "x"}
	req := httptest.NewRequest(http.MethodGet, "/api", nil)

	_, ok := RouteFrom(req)
	assert.False(t, ok)

	req = WithRoute(req, rt)
	got, ok := RouteFrom(req)
	require.True(t, ok)
	assert.Same(t, rt, got)
}
