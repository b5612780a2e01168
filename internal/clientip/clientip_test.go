package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func headers(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func TestFromHeadersPrecedence(t *testing.T) {
	cases := []struct {
		name string
		h    http.Header
		want string
	}{
		{
			"forwarded-for beats real-ip",
			headers("X-Forwarded-For", "1.1.1.1, 2.2.2.2", "X-Real-IP", "3.3.3.3"),
			"1.1.1.1",
		},
		{
			"forwarded-for first entry trimmed",
			headers("X-Forwarded-For", "  5.5.5.5 , 6.6.6.6"),
			"5.5.5.5",
		},
		{
			"real-ip beats cf",
			headers("X-Real-IP", "3.3.3.3", "CF-Connecting-IP", "4.4.4.4"),
			"3.3.3.3",
		},
		{
			"cf as last resort",
			headers("CF-Connecting-IP", "4.4.4.4"),
			"4.4.4.4",
		},
		{
			"nothing present",
			headers(),
			Unknown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromHeaders(tc.h))
		})
	}
}

func TestMiddlewareStoresIP(t *testing.T) {
	var got string
	h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromRequest(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-Forwarded-For", "7.7.7.7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "7.7.7.7", got)
}

func TestFromRequestFallsBackToHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-Real-IP", "8.8.8.8")
	assert.Equal(t, "8.8.8.8", FromRequest(r))
}
