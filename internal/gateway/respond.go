package gateway

import (
	"net/http"
	"strconv"
)

// local tiny JSON helpers shared by the gateway middlewares

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":{"code":"` + errCode + `","message":"` + msg + `"}}`))
}

func writeLimited(w http.ResponseWriter, msg string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"` + msg +
		`","retry_after":` + strconv.Itoa(retryAfter) + `}}`))
}
