package gateway

import (
	"encoding/json"
	"net/http"

	"rategate/internal/ratelimit"
)

// Admin serves the limiter's operational escape hatches on one path:
//
//	GET    /ratelimit/keys            store size and tracked keys
//	DELETE /ratelimit/keys?key=<key>  clear one key
//	DELETE /ratelimit/keys            clear the whole store
//
// It must be mounted on an ops-only listener or path set; the limiter itself
// skips it.
func Admin(ins ratelimit.Inspector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			keys, err := ins.Keys(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "store_error", err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(struct {
				Size int                 `json:"size"`
				Keys []ratelimit.KeyInfo `json:"keys"`
			}{Size: len(keys), Keys: keys})

		case http.MethodDelete:
			var err error
			if key := r.URL.Query().Get("key"); key != "" {
				err = ins.Reset(r.Context(), key)
			} else {
				err = ins.ResetAll(r.Context())
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "store_error", err.Error())
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or DELETE")
		}
	})
}
