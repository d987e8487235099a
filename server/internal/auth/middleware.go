package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKey returns middleware that enforces API key authentication on every
// request routed through it.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed.
//   - Otherwise the value of header is compared to key in constant time.
//   - A missing, empty, or incorrect key answers 401 Unauthorized.
func APIKey(mode, header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if mode != "apikey" || key == "" {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Warn("auth: rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid api key"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
