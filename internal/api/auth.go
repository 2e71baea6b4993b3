package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/citewatch/citewatch/internal/api/respond"
)

// RequireToken enforces a static bearer token when one is configured. An
// empty token disables the check (development mode); session management is
// an external collaborator's concern.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respond.WriteError(w, http.StatusUnauthorized, "invalid or missing credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
