// Package auth is a single-operator bearer-token gate for the MCP and
// budget-status HTTP surfaces. Unlike a multi-tenant API-key system, this
// daemon has exactly one operator, so the whole permission/role machinery
// collapses to "does the bearer token match the configured hash."
package auth

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BearerMiddleware wraps next with an Authorization: Bearer <token> check
// against tokenHash (a bcrypt hash, as produced by bcrypt.GenerateFromPassword).
// An empty tokenHash disables auth entirely — the handler is served unwrapped
// — matching config.Config's documented "empty disables auth" contract.
func BearerMiddleware(tokenHash string, next http.Handler) http.Handler {
	if tokenHash == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}
