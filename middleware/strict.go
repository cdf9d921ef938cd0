package middleware

import (
	"context"
	"net/http"

	"tokengate"
)

// RequireAccess returns middleware that verifies the access token strictly,
// with no renewal path. Expired tokens are rejected with 403. Use this for
// endpoints that must never accept a stale access token.
func RequireAccess(engine *tokengate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			access, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.ValidateAccess(access)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, tokengate.AuthResult{User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
