package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tokengate"
)

// RenewedAccessTokenHeader carries the replacement access token to the
// client when the presented one had expired.
const RenewedAccessTokenHeader = "X-Renewed-Access-Token"

type authResultContextKey struct{}

// AuthResultFromContext returns the authentication result Guard stored in
// the request context.
func AuthResultFromContext(ctx context.Context) (tokengate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(tokengate.AuthResult)
	return res, ok
}

// Guard returns middleware that authenticates each request with the
// engine. The access token comes from the Authorization bearer header,
// the refresh token from the configured cookie. Missing credentials reply
// 401; failed verification replies 403; a store outage replies 503.
func Guard(engine *tokengate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			access, _ := bearerToken(r.Header.Get("Authorization"))
			refresh := refreshCookieValue(r, engine.CookieName())

			res, err := engine.Authenticate(r.Context(), access, refresh)
			if err != nil {
				switch {
				case errors.Is(err, tokengate.ErrUnauthorized):
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				case errors.Is(err, tokengate.ErrStoreUnavailable):
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				default:
					http.Error(w, "forbidden", http.StatusForbidden)
				}
				return
			}

			if res.Renewed() {
				w.Header().Set(RenewedAccessTokenHeader, res.RenewedAccessToken)
				w.Header().Add("Access-Control-Expose-Headers", RenewedAccessTokenHeader)
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func refreshCookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
