// Package middleware provides net/http middleware that guards protected
// catalogue routes with libauth access tokens.
package middleware

import (
	"context"
	"net/http"
	"strings"

	libauth "github.com/cataloghq/libauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validation result Guard attached to
// the request context.
func AuthResultFromContext(ctx context.Context) (*libauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*libauth.AuthResult)
	return res, ok
}

// Guard validates the Bearer access token on every request and injects the
// result into the request context. Any failure answers 401 without detail.
func Guard(engine *libauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole layers a role gate on top of Guard: the validated result must
// carry one of the allowed roles. Answers 403 when the identity is valid
// but the role is not.
func RequireRole(allowed ...libauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if res.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
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
