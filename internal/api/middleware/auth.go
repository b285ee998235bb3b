package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/captain-draft/internal/api/apierr"
)

type contextKey string

const secretContextKey contextKey = "secret"

// BearerSecret requires an Authorization: Bearer header and stores the
// presented secret in the request context. Verifying it is up to the handler.
func BearerSecret() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := extractSecret(r)
			if secret == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			ctx := context.WithValue(r.Context(), secretContextKey, secret)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractSecret extracts the bearer secret from the request
func extractSecret(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetSecret returns the presented bearer secret from the request context
func GetSecret(ctx context.Context) string {
	secret, _ := ctx.Value(secretContextKey).(string)
	return secret
}

// MustGetSecret returns the bearer secret or panics
func MustGetSecret(ctx context.Context) string {
	secret := GetSecret(ctx)
	if secret == "" {
		panic("no secret in context - bearer middleware not applied?")
	}
	return secret
}
