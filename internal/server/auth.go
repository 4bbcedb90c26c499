package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polpa/costengine/internal/core"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom extracts the authenticated caller from the request context.
func IdentityFrom(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey).(core.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the caller identity. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// claims is the JWT payload the authentication layer issues. Token issuance
// itself lives outside this service; only validation happens here.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates the bearer JWT and injects the caller identity
// into the request context. Requests without a valid token are rejected
// with 401 before any core operation runs.
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !parsed.Valid {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}

			c, ok := parsed.Claims.(*claims)
			if !ok || c.Subject == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token carries no subject")
				return
			}

			identity := core.Identity{UserID: c.Subject, Role: c.Role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WebhookAuthenticator guards the webhook endpoint with a shared-secret
// bearer credential. A mismatch rejects the request before the payload is
// even parsed, leaving the target record untouched.
func WebhookAuthenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook credential")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
