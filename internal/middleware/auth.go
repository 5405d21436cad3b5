package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// CredentialValidator resolves a bearer credential into an identity.
type CredentialValidator interface {
	Validate(ctx context.Context, credential string) (auth.Identity, error)
}

// SessionAuth validates the bearer credential from the Authorization
// header and stores the resolved identity in the request context.
func SessionAuth(validator CredentialValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := bearerToken(r)
			if credential == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			identity, err := validator.Validate(r.Context(), credential)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken supports both "Bearer <token>" and "<token>" formats.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	return strings.TrimSpace(token)
}

// GetIdentity extracts the authenticated identity from the context.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// EngineKeyAuth guards the internal progress endpoint with a shared key
// (constant-time comparison to prevent timing attacks).
func EngineKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := bearerToken(r)
			if key == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
				http.Error(w, "invalid engine key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
