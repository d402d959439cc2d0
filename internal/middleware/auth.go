package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
)

// AccessVerifier checks an access token and returns the user it was issued to.
type AccessVerifier interface {
	VerifyAccess(token string) (uuid.UUID, error)
}

// Authenticate rejects requests without a valid bearer access token with 401.
// On success the caller's auth.Identity is stored in the request context.
func Authenticate(v AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "Authentication required", "No valid authorization header found")
				return
			}
			userID, err := v.VerifyAccess(token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "Authentication failed", "Invalid or expired token")
				return
			}
			ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate stores the identity when a valid bearer token is present
// and otherwise lets the request through anonymously.
func OptionalAuthenticate(v AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if userID, err := v.VerifyAccess(token); err == nil {
					r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: userID}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[len("Bearer "):])
	return token, token != ""
}
