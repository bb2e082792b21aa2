package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/mlinsightlab/mlil/internal/auth"
	"github.com/mlinsightlab/mlil/pkg/types"
)

// Authenticator validates basic-auth credentials (username + API key).
type Authenticator interface {
	Verify(ctx context.Context, username, key string) (types.User, error)
}

// BasicAuth rejects requests without valid platform credentials and stores
// the authenticated user on the request context.
func BasicAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, key, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			u, err := a.Verify(r.Context(), username, key)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					unauthorized(w)
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "credential check failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
		})
	}
}

// RequireAdmin gates deployment and user management endpoints.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if u.Role != auth.RoleAdmin {
			writeJSONError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	authFailuresTotal.Inc()
	w.Header().Set("WWW-Authenticate", `Basic realm="mlil"`)
	writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
}
