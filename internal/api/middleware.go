package api

import (
	"context"
	"net/http"
	"strings"
)

// SessionResolver turns a bearer token into the staff session it belongs to.
// It returns an *apperr.Error for unknown, inactive or malformed callers.
type SessionResolver func(ctx context.Context, bearer string) (*Session, error)

// StaffAuth requires `Authorization: Bearer <JWT>` and attaches the resolved
// Session to the request context.
func StaffAuth(resolve SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "falta token de sesión")
				return
			}

			s, err := resolve(r.Context(), token)
			if err != nil {
				WriteDomainError(w, err, false)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireRole must run after StaffAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := SessionFromContext(r.Context())
			if s == nil {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "falta token de sesión")
				return
			}
			for _, role := range roles {
				if s.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "No autorizado")
		})
	}
}

func BearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
