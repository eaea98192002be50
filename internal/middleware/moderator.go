package middleware

import (
	"context"
	"net/http"

	"github.com/rajasatyajit/ProtectLife/internal/auth"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
)

const (
	// UserIDHeader carries the caller identity set by the upstream gateway
	UserIDHeader = "X-User-ID"
	// DefaultModeratorHeader carries the moderator key
	DefaultModeratorHeader = "X-Moderator-Key"
)

type userIDKey struct{}

// UserID reads the trusted caller identity header into the context
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(UserIDHeader); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID returns the caller identity, empty if absent
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// Moderator requires a valid moderator key in header and attaches the
// principal to the request context
func Moderator(v *auth.Verifier, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultModeratorHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(header)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Clé de modération requise")
				return
			}

			principal, err := v.Verify(raw)
			if err != nil {
				logger.WithContext(r.Context()).Warn("Moderator key rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Clé de modération invalide")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
