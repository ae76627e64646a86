package identity

import (
	"log/slog"
	"net/http"

	"github.com/palisade-sh/palisade/internal/authz"
)

// Middleware extracts identity claims into the request context. Requests
// without a user claim pass through anonymous; the enforcement gateway
// rejects them later. A present but malformed subject is rejected here
// so downstream code never sees a half-built actor.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.Header.Get(HeaderUser)
			if user == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := ParseActor(r.Header.Get(HeaderTenant), user, r.Header.Get(HeaderDepartment))
			if err != nil {
				if logger != nil {
					logger.Warn("malformed identity claims", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				authz.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.ContextWithActor(r.Context(), actor)))
		})
	}
}
