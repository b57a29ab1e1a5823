package middleware

import (
	"context"
	"net/http"

	"github.com/meetgrid/server/internal/api/problem"
	"github.com/meetgrid/server/internal/auth"
)

const sessionKey contextKey = "session"

// RequireAuth resolves the bearer token to a session and stores it in the
// request context. Requests without a valid session get 401.
func RequireAuth(store auth.SessionStore, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := auth.ValidateSession(r.Context(), store, r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized,
					"Authentication required", err, env)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the authenticated session, or nil outside
// RequireAuth.
func SessionFromContext(ctx context.Context) *auth.Session {
	if session, ok := ctx.Value(sessionKey).(*auth.Session); ok {
		return session
	}
	return nil
}
