package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rateboard-io/corpus/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// RequireUser reads the X-User-ID header set by the API gateway and puts it
// on the request context. Requests without it are rejected.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			api.Error(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
