package middleware

import (
	"context"
	"net/http"
	"strings"

	"practice-management-api/internal/auth"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

// Auth requires a valid Bearer token and puts the user id on the context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// token from Authorization: Bearer <jwt>
			raw := ""
			if h := r.Header.Get("Authorization"); h != "" {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
			if raw == "" {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok
}
