package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const adminContextKey contextKey = "admin"

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// IdentifyAdmin marks requests carrying the admin bearer token. It never
// rejects a request; handlers decide what admins may additionally see.
// An empty adminToken means nobody is an admin.
func IdentifyAdmin(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			isAdmin := adminToken != "" && token != "" &&
				subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) == 1
			next.ServeHTTP(w, r.WithContext(SetAdminInContext(r.Context(), isAdmin)))
		})
	}
}

// RequireAdmin rejects requests not marked by IdentifyAdmin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="facegate"`)
			http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsAdmin reports whether the request was authenticated as admin.
func IsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(adminContextKey).(bool)
	return isAdmin
}

// SetAdminInContext marks a context as admin.
// This is primarily for testing - use IdentifyAdmin middleware in production.
func SetAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, adminContextKey, isAdmin)
}
