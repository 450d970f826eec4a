/*
middleware.go - Authentication and authorization middleware

PURPOSE:
  Bearer-token authentication backed by the auth package, plus the admin
  role gate. Verified claims travel in the request context so handlers can
  attribute writes (requestorEmail) without re-parsing the token.

SEE ALSO:
  - auth/: Token issuing and verification
  - server.go: Where these are mounted per route group
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/harborview/staffing-engine/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFrom returns the verified claims for the request, nil when the
// route is unauthenticated.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// RequireAuth verifies the Bearer token and stores the claims in context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireAdmin rejects non-admin roles. Mount after RequireAuth.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
