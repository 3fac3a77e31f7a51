package main

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const claimsContextKey contextKey = "session_claims"

// authenticate validates the bearer session token and stashes its claims in
// the request context. No DB access happens here.
func (a *app) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errorJSON(w, http.StatusUnauthorized, "no token provided")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			errorJSON(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		claims, err := parseToken(a.cfg.JWTSecret, parts[1])
		if err != nil {
			errorJSON(w, http.StatusForbidden, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole refetches the user row on every request so role changes take
// effect immediately, not at next session issuance.
func (a *app) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				errorJSON(w, http.StatusUnauthorized, "no token provided")
				return
			}
			var u User
			if err := a.db.WithContext(r.Context()).First(&u, "id = ?", claims.UserID).Error; err != nil {
				errorJSON(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			errorJSON(w, http.StatusForbidden, "forbidden: insufficient role")
		})
	}
}

func claimsFromContext(ctx context.Context) *Claims {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return c
}
