package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"reefops/internal/models"
)

type ctxKey string

const ctxUserKey ctxKey = "auth_claims"

// Middleware validates bearer tokens on every request and stores the claims
// in the request context. When cfg.RequireAuth is false, unauthenticated
// requests pass through without claims.
func Middleware(cfg models.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r, cfg.AllowQueryAuth)
			if token == "" {
				if cfg.RequireAuth {
					unauthorized(w, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(cfg.JWTSecret, token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from the Authorization header. WebSocket
// clients cannot set headers from browsers, so a token query parameter is
// accepted when allowQuery is set.
func BearerToken(r *http.Request, allowQuery bool) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// WithClaims stores claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxUserKey, claims)
}

// ClaimsFrom returns the claims stored by Middleware, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(ctxUserKey).(*Claims); ok {
		return claims
	}
	return nil
}

// UserIDFrom returns the authenticated user ID, or "".
func UserIDFrom(ctx context.Context) string {
	if claims := ClaimsFrom(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
