package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/rs/zerolog/log"
)

type contextKey string

const claimsKey contextKey = "session_claims"

// Claims verifies the upstream identity token and places the resulting
// SessionClaims in the request context. Credential verification happened
// upstream; this layer only checks the token was signed with the shared
// secret and carries a complete claim set.
func Claims(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				http.Error(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			var tokenClaims models.JWTClaims
			token, err := jwt.ParseWithClaims(raw, &tokenClaims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Warn().Err(err).Msg("Invalid identity token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims := tokenClaims.SessionClaims()
			if claims.UserID == uuid.Nil || claims.TenantID == uuid.Nil || !claims.Role.Valid() {
				log.Warn().Str("role", string(claims.Role)).Msg("Incomplete session claims")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims extracts the session claims from the request context
func GetClaims(ctx context.Context) (models.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(models.SessionClaims)
	return claims, ok
}

// RequireRole gates a route to the given roles. It exists for control-plane
// routes (integrity triggers); data-plane scoping is the session context's
// job, not the router's.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				http.Error(w, "Missing session", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Not found", http.StatusNotFound)
		})
	}
}
