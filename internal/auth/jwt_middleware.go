package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/casework/internal/tenant"
)

// Principal represents an authenticated user from a session token.
// This is added to the request context after successful verification.
type Principal struct {
	UserID    string
	OrgID     string
	Role      string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type contextKey int

const (
	principalContextKey contextKey = iota
)

// WithPrincipal returns a context carrying principal and its organization as the tenant.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	ctx = context.WithValue(ctx, principalContextKey, principal)
	return tenant.WithOrgID(ctx, principal.OrgID)
}

// PrincipalFromContext extracts the authenticated principal from the request context.
// Returns nil if no principal is present (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey).(*Principal)
	return principal
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// Middleware returns an HTTP middleware that requires a valid bearer token.
func Middleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				log.Debug().Str("path", r.URL.Path).Msg("Missing Authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), tokenString)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to verify session token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects principals whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn().Str("user_id", principal.UserID).Str("role", principal.Role).Str("path", r.URL.Path).Msg("Role not permitted")
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// RequirePermissionMiddleware rejects principals whose role lacks perm.
func RequirePermissionMiddleware(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := RequirePermission(r.Context(), perm); err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Permission denied")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
