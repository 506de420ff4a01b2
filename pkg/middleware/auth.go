package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/contextkeys"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/httputil"
)

// AuthMiddleware resolves bearer tokens into caller identities
type AuthMiddleware struct {
	tokens *auth.TokenManager
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handler wraps an HTTP handler with authentication. The resolved identity
// carries the caller's organization; every downstream query scopes to it.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		identity, err := m.tokens.ResolveIdentity(r.Context(), parts[1])
		if err != nil {
			// Malformed, unknown, revoked and expired tokens are all reported
			// identically so the response leaks nothing about token state.
			httputil.WriteUnauthorized(w, errs.ErrUnauthenticated.Error())
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext extracts the authenticated identity from the context
func IdentityFromContext(ctx context.Context) *auth.Identity {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

// IdentityFromRequest extracts the authenticated identity from the request
func IdentityFromRequest(r *http.Request) *auth.Identity {
	return IdentityFromContext(r.Context())
}

// RequireRoles creates middleware that admits only the listed roles.
// Requests with no identity are rejected as unauthenticated.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromRequest(r)
			if identity == nil {
				httputil.WriteUnauthorized(w, errs.ErrUnauthenticated.Error())
				return
			}

			if !allowed[identity.Role] {
				httputil.WriteForbidden(w, errs.ErrForbidden.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner admits only organization owners
func RequireOwner() func(http.Handler) http.Handler {
	return RequireRoles(auth.RoleOwner)
}
