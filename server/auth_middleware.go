package server

import (
	"context"
	"net/http"

	"github.com/leadcrm/go-crm-auth/token/jwt"
	"github.com/leadcrm/go-crm-auth/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the verified access token identity
const ContextKeyIdentity ContextKey = "identity"

// IdentityFromContext returns the identity attached by RequireSession.
func IdentityFromContext(ctx context.Context) (*jwt.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*jwt.Identity)
	return identity, ok
}

// RequireSession is middleware that validates the access token cookie on
// protected routes. The token is only ever read from the cookie, never from a
// URL or body. There is no implicit refresh here; refresh is a client-driven,
// separate round trip.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken := cookieValue(r, s.config.GetAccessCookieName())
			if rawToken == "" {
				writeError(w, http.StatusUnauthorized, KindUnauthorized, msgUnauthorized)
				return
			}

			identity, err := s.issuer.Verify(rawToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, KindUnauthorized, msgUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole gates a route to the given roles. Chain after RequireSession so
// the identity is present.
func (s *Server) RequireRole(allowed ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, KindUnauthorized, msgUnauthorized)
				return
			}

			for _, role := range allowed {
				if identity.Role == role {
					next(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, KindForbidden, msgForbidden)
		}
	}
}
