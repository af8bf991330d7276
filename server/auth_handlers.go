package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/leadcrm/go-crm-auth/auth"
	"github.com/leadcrm/go-crm-auth/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User users.User `json:"user"`
}

type refreshResponse struct {
	Success bool       `json:"success"`
	User    users.User `json:"user"`
}

type logoutResponse struct {
	Msg string `json:"msg"`
}

// LoginHandler authenticates the credentials and sets the session cookies.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, KindBadRequest, "Invalid request body")
			return
		}

		user, pair, err := s.auth.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusBadRequest, KindInvalidCredentials, msgInvalidCredentials)
				return
			}
			log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, KindServerError, msgServerError)
			return
		}

		s.setSessionCookies(w, pair)
		writeJSON(w, http.StatusOK, loginResponse{User: *user})
	}
}

// RefreshHandler exchanges a valid refresh cookie for a rotated token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incoming := cookieValue(r, s.config.GetRefreshCookieName())

		user, pair, err := s.auth.Refresh(r.Context(), incoming, clientIP(r), r.UserAgent())
		if err != nil {
			if errors.Is(err, auth.ErrNoToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, KindInvalidToken, msgInvalidToken)
				return
			}
			log.Error().Err(err).Msg("refresh failed")
			writeError(w, http.StatusInternalServerError, KindServerError, msgServerError)
			return
		}

		s.setSessionCookies(w, pair)
		writeJSON(w, http.StatusOK, refreshResponse{Success: true, User: *user})
	}
}

// LogoutHandler revokes the stored refresh token if one was presented and
// clears both cookies. The refresh cookie is path-restricted to the refresh
// endpoint, so it is usually absent here; revocation is best effort and the
// cookies are cleared no matter what.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if incoming := cookieValue(r, s.config.GetRefreshCookieName()); incoming != "" {
			if err := s.auth.Logout(r.Context(), incoming); err != nil {
				log.Error().Err(err).Msg("logout revocation failed")
			}
		}

		s.clearSessionCookies(w)
		writeJSON(w, http.StatusOK, logoutResponse{Msg: msgLoggedOut})
	}
}

// MeHandler returns the authenticated user's public profile. Gated by
// RequireSession.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, KindUnauthorized, msgUnauthorized)
			return
		}

		user, err := s.auth.CurrentUser(r.Context(), identity.UserID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, KindUnauthorized, msgUnauthorized)
				return
			}
			log.Error().Err(err).Msg("current user lookup failed")
			writeError(w, http.StatusInternalServerError, KindServerError, msgServerError)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// HealthHandler is a plain liveness probe.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// clientIP prefers the X-Forwarded-For chain set by the reverse proxy and
// falls back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
