package server

import (
	"net/http"
	"time"

	"github.com/leadcrm/go-crm-auth/token"
)

// setSessionCookies writes both halves of the token pair. The access cookie
// rides on every request; the refresh cookie is path-restricted so it only
// ever travels to the refresh endpoint.
func (s *Server) setSessionCookies(w http.ResponseWriter, pair *token.Pair) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetAccessCookieName(),
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(s.config.GetAccessTokenExpiry() / time.Second),
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetRefreshCookieName(),
		Value:    pair.RefreshToken.Token,
		Path:     s.config.GetRefreshCookiePath(),
		Expires:  pair.RefreshToken.ExpiresAt,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both cookies. Paths must match the set paths or
// browsers will keep the originals.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetAccessCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetRefreshCookieName(),
		Value:    "",
		Path:     s.config.GetRefreshCookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
	})
}

// cookieValue returns the named cookie's value, or "" when absent.
func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
