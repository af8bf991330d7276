package server

import "net/http"

// Route path constants
const (
	RouteLogin   = "/auth/login"
	RouteRefresh = "/auth/refresh"
	RouteLogout  = "/auth/logout"
	RouteMe      = "/auth/me"
	RouteHealth  = "/health"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteLogin, s.withStdMiddleware(s.LoginHandler()))
	s.RegisterRouteFunc("POST "+RouteRefresh, s.withStdMiddleware(s.RefreshHandler()))
	s.RegisterRouteFunc("POST "+RouteLogout, s.withStdMiddleware(s.LogoutHandler()))
	s.RegisterRouteFunc("GET "+RouteMe, s.withStdMiddleware(s.RequireSession()(s.MeHandler())))
	s.RegisterRouteFunc("GET "+RouteHealth, s.withStdMiddleware(s.HealthHandler()))

	// CORS preflight for any route; the Cors middleware answers OPTIONS.
	s.RegisterRouteFunc("OPTIONS /", s.Cors()(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func (s *Server) withStdMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return s.Cors()(s.RequestLogger()(next))
}
