// Package server exposes the auth core over HTTP: four JSON endpoints
// (/auth/login, /auth/refresh, /auth/logout, /auth/me) plus the session
// middleware that gates protected routes.
package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/leadcrm/go-crm-auth/auth"
	"github.com/leadcrm/go-crm-auth/internal/config"
	"github.com/leadcrm/go-crm-auth/token"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service
	issuer *token.Issuer
}

func New(cfg config.Config, authService *auth.Service, issuer *token.Issuer) (*Server, error) {
	if authService == nil {
		return nil, ErrNilAuthService
	}
	if issuer == nil {
		return nil, ErrNilIssuer
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		issuer: issuer,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}
