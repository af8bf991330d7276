package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/leadcrm/go-crm-auth/users"
)

// State is the session coordinator's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Session coordinates the client-side view of the authenticated user: it
// performs exactly one initial session probe, tracks login/logout
// transitions, and is forcibly reset when the transport gives up on a
// refresh.
type Session struct {
	api *API

	mu               sync.Mutex
	state            State
	user             *users.User
	err              error
	initialCheckDone bool
	checking         bool
	onInvalidate     func() // cache invalidation hook, e.g. dropping query caches
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithInvalidateHook registers a callback fired whenever the session resets
// to anonymous, so cached derived data can be dropped alongside it.
func WithInvalidateHook(hook func()) SessionOption {
	return func(s *Session) {
		s.onInvalidate = hook
	}
}

// NewSession creates a coordinator bound to the API client and registers
// itself as the transport's forced-logout target.
func NewSession(api *API, options ...SessionOption) *Session {
	s := &Session{
		api:   api,
		state: StateUninitialized,
	}
	for _, opt := range options {
		opt(s)
	}
	api.Transport().SetAuthFailureHandler(s.ForceLogout)
	return s
}

// CheckSession runs the initial "who am I" probe. It executes at most once
// per Session lifetime; concurrent and repeat calls before or after
// completion are no-ops. A 401/403 answer is the normal anonymous outcome,
// not an error; Err is only set for network or server faults.
func (s *Session) CheckSession(ctx context.Context) {
	s.mu.Lock()
	if s.initialCheckDone || s.checking {
		s.mu.Unlock()
		return
	}
	s.checking = true
	s.state = StateChecking
	s.mu.Unlock()

	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checking = false
	s.initialCheckDone = true

	if err != nil {
		s.user = nil
		s.state = StateAnonymous
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.IsAuthStatus():
			s.err = nil // not logged in is not an error
		case errors.Is(err, ErrSessionExpired):
			s.err = nil // refresh gave up; same anonymous outcome
		default:
			s.err = err
		}
		return
	}

	s.user = user
	s.state = StateAuthenticated
	s.err = nil
}

// Login authenticates and transitions to AUTHENTICATED, returning the user.
// On failure the error is recorded and the state stays ANONYMOUS.
func (s *Session) Login(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.api.Login(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.user = nil
		s.state = StateAnonymous
		s.err = err
		return nil, err
	}

	s.user = user
	s.state = StateAuthenticated
	s.err = nil
	return user, nil
}

// Logout revokes the session server-side, then unconditionally resets local
// state to ANONYMOUS. A network failure on the revocation call never leaves
// the client half logged in; it is logged by the caller if at all.
func (s *Session) Logout(ctx context.Context) {
	_ = s.api.Logout(ctx)
	s.reset()
}

// ForceLogout resets local state without a server round trip. Wired as the
// transport's refresh-failure handler.
func (s *Session) ForceLogout() {
	s.reset()
}

func (s *Session) reset() {
	s.mu.Lock()
	s.user = nil
	s.state = StateAnonymous
	s.err = nil
	hook := s.onInvalidate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// ClearError drops a recorded login/check error.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the current user, or nil when anonymous.
func (s *Session) User() *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAuthenticated
}

// Loading reports whether the initial session probe is still in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checking
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
